package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/saral-bhoomi/ledger/src/ledger"
	"github.com/saral-bhoomi/ledger/src/sections"
	"github.com/saral-bhoomi/ledger/src/utils/config"
	"github.com/saral-bhoomi/ledger/src/utils/model"
	monitor_ledger "github.com/saral-bhoomi/ledger/src/utils/monitoring/ledger"
	"github.com/saral-bhoomi/ledger/src/verify"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"testing"
)

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

type ServerTestSuite struct {
	suite.Suite
	config *config.Config

	storage *stubStorage
	source  *stubSource
	server  *Server
}

func (s *ServerTestSuite) SetupSuite() {
	s.config = config.Default()
}

func (s *ServerTestSuite) SetupTest() {
	s.storage = newStubStorage()
	s.source = newStubSource()

	recorder := ledger.NewRecorder(s.config).WithStorage(s.storage)
	builder := ledger.NewBuilder(s.config).WithStorage(s.storage).WithRecorder(recorder)
	verifier := verify.NewVerifier(s.config).WithStorage(s.storage).WithSource(s.source)

	s.server = NewServer(s.config).
		WithStorage(s.storage).
		WithBuilder(builder).
		WithRecorder(recorder).
		WithVerifier(verifier).
		WithMonitor(monitor_ledger.NewMonitor())
}

func (s *ServerTestSuite) request(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.Nil(s.T(), err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	s.server.Router.ServeHTTP(recorder, req)
	return recorder
}

func (s *ServerTestSuite) record(surveyNumber string, section string, data map[string]any) {
	recorder := s.request(http.MethodPost, "/v1/ledger", map[string]any{
		"survey_number": surveyNumber,
		"section":       section,
		"data":          data,
		"officer_id":    "OFF1",
		"project_id":    "PRJ1",
	})
	require.Equal(s.T(), http.StatusOK, recorder.Code)
	s.source.set(surveyNumber, model.SectionKey(section), data)
}

func (s *ServerTestSuite) TestRecordAndFetch() {
	s.record("67-4", "jmr", map[string]any{"measured_area": 0.013})

	recorder := s.request(http.MethodGet, "/v1/ledger/67-4", nil)
	require.Equal(s.T(), http.StatusOK, recorder.Code)

	var block model.Block
	require.Nil(s.T(), json.Unmarshal(recorder.Body.Bytes(), &block))
	require.Equal(s.T(), "67-4", block.SurveyNumber)
	require.Equal(s.T(), model.GenesisHash, block.PreviousHash)
}

func (s *ServerTestSuite) TestRecordRejectsUnknownSection() {
	recorder := s.request(http.MethodPost, "/v1/ledger", map[string]any{
		"survey_number": "67-4",
		"section":       "bogus",
		"data":          map[string]any{"x": 1},
	})
	require.Equal(s.T(), http.StatusBadRequest, recorder.Code)
}

func (s *ServerTestSuite) TestUnknownSurveyIs404() {
	recorder := s.request(http.MethodGet, "/v1/ledger/nothing", nil)
	require.Equal(s.T(), http.StatusNotFound, recorder.Code)

	recorder = s.request(http.MethodGet, "/v1/ledger/nothing/timeline", nil)
	require.Equal(s.T(), http.StatusNotFound, recorder.Code)
}

func (s *ServerTestSuite) TestTimeline() {
	s.record("67-4", "jmr", map[string]any{"measured_area": 0.013})
	s.record("67-4", "notice", map[string]any{"notice_number": "N-1"})

	recorder := s.request(http.MethodGet, "/v1/ledger/67-4/timeline", nil)
	require.Equal(s.T(), http.StatusOK, recorder.Code)

	var out struct {
		SurveyNumber string                 `json:"survey_number"`
		Events       []*model.TimelineEvent `json:"events"`
	}
	require.Nil(s.T(), json.Unmarshal(recorder.Body.Bytes(), &out))
	require.Len(s.T(), out.Events, 2)
	require.Equal(s.T(), -1, ledger.VerifyChain(out.Events))
}

func (s *ServerTestSuite) TestVerifyEndpoint() {
	s.record("67-4", "jmr", map[string]any{"measured_area": 0.013})

	recorder := s.request(http.MethodGet, "/v1/ledger/67-4/verify", nil)
	require.Equal(s.T(), http.StatusOK, recorder.Code)

	var verdict verify.Verdict
	require.Nil(s.T(), json.Unmarshal(recorder.Body.Bytes(), &verdict))
	require.Equal(s.T(), verify.StatusVerified, verdict.Status)
	require.True(s.T(), verdict.IsValid)

	// The verdict is persisted on the block
	block, err := s.storage.GetBlock(context.Background(), "67-4")
	require.Nil(s.T(), err)
	require.True(s.T(), block.IsValid)
}

func (s *ServerTestSuite) TestVerifyFlagsTampering() {
	s.record("67-4", "jmr", map[string]any{"measured_area": 0.013})
	s.source.set("67-4", model.SectionJMR, map[string]any{"measured_area": 0.02})

	recorder := s.request(http.MethodGet, "/v1/ledger/67-4/verify", nil)
	require.Equal(s.T(), http.StatusOK, recorder.Code)

	var verdict verify.Verdict
	require.Nil(s.T(), json.Unmarshal(recorder.Body.Bytes(), &verdict))
	require.Equal(s.T(), verify.StatusCompromised, verdict.Status)

	block, err := s.storage.GetBlock(context.Background(), "67-4")
	require.Nil(s.T(), err)
	require.False(s.T(), block.IsValid)
	require.NotEmpty(s.T(), block.ValidationErrors)
}

func (s *ServerTestSuite) TestBulkVerify() {
	s.record("67-4", "jmr", map[string]any{"measured_area": 0.013})
	s.record("67-5", "jmr", map[string]any{"measured_area": 0.5})
	s.source.set("67-5", model.SectionJMR, map[string]any{"measured_area": 99.0})

	recorder := s.request(http.MethodPost, "/v1/verify", map[string]any{})
	require.Equal(s.T(), http.StatusOK, recorder.Code)

	var out struct {
		Total    int               `json:"total"`
		Valid    int               `json:"valid"`
		Invalid  int               `json:"invalid"`
		Verdicts []*verify.Verdict `json:"verdicts"`
	}
	require.Nil(s.T(), json.Unmarshal(recorder.Body.Bytes(), &out))
	require.Equal(s.T(), 2, out.Total)
	require.Equal(s.T(), 1, out.Valid)
	require.Equal(s.T(), 1, out.Invalid)
}

func (s *ServerTestSuite) TestBulkVerifyBySurveyNumbers() {
	s.record("67-4", "jmr", map[string]any{"measured_area": 0.013})
	s.record("67-5", "jmr", map[string]any{"measured_area": 0.5})

	recorder := s.request(http.MethodPost, "/v1/verify", map[string]any{
		"survey_numbers": []string{"67-4", "no-such-survey"},
	})
	require.Equal(s.T(), http.StatusOK, recorder.Code)

	var out struct {
		Total    int               `json:"total"`
		Verdicts []*verify.Verdict `json:"verdicts"`
	}
	require.Nil(s.T(), json.Unmarshal(recorder.Body.Bytes(), &out))
	require.Equal(s.T(), 2, out.Total)
	require.Equal(s.T(), verify.StatusNotOnLedger, out.Verdicts[1].Status)
}

// Minimal in-memory storage for handler tests
type stubStorage struct {
	mtx sync.Mutex

	blocks map[string]*model.Block
	events map[string][]*model.TimelineEvent

	nextBlockId int64
	nextEventId int64
}

func newStubStorage() *stubStorage {
	return &stubStorage{
		blocks: make(map[string]*model.Block),
		events: make(map[string][]*model.TimelineEvent),
	}
}

func (self *stubStorage) GetBlock(ctx context.Context, surveyNumber string) (*model.Block, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	block, ok := self.blocks[surveyNumber]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	out := *block
	return &out, nil
}

func (self *stubStorage) SaveBlock(ctx context.Context, block *model.Block) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	if block.ID == 0 {
		if _, ok := self.blocks[block.SurveyNumber]; ok {
			return ledger.ErrConflict
		}
		self.nextBlockId += 1
		block.ID = self.nextBlockId
		block.Version = 1
		block.CreatedAt = time.Now().UTC()
	} else {
		stored, ok := self.blocks[block.SurveyNumber]
		if !ok || stored.Version != block.Version {
			return ledger.ErrConflict
		}
		block.Version += 1
	}

	stored := *block
	self.blocks[block.SurveyNumber] = &stored
	return nil
}

func (self *stubStorage) ScanBlocks(ctx context.Context, afterId int64, limit int) (blocks []*model.Block, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	for id := afterId + 1; id <= self.nextBlockId && len(blocks) < limit; id++ {
		for _, block := range self.blocks {
			if block.ID == id {
				out := *block
				blocks = append(blocks, &out)
			}
		}
	}
	return
}

func (self *stubStorage) UpdateVerdict(ctx context.Context, surveyNumber string, isValid bool, validationErrors []string) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	block, ok := self.blocks[surveyNumber]
	if !ok {
		return ledger.ErrNotFound
	}
	block.IsValid = isValid
	block.ValidationErrors = pq.StringArray(validationErrors)
	return nil
}

func (self *stubStorage) AppendEvent(ctx context.Context, event *model.TimelineEvent) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	self.nextEventId += 1
	event.ID = self.nextEventId
	stored := *event
	self.events[event.SurveyNumber] = append(self.events[event.SurveyNumber], &stored)
	return nil
}

func (self *stubStorage) LastEvent(ctx context.Context, surveyNumber string) (*model.TimelineEvent, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	events := self.events[surveyNumber]
	if len(events) == 0 {
		return nil, ledger.ErrNotFound
	}
	out := *events[len(events)-1]
	return &out, nil
}

func (self *stubStorage) ListEvents(ctx context.Context, surveyNumber string) (events []*model.TimelineEvent, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	for _, event := range self.events[surveyNumber] {
		out := *event
		events = append(events, &out)
	}
	return
}

type stubSource struct {
	mtx  sync.Mutex
	data map[string]map[model.SectionKey]model.Document
}

func newStubSource() *stubSource {
	return &stubSource{data: make(map[string]map[model.SectionKey]model.Document)}
}

func (self *stubSource) set(surveyNumber string, key model.SectionKey, doc map[string]any) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	if self.data[surveyNumber] == nil {
		self.data[surveyNumber] = make(map[model.SectionKey]model.Document)
	}
	self.data[surveyNumber][key] = doc
}

func (self *stubSource) GetCurrentSectionData(ctx context.Context, surveyNumber string, key model.SectionKey) (model.Document, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	doc, ok := self.data[surveyNumber][key]
	if !ok {
		return nil, sections.ErrNotFound
	}
	return doc, nil
}
