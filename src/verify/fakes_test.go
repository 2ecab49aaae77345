package verify

import (
	"context"
	"sync"
	"time"

	"github.com/saral-bhoomi/ledger/src/ledger"
	"github.com/saral-bhoomi/ledger/src/sections"
	"github.com/saral-bhoomi/ledger/src/utils/model"

	"github.com/lib/pq"
)

// In-memory ledger.Storage with the same uniqueness and version
// semantics as the Postgres store
type fakeStorage struct {
	mtx sync.Mutex

	blocks map[string]*model.Block
	events map[string][]*model.TimelineEvent

	nextBlockId int64
	nextEventId int64
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		blocks: make(map[string]*model.Block),
		events: make(map[string][]*model.TimelineEvent),
	}
}

func (self *fakeStorage) GetBlock(ctx context.Context, surveyNumber string) (*model.Block, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	block, ok := self.blocks[surveyNumber]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	out := *block
	return &out, nil
}

func (self *fakeStorage) SaveBlock(ctx context.Context, block *model.Block) error {
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
	block.UpdatedAt = time.Now().UTC()

	stored := *block
	self.blocks[block.SurveyNumber] = &stored
	return nil
}

func (self *fakeStorage) ScanBlocks(ctx context.Context, afterId int64, limit int) (blocks []*model.Block, err error) {
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

func (self *fakeStorage) UpdateVerdict(ctx context.Context, surveyNumber string, isValid bool, validationErrors []string) error {
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

func (self *fakeStorage) AppendEvent(ctx context.Context, event *model.TimelineEvent) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	self.nextEventId += 1
	event.ID = self.nextEventId
	stored := *event
	self.events[event.SurveyNumber] = append(self.events[event.SurveyNumber], &stored)
	return nil
}

func (self *fakeStorage) LastEvent(ctx context.Context, surveyNumber string) (*model.TimelineEvent, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	events := self.events[surveyNumber]
	if len(events) == 0 {
		return nil, ledger.ErrNotFound
	}
	out := *events[len(events)-1]
	return &out, nil
}

func (self *fakeStorage) ListEvents(ctx context.Context, surveyNumber string) (events []*model.TimelineEvent, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	for _, event := range self.events[surveyNumber] {
		out := *event
		events = append(events, &out)
	}
	return
}

// Map-backed sections.Source standing in for the live case tables
type fakeSource struct {
	mtx  sync.Mutex
	data map[string]map[model.SectionKey]model.Document
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		data: make(map[string]map[model.SectionKey]model.Document),
	}
}

func (self *fakeSource) set(surveyNumber string, key model.SectionKey, doc model.Document) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	if self.data[surveyNumber] == nil {
		self.data[surveyNumber] = make(map[model.SectionKey]model.Document)
	}
	self.data[surveyNumber][key] = doc
}

func (self *fakeSource) remove(surveyNumber string, key model.SectionKey) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	delete(self.data[surveyNumber], key)
}

func (self *fakeSource) GetCurrentSectionData(ctx context.Context, surveyNumber string, key model.SectionKey) (model.Document, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	doc, ok := self.data[surveyNumber][key]
	if !ok {
		return nil, sections.ErrNotFound
	}
	return doc, nil
}
