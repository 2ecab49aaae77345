package ledger

import (
	"context"

	"github.com/saral-bhoomi/ledger/src/utils/canonical"
	"github.com/saral-bhoomi/ledger/src/utils/config"
	"github.com/saral-bhoomi/ledger/src/utils/model"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"testing"
)

func TestTimelineTestSuite(t *testing.T) {
	suite.Run(t, new(TimelineTestSuite))
}

type TimelineTestSuite struct {
	suite.Suite
	ctx      context.Context
	cancel   context.CancelFunc
	config   *config.Config
	storage  *memoryStorage
	recorder *Recorder
}

func (s *TimelineTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.config = config.Default()
}

func (s *TimelineTestSuite) TearDownSuite() {
	s.cancel()
}

func (s *TimelineTestSuite) SetupTest() {
	s.storage = newMemoryStorage()
	s.recorder = NewRecorder(s.config).WithStorage(s.storage)
}

func (s *TimelineTestSuite) append(action string) *model.TimelineEvent {
	event, err := s.recorder.Append(s.ctx, "67/4", Event{
		Action:    action,
		OfficerId: "OFF1",
		Metadata:  map[string]any{"section": "jmr"},
	})
	require.Nil(s.T(), err)
	return event
}

func (s *TimelineTestSuite) TestFirstEventLinksToGenesis() {
	event := s.append(model.EventSurveyCreated)
	require.Equal(s.T(), model.GenesisHash, event.PreviousHash)

	expected, err := canonical.Digest(event.Payload())
	require.Nil(s.T(), err)
	require.Equal(s.T(), expected, event.DataHash)
}

func (s *TimelineTestSuite) TestEventsChain() {
	first := s.append(model.EventSurveyCreated)
	second := s.append(model.EventJMRUploaded)
	third := s.append(model.EventNoticeGenerated)

	require.Equal(s.T(), first.DataHash, second.PreviousHash)
	require.Equal(s.T(), second.DataHash, third.PreviousHash)

	events, err := s.recorder.List(s.ctx, "67/4")
	require.Nil(s.T(), err)
	require.Len(s.T(), events, 3)
	require.Equal(s.T(), -1, VerifyChain(events))
}

func (s *TimelineTestSuite) TestVerifyChainDetectsTamperedPayload() {
	s.append(model.EventSurveyCreated)
	s.append(model.EventJMRUploaded)
	s.append(model.EventNoticeGenerated)

	// Tamper with the middle event's hash, its successor no longer links
	s.storage.events["67/4"][1].DataHash = "0xdeadbeef"

	events, err := s.recorder.List(s.ctx, "67/4")
	require.Nil(s.T(), err)
	require.Equal(s.T(), 2, VerifyChain(events))
}

func (s *TimelineTestSuite) TestVerifyChainDetectsBrokenLink() {
	s.append(model.EventSurveyCreated)
	s.append(model.EventJMRUploaded)

	s.storage.events["67/4"][1].PreviousHash = "0xdeadbeef"

	events, err := s.recorder.List(s.ctx, "67/4")
	require.Nil(s.T(), err)
	require.Equal(s.T(), 1, VerifyChain(events))
}

func (s *TimelineTestSuite) TestVerifyChainEmpty() {
	require.Equal(s.T(), -1, VerifyChain(nil))
}
