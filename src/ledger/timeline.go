package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/saral-bhoomi/ledger/src/utils/canonical"
	"github.com/saral-bhoomi/ledger/src/utils/config"
	"github.com/saral-bhoomi/ledger/src/utils/logger"
	"github.com/saral-bhoomi/ledger/src/utils/model"
	"github.com/saral-bhoomi/ledger/src/utils/monitoring"

	"github.com/sirupsen/logrus"
)

// One state-changing action to be recorded on a survey's timeline
type Event struct {
	Action    string
	OfficerId string
	Metadata  map[string]any
	Remarks   string
}

// Recorder appends hash-linked events to a survey's timeline. The chain
// is independent of the block chain but keyed to the same survey.
type Recorder struct {
	config  *config.Config
	log     *logrus.Entry
	storage Storage
	monitor monitoring.Monitor
}

func NewRecorder(config *config.Config) (self *Recorder) {
	self = new(Recorder)
	self.log = logger.NewSublogger("timeline")
	self.config = config
	return
}

func (self *Recorder) WithStorage(storage Storage) *Recorder {
	self.storage = storage
	return self
}

func (self *Recorder) WithMonitor(monitor monitoring.Monitor) *Recorder {
	self.monitor = monitor
	return self
}

// Append computes the event's data hash, links it to the previous
// event's data hash (or the genesis constant) and persists it.
func (self *Recorder) Append(ctx context.Context, surveyNumber string, event Event) (out *model.TimelineEvent, err error) {
	out = &model.TimelineEvent{
		SurveyNumber: surveyNumber,
		Action:       event.Action,
		Timestamp:    time.Now().UTC(),
		OfficerId:    event.OfficerId,
		Metadata:     model.Document(event.Metadata),
		Remarks:      event.Remarks,
	}

	out.DataHash, err = canonical.Digest(out.Payload())
	if err != nil {
		self.log.WithError(err).WithField("survey_number", surveyNumber).Error("Failed to hash timeline event")
		return nil, err
	}

	previous, err := self.storage.LastEvent(ctx, surveyNumber)
	switch {
	case errors.Is(err, ErrNotFound):
		out.PreviousHash = model.GenesisHash
	case err != nil:
		return nil, err
	default:
		out.PreviousHash = previous.DataHash
	}

	err = self.storage.AppendEvent(ctx, out)
	if err != nil {
		return nil, err
	}

	if self.monitor != nil {
		self.monitor.GetReport().Ledger.State.TimelineEventsWritten.Inc()
	}

	return
}

// List returns the survey's timeline in chronological order
func (self *Recorder) List(ctx context.Context, surveyNumber string) ([]*model.TimelineEvent, error) {
	return self.storage.ListEvents(ctx, surveyNumber)
}

// VerifyChain walks the events in order and checks that every event's
// previous_hash equals its predecessor's data_hash, with the genesis
// constant opening the chain. Returns the index of the first broken
// link, -1 when the chain is intact.
func VerifyChain(events []*model.TimelineEvent) (brokenAt int) {
	previousHash := model.GenesisHash
	for i, event := range events {
		if event.PreviousHash != previousHash {
			return i
		}
		previousHash = event.DataHash
	}
	return -1
}
