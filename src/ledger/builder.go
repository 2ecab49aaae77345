package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/saral-bhoomi/ledger/src/utils/canonical"
	"github.com/saral-bhoomi/ledger/src/utils/config"
	"github.com/saral-bhoomi/ledger/src/utils/logger"
	"github.com/saral-bhoomi/ledger/src/utils/model"
	"github.com/saral-bhoomi/ledger/src/utils/monitoring"
	"github.com/saral-bhoomi/ledger/src/utils/task"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

var sectionEventTypes = map[model.SectionKey]string{
	model.SectionJMR:       model.EventJMRUploaded,
	model.SectionNotice:    model.EventNoticeGenerated,
	model.SectionPayment:   model.EventPaymentReleased,
	model.SectionAward:     model.EventAwardDeclared,
	model.SectionLandowner: model.EventLandownerUpdate,
}

// Builder assembles and updates blocks. All writes for one survey are
// serialized through a per-key lock, so a block's current_hash always
// reflects one coherent previous/new state pair.
type Builder struct {
	config   *config.Config
	log      *logrus.Entry
	storage  Storage
	recorder *Recorder
	monitor  monitoring.Monitor
	locks    *KeyLock
}

func NewBuilder(config *config.Config) (self *Builder) {
	self = new(Builder)
	self.log = logger.NewSublogger("builder")
	self.config = config
	self.locks = NewKeyLock()
	return
}

func (self *Builder) WithStorage(storage Storage) *Builder {
	self.storage = storage
	return self
}

func (self *Builder) WithRecorder(recorder *Recorder) *Builder {
	self.recorder = recorder
	return self
}

func (self *Builder) WithMonitor(monitor monitoring.Monitor) *Builder {
	self.monitor = monitor
	return self
}

// CreateBlock registers a survey on the ledger. Only the triggering
// section is hashed, the other four stay not_created. Emits the genesis
// timeline event.
func (self *Builder) CreateBlock(ctx context.Context, surveyNumber string, key model.SectionKey, data model.Document, officerId, projectId, remarks string) (block *model.Block, err error) {
	if !key.IsValid() {
		return nil, fmt.Errorf("unknown section key %q", key)
	}

	unlock := self.locks.Lock(surveyNumber)
	defer unlock()

	hash, err := self.digest(data)
	if err != nil {
		return
	}

	now := time.Now().UTC()
	sections := model.NewSections()
	sections[key] = &model.Section{
		Data:        data,
		Hash:        hash,
		LastUpdated: &now,
		Status:      model.SectionStatusCreated,
	}

	block = &model.Block{
		BlockId:      newBlockId(surveyNumber),
		SurveyNumber: surveyNumber,
		EventType:    model.EventSurveyCreated,
		OfficerId:    officerId,
		ProjectId:    projectId,
		Sections:     sections,
		PreviousHash: model.GenesisHash,
		Nonce:        newNonce(),
		IsValid:      true,
	}

	block.CurrentHash, err = self.digest(block.Header())
	if err != nil {
		return nil, err
	}

	err = self.saveWithRetry(ctx, block)
	if err != nil {
		return nil, err
	}

	_, err = self.recorder.Append(ctx, surveyNumber, Event{
		Action:    model.EventSurveyCreated,
		OfficerId: officerId,
		Metadata: map[string]any{
			"event_type": model.EventSurveyCreated,
			"section":    string(key),
			"project_id": projectId,
		},
		Remarks: remarks,
	})
	if err != nil {
		return nil, err
	}

	if self.monitor != nil {
		self.monitor.GetReport().Ledger.State.BlocksCreated.Inc()
	}

	self.log.WithField("survey_number", surveyNumber).WithField("section", key).Info("Block created")
	return
}

// UpdateSection rehashes the target section and relinks the block:
// the old current_hash becomes the new previous_hash. Identical data
// still refreshes last_updated and still appends a timeline event,
// an event is evidence of a check, not of a change.
func (self *Builder) UpdateSection(ctx context.Context, surveyNumber string, key model.SectionKey, data model.Document, officerId, remarks string) (block *model.Block, err error) {
	if !key.IsValid() {
		return nil, fmt.Errorf("unknown section key %q", key)
	}

	unlock := self.locks.Lock(surveyNumber)
	defer unlock()

	block, err = self.storage.GetBlock(ctx, surveyNumber)
	if err != nil {
		return nil, err
	}

	hash, err := self.digest(data)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if block.Sections == nil {
		block.Sections = model.NewSections()
	}
	block.Sections[key] = &model.Section{
		Data:        data,
		Hash:        hash,
		LastUpdated: &now,
		Status:      model.SectionStatusUpdated,
	}

	eventType := sectionEventTypes[key]
	block.EventType = eventType
	block.OfficerId = officerId
	block.PreviousHash = block.CurrentHash
	block.Nonce = newNonce()

	block.CurrentHash, err = self.digest(block.Header())
	if err != nil {
		return nil, err
	}

	err = self.saveWithRetry(ctx, block)
	if err != nil {
		return nil, err
	}

	_, err = self.recorder.Append(ctx, surveyNumber, Event{
		Action:    eventType,
		OfficerId: officerId,
		Metadata: map[string]any{
			"event_type":   eventType,
			"section":      string(key),
			"section_hash": hash,
		},
		Remarks: remarks,
	})
	if err != nil {
		return nil, err
	}

	if self.monitor != nil {
		self.monitor.GetReport().Ledger.State.SectionsUpdated.Inc()
	}

	self.log.WithField("survey_number", surveyNumber).WithField("section", key).Info("Section updated")
	return
}

// RegisterOrUpdate creates the block when the survey is unknown,
// otherwise updates the section in place.
func (self *Builder) RegisterOrUpdate(ctx context.Context, surveyNumber string, key model.SectionKey, data model.Document, officerId, projectId, remarks string) (block *model.Block, err error) {
	block, err = self.UpdateSection(ctx, surveyNumber, key, data, officerId, remarks)
	if errors.Is(err, ErrNotFound) {
		return self.CreateBlock(ctx, surveyNumber, key, data, officerId, projectId, remarks)
	}
	return
}

func (self *Builder) digest(value any) (hash string, err error) {
	hash, err = canonical.Digest(value)
	if err != nil && self.monitor != nil {
		self.monitor.GetReport().Ledger.Errors.CanonicalizationError.Inc()
	}
	return
}

// Timeouts are retried with backoff, conflicts and everything else
// fail immediately
func (self *Builder) saveWithRetry(ctx context.Context, block *model.Block) (err error) {
	err = task.NewRetry().
		WithContext(ctx).
		WithMaxElapsedTime(self.config.Ledger.StoreMaxElapsedTime).
		WithMaxInterval(self.config.Ledger.StoreMaxInterval).
		WithOnError(func(err error, isDurationAcceptable bool) error {
			if errors.Is(err, ErrStoreTimeout) && isDurationAcceptable {
				if self.monitor != nil {
					self.monitor.GetReport().Ledger.Errors.StoreTimeoutError.Inc()
				}
				self.log.WithError(err).WithField("survey_number", block.SurveyNumber).Warn("Store timed out, retrying")
				return err
			}
			return backoff.Permanent(err)
		}).
		Run(func() error {
			return self.storage.SaveBlock(ctx, block)
		})
	if err != nil && self.monitor != nil {
		switch {
		case errors.Is(err, ErrConflict):
			self.monitor.GetReport().Ledger.Errors.StoreConflictError.Inc()
		case errors.Is(err, ErrStoreTimeout):
			// Already counted per attempt
		default:
			self.monitor.GetReport().Ledger.Errors.StoreOtherError.Inc()
		}
	}
	return
}

func newBlockId(surveyNumber string) string {
	return fmt.Sprintf("BLOCK_%s_%s", surveyNumber, xid.New().String())
}

// Tamper-detection salt, not proof-of-work
func newNonce() int64 {
	return rand.Int63n(1_000_000)
}
