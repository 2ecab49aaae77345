package ledger

import (
	"context"
	"errors"

	"github.com/saral-bhoomi/ledger/src/utils/config"
	"github.com/saral-bhoomi/ledger/src/utils/logger"
	"github.com/saral-bhoomi/ledger/src/utils/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Store persists blocks and timeline events in Postgres.
// Every call gets a bounded deadline, an exceeded one surfaces as
// ErrStoreTimeout so callers can back off instead of wedging.
type Store struct {
	config *config.Config
	log    *logrus.Entry
	db     *gorm.DB
}

func NewStore(config *config.Config) (self *Store) {
	self = new(Store)
	self.log = logger.NewSublogger("store")
	self.config = config
	return
}

func (self *Store) WithDB(db *gorm.DB) *Store {
	self.db = db
	return self
}

func (self *Store) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, self.config.Ledger.StoreTimeout)
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ErrStoreTimeout
	default:
		return err
	}
}

func (self *Store) GetBlock(ctx context.Context, surveyNumber string) (block *model.Block, err error) {
	ctx, cancel := self.withDeadline(ctx)
	defer cancel()

	block = new(model.Block)
	err = self.db.WithContext(ctx).
		Where("survey_number = ?", surveyNumber).
		First(block).
		Error
	if err != nil {
		return nil, mapError(err)
	}
	return
}

func (self *Store) SaveBlock(ctx context.Context, block *model.Block) (err error) {
	ctx, cancel := self.withDeadline(ctx)
	defer cancel()

	if block.ID == 0 {
		block.Version = 1
		err = self.db.WithContext(ctx).Create(block).Error
		if err != nil && isUniqueViolation(err) {
			return ErrConflict
		}
		return mapError(err)
	}

	// Compare-and-swap on the version loaded by the caller
	result := self.db.WithContext(ctx).
		Model(&model.Block{}).
		Where("id = ? AND version = ?", block.ID, block.Version).
		Updates(map[string]any{
			"block_id":      block.BlockId,
			"event_type":    block.EventType,
			"officer_id":    block.OfficerId,
			"project_id":    block.ProjectId,
			"sections":      block.Sections,
			"previous_hash": block.PreviousHash,
			"current_hash":  block.CurrentHash,
			"nonce":         block.Nonce,
			"version":       block.Version + 1,
		})
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	block.Version += 1
	return nil
}

func (self *Store) ScanBlocks(ctx context.Context, afterId int64, limit int) (blocks []*model.Block, err error) {
	ctx, cancel := self.withDeadline(ctx)
	defer cancel()

	err = self.db.WithContext(ctx).
		Where("id > ?", afterId).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&blocks).
		Error
	if err != nil {
		return nil, mapError(err)
	}
	return
}

func (self *Store) UpdateVerdict(ctx context.Context, surveyNumber string, isValid bool, validationErrors []string) (err error) {
	ctx, cancel := self.withDeadline(ctx)
	defer cancel()

	result := self.db.WithContext(ctx).
		Model(&model.Block{}).
		Where("survey_number = ?", surveyNumber).
		Updates(map[string]any{
			"is_valid":          isValid,
			"validation_errors": pqStringArray(validationErrors),
		})
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (self *Store) AppendEvent(ctx context.Context, event *model.TimelineEvent) (err error) {
	ctx, cancel := self.withDeadline(ctx)
	defer cancel()

	return mapError(self.db.WithContext(ctx).Create(event).Error)
}

func (self *Store) LastEvent(ctx context.Context, surveyNumber string) (event *model.TimelineEvent, err error) {
	ctx, cancel := self.withDeadline(ctx)
	defer cancel()

	event = new(model.TimelineEvent)
	err = self.db.WithContext(ctx).
		Where("survey_number = ?", surveyNumber).
		Order("id DESC").
		First(event).
		Error
	if err != nil {
		return nil, mapError(err)
	}
	return
}

func (self *Store) ListEvents(ctx context.Context, surveyNumber string) (events []*model.TimelineEvent, err error) {
	ctx, cancel := self.withDeadline(ctx)
	defer cancel()

	err = self.db.WithContext(ctx).
		Where("survey_number = ?", surveyNumber).
		Order("id ASC").
		Find(&events).
		Error
	if err != nil {
		return nil, mapError(err)
	}
	return
}
