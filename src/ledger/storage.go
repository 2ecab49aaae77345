package ledger

import (
	"context"

	"github.com/saral-bhoomi/ledger/src/utils/model"
)

// Storage is the persistence contract of the ledger: append-only blocks
// keyed by survey number plus the per-survey timeline chain. The gorm
// implementation lives in Store.
type Storage interface {
	// GetBlock returns ErrNotFound for unknown survey numbers
	GetBlock(ctx context.Context, surveyNumber string) (*model.Block, error)

	// SaveBlock upserts the one block of a survey. The write is guarded
	// by the block's version: a stale version fails with ErrConflict and
	// nothing is written.
	SaveBlock(ctx context.Context, block *model.Block) error

	// ScanBlocks pages through all blocks ordered by creation time.
	// Restart with the last returned block id to continue a sweep.
	ScanBlocks(ctx context.Context, afterId int64, limit int) ([]*model.Block, error)

	// UpdateVerdict persists the outcome of the last verification
	UpdateVerdict(ctx context.Context, surveyNumber string, isValid bool, validationErrors []string) error

	// AppendEvent appends one timeline event
	AppendEvent(ctx context.Context, event *model.TimelineEvent) error

	// LastEvent returns ErrNotFound when the survey has no events yet
	LastEvent(ctx context.Context, surveyNumber string) (*model.TimelineEvent, error)

	// ListEvents returns the survey's events in chronological order
	ListEvents(ctx context.Context, surveyNumber string) ([]*model.TimelineEvent, error)
}
