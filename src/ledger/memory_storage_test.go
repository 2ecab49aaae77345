package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/saral-bhoomi/ledger/src/utils/model"
)

// In-memory Storage with the same version and uniqueness semantics as
// the Postgres store, used by the builder and timeline tests.
type memoryStorage struct {
	mtx sync.Mutex

	blocks map[string]*model.Block
	events map[string][]*model.TimelineEvent

	nextBlockId int64
	nextEventId int64

	// When positive, the next saves fail with ErrStoreTimeout
	timeoutSaves int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		blocks: make(map[string]*model.Block),
		events: make(map[string][]*model.TimelineEvent),
	}
}

func (self *memoryStorage) GetBlock(ctx context.Context, surveyNumber string) (*model.Block, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	block, ok := self.blocks[surveyNumber]
	if !ok {
		return nil, ErrNotFound
	}
	out := *block
	return &out, nil
}

func (self *memoryStorage) SaveBlock(ctx context.Context, block *model.Block) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	if self.timeoutSaves > 0 {
		self.timeoutSaves -= 1
		return ErrStoreTimeout
	}

	if block.ID == 0 {
		if _, ok := self.blocks[block.SurveyNumber]; ok {
			return ErrConflict
		}
		self.nextBlockId += 1
		block.ID = self.nextBlockId
		block.Version = 1
		block.CreatedAt = time.Now().UTC()
	} else {
		stored, ok := self.blocks[block.SurveyNumber]
		if !ok || stored.Version != block.Version {
			return ErrConflict
		}
		block.Version += 1
	}
	block.UpdatedAt = time.Now().UTC()

	stored := *block
	self.blocks[block.SurveyNumber] = &stored
	return nil
}

func (self *memoryStorage) ScanBlocks(ctx context.Context, afterId int64, limit int) (blocks []*model.Block, err error) {
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

func (self *memoryStorage) UpdateVerdict(ctx context.Context, surveyNumber string, isValid bool, validationErrors []string) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	block, ok := self.blocks[surveyNumber]
	if !ok {
		return ErrNotFound
	}
	block.IsValid = isValid
	block.ValidationErrors = pqStringArray(validationErrors)
	return nil
}

func (self *memoryStorage) AppendEvent(ctx context.Context, event *model.TimelineEvent) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	self.nextEventId += 1
	event.ID = self.nextEventId
	stored := *event
	self.events[event.SurveyNumber] = append(self.events[event.SurveyNumber], &stored)
	return nil
}

func (self *memoryStorage) LastEvent(ctx context.Context, surveyNumber string) (*model.TimelineEvent, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	events := self.events[surveyNumber]
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	out := *events[len(events)-1]
	return &out, nil
}

func (self *memoryStorage) ListEvents(ctx context.Context, surveyNumber string) (events []*model.TimelineEvent, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	for _, event := range self.events[surveyNumber] {
		out := *event
		events = append(events, &out)
	}
	return
}
