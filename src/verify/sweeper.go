package verify

import (
	"sync"

	"github.com/saral-bhoomi/ledger/src/ledger"
	"github.com/saral-bhoomi/ledger/src/utils/config"
	"github.com/saral-bhoomi/ledger/src/utils/monitoring"
	"github.com/saral-bhoomi/ledger/src/utils/task"
)

// Sweeper re-verifies the whole ledger. Surveys are independent, so
// they are fanned out to a worker pool with no shared mutable state
// beyond the store itself.
type Sweeper struct {
	*task.Task

	storage  ledger.Storage
	verifier *Verifier
	monitor  monitoring.Monitor

	trigger chan struct{}

	// Finished verdicts, consumed by the sink that persists them
	Output chan *Verdict
}

func NewSweeper(config *config.Config) (self *Sweeper) {
	self = new(Sweeper)

	self.trigger = make(chan struct{}, 1)
	self.Output = make(chan *Verdict)

	self.Task = task.NewTask(config, "sweeper").
		WithSubtaskFunc(self.run).
		WithWorkerPool(config.Verifier.WorkerPoolSize, config.Verifier.WorkerQueueSize).
		WithOnAfterStop(func() {
			close(self.Output)
		})

	return
}

func (self *Sweeper) WithStorage(storage ledger.Storage) *Sweeper {
	self.storage = storage
	return self
}

func (self *Sweeper) WithVerifier(verifier *Verifier) *Sweeper {
	self.verifier = verifier
	return self
}

func (self *Sweeper) WithMonitor(monitor monitoring.Monitor) *Sweeper {
	self.monitor = monitor
	return self
}

// Trigger requests a sweep. A sweep already in progress absorbs the
// request, sweeps don't queue up.
func (self *Sweeper) Trigger() {
	select {
	case self.trigger <- struct{}{}:
	default:
	}
}

func (self *Sweeper) run() (err error) {
	for {
		select {
		case <-self.StopChannel:
			return nil
		case <-self.trigger:
			err = self.Sweep()
			if err != nil {
				self.Log.WithError(err).Error("Sweep failed")
			}
		}
	}
}

// Sweep pages through all blocks in creation order and verifies each
// survey on the worker pool. Returns after the whole ledger is covered
// or the task is stopped.
func (self *Sweeper) Sweep() (err error) {
	self.Log.Info("Sweep started")

	var afterId int64
	for {
		if self.Ctx.Err() != nil {
			return self.Ctx.Err()
		}

		blocks, err := self.storage.ScanBlocks(self.Ctx, afterId, self.Config.Ledger.ScanBatchSize)
		if err != nil {
			if self.monitor != nil {
				self.monitor.GetReport().Verifier.Errors.StoreError.Inc()
			}
			return err
		}
		if len(blocks) == 0 {
			break
		}

		var wg sync.WaitGroup
		for _, block := range blocks {
			block := block
			wg.Add(1)
			self.SubmitToWorker(func() {
				defer wg.Done()

				verdict, err := self.verifier.Verify(self.Ctx, block.SurveyNumber)
				if err != nil {
					// Partially-completed verdicts are discarded, never persisted
					self.Log.WithError(err).
						WithField("survey_number", block.SurveyNumber).
						Error("Failed to verify survey")
					return
				}
				self.Output <- verdict
			})
		}
		wg.Wait()

		afterId = blocks[len(blocks)-1].ID
	}

	if self.monitor != nil {
		self.monitor.GetReport().Verifier.State.SweepsFinished.Inc()
	}
	self.Log.Info("Sweep finished")
	return nil
}
