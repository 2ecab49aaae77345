package verify

import (
	"github.com/robfig/cron"
	"go.uber.org/ratelimit"

	"github.com/saral-bhoomi/ledger/src/ledger"
	"github.com/saral-bhoomi/ledger/src/sections"
	"github.com/saral-bhoomi/ledger/src/utils/config"
	"github.com/saral-bhoomi/ledger/src/utils/model"
	"github.com/saral-bhoomi/ledger/src/utils/monitoring"
	"github.com/saral-bhoomi/ledger/src/utils/publisher"
	"github.com/saral-bhoomi/ledger/src/utils/task"
)

// Controller wires the whole verification flow:
// cron/trigger -> sweeper -> verdict sink -> database
//                                         -> redis alerts
type Controller struct {
	*task.Task

	Sweeper *Sweeper
}

func NewController(config *config.Config, monitor monitoring.Monitor) (self *Controller, err error) {
	self = new(Controller)
	self.Task = task.NewTask(config, "verify-controller")

	db, err := model.NewConnection(self.Ctx, config, "verifier")
	if err != nil {
		return
	}

	// Live section tables are never written during verification
	sourceDb, err := model.NewReadOnlyConnection(self.Ctx, config, "verifier-source")
	if err != nil {
		return
	}

	store := ledger.NewStore(config).WithDB(db)

	verifier := NewVerifier(config).
		WithStorage(store).
		WithSource(sections.NewDbSource(config).WithDB(sourceDb)).
		WithLimiter(ratelimit.New(config.Verifier.SourceRateLimit)).
		WithMonitor(monitor)

	self.Sweeper = NewSweeper(config).
		WithStorage(store).
		WithVerifier(verifier).
		WithMonitor(monitor)

	var alerts chan *Alert
	if config.Redis.Enabled {
		alerts = make(chan *Alert)
	}

	sink := task.NewSinkTask[*Verdict](config, "verdict-sink").
		WithInputChannel(self.Sweeper.Output).
		WithBatchSize(config.Verifier.VerdictBatchSize).
		WithOnFlush(config.Verifier.VerdictFlushInterval, func(verdicts []*Verdict) error {
			for _, verdict := range verdicts {
				if verdict.Status == StatusNotOnLedger {
					// Nothing to update, the survey has no block
					continue
				}

				err := store.UpdateVerdict(self.Ctx, verdict.SurveyNumber, verdict.IsValid, verdict.ValidationErrors())
				if err != nil {
					monitor.GetReport().Verifier.Errors.StoreError.Inc()
					self.Log.WithError(err).
						WithField("survey_number", verdict.SurveyNumber).
						Error("Failed to persist verdict")
					continue
				}
				monitor.GetReport().Verifier.State.VerdictsPersisted.Inc()

				if alerts != nil && !verdict.IsValid {
					select {
					case alerts <- NewAlert(verdict):
					case <-self.Ctx.Done():
						return nil
					}
				}
			}
			return nil
		})

	if alerts != nil {
		// The sink is the only writer, it closes the channel once its
		// workers have drained
		sink.Task = sink.Task.WithOnAfterStop(func() {
			close(alerts)
		})
	}

	self.Task = self.Task.
		WithSubtask(self.Sweeper.Task).
		WithSubtask(sink.Task)

	if alerts != nil {
		redisPublisher := publisher.
			NewRedisPublisher[*Alert](config, "alert-publisher").
			WithChannelName(config.Verifier.AlertChannelName).
			WithInputChannel(alerts).
			WithMonitor(monitor)
		self.Task = self.Task.WithSubtask(redisPublisher.Task)
	}

	if config.Verifier.SweepSchedule != "" {
		scheduler := cron.New()
		err = scheduler.AddFunc(config.Verifier.SweepSchedule, self.Sweeper.Trigger)
		if err != nil {
			return
		}
		self.Task = self.Task.
			WithOnBeforeStart(func() error {
				scheduler.Start()
				return nil
			}).
			WithOnStop(scheduler.Stop)
	}

	return
}
