package config

import (
	"time"

	"github.com/spf13/viper"
)

type Verifier struct {
	// Num of workers that verify surveys in parallel during a sweep
	WorkerPoolSize int

	// Max num of surveys in the worker queue
	WorkerQueueSize int

	// Max live-source reads per second during a sweep
	SourceRateLimit int

	// How many verdicts are persisted in one batch
	VerdictBatchSize int

	// Max time verdicts may wait in the queue before being flushed
	VerdictFlushInterval time.Duration

	// Cron schedule (with seconds) for periodic whole-ledger sweeps, empty disables them
	SweepSchedule string

	// Name of the Redis channel integrity alerts are published to
	AlertChannelName string
}

func setVerifierDefaults() {
	viper.SetDefault("Verifier.WorkerPoolSize", "8")
	viper.SetDefault("Verifier.WorkerQueueSize", "100")
	viper.SetDefault("Verifier.SourceRateLimit", "50")
	viper.SetDefault("Verifier.VerdictBatchSize", "50")
	viper.SetDefault("Verifier.VerdictFlushInterval", "5s")
	viper.SetDefault("Verifier.SweepSchedule", "0 0 2 * * *")
	viper.SetDefault("Verifier.AlertChannelName", "ledger:integrity-alerts")
}
