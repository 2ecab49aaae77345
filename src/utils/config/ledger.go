package config

import (
	"time"

	"github.com/spf13/viper"
)

type Ledger struct {
	// Max duration of a single store call before it's reported as a timeout
	StoreTimeout time.Duration

	// Retry configuration for store writes, 0 is no limit
	StoreMaxElapsedTime time.Duration
	StoreMaxInterval    time.Duration

	// How many blocks are loaded in one page during chronological scans
	ScanBatchSize int
}

func setLedgerDefaults() {
	viper.SetDefault("Ledger.StoreTimeout", "10s")
	viper.SetDefault("Ledger.StoreMaxElapsedTime", "1m")
	viper.SetDefault("Ledger.StoreMaxInterval", "10s")
	viper.SetDefault("Ledger.ScanBatchSize", "100")
}
