package config

import (
	"time"

	"github.com/spf13/viper"
)

type Officers struct {
	// Base URL of the case-management backend that owns officer accounts
	BaseUrl string

	// Max duration of a single officer lookup
	RequestTimeout time.Duration

	// How long resolved officer contexts are cached
	CacheTtl time.Duration

	// How often expired cache entries are purged
	CacheCleanupInterval time.Duration
}

func setOfficersDefaults() {
	viper.SetDefault("Officers.BaseUrl", "http://localhost:5000")
	viper.SetDefault("Officers.RequestTimeout", "10s")
	viper.SetDefault("Officers.CacheTtl", "5m")
	viper.SetDefault("Officers.CacheCleanupInterval", "10m")
}
