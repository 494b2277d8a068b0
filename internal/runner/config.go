package runner

import (
	"time"

	"arbitrage/internal/finder"
	"arbitrage/internal/matcher"
	"arbitrage/internal/sizing"
)

// Config tunes the two-speed scan loop: a slow catalog refresh (re-list and
// re-match every venue's markets) and a fast poll (re-price the already
// matched pairs and evaluate them for opportunities).
type Config struct {
	SlowRefreshInterval time.Duration // catalog re-list + re-match cadence
	FastPollInterval    time.Duration // live-price + evaluate cadence
	ScanWindow          time.Duration // only list markets resolving within this window

	MatcherCfg matcher.Config
	FinderCfg  finder.Config
	SizingCfg  sizing.Config

	OpsListenAddr string // empty disables the ops HTTP server

	// OpportunitiesLogPath, if set, appends every surfaced opportunity to an
	// NDJSON sidecar file in addition to the SQLite log. Off by default.
	OpportunitiesLogPath string
}

func (c *Config) applyDefaults() {
	if c.SlowRefreshInterval <= 0 {
		c.SlowRefreshInterval = time.Hour
	}
	if c.FastPollInterval <= 0 {
		c.FastPollInterval = 5 * time.Second
	}
	if c.ScanWindow <= 0 {
		c.ScanWindow = 14 * 24 * time.Hour
	}
}
