package app

import (
	"time"

	"github.com/hyperifyio/lotteryresults/internal/poller"
	"github.com/hyperifyio/lotteryresults/internal/source/bulletin"
	"github.com/hyperifyio/lotteryresults/internal/source/feed"
	"github.com/hyperifyio/lotteryresults/internal/source/live"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Server
	Port            int
	DisableSchedule bool

	// Storage
	DBPath           string
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool

	// Scheduling
	Timezone       string
	DrawSchedule   string
	LatestSchedule string

	// Sources, in priority order
	Sources          []string
	BulletinIndexURL string
	BulletinLinkBase string
	FeedBaseURL      string
	LiveURL          string
	UserAgent        string

	Verbose bool
}

// KnownSources lists the adapters a config may name.
var KnownSources = []string{bulletin.Name, feed.Name, live.Name}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		Port:             8000,
		DBPath:           "data/results.db",
		CacheDir:         ".lotteryresults-cache",
		Timezone:         poller.DefaultLocation,
		DrawSchedule:     poller.DefaultDrawSchedule,
		LatestSchedule:   poller.DefaultLatestSchedule,
		Sources:          append([]string(nil), KnownSources...),
		BulletinIndexURL: bulletin.DefaultIndexURL,
		BulletinLinkBase: bulletin.DefaultLinkBase,
		FeedBaseURL:      feed.DefaultBaseURL,
		LiveURL:          live.DefaultURL,
	}
}
