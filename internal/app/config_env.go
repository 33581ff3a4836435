package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides overrides cfg fields with environment variables when
// they are set. It runs after the config file so env wins over file
// values, and before explicit flags are reapplied.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	setString(&cfg.DBPath, "LOTTERY_DB_PATH")
	setString(&cfg.CacheDir, "LOTTERY_CACHE_DIR")
	setString(&cfg.Timezone, "LOTTERY_TZ")
	setString(&cfg.DrawSchedule, "LOTTERY_SCHEDULE")
	setString(&cfg.LatestSchedule, "LOTTERY_LATEST_SCHEDULE")
	setString(&cfg.BulletinIndexURL, "BULLETIN_INDEX_URL")
	setString(&cfg.BulletinLinkBase, "BULLETIN_LINK_BASE")
	setString(&cfg.FeedBaseURL, "FEED_BASE_URL")
	setString(&cfg.LiveURL, "LIVE_URL")
	setString(&cfg.UserAgent, "LOTTERY_USER_AGENT")

	if v := strings.TrimSpace(os.Getenv("LOTTERY_SOURCES")); v != "" {
		cfg.Sources = splitList(v)
	}
	if s := os.Getenv("LOTTERY_CACHE_MAX_AGE"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.CacheMaxAge = d
		}
	}

	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CacheClear, "LOTTERY_CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "LOTTERY_CACHE_STRICT_PERMS")
	setBool(&cfg.DisableSchedule, "LOTTERY_NO_SCHEDULER")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// setBool overrides dst only for recognised truthy or falsey values.
func setBool(dst *bool, key string) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.ToLower(strings.TrimSpace(p)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
