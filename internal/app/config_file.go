package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/lotteryresults/internal/poller"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	Port    int  `yaml:"port" json:"port"`
	Verbose bool `yaml:"verbose" json:"verbose"`

	Store struct {
		Path string `yaml:"path" json:"path"`
	} `yaml:"store" json:"store"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	Schedule struct {
		Timezone string `yaml:"timezone" json:"timezone"`
		Draw     string `yaml:"draw" json:"draw"`
		Latest   string `yaml:"latest" json:"latest"`
		Disable  bool   `yaml:"disable" json:"disable"`
	} `yaml:"schedule" json:"schedule"`

	Sources struct {
		Order     []string `yaml:"order" json:"order"`
		UserAgent string   `yaml:"userAgent" json:"userAgent"`
		Bulletin  struct {
			IndexURL string `yaml:"indexURL" json:"indexURL"`
			LinkBase string `yaml:"linkBase" json:"linkBase"`
		} `yaml:"bulletin" json:"bulletin"`
		Feed struct {
			BaseURL string `yaml:"baseURL" json:"baseURL"`
		} `yaml:"feed" json:"feed"`
		Live struct {
			URL string `yaml:"url" json:"url"`
		} `yaml:"live" json:"live"`
	} `yaml:"sources" json:"sources"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value the file sets onto cfg.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if fc.Port > 0 {
		cfg.Port = fc.Port
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
	overlay(&cfg.DBPath, fc.Store.Path)
	overlay(&cfg.CacheDir, fc.Cache.Dir)
	if fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	overlay(&cfg.Timezone, fc.Schedule.Timezone)
	overlay(&cfg.DrawSchedule, fc.Schedule.Draw)
	overlay(&cfg.LatestSchedule, fc.Schedule.Latest)
	if fc.Schedule.Disable {
		cfg.DisableSchedule = true
	}
	if len(fc.Sources.Order) > 0 {
		cfg.Sources = splitList(strings.Join(fc.Sources.Order, ","))
	}
	overlay(&cfg.UserAgent, fc.Sources.UserAgent)
	overlay(&cfg.BulletinIndexURL, fc.Sources.Bulletin.IndexURL)
	overlay(&cfg.BulletinLinkBase, fc.Sources.Bulletin.LinkBase)
	overlay(&cfg.FeedBaseURL, fc.Sources.Feed.BaseURL)
	overlay(&cfg.LiveURL, fc.Sources.Live.URL)
}

func overlay(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// ValidateConfig rejects configurations the app cannot start with.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("config: store path is required (or set LOTTERY_DB_PATH)")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", cfg.Port)
	}
	if len(cfg.Sources) == 0 {
		return errors.New("config: at least one source is required")
	}
	seen := map[string]bool{}
	for _, name := range cfg.Sources {
		if !slices.Contains(KnownSources, name) {
			return fmt.Errorf("config: unknown source %q (known: %s)", name, strings.Join(KnownSources, ", "))
		}
		if seen[name] {
			return fmt.Errorf("config: source %q listed twice", name)
		}
		seen[name] = true
	}
	urls := map[string]string{
		"bulletin index URL": cfg.BulletinIndexURL,
		"bulletin link base": cfg.BulletinLinkBase,
		"feed base URL":      cfg.FeedBaseURL,
		"live URL":           cfg.LiveURL,
	}
	for what, raw := range urls {
		if err := validateURL(raw); err != nil {
			return fmt.Errorf("config: %s: %w", what, err)
		}
	}
	if _, err := poller.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.CacheMaxAge < 0 {
		return errors.New("config: negative cache max age")
	}
	return nil
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("empty URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return nil
}
