package app

import (
	"flag"
	"fmt"
	"strings"
)

// Options are command-line settings that are not part of Config.
type Options struct {
	ConfigPath string
	EnvFiles   []string
}

// BindFlags registers the shared config flags on fs. Parsed values land in
// cfg; which of them were given explicitly is known only after fs.Parse.
func BindFlags(fs *flag.FlagSet, cfg *Config, opts *Options) {
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML or JSON config file")
	fs.Func("env", "Dotenv file to load before reading the environment (repeatable, default .env)", func(s string) error {
		opts.EnvFiles = append(opts.EnvFiles, s)
		return nil
	})
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.CacheDir, "cache.dir", cfg.CacheDir, "Validator cache directory")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", cfg.CacheMaxAge, "Purge cached validators older than this at startup; 0 disables")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", cfg.CacheClear, "Clear the validator cache at startup")
	fs.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", cfg.CacheStrictPerms, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "Timezone that defines the draw day and the schedules")
	fs.StringVar(&cfg.DrawSchedule, "schedule", cfg.DrawSchedule, "Cron spec for the draw poll; empty disables")
	fs.StringVar(&cfg.LatestSchedule, "schedule.latest", cfg.LatestSchedule, "Cron spec for the feed latest sync; empty disables")
	fs.BoolVar(&cfg.DisableSchedule, "no-scheduler", cfg.DisableSchedule, "Serve the API without background polling")
	fs.Func("sources", fmt.Sprintf("Comma-separated source order (default %s)", strings.Join(cfg.Sources, ",")), func(s string) error {
		cfg.Sources = splitList(s)
		return nil
	})
	fs.StringVar(&cfg.BulletinIndexURL, "bulletin.index", cfg.BulletinIndexURL, "Bulletin index page URL")
	fs.StringVar(&cfg.BulletinLinkBase, "bulletin.linkBase", cfg.BulletinLinkBase, "Base URL for relative bulletin links")
	fs.StringVar(&cfg.FeedBaseURL, "feed.base", cfg.FeedBaseURL, "Feed API base URL")
	fs.StringVar(&cfg.LiveURL, "live.url", cfg.LiveURL, "Live results page URL")
	fs.StringVar(&cfg.UserAgent, "ua", cfg.UserAgent, "User-Agent override for every source")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
}

// Load parses args on fs and layers the result, highest precedence first:
// explicit flags, environment (after dotenv files), config file, defaults.
// bind may register extra command-specific flags on fs before parsing.
func Load(fs *flag.FlagSet, args []string, bind func(*flag.FlagSet)) (Config, Options, error) {
	fromFlags := DefaultConfig()
	var opts Options
	BindFlags(fs, &fromFlags, &opts)
	if bind != nil {
		bind(fs)
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, opts, err
	}

	envFiles := opts.EnvFiles
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	if err := LoadEnvFiles(envFiles...); err != nil {
		return Config{}, opts, fmt.Errorf("load env: %w", err)
	}

	cfg := DefaultConfig()
	if opts.ConfigPath != "" {
		fc, err := LoadConfigFile(opts.ConfigPath)
		if err != nil {
			return Config{}, opts, fmt.Errorf("load config %s: %w", opts.ConfigPath, err)
		}
		ApplyFileConfig(&cfg, fc)
	}
	ApplyEnvOverrides(&cfg)
	fs.Visit(func(f *flag.Flag) {
		applyFlag(&cfg, fromFlags, f.Name)
	})
	return cfg, opts, nil
}

func applyFlag(dst *Config, src Config, name string) {
	switch name {
	case "port":
		dst.Port = src.Port
	case "db":
		dst.DBPath = src.DBPath
	case "cache.dir":
		dst.CacheDir = src.CacheDir
	case "cache.maxAge":
		dst.CacheMaxAge = src.CacheMaxAge
	case "cache.clear":
		dst.CacheClear = src.CacheClear
	case "cache.strictPerms":
		dst.CacheStrictPerms = src.CacheStrictPerms
	case "tz":
		dst.Timezone = src.Timezone
	case "schedule":
		dst.DrawSchedule = src.DrawSchedule
	case "schedule.latest":
		dst.LatestSchedule = src.LatestSchedule
	case "no-scheduler":
		dst.DisableSchedule = src.DisableSchedule
	case "sources":
		dst.Sources = src.Sources
	case "bulletin.index":
		dst.BulletinIndexURL = src.BulletinIndexURL
	case "bulletin.linkBase":
		dst.BulletinLinkBase = src.BulletinLinkBase
	case "feed.base":
		dst.FeedBaseURL = src.FeedBaseURL
	case "live.url":
		dst.LiveURL = src.LiveURL
	case "ua":
		dst.UserAgent = src.UserAgent
	case "v":
		dst.Verbose = src.Verbose
	}
}
