package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ligustah/acquire/internal/progress"
	"github.com/ligustah/acquire/pkg/acquire"
)

// Trigger kinds.
const (
	TriggerNone    = "none"
	TriggerCommand = "command"
	TriggerHTTP    = "http"
	TriggerBrowser = "browser"
)

// Config defines configuration for the acquire CLI.
type Config struct {
	Watch    WatchConfig           `yaml:"watch"`
	Probe    ProbeConfig           `yaml:"probe"`
	Dest     DestConfig            `yaml:"dest"`
	Settle   time.Duration         `yaml:"settle"`
	Units    []acquire.UnitRequest `yaml:"units"`
	Trigger  TriggerConfig         `yaml:"trigger"`
	Archive  ArchiveConfig         `yaml:"archive"`
	Ledger   LedgerConfig          `yaml:"ledger"`
	Log      LogConfig             `yaml:"log"`
	Progress bool                  `yaml:"progress"`
}

// WatchConfig describes the directory the external process writes into.
type WatchConfig struct {
	Dir              string        `yaml:"dir"`
	Patterns         []string      `yaml:"patterns"`
	FallbackPatterns []string      `yaml:"fallback_patterns"`
	TempSuffixes     []string      `yaml:"temp_suffixes"`
	PurgePatterns    []string      `yaml:"purge_patterns"`
	Timeout          time.Duration `yaml:"timeout"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	StableReads      int           `yaml:"stable_reads"`
	Purge            bool          `yaml:"purge"`
}

// ProbeConfig tunes the stability check.
type ProbeConfig struct {
	Interval time.Duration `yaml:"interval"`
	MinSize  int64         `yaml:"min_size"`
}

// DestConfig describes where acquired files go.
type DestConfig struct {
	Root          string `yaml:"root"`
	Label         string `yaml:"label"`
	Ext           string `yaml:"ext"`
	MaxCollisions int    `yaml:"max_collisions"`
	// Flat places files directly in Root instead of a dated run folder.
	Flat bool `yaml:"flat"`
}

// TriggerConfig selects and configures the action that produces each file.
type TriggerConfig struct {
	Kind string `yaml:"kind"`

	// Command is an argv template for kind "command".
	Command []string `yaml:"command"`

	// URL is a template for kinds "http" and "browser".
	URL string `yaml:"url"`

	// FileName is a template for the downloaded file name (kind "http").
	FileName string `yaml:"file_name"`

	// Selector is an optional CSS selector clicked after load (kind "browser").
	Selector   string        `yaml:"selector"`
	Headless   bool          `yaml:"headless"`
	BrowserBin string        `yaml:"browser_bin"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ArchiveConfig enables copying acquired files to object storage.
type ArchiveConfig struct {
	Bucket     string `yaml:"bucket"`
	Prefix     string `yaml:"prefix"`
	NoChecksum bool   `yaml:"no_checksum"`
}

// LedgerConfig enables recording runs in Postgres.
type LedgerConfig struct {
	DSN string `yaml:"dsn"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Watch: WatchConfig{
			Patterns:         append([]string(nil), acquire.DefaultPatterns...),
			FallbackPatterns: append([]string(nil), acquire.DefaultFallbackPatterns...),
			TempSuffixes:     append([]string(nil), acquire.DefaultTempSuffixes...),
			PurgePatterns:    append([]string(nil), acquire.DefaultPurgePatterns...),
			Timeout:          acquire.DefaultTimeout,
			PollInterval:     acquire.DefaultPollInterval,
			StableReads:      1,
		},
		Probe: ProbeConfig{
			Interval: acquire.DefaultProbeInterval,
		},
		Dest: DestConfig{
			Label:         acquire.DefaultFolderLabel,
			Ext:           acquire.DefaultExt,
			MaxCollisions: acquire.DefaultMaxCollisions,
		},
		Trigger: TriggerConfig{
			Kind:     TriggerNone,
			Headless: true,
			Timeout:  30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations and sizes.
type yamlConfig struct {
	Watch struct {
		Dir              string   `yaml:"dir"`
		Patterns         []string `yaml:"patterns"`
		FallbackPatterns []string `yaml:"fallback_patterns"`
		TempSuffixes     []string `yaml:"temp_suffixes"`
		PurgePatterns    []string `yaml:"purge_patterns"`
		Timeout          string   `yaml:"timeout"`
		PollInterval     string   `yaml:"poll_interval"`
		StableReads      int      `yaml:"stable_reads"`
		Purge            bool     `yaml:"purge"`
	} `yaml:"watch"`
	Probe struct {
		Interval string `yaml:"interval"`
		MinSize  string `yaml:"min_size"`
	} `yaml:"probe"`
	Dest    DestConfig            `yaml:"dest"`
	Settle  string                `yaml:"settle"`
	Units   []acquire.UnitRequest `yaml:"units"`
	Trigger struct {
		Kind       string   `yaml:"kind"`
		Command    []string `yaml:"command"`
		URL        string   `yaml:"url"`
		FileName   string   `yaml:"file_name"`
		Selector   string   `yaml:"selector"`
		Headless   *bool    `yaml:"headless"`
		BrowserBin string   `yaml:"browser_bin"`
		Timeout    string   `yaml:"timeout"`
	} `yaml:"trigger"`
	Archive  ArchiveConfig `yaml:"archive"`
	Ledger   LedgerConfig  `yaml:"ledger"`
	Log      LogConfig     `yaml:"log"`
	Progress bool          `yaml:"progress"`
}

// LoadFromFile loads configuration from a YAML file on top of Default().
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.Watch.Dir != "" {
		cfg.Watch.Dir = yc.Watch.Dir
	}
	if len(yc.Watch.Patterns) > 0 {
		cfg.Watch.Patterns = yc.Watch.Patterns
	}
	if len(yc.Watch.FallbackPatterns) > 0 {
		cfg.Watch.FallbackPatterns = yc.Watch.FallbackPatterns
	}
	if len(yc.Watch.TempSuffixes) > 0 {
		cfg.Watch.TempSuffixes = yc.Watch.TempSuffixes
	}
	if len(yc.Watch.PurgePatterns) > 0 {
		cfg.Watch.PurgePatterns = yc.Watch.PurgePatterns
	}
	if err := parseDuration(yc.Watch.Timeout, "watch.timeout", &cfg.Watch.Timeout); err != nil {
		return Config{}, err
	}
	if err := parseDuration(yc.Watch.PollInterval, "watch.poll_interval", &cfg.Watch.PollInterval); err != nil {
		return Config{}, err
	}
	if yc.Watch.StableReads != 0 {
		cfg.Watch.StableReads = yc.Watch.StableReads
	}
	cfg.Watch.Purge = yc.Watch.Purge

	if err := parseDuration(yc.Probe.Interval, "probe.interval", &cfg.Probe.Interval); err != nil {
		return Config{}, err
	}
	if yc.Probe.MinSize != "" {
		size, err := progress.ParseBytes(yc.Probe.MinSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse probe.min_size: %w", err)
		}
		cfg.Probe.MinSize = size
	}

	if yc.Dest.Root != "" {
		cfg.Dest.Root = yc.Dest.Root
	}
	if yc.Dest.Label != "" {
		cfg.Dest.Label = yc.Dest.Label
	}
	if yc.Dest.Ext != "" {
		cfg.Dest.Ext = yc.Dest.Ext
	}
	if yc.Dest.MaxCollisions != 0 {
		cfg.Dest.MaxCollisions = yc.Dest.MaxCollisions
	}
	cfg.Dest.Flat = yc.Dest.Flat

	if err := parseDuration(yc.Settle, "settle", &cfg.Settle); err != nil {
		return Config{}, err
	}
	cfg.Units = yc.Units

	if yc.Trigger.Kind != "" {
		cfg.Trigger.Kind = yc.Trigger.Kind
	}
	cfg.Trigger.Command = yc.Trigger.Command
	cfg.Trigger.URL = yc.Trigger.URL
	cfg.Trigger.FileName = yc.Trigger.FileName
	cfg.Trigger.Selector = yc.Trigger.Selector
	if yc.Trigger.Headless != nil {
		cfg.Trigger.Headless = *yc.Trigger.Headless
	}
	cfg.Trigger.BrowserBin = yc.Trigger.BrowserBin
	if err := parseDuration(yc.Trigger.Timeout, "trigger.timeout", &cfg.Trigger.Timeout); err != nil {
		return Config{}, err
	}

	cfg.Archive = yc.Archive
	cfg.Ledger = yc.Ledger
	if yc.Log.Level != "" {
		cfg.Log.Level = yc.Log.Level
	}
	if yc.Log.Format != "" {
		cfg.Log.Format = yc.Log.Format
	}
	cfg.Progress = yc.Progress

	return cfg, nil
}

func parseDuration(s, field string, dst *time.Duration) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse %s: %w", field, err)
	}
	*dst = d
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the ACQUIRE_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("ACQUIRE_WATCH_DIR"); v != "" {
		c.Watch.Dir = v
	}
	if v := os.Getenv("ACQUIRE_PATTERNS"); v != "" {
		c.Watch.Patterns = splitList(v)
	}
	if v := os.Getenv("ACQUIRE_FALLBACK_PATTERNS"); v != "" {
		c.Watch.FallbackPatterns = splitList(v)
	}
	if v := os.Getenv("ACQUIRE_PURGE_PATTERNS"); v != "" {
		c.Watch.PurgePatterns = splitList(v)
	}
	if err := envDuration("ACQUIRE_TIMEOUT", &c.Watch.Timeout); err != nil {
		return err
	}
	if err := envDuration("ACQUIRE_POLL_INTERVAL", &c.Watch.PollInterval); err != nil {
		return err
	}
	if v := os.Getenv("ACQUIRE_STABLE_READS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse ACQUIRE_STABLE_READS: %w", err)
		}
		c.Watch.StableReads = n
	}
	if v := os.Getenv("ACQUIRE_PURGE"); v != "" {
		c.Watch.Purge = v == "true" || v == "1"
	}
	if err := envDuration("ACQUIRE_PROBE_INTERVAL", &c.Probe.Interval); err != nil {
		return err
	}
	if v := os.Getenv("ACQUIRE_MIN_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse ACQUIRE_MIN_SIZE: %w", err)
		}
		c.Probe.MinSize = size
	}
	if v := os.Getenv("ACQUIRE_DEST_ROOT"); v != "" {
		c.Dest.Root = v
	}
	if v := os.Getenv("ACQUIRE_DEST_LABEL"); v != "" {
		c.Dest.Label = v
	}
	if v := os.Getenv("ACQUIRE_MAX_COLLISIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse ACQUIRE_MAX_COLLISIONS: %w", err)
		}
		c.Dest.MaxCollisions = n
	}
	if err := envDuration("ACQUIRE_SETTLE", &c.Settle); err != nil {
		return err
	}
	if v := os.Getenv("ACQUIRE_TRIGGER"); v != "" {
		c.Trigger.Kind = v
	}
	if v := os.Getenv("ACQUIRE_TRIGGER_URL"); v != "" {
		c.Trigger.URL = v
	}
	if v := os.Getenv("ACQUIRE_BROWSER_BIN"); v != "" {
		c.Trigger.BrowserBin = v
	}
	if v := os.Getenv("ACQUIRE_ARCHIVE_BUCKET"); v != "" {
		c.Archive.Bucket = v
	}
	if v := os.Getenv("ACQUIRE_ARCHIVE_PREFIX"); v != "" {
		c.Archive.Prefix = v
	}
	if v := os.Getenv("ACQUIRE_LEDGER_DSN"); v != "" {
		c.Ledger.DSN = v
	}
	if v := os.Getenv("ACQUIRE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ACQUIRE_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("ACQUIRE_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}

	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Watch.Dir == "" {
		return errors.New("config: watch.dir is required")
	}
	if len(c.Watch.Patterns) == 0 {
		return errors.New("config: watch.patterns must not be empty")
	}
	if c.Watch.Timeout <= 0 {
		return errors.New("config: watch.timeout must be positive")
	}
	if c.Watch.PollInterval <= 0 {
		return errors.New("config: watch.poll_interval must be positive")
	}
	if c.Watch.StableReads <= 0 {
		return errors.New("config: watch.stable_reads must be positive")
	}
	if c.Probe.Interval <= 0 {
		return errors.New("config: probe.interval must be positive")
	}
	if c.Probe.MinSize < 0 {
		return errors.New("config: probe.min_size must not be negative")
	}
	if c.Dest.Root == "" {
		return errors.New("config: dest.root is required")
	}
	if c.Dest.MaxCollisions <= 0 {
		return errors.New("config: dest.max_collisions must be positive")
	}
	if c.Settle < 0 {
		return errors.New("config: settle must not be negative")
	}
	for i, u := range c.Units {
		if strings.TrimSpace(u.ID) == "" {
			return fmt.Errorf("config: units[%d]: id is required", i)
		}
	}

	switch c.Trigger.Kind {
	case TriggerNone:
	case TriggerCommand:
		if len(c.Trigger.Command) == 0 {
			return errors.New("config: trigger.command is required for command triggers")
		}
	case TriggerHTTP, TriggerBrowser:
		if c.Trigger.URL == "" {
			return fmt.Errorf("config: trigger.url is required for %s triggers", c.Trigger.Kind)
		}
	default:
		return fmt.Errorf("config: unknown trigger kind %q", c.Trigger.Kind)
	}

	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Watch.Dir != "" {
		c.Watch.Dir = override.Watch.Dir
	}
	if len(override.Watch.Patterns) > 0 {
		c.Watch.Patterns = override.Watch.Patterns
	}
	if len(override.Watch.FallbackPatterns) > 0 {
		c.Watch.FallbackPatterns = override.Watch.FallbackPatterns
	}
	if len(override.Watch.PurgePatterns) > 0 {
		c.Watch.PurgePatterns = override.Watch.PurgePatterns
	}
	if override.Watch.Timeout != 0 {
		c.Watch.Timeout = override.Watch.Timeout
	}
	if override.Watch.PollInterval != 0 {
		c.Watch.PollInterval = override.Watch.PollInterval
	}
	if override.Watch.StableReads != 0 {
		c.Watch.StableReads = override.Watch.StableReads
	}
	if override.Watch.Purge {
		c.Watch.Purge = true
	}
	if override.Probe.Interval != 0 {
		c.Probe.Interval = override.Probe.Interval
	}
	if override.Probe.MinSize != 0 {
		c.Probe.MinSize = override.Probe.MinSize
	}
	if override.Dest.Root != "" {
		c.Dest.Root = override.Dest.Root
	}
	if override.Dest.Label != "" {
		c.Dest.Label = override.Dest.Label
	}
	if override.Dest.Ext != "" {
		c.Dest.Ext = override.Dest.Ext
	}
	if override.Dest.MaxCollisions != 0 {
		c.Dest.MaxCollisions = override.Dest.MaxCollisions
	}
	if override.Dest.Flat {
		c.Dest.Flat = true
	}
	if override.Settle != 0 {
		c.Settle = override.Settle
	}
	if len(override.Units) > 0 {
		c.Units = override.Units
	}
	if override.Trigger.Kind != "" {
		c.Trigger.Kind = override.Trigger.Kind
	}
	if len(override.Trigger.Command) > 0 {
		c.Trigger.Command = override.Trigger.Command
	}
	if override.Trigger.URL != "" {
		c.Trigger.URL = override.Trigger.URL
	}
	if override.Archive.Bucket != "" {
		c.Archive.Bucket = override.Archive.Bucket
	}
	if override.Archive.Prefix != "" {
		c.Archive.Prefix = override.Archive.Prefix
	}
	if override.Ledger.DSN != "" {
		c.Ledger.DSN = override.Ledger.DSN
	}
	if override.Log.Level != "" {
		c.Log.Level = override.Log.Level
	}
	if override.Progress {
		c.Progress = true
	}
	return c
}
