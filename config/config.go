// Package config loads runtime settings from a TOML file.
//
//	[log]
//	level = "debug"
//	development = true
//
//	[loader]
//	temp_dir = "/var/tmp"
//	document_url = "https://example.test/page.html"
//
//	[fetch]
//	timeout = "10s"
//	user_agent = "pprt/1.0"
//	rate_limit = 5.0
//	burst = 10
package config

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/plugin-runtime/errors"
	"github.com/wippyai/plugin-runtime/loader"
	"github.com/wippyai/plugin-runtime/netfetch"
)

// Config is the full runtime configuration.
type Config struct {
	Log    LogConfig    `toml:"log"`
	Loader LoaderConfig `toml:"loader"`
	Fetch  FetchConfig  `toml:"fetch"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// LoaderConfig configures URL loaders.
type LoaderConfig struct {
	TempDir     string `toml:"temp_dir"`
	DocumentURL string `toml:"document_url"`
}

// FetchConfig configures the HTTP fetcher.
type FetchConfig struct {
	Timeout   Duration `toml:"timeout"`
	UserAgent string   `toml:"user_agent"`
	RateLimit float64  `toml:"rate_limit"`
	Burst     int      `toml:"burst"`
	// IdleTTL is how long a host's rate bucket survives without requests.
	IdleTTL Duration `toml:"idle_ttl"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Fetch: FetchConfig{
			Timeout:   Duration{30 * time.Second},
			UserAgent: "pprt",
			Burst:     1,
		},
	}
}

// Load reads path over the defaults. Keys the file sets that no field
// accepts are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.IO(errors.PhaseConfig, "read "+path, err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse error in "+path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(keys).
			Detail("unknown keys in %s: %s", path, strings.Join(keys, ", ")).
			Build()
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges and formats.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log.level")
	}
	if _, err := c.Loader.Document(); err != nil {
		return err
	}
	if c.Loader.TempDir != "" {
		st, err := os.Stat(c.Loader.TempDir)
		if err != nil {
			return errors.IO(errors.PhaseConfig, "loader.temp_dir", err)
		}
		if !st.IsDir() {
			return errors.InvalidInput(errors.PhaseConfig, "loader.temp_dir is not a directory")
		}
	}
	if c.Fetch.Timeout.Duration < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "fetch.timeout must not be negative")
	}
	if c.Fetch.RateLimit < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "fetch.rate_limit must not be negative")
	}
	if c.Fetch.IdleTTL.Duration < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "fetch.idle_ttl must not be negative")
	}
	if c.Fetch.RateLimit > 0 && c.Fetch.Burst < 1 {
		return errors.InvalidInput(errors.PhaseConfig, "fetch.burst must be at least 1 when rate limited")
	}
	return nil
}

// Build creates the logger described by c.
func (c LogConfig) Build() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log.level")
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

// Document parses the document URL. It returns nil when none is set.
func (c LoaderConfig) Document() (*url.URL, error) {
	if c.DocumentURL == "" {
		return nil, nil
	}
	u, err := url.Parse(c.DocumentURL)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "loader.document_url")
	}
	if !u.IsAbs() {
		return nil, errors.InvalidInput(errors.PhaseConfig, "loader.document_url must be absolute")
	}
	return u, nil
}

// Options returns loader options for c. Call after Validate.
func (c LoaderConfig) Options(log *zap.Logger) []loader.Option {
	opts := []loader.Option{loader.WithLogger(log), loader.WithTempDir(c.TempDir)}
	if doc, err := c.Document(); err == nil && doc != nil {
		opts = append(opts, loader.WithDocumentURL(doc))
	}
	return opts
}

// Options returns fetcher options for c.
func (c FetchConfig) Options(log *zap.Logger) []netfetch.Option {
	opts := []netfetch.Option{netfetch.WithLogger(log), netfetch.WithUserAgent(c.UserAgent)}
	if c.Timeout.Duration > 0 {
		opts = append(opts, netfetch.WithTimeout(c.Timeout.Duration))
	}
	if c.RateLimit > 0 {
		var store []netfetch.StoreOption
		if c.IdleTTL.Duration > 0 {
			store = append(store, netfetch.WithIdleTTL(c.IdleTTL.Duration))
		}
		opts = append(opts, netfetch.WithRateLimit(c.RateLimit, c.Burst, store...))
	}
	return opts
}
