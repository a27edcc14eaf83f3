package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/plugin-runtime/netfetch"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pprt.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error: %v", err)
	}
	if cfg.Fetch.Timeout.Duration != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Fetch.Timeout)
	}
	if len(cfg.Fetch.Options(zap.NewNop())) != 3 {
		t.Error("default fetch options should set logger, user agent and timeout")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[log]
level = "debug"
development = true

[loader]
temp_dir = "`+dir+`"
document_url = "https://example.test/dir/page.html"

[fetch]
timeout = "5s"
user_agent = "custom"
rate_limit = 2.5
burst = 4
idle_ttl = "10m"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Development {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Loader.TempDir != dir {
		t.Errorf("temp_dir = %q", cfg.Loader.TempDir)
	}
	if cfg.Fetch.Timeout.Duration != 5*time.Second || cfg.Fetch.UserAgent != "custom" {
		t.Errorf("fetch = %+v", cfg.Fetch)
	}
	if cfg.Fetch.RateLimit != 2.5 || cfg.Fetch.Burst != 4 || cfg.Fetch.IdleTTL.Duration != 10*time.Minute {
		t.Errorf("rate = %v burst = %d idle = %v", cfg.Fetch.RateLimit, cfg.Fetch.Burst, cfg.Fetch.IdleTTL)
	}

	doc, err := cfg.Loader.Document()
	if err != nil || doc.Host != "example.test" {
		t.Errorf("Document() = %v, %v", doc, err)
	}
	if n := len(cfg.Loader.Options(zap.NewNop())); n != 3 {
		t.Errorf("loader options = %d, want 3", n)
	}
	if n := len(cfg.Fetch.Options(zap.NewNop())); n != 4 {
		t.Errorf("fetch options = %d, want 4", n)
	}
	f := netfetch.New(cfg.Fetch.Options(zap.NewNop())...)
	defer f.Close()
	if f.Limits() == nil {
		t.Error("rate_limit did not configure the fetcher")
	}

	log, err := cfg.Log.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !log.Core().Enabled(zap.DebugLevel) {
		t.Error("debug level not enabled")
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[fetch]\nuser_agent = \"x\"\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Fetch.Timeout.Duration != 30*time.Second {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", "[log\nlevel = 1"},
		{"unknown key", "[log]\nlevle = \"debug\"\n"},
		{"unknown section", "[cache]\nsize = 1\n"},
		{"bad level", "[log]\nlevel = \"loud\"\n"},
		{"bad duration", "[fetch]\ntimeout = \"soon\"\n"},
		{"negative timeout", "[fetch]\ntimeout = \"-1s\"\n"},
		{"relative document", "[loader]\ndocument_url = \"/page.html\"\n"},
		{"missing temp dir", "[loader]\ntemp_dir = \"/nonexistent/pprt\"\n"},
		{"negative rate", "[fetch]\nrate_limit = -1.0\n"},
		{"negative idle ttl", "[fetch]\nidle_ttl = \"-1m\"\n"},
		{"rate without burst", "[fetch]\nrate_limit = 1.0\nburst = 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Load() should fail")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatal(err)
	}
	if d.Duration != 90*time.Second {
		t.Errorf("Duration = %v", d.Duration)
	}
	text, _ := d.MarshalText()
	if string(text) != "1m30s" {
		t.Errorf("MarshalText() = %q", text)
	}
}
