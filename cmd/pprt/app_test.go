package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	pluginruntime "github.com/wippyai/plugin-runtime"
	"github.com/wippyai/plugin-runtime/config"
	"github.com/wippyai/plugin-runtime/netfetch"
	"github.com/wippyai/plugin-runtime/resource"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	cfg := config.Default()
	cfg.Loader.TempDir = t.TempDir()
	a := newAppWith(cfg, zap.NewNop(), netfetch.New())
	t.Cleanup(a.close)
	return a
}

func TestApp_Fetch(t *testing.T) {
	body := strings.Repeat("0123456789", 10000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	}))
	defer srv.Close()

	a := newTestApp(t)
	var out bytes.Buffer
	if err := a.fetch(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("fetch() error: %v", err)
	}
	if out.String() != body {
		t.Errorf("fetched %d bytes, want %d", out.Len(), len(body))
	}
	if n := a.reg.Len(); n != 0 {
		t.Errorf("%d resources leaked", n)
	}
}

func TestApp_FetchError(t *testing.T) {
	a := newTestApp(t)
	if err := a.fetch(context.Background(), "relative/path", io.Discard); err == nil {
		t.Error("fetch() of a relative url without document should fail")
	}
	if n := a.reg.Len(); n != 0 {
		t.Errorf("%d resources leaked", n)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("", "https://example.test/", true)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Loader.DocumentURL != "https://example.test/" {
		t.Errorf("cfg = %+v", cfg)
	}

	path := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(path, []byte("[nope]\n"), 0o644)
	if _, err := loadConfig(path, "", false); err == nil {
		t.Error("unknown section should fail")
	}
	if _, err := loadConfig("", "not absolute", false); err == nil {
		t.Error("relative document url should fail")
	}
}

func TestApp_RunPluginMissing(t *testing.T) {
	a := newTestApp(t)
	if err := a.runPlugin(context.Background(), filepath.Join(t.TempDir(), "none.wasm"), ""); err == nil {
		t.Error("runPlugin() of a missing file should fail")
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInspector_Keys(t *testing.T) {
	a := newTestApp(t)
	ul := a.loaders.Create()
	m := newInspectorModel(a, "")

	if len(m.entries) != 1 || m.entries[0].Handle != ul {
		t.Fatalf("entries = %+v", m.entries)
	}

	m.Update(key("+"))
	if refs, _ := a.reg.RefCount(ul); refs != 2 {
		t.Errorf("refs after + = %d", refs)
	}

	m.Update(key("r"))
	if len(m.entries) != 2 {
		t.Fatalf("entries after r = %d, want 2", len(m.entries))
	}
	if m.entries[1].Type != resource.TypeURLResponseInfo || m.entries[1].Parent != ul {
		t.Errorf("derived entry = %+v", m.entries[1])
	}

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(key("r"))
	if m.err == nil {
		t.Error("deriving from a response info should report an error")
	}

	m.Update(key("-"))
	if len(m.entries) != 1 {
		t.Errorf("entries after unref = %d, want 1", len(m.entries))
	}
	if refs, _ := a.reg.RefCount(ul); refs != 2 {
		t.Errorf("loader refs after cascade = %d, want 2", refs)
	}

	if !strings.Contains(m.View(), "url-loader") {
		t.Error("View() should list the loader")
	}
	if _, cmd := m.Update(key("q")); cmd == nil {
		t.Error("q should quit")
	}
}

func TestInspector_OpenLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	a := newTestApp(t)
	m := newInspectorModel(a, srv.URL)

	m.Update(key("o"))
	if m.state != stateInputURL {
		t.Fatal("o should open the url prompt")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != stateBrowse || m.err != nil {
		t.Fatalf("state = %v, err = %v", m.state, m.err)
	}

	select {
	case opened := <-m.opened:
		if opened.result != pluginruntime.OK {
			t.Fatalf("open result = %v", opened.result)
		}
		m.Update(opened)
		if !strings.Contains(m.status, "loaded") {
			t.Errorf("status = %q", m.status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("open did not complete")
	}
}
