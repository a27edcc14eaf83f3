package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	pluginruntime "github.com/wippyai/plugin-runtime"
	"github.com/wippyai/plugin-runtime/config"
	"github.com/wippyai/plugin-runtime/graphics"
	"github.com/wippyai/plugin-runtime/hostabi"
	"github.com/wippyai/plugin-runtime/loader"
	"github.com/wippyai/plugin-runtime/mainloop"
	"github.com/wippyai/plugin-runtime/netfetch"
	"github.com/wippyai/plugin-runtime/resource"
)

// app wires the registry, control loop and services together.
type app struct {
	log       *zap.Logger
	reg       *resource.Registry
	loop      *mainloop.Loop
	fetcher   *netfetch.HTTPFetcher
	loaders   *loader.Service
	gfx       *graphics.Service
	closeOnce sync.Once
}

func newApp(cfg config.Config) (*app, error) {
	log, err := cfg.Log.Build()
	if err != nil {
		return nil, err
	}
	return newAppWith(cfg, log, netfetch.New(cfg.Fetch.Options(log.Named("fetch"))...)), nil
}

func newAppWith(cfg config.Config, log *zap.Logger, fetcher *netfetch.HTTPFetcher) *app {
	resource.SetLogger(log.Named("resource"))
	loader.SetLogger(log.Named("loader"))

	reg := resource.New(resource.WithLogger(log.Named("resource")))
	loop := mainloop.New(mainloop.WithLogger(log.Named("loop")))
	loop.Start()

	return &app{
		log:     log,
		reg:     reg,
		loop:    loop,
		fetcher: fetcher,
		loaders: loader.New(reg, loop, fetcher, cfg.Loader.Options(log.Named("loader"))...),
		gfx:     graphics.New(reg, graphics.WithLogger(log.Named("graphics"))),
	}
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		a.loop.Stop()
		a.fetcher.Wait()
		a.fetcher.Close()
		if err := a.reg.Close(); err != nil {
			a.log.Warn("close registry", zap.Error(err))
		}
		a.log.Sync()
	})
}

// fetch loads rawURL through a loader and copies the body to w.
func (a *app) fetch(ctx context.Context, rawURL string, w io.Writer) error {
	ul := a.loaders.Create()
	defer a.reg.Unref(ul)
	req := a.loaders.CreateRequestInfo()
	defer a.reg.Unref(req)

	if err := a.loaders.SetProperty(req, loader.PropertyURL, rawURL); err != nil {
		return err
	}
	if err := a.loaders.Open(ctx, ul, req, pluginruntime.CompletionCallback{}); err != nil {
		return err
	}

	info := a.loaders.GetResponseInfo(ul)
	defer a.reg.Unref(info)
	status, _ := a.loaders.GetResponseProperty(info, loader.ResponseStatusLine)
	final, _ := a.loaders.GetResponseProperty(info, loader.ResponseURL)
	a.log.Info("fetched", zap.Any("url", final), zap.Any("status", status))

	buf := make([]byte, 32*1024)
	for {
		n, err := a.loaders.ReadResponseBody(ul, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return fmt.Errorf("write body: %w", err)
		}
	}
}

// runPlugin instantiates a plugin module against the ppb host and calls its
// entry point.
func (a *app) runPlugin(ctx context.Context, path, funcName string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	host := hostabi.New(a.reg, a.loaders, a.gfx, hostabi.WithLogger(a.log.Named("ppb")))
	if _, err := host.Instantiate(ctx, rt); err != nil {
		return fmt.Errorf("instantiate host: %w", err)
	}

	mod, err := rt.Instantiate(ctx, data)
	if err != nil {
		return fmt.Errorf("instantiate plugin: %w", err)
	}
	defer mod.Close(ctx)

	if funcName == "" {
		for _, name := range []string{"_start", "run", "main"} {
			if mod.ExportedFunction(name) != nil {
				funcName = name
				break
			}
		}
		if funcName == "" {
			return fmt.Errorf("no entry point found, use -func")
		}
	}
	fn := mod.ExportedFunction(funcName)
	if fn == nil {
		return fmt.Errorf("plugin does not export %s", funcName)
	}

	results, err := fn.Call(ctx)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}
	a.log.Info("plugin returned",
		zap.String("func", funcName),
		zap.Uint64s("results", results),
		zap.Int("live_resources", a.reg.Len()))
	return nil
}
