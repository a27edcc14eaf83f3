package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/wippyai/plugin-runtime/config"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to TOML config file")
		target      = flag.String("url", "", "URL to fetch")
		docURL      = flag.String("doc", "", "Document URL that relative URLs resolve against")
		wasmFile    = flag.String("wasm", "", "Plugin module importing ppb to run")
		funcName    = flag.String("func", "", "Plugin function to call (default: _start, run or main)")
		interactive = flag.Bool("i", false, "Interactive resource inspector")
		verbose     = flag.Bool("v", false, "Debug logging, including plugin call traces")
	)
	flag.Parse()

	if *target == "" && *wasmFile == "" && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: pprt -url <url> [-doc <url>] [-config file.toml] [-v]")
		fmt.Fprintln(os.Stderr, "       pprt -wasm <plugin.wasm> [-func name]")
		fmt.Fprintln(os.Stderr, "       pprt -i [-url <url>]  (interactive mode)")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile, *docURL, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	ctx := context.Background()
	switch {
	case *interactive:
		err = runInteractive(a, *target)
	case *wasmFile != "":
		err = a.runPlugin(ctx, *wasmFile, *funcName)
	default:
		err = a.fetch(ctx, *target, os.Stdout)
	}
	if err != nil {
		a.close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path, docURL string, verbose bool) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if docURL != "" {
		cfg.Loader.DocumentURL = docURL
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Validate()
}
