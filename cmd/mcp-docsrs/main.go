// Package main implements the mcp-docsrs server binary.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/vexxvakan/mcp-docsrs/internal/cache"
	"github.com/vexxvakan/mcp-docsrs/internal/cli"
	"github.com/vexxvakan/mcp-docsrs/internal/config"
	"github.com/vexxvakan/mcp-docsrs/internal/docsrs"
	"github.com/vexxvakan/mcp-docsrs/internal/logging"
	"github.com/vexxvakan/mcp-docsrs/internal/server"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := cli.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(stdout, err.Error())
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	if opts.Version {
		_, _ = fmt.Fprintln(stdout, "mcp-docsrs "+version)
		return 0
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	logger := logging.New(logging.Options{
		Verbose: cfg.Verbose,
		Writer:  stderr,
	})

	store, err := cache.New(cache.Options{
		Path:    cfg.DBPath,
		MaxSize: cfg.MaxCacheSize,
		Logger:  logger.With("component", "cache"),
	})
	if err != nil {
		logger.Error("failed to open cache store", "path", cfg.DBPath, "err", err)
		return 1
	}

	fetcher, err := docsrs.New(docsrs.Options{
		Cache:   store,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.RequestTimeout(),
		TTL:     cfg.CacheTTL(),
		Logger:  logger.With("component", "fetcher"),
	})
	if err != nil {
		logger.Error("failed to build fetcher", "err", err)
		_ = store.Close()
		return 1
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("cache close", "err", err)
		}
	}()

	logger.Info("starting mcp-docsrs",
		"version", version,
		"db_path", cfg.DBPath,
		"cache_ttl", cfg.CacheTTL(),
		"max_cache_size", cfg.MaxCacheSize)

	srv := server.New(fetcher, logger.With("component", "server"), version)
	if err := srv.ServeStdio(); err != nil {
		logger.Error("server terminated", "err", err)
		return 1
	}
	return 0
}

// loadConfig resolves the effective configuration: defaults, then the
// config file, then explicit flags. A missing file is only an error
// when -config was passed explicitly.
func loadConfig(opts cli.Options) (config.Config, error) {
	cfg := config.Default()

	path := opts.ConfigPath
	if !opts.ConfigPathSet {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.CacheTTLMs >= 0 {
		cfg.CacheTTLMs = opts.CacheTTLMs
	}
	if opts.MaxCacheSize >= 0 {
		cfg.MaxCacheSize = opts.MaxCacheSize
	}
	if opts.RequestTimeoutMs >= 0 {
		cfg.RequestTimeoutMs = opts.RequestTimeoutMs
	}
	if opts.Verbose {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
