package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vexxvakan/mcp-docsrs/internal/cli"
)

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"-version"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "mcp-docsrs") {
		t.Errorf("stdout = %q, want version line", stdout.String())
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"-h"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "Usage of mcp-docsrs") {
		t.Errorf("stdout = %q, want usage text", stdout.String())
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"--no-such-flag"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Usage of mcp-docsrs") {
		t.Errorf("stderr = %q, want usage text", stderr.String())
	}
}

func TestRun_MissingExplicitConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"-config", filepath.Join(t.TempDir(), "absent.toml")}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
	if stderr.Len() == 0 {
		t.Error("expected error output for missing explicit config")
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	content := "cache_ttl_ms = 60000\nmax_cache_size = 10\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	opts := cli.Options{
		ConfigPath:       path,
		ConfigPathSet:    true,
		DBPath:           "/tmp/override.db",
		CacheTTLMs:       -1,
		MaxCacheSize:     25,
		RequestTimeoutMs: -1,
		Verbose:          true,
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}

	// File value survives where no flag was passed.
	if cfg.CacheTTLMs != 60000 {
		t.Errorf("CacheTTLMs = %d, want 60000 from file", cfg.CacheTTLMs)
	}
	// Flags beat file values.
	if cfg.MaxCacheSize != 25 {
		t.Errorf("MaxCacheSize = %d, want flag override 25", cfg.MaxCacheSize)
	}
	if cfg.DBPath != "/tmp/override.db" {
		t.Errorf("DBPath = %q, want flag override", cfg.DBPath)
	}
	if !cfg.Verbose {
		t.Error("Verbose = false, want true from flag")
	}
}

func TestLoadConfig_InvalidOverrideRejected(t *testing.T) {
	opts := cli.Options{
		CacheTTLMs:       0, // explicit zero TTL is invalid
		MaxCacheSize:     -1,
		RequestTimeoutMs: -1,
	}

	if _, err := loadConfig(opts); err == nil {
		t.Fatal("loadConfig() with zero TTL succeeded, want validation error")
	}
}
