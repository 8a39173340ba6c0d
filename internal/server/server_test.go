package server

import (
	"testing"

	"github.com/vexxvakan/mcp-docsrs/internal/cache"
	"github.com/vexxvakan/mcp-docsrs/internal/docsrs"
)

func TestNew(t *testing.T) {
	store, err := cache.New(cache.Options{})
	if err != nil {
		t.Fatalf("cache.New() error: %v", err)
	}
	fetcher, err := docsrs.New(docsrs.Options{Cache: store})
	if err != nil {
		t.Fatalf("docsrs.New() error: %v", err)
	}
	t.Cleanup(func() { _ = fetcher.Close() })

	s := New(fetcher, nil, "test")
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.mcp == nil {
		t.Fatal("MCP server not constructed")
	}
	if s.logger == nil {
		t.Fatal("nil logger not replaced with nop logger")
	}
}
