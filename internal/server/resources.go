package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) handleStatsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats, err := s.fetcher.CacheStats(ctx)
	if err != nil {
		return nil, err
	}

	payload := struct {
		TotalEntries   int        `json:"total_entries"`
		TotalSizeBytes int64      `json:"total_size_bytes"`
		OldestEntry    *time.Time `json:"oldest_entry,omitempty"`
	}{
		TotalEntries:   stats.TotalEntries,
		TotalSizeBytes: stats.TotalSizeBytes,
		OldestEntry:    stats.OldestEntry,
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode cache stats: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) handleEntriesResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	limit, offset := paginationParams(request.Params.URI)

	entries, err := s.fetcher.CacheEntries(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	type entryView struct {
		Key       string    `json:"key"`
		CreatedAt time.Time `json:"created_at"`
		TTLMs     int64     `json:"ttl_ms"`
		ExpiresAt time.Time `json:"expires_at"`
		SizeBytes int64     `json:"size_bytes"`
	}
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, entryView{
			Key:       e.Key,
			CreatedAt: e.CreatedAt,
			TTLMs:     e.TTL.Milliseconds(),
			ExpiresAt: e.ExpiresAt,
			SizeBytes: e.SizeBytes,
		})
	}

	out, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode cache entries: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

// paginationParams reads limit/offset query parameters from a resource
// URI like cache://entries?limit=10&offset=20. Invalid or absent values
// fall back to the store's defaults.
func paginationParams(uri string) (limit, offset int) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return 0, 0
	}
	q := parsed.Query()
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		offset = v
	}
	return limit, offset
}
