package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vexxvakan/mcp-docsrs/internal/cache"
	"github.com/vexxvakan/mcp-docsrs/internal/docsrs"
)

func lookupCrateDocsTool() mcp.Tool {
	return mcp.NewTool("lookup_crate_docs",
		mcp.WithDescription("Look up documentation for a Rust crate from docs.rs. Returns the crate-level documentation extracted from its rustdoc JSON."),
		mcp.WithString("crateName",
			mcp.Required(),
			mcp.Description("Name of the crate, e.g. \"serde\""),
		),
		mcp.WithString("version",
			mcp.Description("Crate version, e.g. \"1.0.219\"; defaults to the latest release"),
		),
		mcp.WithString("target",
			mcp.Description("Target triple, e.g. \"x86_64-unknown-linux-gnu\"; defaults to the crate's default target"),
		),
		mcp.WithString("formatVersion",
			mcp.Description("rustdoc JSON format version; defaults to the current format"),
		),
	)
}

func queryCacheTool() mcp.Tool {
	return mcp.NewTool("query_cache",
		mcp.WithDescription("Run a read-only SELECT statement against the local cache database. The table is cache(key, data, timestamp, ttl)."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("A statement starting with SELECT"),
		),
	)
}

func clearCacheTool() mcp.Tool {
	return mcp.NewTool("clear_cache",
		mcp.WithDescription("Remove all cached documentation payloads."),
	)
}

func (s *Server) handleLookupCrateDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	crate, err := request.RequireString("crateName")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := docsrs.Request{
		Crate:         crate,
		Version:       request.GetString("version", ""),
		Target:        request.GetString("target", ""),
		FormatVersion: request.GetString("formatVersion", ""),
	}

	res, err := s.fetcher.Fetch(ctx, req)
	if err != nil {
		s.logger.Warn("lookup failed", "crate", crate, "err", err)
		return mcp.NewToolResultError(userMessage(err)), nil
	}

	text, err := RenderCrateDocs(res.Data, req, res.FromCache)
	if err != nil {
		return mcp.NewToolResultError(userMessage(err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleQueryCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stmt, err := request.RequireString("sql")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rows, err := s.fetcher.QueryCacheDB(ctx, stmt)
	if err != nil {
		return mcp.NewToolResultError(userMessage(err)), nil
	}

	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode rows: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d row(s):\n%s", len(rows), out)), nil
}

func (s *Server) handleClearCache(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.fetcher.ClearCache(ctx); err != nil {
		return mcp.NewToolResultError(userMessage(err)), nil
	}
	return mcp.NewToolResultText("Cache cleared."), nil
}

// userMessage maps each error kind to a distinct human-readable message.
// Parse, network and cache failures stay distinguishable to the end
// user; nothing is collapsed into a generic failure.
func userMessage(err error) string {
	var (
		notFound   *docsrs.CrateNotFoundError
		timeout    *docsrs.TimeoutError
		httpErr    *docsrs.HTTPError
		decompress *docsrs.DecompressError
		parse      *docsrs.ParseError
		cacheErr   *cache.CacheError
		itemErr    *ItemNotFoundError
	)
	switch {
	case errors.As(err, &notFound):
		return fmt.Sprintf("Crate not found: %v", notFound)
	case errors.As(err, &timeout):
		return fmt.Sprintf("Request timed out: %v", timeout)
	case errors.As(err, &decompress):
		return fmt.Sprintf("Failed to decompress documentation payload: %v", decompress)
	case errors.As(err, &parse):
		return fmt.Sprintf("Failed to parse documentation payload: %v", parse)
	case errors.As(err, &httpErr):
		return fmt.Sprintf("docs.rs request failed: %v", httpErr)
	case errors.Is(err, cache.ErrQueryRejected):
		return fmt.Sprintf("Query rejected: %v", err)
	case errors.As(err, &cacheErr):
		return fmt.Sprintf("Cache storage error: %v", cacheErr)
	case errors.As(err, &itemErr):
		return fmt.Sprintf("Item not found: %v", itemErr)
	default:
		return err.Error()
	}
}
