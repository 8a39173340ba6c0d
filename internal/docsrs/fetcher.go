// Package docsrs fetches rustdoc JSON for published crates from docs.rs
// and caches the raw payloads in a TTL/LRU store.
//
// The canonical request URL doubles as the cache key, so two requests
// that differ in any optional parameter (version, target, format
// version) occupy distinct cache entries. Failed fetches are never
// cached; the next identical call retries the network.
package docsrs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"

	"github.com/vexxvakan/mcp-docsrs/internal/cache"
	"github.com/vexxvakan/mcp-docsrs/internal/logging"
)

const (
	// DefaultBaseURL is the upstream documentation host.
	DefaultBaseURL = "https://docs.rs"

	// DefaultTimeout bounds one fetch end to end.
	DefaultTimeout = 30 * time.Second

	// DefaultTTL is how long a fetched payload stays live in the cache.
	DefaultTTL = time.Hour

	defaultUserAgent = "mcp-docsrs (github.com/vexxvakan/mcp-docsrs)"

	// previewLen bounds the payload excerpt carried by ParseError.
	previewLen = 200
)

// Request identifies one rustdoc JSON document. Crate is required; the
// zero values of the optional fields mean "latest version, default
// target, current format version".
type Request struct {
	Crate         string
	Version       string
	Target        string
	FormatVersion string
}

// URL builds the canonical request URL for base, which is also the
// cache key. No normalization is applied: any difference in parameters
// yields a distinct key.
func (r Request) URL(base string) string {
	version := r.Version
	if version == "" {
		version = "latest"
	}
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("/crate/")
	b.WriteString(r.Crate)
	b.WriteString("/")
	b.WriteString(version)
	if r.Target != "" {
		b.WriteString("/")
		b.WriteString(r.Target)
	}
	b.WriteString("/json")
	if r.FormatVersion != "" {
		b.WriteString("/")
		b.WriteString(r.FormatVersion)
	}
	return b.String()
}

// Result is the outcome of a successful fetch. FromCache reports
// provenance: true when the payload was served without a network call.
type Result struct {
	Data      json.RawMessage
	FromCache bool
}

// Options configures a Fetcher.
type Options struct {
	// Cache is the backing store. Required.
	Cache *cache.Store

	// BaseURL overrides the upstream host, mainly for tests.
	BaseURL string

	// Timeout bounds one fetch end to end. Defaults to DefaultTimeout.
	Timeout time.Duration

	// TTL is applied to every cached payload. Defaults to DefaultTTL.
	TTL time.Duration

	// UserAgent identifies this client to docs.rs.
	UserAgent string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger defaults to a nop logger.
	Logger logging.Logger
}

// Fetcher retrieves rustdoc JSON documents, reversing zstd content
// encoding when the remote signals it, and populates the cache on
// success. One Fetcher owns exactly one cache store.
type Fetcher struct {
	store     *cache.Store
	client    *http.Client
	baseURL   string
	timeout   time.Duration
	ttl       time.Duration
	userAgent string
	logger    logging.Logger

	// group deduplicates concurrent fetches of the same key so a burst
	// of identical requests produces a single network call.
	group singleflight.Group

	zstd *zstd.Decoder
}

// New constructs a Fetcher around the given cache store.
func New(opts Options) (*Fetcher, error) {
	if opts.Cache == nil {
		return nil, errors.New("docsrs: cache store is required")
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("docsrs: init zstd decoder: %w", err)
	}

	f := &Fetcher{
		store:     opts.Cache,
		client:    opts.HTTPClient,
		baseURL:   opts.BaseURL,
		timeout:   opts.Timeout,
		ttl:       opts.TTL,
		userAgent: opts.UserAgent,
		logger:    opts.Logger,
		zstd:      decoder,
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	if f.baseURL == "" {
		f.baseURL = DefaultBaseURL
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.ttl <= 0 {
		f.ttl = DefaultTTL
	}
	if f.userAgent == "" {
		f.userAgent = defaultUserAgent
	}
	if f.logger == nil {
		f.logger = logging.NewNopLogger()
	}
	return f, nil
}

// Fetch returns the rustdoc JSON for req, from cache when a live entry
// exists, otherwise from the network. Exactly one cache write happens
// per successful network fetch; failures never populate the cache.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Crate) == "" {
		return nil, errors.New("docsrs: crate name is required")
	}

	key := req.URL(f.baseURL)

	data, hit, err := f.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if hit {
		f.logger.Debug("cache hit", "key", key)
		return &Result{Data: data, FromCache: true}, nil
	}

	raw, err, _ := f.group.Do(key, func() (any, error) {
		return f.fetchRemote(ctx, key, req)
	})
	if err != nil {
		return nil, err
	}
	return &Result{Data: raw.(json.RawMessage), FromCache: false}, nil
}

// fetchRemote performs the network call, decompresses and validates the
// payload, and stores it under key.
func (f *Fetcher) fetchRemote(ctx context.Context, key string, req Request) (json.RawMessage, error) {
	logger := f.logger.With("request_id", uuid.NewString(), "url", key)
	logger.Debug("fetching crate documentation")

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, &HTTPError{Err: err}
	}
	httpReq.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("fetch aborted", "elapsed", time.Since(start))
			return nil, &TimeoutError{Timeout: f.timeout}
		}
		return nil, &HTTPError{Err: err}
	}
	defer resp.Body.Close()

	version := req.Version
	if version == "" {
		version = "latest"
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &CrateNotFoundError{Crate: req.Crate, Version: version}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &TimeoutError{Timeout: f.timeout}
		}
		return nil, &HTTPError{Err: err}
	}

	text, err := f.decodeBody(resp.Header.Get("Content-Encoding"), body)
	if err != nil {
		return nil, err
	}

	raw, err := validatePayload(text)
	if err != nil {
		return nil, err
	}

	if err := f.store.Set(ctx, key, raw, f.ttl); err != nil {
		return nil, err
	}

	logger.Info("fetched and cached crate documentation",
		"crate", req.Crate,
		"version", version,
		"bytes", len(raw),
		"elapsed", time.Since(start))
	return raw, nil
}

// decodeBody reverses the content encoding when docs.rs signals zstd.
// An absent or unrecognized encoding falls through to the plain text
// path; the transport layer handles gzip on its own.
func (f *Fetcher) decodeBody(encoding string, body []byte) (string, error) {
	if encoding == "zstd" || strings.ToLower(encoding) == "zstd" {
		decoded, err := f.zstd.DecodeAll(body, nil)
		if err != nil {
			return "", &DecompressError{Encoding: encoding, Err: err}
		}
		return string(decoded), nil
	}
	return string(body), nil
}

// validatePayload checks that text is a non-null JSON object and returns
// it as an opaque raw message. The error carries a bounded preview only.
func validatePayload(text string) (json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Length: len(text), Err: errors.New("response body is empty")}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &ParseError{Preview: preview(text), Length: len(text), Err: err}
	}
	if doc == nil {
		return nil, &ParseError{Preview: preview(text), Length: len(text), Err: errors.New("document is not a JSON object")}
	}
	return json.RawMessage(text), nil
}

func preview(text string) string {
	if len(text) <= previewLen {
		return text
	}
	return text[:previewLen]
}

// ClearCache removes all cached payloads.
func (f *Fetcher) ClearCache(ctx context.Context) error {
	return f.store.Clear(ctx)
}

// CacheStats returns the store's aggregate view.
func (f *Fetcher) CacheStats(ctx context.Context) (cache.Stats, error) {
	return f.store.Stats(ctx)
}

// CacheEntries lists cached entries newest-first.
func (f *Fetcher) CacheEntries(ctx context.Context, limit, offset int) ([]cache.EntryInfo, error) {
	return f.store.Entries(ctx, limit, offset)
}

// QueryCacheDB runs a read-only statement against the cache database.
// The SELECT-only gate is re-checked here before delegating; the store
// applies the same check again. The duplication is intentional.
func (f *Fetcher) QueryCacheDB(ctx context.Context, stmt string) ([]map[string]any, error) {
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(stmt)), "SELECT") {
		return nil, cache.ErrQueryRejected
	}
	return f.store.Query(ctx, stmt)
}

// Close releases the underlying cache store.
func (f *Fetcher) Close() error {
	f.zstd.Close()
	return f.store.Close()
}
