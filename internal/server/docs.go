package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vexxvakan/mcp-docsrs/internal/docsrs"
)

// maxDocsChars bounds the crate documentation excerpt returned to the
// agent; rustdoc JSON for large crates can carry very long doc strings.
const maxDocsChars = 8000

// ItemNotFoundError reports that the documentation index does not
// contain the requested item.
type ItemNotFoundError struct {
	ID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %q is not present in the crate's documentation index", e.ID)
}

// rustdocCrate is the subset of the rustdoc JSON shape this layer reads.
// The payload stays opaque everywhere below this point.
type rustdocCrate struct {
	Root          json.RawMessage            `json:"root"`
	CrateVersion  string                     `json:"crate_version"`
	FormatVersion int                        `json:"format_version"`
	Index         map[string]json.RawMessage `json:"index"`
}

type rustdocItem struct {
	Name string `json:"name"`
	Docs string `json:"docs"`
}

// RenderCrateDocs extracts the crate-level documentation from a rustdoc
// JSON payload and renders a bounded human-readable summary, including
// cache provenance.
func RenderCrateDocs(data json.RawMessage, req docsrs.Request, fromCache bool) (string, error) {
	var doc rustdocCrate
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("decode rustdoc payload: %w", err)
	}

	rootID := rawID(doc.Root)
	if rootID == "" {
		return "", &ItemNotFoundError{ID: "root"}
	}
	rawItem, ok := doc.Index[rootID]
	if !ok {
		return "", &ItemNotFoundError{ID: rootID}
	}

	var item rustdocItem
	if err := json.Unmarshal(rawItem, &item); err != nil {
		return "", fmt.Errorf("decode root item: %w", err)
	}

	name := item.Name
	if name == "" {
		name = req.Crate
	}
	version := doc.CrateVersion
	if version == "" {
		version = req.Version
	}
	if version == "" {
		version = "latest"
	}

	docs := strings.TrimSpace(item.Docs)
	if docs == "" {
		docs = "No crate-level documentation is published for this crate."
	} else if len(docs) > maxDocsChars {
		docs = docs[:maxDocsChars] + "\n\n[documentation truncated]"
	}

	source := "fetched from docs.rs"
	if fromCache {
		source = "served from local cache"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", name, version)
	b.WriteString(docs)
	fmt.Fprintf(&b, "\n\n---\nrustdoc format version %d, %s\n", doc.FormatVersion, source)
	return b.String(), nil
}

// rawID normalizes the rustdoc root ID, which is a JSON number in
// current format versions and a quoted string in older ones.
func rawID(raw json.RawMessage) string {
	id := strings.TrimSpace(string(raw))
	return strings.Trim(id, `"`)
}
