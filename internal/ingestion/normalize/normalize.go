package normalize

import (
	"encoding/json"
	"sort"
	"strings"
)

// structuredTypes are the block-container formats whose payloads are
// canonicalized before hashing so that formatting-only differences do
// not change the fingerprint. Everything else hashes raw bytes.
var structuredTypes = map[string]bool{
	"application/json":                           true,
	"text/csv":                                   true,
	"text/html":                                  true,
	"application/vnd.corpusflow.ticket+json":     true,
	"application/vnd.corpusflow.project+json":    true,
	"application/vnd.corpusflow.comment+json":    true,
	"application/vnd.corpusflow.wiki+json":       true,
	"application/vnd.corpusflow.datasource+json": true,
	"application/vnd.corpusflow.table-rows+json": true,
}

func IsStructured(mimeType string) bool {
	return structuredTypes[strings.ToLower(strings.TrimSpace(mimeType))]
}

// Canonical returns the bytes that feed the content fingerprint. For
// structured types the payload is parsed as a block container and only
// the block payloads are re-serialized, with sorted object keys and a
// stable block order. Parse failures and non-structured types return
// the input unchanged. Pure function.
func Canonical(raw []byte, mimeType string) []byte {
	if !IsStructured(mimeType) {
		return raw
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return raw
	}

	blocks := extractBlocks(doc)
	if len(blocks) == 0 {
		return raw
	}

	serialized := make([]string, 0, len(blocks))
	for _, b := range blocks {
		// encoding/json marshals map keys in sorted order, which is
		// exactly the stable key ordering the fingerprint needs.
		out, err := json.Marshal(b)
		if err != nil {
			return raw
		}
		serialized = append(serialized, string(out))
	}
	sort.Strings(serialized)

	return []byte(strings.Join(serialized, "\n"))
}

// extractBlocks pulls the semantically meaningful sub-elements out of a
// parsed container: a top-level "blocks" or "rows" array when present, a
// bare array as-is, anything else as a single block.
func extractBlocks(doc any) []any {
	switch v := doc.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range []string{"blocks", "rows"} {
			if inner, ok := v[key].([]any); ok {
				return inner
			}
		}
		return []any{v}
	default:
		if v == nil {
			return nil
		}
		return []any{v}
	}
}
