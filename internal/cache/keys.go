package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key namespace prefixes. Each agent and subsystem writes under its
// own prefix so Scan-based summaries stay cheap.
const (
	PrefixReview       = "review"
	PrefixDraft        = "draft"
	PrefixQuery        = "query"
	PrefixQueryHistory = "query_history"
	PrefixWorkflow     = "workflow"
	PrefixAcrolinx     = "acrolinx"
	PrefixError        = "error"
	PrefixErrorPattern = "error_pattern"
	PrefixMetrics      = "metrics"
	PrefixRateLimit    = "ratelimit"
)

// Key joins a prefix and an identifier into a cache key.
func Key(prefix, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}

// Fingerprint produces a stable identifier for a request payload.
// The payload is flattened to JSON, the named volatile fields are
// stripped, and the canonical form is hashed. Two requests that differ
// only in volatile fields (session identifiers, free-form references)
// therefore share a fingerprint and a cache entry.
func Fingerprint(kind string, payload any, volatile ...string) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", fmt.Errorf("payload must be a JSON object: %w", err)
	}

	for _, name := range volatile {
		delete(fields, name)
	}

	// json.Marshal sorts map keys, which makes the form canonical.
	canonical, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize payload: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("%s:%s", kind, hex.EncodeToString(sum[:])), nil
}
