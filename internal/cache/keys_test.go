package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "review:abc", Key(PrefixReview, "abc"))
	assert.Equal(t, "error_pattern:api_error", Key(PrefixErrorPattern, "api_error"))
}

func TestFingerprint_Stable(t *testing.T) {
	payload := map[string]any{
		"content":      "The API returns JSON.",
		"content_type": "api_doc",
	}

	a, err := Fingerprint(PrefixReview, payload)
	require.NoError(t, err)
	b, err := Fingerprint(PrefixReview, payload)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "review:"))
}

func TestFingerprint_IgnoresVolatileFields(t *testing.T) {
	base := map[string]any{
		"query":      "how do I deploy",
		"session_id": "sess-1",
	}
	other := map[string]any{
		"query":      "how do I deploy",
		"session_id": "sess-2",
	}

	a, err := Fingerprint(PrefixQuery, base, "session_id")
	require.NoError(t, err)
	b, err := Fingerprint(PrefixQuery, other, "session_id")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestFingerprint_DistinguishesContent(t *testing.T) {
	a, err := Fingerprint(PrefixReview, map[string]any{"content": "alpha"})
	require.NoError(t, err)
	b, err := Fingerprint(PrefixReview, map[string]any{"content": "beta"})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestFingerprint_RejectsNonObject(t *testing.T) {
	_, err := Fingerprint(PrefixReview, []string{"not", "an", "object"})
	assert.Error(t, err)
}

func TestFingerprint_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfNDistinct(
			rapid.StringMatching(`[a-z_]{1,12}`), 1, 6, rapid.ID[string],
		).Draw(t, "keys")

		payload := make(map[string]any, len(keys))
		for _, k := range keys {
			payload[k] = rapid.String().Draw(t, "value_"+k)
		}

		volatile := keys[0]

		a, err := Fingerprint(PrefixQuery, payload, volatile)
		if err != nil {
			t.Fatalf("fingerprint failed: %v", err)
		}

		// Mutating a volatile field never changes the fingerprint.
		payload[volatile] = rapid.String().Draw(t, "mutated")
		b, err := Fingerprint(PrefixQuery, payload, volatile)
		if err != nil {
			t.Fatalf("fingerprint failed: %v", err)
		}
		if a != b {
			t.Fatalf("fingerprint changed with volatile field: %q vs %q", a, b)
		}

		// Mutating a retained field changes it, unless the new value
		// happens to equal the old one.
		if len(keys) > 1 {
			retained := keys[1]
			old := payload[retained]
			payload[retained] = old.(string) + "x"
			c, err := Fingerprint(PrefixQuery, payload, volatile)
			if err != nil {
				t.Fatalf("fingerprint failed: %v", err)
			}
			if b == c {
				t.Fatalf("fingerprint unchanged after retained field mutation")
			}
		}
	})
}
