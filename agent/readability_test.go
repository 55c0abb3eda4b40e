package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCountSyllables(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"cat", 1},
		{"table", 1},
		{"documentation", 5},
		{"api", 2},
		{"the", 1},
		{"readability", 5},
		{"a", 1},
		{"", 0},
		{"...", 0},
		{"queue", 1},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, countSyllables(tt.word))
		})
	}
}

func TestSplitSentences(t *testing.T) {
	sentences := splitSentences("First sentence. Second one! Third? And a trailing fragment")
	assert.Len(t, sentences, 4)
	assert.Equal(t, "First sentence.", sentences[0])
	assert.Equal(t, "And a trailing fragment", sentences[3])
}

func TestAnalyzeContent_Empty(t *testing.T) {
	metrics := AnalyzeContent("")
	assert.Equal(t, 0, metrics.WordCount)
	assert.Equal(t, 0, metrics.SentenceCount)
	assert.Equal(t, 0.0, metrics.ReadabilityScore)
}

func TestAnalyzeContent_Simple(t *testing.T) {
	metrics := AnalyzeContent("The cat sat on the mat. The dog ran fast.")

	assert.Equal(t, 10, metrics.WordCount)
	assert.Equal(t, 2, metrics.SentenceCount)
	assert.Equal(t, 5.0, metrics.AvgWordsPerSentence)
	assert.Equal(t, 0, metrics.LongSentences)
	// Short common words give a low grade level.
	assert.Less(t, metrics.ReadabilityScore, 3.0)
}

func TestAnalyzeContent_LongSentence(t *testing.T) {
	long := strings.Repeat("word ", 30) + "."
	metrics := AnalyzeContent(long)
	assert.Equal(t, 1, metrics.LongSentences)
}

func TestAnalyzeContent_ComplexWords(t *testing.T) {
	metrics := AnalyzeContent("Comprehensive documentation simplifies onboarding.")
	assert.Greater(t, metrics.ComplexWords, 0)
}

func TestAnalyzeContent_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		content := rapid.StringMatching(`([A-Za-z]{1,12} ){1,40}[A-Za-z]{1,12}[.!?]`).Draw(t, "content")

		metrics := AnalyzeContent(content)

		if metrics.WordCount <= 0 {
			t.Fatalf("expected positive word count for %q", content)
		}
		if metrics.SentenceCount <= 0 {
			t.Fatalf("expected positive sentence count for %q", content)
		}
		if metrics.ReadabilityScore < 0 {
			t.Fatalf("readability must not be negative, got %f", metrics.ReadabilityScore)
		}
		if metrics.ComplexWords > metrics.WordCount {
			t.Fatalf("complex words %d exceed word count %d", metrics.ComplexWords, metrics.WordCount)
		}
	})
}
