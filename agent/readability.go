package agent

import (
	"strings"
	"unicode"

	"github.com/docuflow/docuflow/types"
)

// longSentenceWords is the word count past which a sentence is
// flagged as hard to follow.
const longSentenceWords = 25

// AnalyzeContent computes surface statistics and the Flesch-Kincaid
// grade level for a piece of content.
func AnalyzeContent(content string) types.ContentMetrics {
	sentences := splitSentences(content)
	words := strings.Fields(content)

	metrics := types.ContentMetrics{
		WordCount:     len(words),
		SentenceCount: len(sentences),
	}
	if metrics.WordCount == 0 || metrics.SentenceCount == 0 {
		return metrics
	}

	totalSyllables := 0
	for _, word := range words {
		s := countSyllables(word)
		totalSyllables += s
		if s >= 3 {
			metrics.ComplexWords++
		}
	}

	for _, sentence := range sentences {
		if len(strings.Fields(sentence)) > longSentenceWords {
			metrics.LongSentences++
		}
	}

	wordsPerSentence := float64(metrics.WordCount) / float64(metrics.SentenceCount)
	syllablesPerWord := float64(totalSyllables) / float64(metrics.WordCount)

	metrics.AvgWordsPerSentence = wordsPerSentence
	metrics.ReadabilityScore = 0.39*wordsPerSentence + 11.8*syllablesPerWord - 15.59
	if metrics.ReadabilityScore < 0 {
		metrics.ReadabilityScore = 0
	}

	return metrics
}

// splitSentences breaks content on terminal punctuation, keeping only
// non-empty fragments.
func splitSentences(content string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range content {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(current.String())
			if len(strings.Fields(s)) > 0 {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	tail := strings.TrimSpace(current.String())
	if len(strings.Fields(tail)) > 0 {
		sentences = append(sentences, tail)
	}

	return sentences
}

// countSyllables approximates syllables by counting vowel groups with
// a silent trailing-e adjustment. Every word counts at least one.
func countSyllables(word string) int {
	word = strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r)
	}))
	if word == "" {
		return 0
	}

	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}

	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}
