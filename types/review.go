package types

import "time"

// IssueSeverity classifies how serious a content issue is.
type IssueSeverity string

const (
	SeverityInfo       IssueSeverity = "info"
	SeverityWarning    IssueSeverity = "warning"
	SeverityError      IssueSeverity = "error"
	SeverityCritical   IssueSeverity = "critical"
	SeveritySuggestion IssueSeverity = "suggestion"
)

// IssuePosition locates an issue inside the checked content.
type IssuePosition struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Issue is a single finding from the AI review or the Acrolinx check.
type Issue struct {
	Type        string         `json:"type"`
	Category    string         `json:"category,omitempty"`
	Severity    IssueSeverity  `json:"severity,omitempty"`
	Message     string         `json:"message"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Position    *IssuePosition `json:"position,omitempty"`
}

// ContentMetrics holds surface-level statistics of a piece of content.
type ContentMetrics struct {
	WordCount           int     `json:"word_count"`
	SentenceCount       int     `json:"sentence_count"`
	AvgWordsPerSentence float64 `json:"avg_words_per_sentence"`
	LongSentences       int     `json:"long_sentences"`
	ComplexWords        int     `json:"complex_words"`
	ReadabilityScore    float64 `json:"readability_score"`
}

// AIFeedback is the parsed, sectioned output of the AI reviewer.
type AIFeedback struct {
	TechnicalIssues    []string       `json:"technical_issues"`
	StyleIssues        []string       `json:"style_issues"`
	StructureIssues    []string       `json:"structure_issues"`
	CompletenessIssues []string       `json:"completeness_issues"`
	Suggestions        []string       `json:"suggestions"`
	Metrics            ContentMetrics `json:"metrics"`
}

// ReviewRequest describes a content review job.
type ReviewRequest struct {
	Content     string            `json:"content"`
	ContentType string            `json:"content_type,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	StyleGuide  map[string]string `json:"style_guide,omitempty"`
}

// ReviewResult is the combined outcome of the AI review and the
// optional Acrolinx check. QualityScore is nil when no Acrolinx
// scorecard was produced.
type ReviewResult struct {
	QualityScore *float64       `json:"quality_score"`
	Issues       []Issue        `json:"issues"`
	Suggestions  []string       `json:"suggestions"`
	Metrics      ContentMetrics `json:"metrics"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ReviewedAt   time.Time      `json:"reviewed_at"`
}

// QualityMetrics is the aggregated quality assessment attached to a
// workflow result.
type QualityMetrics struct {
	QualityScore      float64  `json:"quality_score"`
	ReadabilityScore  float64  `json:"readability_score"`
	ConsistencyScore  float64  `json:"consistency_score"`
	CompletenessScore float64  `json:"completeness_score"`
	Suggestions       []string `json:"suggestions,omitempty"`
}
