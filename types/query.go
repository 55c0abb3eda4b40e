package types

import "time"

// QueryType classifies a documentation question.
type QueryType string

const (
	QueryHowTo           QueryType = "how-to"
	QueryTroubleshooting QueryType = "troubleshooting"
	QueryConceptual      QueryType = "conceptual"
	QueryReference       QueryType = "reference"
	QueryGeneral         QueryType = "general"
)

// QueryAnalysis is the classification of an incoming query.
type QueryAnalysis struct {
	Type           QueryType `json:"type"`
	Domain         string    `json:"domain"`
	ExpertiseLevel string    `json:"expertise_level"`
	ResponseFormat string    `json:"response_format"`
	KeyTerms       []string  `json:"key_terms,omitempty"`
}

// QueryRequest describes a documentation question.
type QueryRequest struct {
	Query      string            `json:"query"`
	Context    map[string]string `json:"context,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	StyleGuide map[string]string `json:"style_guide,omitempty"`
}

// QueryMetadata carries classification and timing info for a response.
type QueryMetadata struct {
	QueryType      QueryType `json:"query_type"`
	Domain         string    `json:"domain"`
	ExpertiseLevel string    `json:"expertise_level"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// QueryResponse is a structured answer to a documentation question.
type QueryResponse struct {
	Query          string        `json:"query"`
	Response       string        `json:"response"`
	Metadata       QueryMetadata `json:"metadata"`
	References     []Reference   `json:"references,omitempty"`
	RelatedQueries []string      `json:"related_queries,omitempty"`
	Suggestions    []string      `json:"suggestions,omitempty"`
}

// Exchange is one query/response pair in a conversation.
type Exchange struct {
	Timestamp time.Time      `json:"timestamp"`
	Query     string         `json:"query"`
	Response  *QueryResponse `json:"response"`
}
