package types

import "time"

// WorkflowType names a content workflow.
type WorkflowType string

const (
	WorkflowNewContent WorkflowType = "new_content"
	WorkflowUpdate     WorkflowType = "update"
	WorkflowReview     WorkflowType = "review"
)

// WorkflowRequest describes an end-to-end content workflow run.
type WorkflowRequest struct {
	Type WorkflowType `json:"workflow_type"`

	// Content data. Title is used by new_content, Content and Updates
	// by update, Content alone by review.
	Title   string            `json:"title,omitempty"`
	DocType string            `json:"doc_type,omitempty"`
	Content string            `json:"content,omitempty"`
	Updates map[string]string `json:"updates,omitempty"`

	// External context to retrieve before processing.
	JiraKeys      []string          `json:"jira_keys,omitempty"`
	ConfluenceIDs []string          `json:"confluence_ids,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// WorkflowMetadata carries timing and provenance for a workflow run.
type WorkflowMetadata struct {
	Timestamp   time.Time `json:"timestamp"`
	ContextUsed []string  `json:"context_used,omitempty"`
}

// WorkflowResult is the stored outcome of a content workflow.
type WorkflowResult struct {
	ID             string           `json:"id"`
	Type           WorkflowType     `json:"workflow_type"`
	Content        any              `json:"content"`
	QualityMetrics QualityMetrics   `json:"quality_metrics"`
	Metadata       WorkflowMetadata `json:"metadata"`
}
