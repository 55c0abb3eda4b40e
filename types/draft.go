package types

import "time"

// Reference points at an external artifact that informed a draft or a
// query response.
type Reference struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Key       string `json:"key,omitempty"`
	Title     string `json:"title"`
	URL       string `json:"url,omitempty"`
	Relevance string `json:"relevance,omitempty"`
}

// DraftRequest describes a documentation drafting job.
type DraftRequest struct {
	Title          string            `json:"title"`
	DocType        string            `json:"doc_type,omitempty"`
	Requirements   []string          `json:"requirements,omitempty"`
	JiraKeys       []string          `json:"jira_keys,omitempty"`
	ConfluenceIDs  []string          `json:"confluence_ids,omitempty"`
	Specifications []string          `json:"specifications,omitempty"`
	StyleGuide     map[string]string `json:"style_guide,omitempty"`
}

// StructureAnalysis describes the sectioning of generated content.
type StructureAnalysis struct {
	SectionCount     int         `json:"section_count"`
	HeadingCount     int         `json:"heading_count"`
	HeadingLevels    map[int]int `json:"heading_levels,omitempty"`
	MaxHeadingDepth  int         `json:"max_heading_depth"`
	SequentialLevels bool        `json:"sequential_levels"`
	AvgSectionLength float64     `json:"avg_section_length"`
}

// TechnicalAnalysis counts technical elements in generated content.
type TechnicalAnalysis struct {
	CodeBlocks    int `json:"code_blocks"`
	APIReferences int `json:"api_references"`
	Links         int `json:"links"`
}

// CompletenessAnalysis records which expected sections are present.
type CompletenessAnalysis struct {
	HasSections map[string]bool `json:"has_sections"`
	Score       float64         `json:"score"`
}

// DraftAnalysis is the full post-generation analysis of a draft.
type DraftAnalysis struct {
	Structure    StructureAnalysis    `json:"structure"`
	Readability  ContentMetrics       `json:"readability"`
	Technical    TechnicalAnalysis    `json:"technical"`
	Completeness CompletenessAnalysis `json:"completeness"`
}

// DraftMetadata carries provenance information for a draft.
type DraftMetadata struct {
	GeneratedAt   time.Time `json:"generated_at"`
	DocType       string    `json:"doc_type"`
	RelatedIssues []string  `json:"related_issues,omitempty"`
	RelatedPages  []string  `json:"related_pages,omitempty"`
}

// Draft is a generated documentation draft with its analysis.
type Draft struct {
	Content     string        `json:"content"`
	Metadata    DraftMetadata `json:"metadata"`
	Analysis    DraftAnalysis `json:"analysis"`
	Suggestions []string      `json:"suggestions,omitempty"`
	References  []Reference   `json:"references,omitempty"`
}
