package agent

import (
	"regexp"
	"strings"

	"github.com/docuflow/docuflow/types"
)

var (
	headingPattern   = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	codeBlockPattern = regexp.MustCompile("(?s)```.*?```")
	linkPattern      = regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`)
	apiRefPattern    = regexp.MustCompile(`(?i)\b(?:GET|POST|PUT|PATCH|DELETE)\s+/\S+`)
)

// expectedSections are what a complete document is scored against.
var expectedSections = []string{"overview", "prerequisites", "steps", "examples", "references"}

// sectionSynonyms widen the match for each expected section.
var sectionSynonyms = map[string][]string{
	"overview":      {"overview", "introduction", "about", "summary"},
	"prerequisites": {"prerequisites", "requirements", "before you begin"},
	"steps":         {"steps", "procedure", "instructions", "how to", "usage", "getting started"},
	"examples":      {"examples", "example", "sample"},
	"references":    {"references", "see also", "related", "further reading"},
}

// AnalyzeStructure inspects the markdown sectioning of content.
func AnalyzeStructure(content string) types.StructureAnalysis {
	matches := headingPattern.FindAllStringSubmatch(content, -1)

	analysis := types.StructureAnalysis{
		HeadingCount:     len(matches),
		HeadingLevels:    make(map[int]int),
		SequentialLevels: true,
	}

	prevLevel := 0
	for _, m := range matches {
		level := len(m[1])
		analysis.HeadingLevels[level]++
		if level > analysis.MaxHeadingDepth {
			analysis.MaxHeadingDepth = level
		}
		// A jump of more than one level breaks the heading hierarchy.
		if prevLevel > 0 && level > prevLevel+1 {
			analysis.SequentialLevels = false
		}
		prevLevel = level
	}

	sections := headingPattern.Split(content, -1)
	for _, section := range sections {
		if strings.TrimSpace(section) != "" {
			analysis.SectionCount++
		}
	}
	if analysis.SectionCount > 0 {
		totalWords := len(strings.Fields(content))
		analysis.AvgSectionLength = float64(totalWords) / float64(analysis.SectionCount)
	}

	return analysis
}

// AnalyzeTechnical counts technical elements in content.
func AnalyzeTechnical(content string) types.TechnicalAnalysis {
	return types.TechnicalAnalysis{
		CodeBlocks:    len(codeBlockPattern.FindAllString(content, -1)),
		APIReferences: len(apiRefPattern.FindAllString(content, -1)),
		Links:         len(linkPattern.FindAllString(content, -1)),
	}
}

// AnalyzeCompleteness scores content against the expected document
// sections. The score is the matched fraction of the five sections.
func AnalyzeCompleteness(content string) types.CompletenessAnalysis {
	lower := strings.ToLower(content)

	analysis := types.CompletenessAnalysis{
		HasSections: make(map[string]bool, len(expectedSections)),
	}

	hits := 0
	for _, section := range expectedSections {
		found := false
		for _, synonym := range sectionSynonyms[section] {
			if strings.Contains(lower, synonym) {
				found = true
				break
			}
		}
		analysis.HasSections[section] = found
		if found {
			hits++
		}
	}

	analysis.Score = float64(hits) / float64(len(expectedSections))
	return analysis
}

// missingSections lists the expected sections absent from analyzed
// content, in canonical order.
func missingSections(analysis types.CompletenessAnalysis) []string {
	var missing []string
	for _, section := range expectedSections {
		if !analysis.HasSections[section] {
			missing = append(missing, section)
		}
	}
	return missing
}
