package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleDoc = `# Overview

This guide explains the deployment pipeline.

## Prerequisites

- Access to the cluster
- [kubectl](https://kubernetes.io/docs/tasks/tools/) installed

## Steps

1. Build the image.
2. Call POST /api/v1/deployments to start the rollout.

` + "```bash\nkubectl apply -f deploy.yaml\n```" + `

## Examples

See the sample manifests.

## References

- [Runbook](https://example.com/runbook)
`

func TestAnalyzeStructure(t *testing.T) {
	analysis := AnalyzeStructure(sampleDoc)

	assert.Equal(t, 5, analysis.HeadingCount)
	assert.Equal(t, 1, analysis.HeadingLevels[1])
	assert.Equal(t, 4, analysis.HeadingLevels[2])
	assert.Equal(t, 2, analysis.MaxHeadingDepth)
	assert.True(t, analysis.SequentialLevels)
	assert.Greater(t, analysis.SectionCount, 0)
	assert.Greater(t, analysis.AvgSectionLength, 0.0)
}

func TestAnalyzeStructure_BrokenHierarchy(t *testing.T) {
	analysis := AnalyzeStructure("# Top\n\n#### Deep jump\n")
	assert.False(t, analysis.SequentialLevels)
}

func TestAnalyzeStructure_NoHeadings(t *testing.T) {
	analysis := AnalyzeStructure("just prose without structure")
	assert.Equal(t, 0, analysis.HeadingCount)
	assert.True(t, analysis.SequentialLevels)
}

func TestAnalyzeTechnical(t *testing.T) {
	analysis := AnalyzeTechnical(sampleDoc)

	assert.Equal(t, 1, analysis.CodeBlocks)
	assert.Equal(t, 1, analysis.APIReferences)
	assert.Equal(t, 2, analysis.Links)
}

func TestAnalyzeCompleteness_FullDoc(t *testing.T) {
	analysis := AnalyzeCompleteness(sampleDoc)

	assert.Equal(t, 1.0, analysis.Score)
	assert.True(t, analysis.HasSections["overview"])
	assert.True(t, analysis.HasSections["references"])
	assert.Empty(t, missingSections(analysis))
}

func TestAnalyzeCompleteness_Partial(t *testing.T) {
	analysis := AnalyzeCompleteness("# Introduction\n\nSome prose with an example.")

	assert.True(t, analysis.HasSections["overview"])
	assert.True(t, analysis.HasSections["examples"])
	assert.False(t, analysis.HasSections["references"])
	assert.InDelta(t, 0.4, analysis.Score, 0.001)

	missing := missingSections(analysis)
	assert.Contains(t, missing, "prerequisites")
	assert.Contains(t, missing, "references")
}
