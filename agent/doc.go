// Package agent implements the documentation agents: review,
// drafting, and query answering, coordinated by the Orchestrator.
// Each agent wraps an llm.Provider with prompts and response parsing
// specialized for its task.
package agent
