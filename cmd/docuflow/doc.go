// Command docuflow runs the documentation assistant HTTP service: a
// REST API that reviews, drafts, and answers questions about technical
// documentation, backed by an OpenAI-compatible model provider and
// optional Acrolinx, JIRA, and Confluence integrations.
package main
