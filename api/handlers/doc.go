// Package handlers implements the HTTP endpoints of the documentation
// assistant. Every endpoint decodes into the request types of the
// types package, dispatches to the orchestrator, and writes the shared
// response envelope.
package handlers
