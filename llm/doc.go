// Package llm defines the chat-completion provider abstraction used by
// the documentation agents, plus shared request/response types and
// HTTP error mapping helpers for provider implementations.
package llm
