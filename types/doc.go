// Package types defines the shared domain types of the documentation
// assistant: structured errors, review results, drafts, query responses,
// and workflow records. It has no dependencies on other docuflow packages
// so every layer can import it freely.
package types
