// Package provider defines the search provider contract and the registry
// that tracks the active provider set.
package provider

import (
	"context"
)

// Result is one candidate produced by one provider for one query.
// Results are ephemeral; they exist only for the lifetime of the query
// that produced them and are never persisted.
type Result struct {
	// ProviderID identifies the originating provider.
	ProviderID string

	// ID is the provider-scoped opaque result identifier.
	ID string

	// Title is the primary display text.
	Title string

	// Subtitle is secondary display text (path, description, value).
	Subtitle string

	// Score is the provider-assigned relevance. It has no global meaning
	// across providers; cross-provider ordering comes from the usage boost
	// and the deterministic tie-break chain.
	Score float64
}

// QualifiedID returns the provider-qualified result id used for usage
// history, stable across sessions.
func (r Result) QualifiedID() string {
	return r.ProviderID + "|" + r.ID
}

// EmitFunc receives results incrementally as a provider produces them.
// Implementations must be safe to call until Search returns.
type EmitFunc func(Result)

// Provider is a pluggable search capability.
//
// Search streams candidate results for the query through emit and returns
// when the provider has no more results or ctx is cancelled. Providers
// should honor ctx promptly; the orchestrator bounds each call with a
// timeout and discards output of cancelled queries either way.
type Provider interface {
	// ID returns the stable provider identifier.
	ID() string

	// Search produces candidates for the query.
	Search(ctx context.Context, query string, emit EmitFunc) error
}
