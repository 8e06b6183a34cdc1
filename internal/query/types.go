package query

import (
	"time"

	"github.com/beamlauncher/beam/internal/provider"
)

// State is the orchestrator state machine state.
type State int

const (
	// Idle means no session is active.
	Idle State = iota
	// SessionActive means a session is open with no query in flight.
	SessionActive
	// Querying means a query is dispatched and providers are working.
	Querying
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SessionActive:
		return "session-active"
	case Querying:
		return "querying"
	default:
		return "unknown"
	}
}

// Session represents one continuous period the frontend is visible and
// interactive. At most one session is active at a time.
type Session struct {
	// ID is an opaque session token.
	ID string

	// StartedAt is when the session was opened.
	StartedAt time.Time
}

// RankedItem is a provider result annotated with its computed final rank
// for the current query.
type RankedItem struct {
	provider.Result

	// Boost is the usage-history score added on top of the provider score.
	Boost float64

	// FinalScore is Score + boostWeight*Boost; the published sequence is
	// ordered by it descending.
	FinalScore float64

	// providerIndex is the provider's position in the dispatch snapshot
	// (registration order) and resultIndex the result's position in the
	// provider's own output. Together they make the merge a total order
	// independent of arrival timing.
	providerIndex int
	resultIndex   int
}

// less reports whether a ranks before b. Ties break by provider
// registration order, then by the provider's own result order; never by
// arrival time, which is nondeterministic across providers.
func (a RankedItem) less(b RankedItem) bool {
	if a.FinalScore != b.FinalScore {
		return a.FinalScore > b.FinalScore
	}
	if a.providerIndex != b.providerIndex {
		return a.providerIndex < b.providerIndex
	}
	return a.resultIndex < b.resultIndex
}

// Recorder is the usage store surface the orchestrator needs.
type Recorder interface {
	RecordUsage(input, itemID string) error
	RecordRuntime(providerID string, elapsed time.Duration) error
	RankBoost(input, itemID string) float64
}

// Config tunes the orchestrator.
type Config struct {
	// ProviderTimeout bounds each provider's work per query.
	ProviderTimeout time.Duration

	// MaxResults caps the published sequence. 0 means unlimited.
	MaxResults int

	// BoostWeight scales the usage boost relative to provider scores.
	BoostWeight float64
}
