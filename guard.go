package quarry

import (
	"context"
	"fmt"
	"log/slog"
)

// Outcome is the result of a consistency check against the table state.
type Outcome int

const (
	// OutcomeEmpty means the table has no rows; an ingest bootstraps the
	// table, a retrieval returns no results.
	OutcomeEmpty Outcome = iota
	// OutcomeMatch means the table's sole strategy equals the requested one.
	OutcomeMatch
	// OutcomeMismatch means the table is populated under a different
	// strategy. Ingestion must abort before writing anything.
	OutcomeMismatch
	// OutcomeDivergent means the table holds rows under several strategies —
	// a state the guard never produces itself, but must tolerate (out-of-band
	// writes). Retrieval proceeds restricted to the requested strategy.
	OutcomeDivergent
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeMatch:
		return "match"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeDivergent:
		return "divergent"
	default:
		return "unknown"
	}
}

// Guard compares a requested chunking strategy against the strategies already
// present in the store. Embeddings produced under different chunking
// parameters are not comparable; mixing them degrades retrieval quality with
// no visible failure, so mismatches fail loud at ingestion time and are
// filtered defensively at retrieval time.
type Guard struct {
	store  VectorStore
	logger *slog.Logger
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// GuardLogger sets the structured logger for divergence warnings.
func GuardLogger(l *slog.Logger) GuardOption {
	return func(g *Guard) { g.logger = l }
}

// NewGuard creates a Guard reading table state from store.
func NewGuard(store VectorStore, opts ...GuardOption) *Guard {
	g := &Guard{store: store, logger: nopLogger}
	for _, o := range opts {
		o(g)
	}
	return g
}

// CheckIngest verifies that ingesting under requested cannot introduce a
// second strategy into the table. On OutcomeMismatch the returned error is a
// *ErrStrategyMismatch naming the existing and requested labels; the caller
// must not write any rows.
func (g *Guard) CheckIngest(ctx context.Context, requested Descriptor) (Outcome, error) {
	existing, err := g.store.Strategies(ctx)
	if err != nil {
		return OutcomeEmpty, fmt.Errorf("read table strategies: %w", err)
	}
	label := requested.String()

	switch {
	case len(existing) == 0:
		return OutcomeEmpty, nil
	case len(existing) == 1 && existing[0] == label:
		return OutcomeMatch, nil
	default:
		return OutcomeMismatch, &ErrStrategyMismatch{Existing: existing, Requested: label}
	}
}

// CheckRetrieve classifies the table state for a retrieval under requested.
// It never returns an error outcome for strategy divergence: an empty table
// yields OutcomeEmpty (the caller returns empty results), and a table holding
// several strategies yields OutcomeDivergent with a logged warning — the
// search must then restrict itself to rows under the requested label.
func (g *Guard) CheckRetrieve(ctx context.Context, requested Descriptor) (Outcome, error) {
	existing, err := g.store.Strategies(ctx)
	if err != nil {
		return OutcomeEmpty, fmt.Errorf("read table strategies: %w", err)
	}
	label := requested.String()

	switch {
	case len(existing) == 0:
		return OutcomeEmpty, nil
	case len(existing) == 1 && existing[0] == label:
		return OutcomeMatch, nil
	case len(existing) == 1:
		// Populated under a single, different strategy: retrieval under the
		// requested label will simply match nothing.
		return OutcomeMatch, nil
	default:
		g.logger.Warn("table holds multiple chunking strategies; restricting search to requested strategy",
			"requested", label,
			"present", existing)
		return OutcomeDivergent, nil
	}
}
