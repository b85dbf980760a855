package quarry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrStrategyMismatch is returned when an ingestion run requests a chunking
// strategy different from the one already populating the store. It is fatal
// to the run: no rows are written under the conflicting descriptor.
type ErrStrategyMismatch struct {
	Existing  []string // strategy labels already present in the table
	Requested string   // label of the requested descriptor
}

func (e *ErrStrategyMismatch) Error() string {
	return fmt.Sprintf("strategy mismatch: table holds %s, requested %q; rebuild the table to change strategy",
		quoteAll(e.Existing), e.Requested)
}

func quoteAll(labels []string) string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = strconv.Quote(l)
	}
	return strings.Join(quoted, ", ")
}

// ErrInvalidDocument marks a document that cannot be ingested: unsupported
// extension, malformed markup, or characters the persistence layer rejects.
// It is recoverable — the pipeline skips the document and records the reason.
type ErrInvalidDocument struct {
	Path   string
	Reason string
}

func (e *ErrInvalidDocument) Error() string {
	return fmt.Sprintf("invalid document %s: %s", e.Path, e.Reason)
}

// ErrHTTP is a non-2xx response from an external provider. The retry
// middleware inspects Status to decide whether the failure is transient.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// Sentinel errors for external capability failures. Providers wrap transport
// failures with these so callers can classify without knowing the backend.
var (
	// ErrEmbeddingUnavailable means the embedding model could not be reached.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrGenerationUnavailable means the completion model could not be reached.
	ErrGenerationUnavailable = errors.New("completion provider unavailable")
)

// Session errors.
var (
	// ErrTurnInFlight is returned by Ask while a previous turn is still in
	// the Responding state. Sessions run one turn at a time.
	ErrTurnInFlight = errors.New("session: a turn is already in flight")
	// ErrSessionTerminated is returned by Ask after Reset.
	ErrSessionTerminated = errors.New("session: terminated")
)

// ParseRetryAfter parses an HTTP Retry-After header value expressed in
// seconds. Returns 0 for empty or unparseable values.
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
