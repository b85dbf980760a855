package quarry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// SessionState represents where a session is in its lifecycle.
type SessionState int32

const (
	// SessionCreated means the session exists but no query has been asked.
	SessionCreated SessionState = iota
	// SessionActive means the last turn completed and the session is idle.
	SessionActive
	// SessionResponding means a turn is in flight (retrieval or generation).
	SessionResponding
	// SessionTerminated means the session was reset; it accepts no more turns.
	SessionTerminated
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case SessionCreated:
		return "created"
	case SessionActive:
		return "active"
	case SessionResponding:
		return "responding"
	case SessionTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// HistoryStore persists completed turns per session. AppendTurn must flush
// the turn durably before returning; a turn is either fully recorded or not
// recorded at all.
type HistoryStore interface {
	AppendTurn(sessionID string, t Turn) error
	LoadTurns(sessionID string) ([]Turn, error)
}

// DefaultSystemPrompt is the RAG prompt used when none is configured. The
// retrieved chunks are substituted for %s.
const DefaultSystemPrompt = `You are a documentation assistant. Use the following pieces of retrieved context to answer the question. If the information needed to answer the question is not in the context or the conversation history, say that you cannot answer the question. Keep your tone formal. Do not say that you were given context.

Context:
%s`

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// SessionScope sets the access scope for all retrievals (default ScopeAll).
func SessionScope(s Scope) SessionOption {
	return func(m *SessionManager) { m.scope = s }
}

// SessionTopK sets how many chunks each turn retrieves (default 10).
func SessionTopK(k int) SessionOption {
	return func(m *SessionManager) { m.topK = k }
}

// SessionMetric sets the similarity metric (default cosine similarity).
func SessionMetric(metric Metric) SessionOption {
	return func(m *SessionManager) { m.metric = metric }
}

// SessionSystemPrompt sets the system prompt template; it must contain one
// %s verb for the retrieved context.
func SessionSystemPrompt(p string) SessionOption {
	return func(m *SessionManager) { m.prompt = p }
}

// SessionHistory sets the durable history store. Without one, history lives
// only in memory for the session's lifetime.
func SessionHistory(h HistoryStore) SessionOption {
	return func(m *SessionManager) { m.history = h }
}

// SessionHistoryBudget caps how many bytes of prior conversation are replayed
// to the model per turn, keeping the most recent turns (default 20000).
func SessionHistoryBudget(n int) SessionOption {
	return func(m *SessionManager) { m.historyBudget = n }
}

// SessionLogger sets the structured logger for session lifecycle events.
func SessionLogger(l *slog.Logger) SessionOption {
	return func(m *SessionManager) { m.logger = l }
}

// SessionManager creates and tracks sessions. Each session pins the
// manager's descriptor at creation time; changing the manager's descriptor
// afterwards affects only sessions created later, so a conversation keeps
// consistent retrieval semantics even if the global configuration changes
// mid-session.
type SessionManager struct {
	retriever Retriever
	llm       CompletionProvider
	history   HistoryStore

	scope         Scope
	topK          int
	metric        Metric
	prompt        string
	historyBudget int
	logger        *slog.Logger

	mu         sync.Mutex
	descriptor Descriptor
	sessions   map[string]*Session
}

// NewSessionManager creates a SessionManager that pins desc into every new
// session.
func NewSessionManager(r Retriever, llm CompletionProvider, desc Descriptor, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		retriever:     r,
		llm:           llm,
		descriptor:    desc,
		topK:          10,
		metric:        MetricCosineSimilarity,
		prompt:        DefaultSystemPrompt,
		historyBudget: 20000,
		logger:        nopLogger,
		sessions:      make(map[string]*Session),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SetDescriptor changes the descriptor pinned into sessions created from now
// on. Existing sessions keep the descriptor they were created with.
func (m *SessionManager) SetDescriptor(d Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.descriptor = d
}

// Session returns the session with the given id, creating it if necessary.
// A new session pins the manager's current descriptor and, when a history
// store is configured, resumes any previously persisted turns.
func (m *SessionManager) Session(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s
	}

	s := &Session{
		id:       id,
		strategy: m.descriptor,
		mgr:      m,
	}
	s.state.Store(int32(SessionCreated))

	if m.history != nil {
		turns, err := m.history.LoadTurns(id)
		if err != nil {
			m.logger.Warn("loading session history failed", "session", id, "error", err)
		} else if len(turns) > 0 {
			s.turns = turns
			s.state.Store(int32(SessionActive))
		}
	}

	m.sessions[id] = s
	m.logger.Info("session created", "session", id, "strategy", s.strategy.String())
	return s
}

// Reset terminates the session and forgets it. Any in-flight turn is
// cancelled. The durable history file, if any, is left in place.
func (m *SessionManager) Reset(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Reset()
	}
}

// Session is one conversation. Its chunking strategy descriptor is fixed for
// its whole lifetime, and at most one turn is in flight at any moment. All
// methods are safe for concurrent use.
type Session struct {
	id       string
	strategy Descriptor
	mgr      *SessionManager

	state atomic.Int32

	cancelMu sync.Mutex
	cancel   context.CancelFunc

	turnsMu sync.Mutex
	turns   []Turn
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Strategy returns the descriptor pinned at session creation.
func (s *Session) Strategy() Descriptor { return s.strategy }

// State returns the current lifecycle state.
func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// Turns returns a copy of the completed turns, oldest first.
func (s *Session) Turns() []Turn {
	s.turnsMu.Lock()
	defer s.turnsMu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Ask runs one turn: retrieve chunks under the session's pinned descriptor,
// generate a response with the conversation history, record the turn, and
// return it. While a turn is in flight Ask returns ErrTurnInFlight; after
// Reset it returns ErrSessionTerminated.
//
// On any failure — retrieval, generation, cancellation, or history
// persistence — the session reverts to Active with its prior history
// untouched; a failed turn is never half-recorded.
func (s *Session) Ask(ctx context.Context, query string) (Turn, error) {
	for {
		cur := SessionState(s.state.Load())
		switch cur {
		case SessionTerminated:
			return Turn{}, ErrSessionTerminated
		case SessionResponding:
			return Turn{}, ErrTurnInFlight
		}
		if s.state.CompareAndSwap(int32(cur), int32(SessionResponding)) {
			break
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelMu.Lock()
	s.cancel = cancel
	s.cancelMu.Unlock()

	defer func() {
		s.cancelMu.Lock()
		s.cancel = nil
		s.cancelMu.Unlock()
		cancel()
		// Reset may have terminated the session mid-turn; only revert to
		// Active if we are still the in-flight turn.
		s.state.CompareAndSwap(int32(SessionResponding), int32(SessionActive))
	}()

	m := s.mgr
	chunks, err := m.retriever.Retrieve(ctx, query, s.strategy, m.scope, m.topK, m.metric)
	if err != nil {
		m.logger.Warn("turn retrieval failed", "session", s.id, "error", err)
		return Turn{}, err
	}

	messages := s.buildMessages(query, chunks)
	response, err := m.llm.Complete(ctx, messages)
	if err != nil {
		m.logger.Warn("turn generation failed", "session", s.id, "error", err)
		return Turn{}, err
	}

	turn := Turn{
		Query:     query,
		Chunks:    chunks,
		Response:  response,
		CreatedAt: NowUnix(),
	}
	if m.history != nil {
		if err := m.history.AppendTurn(s.id, turn); err != nil {
			return Turn{}, fmt.Errorf("persist turn: %w", err)
		}
	}

	s.turnsMu.Lock()
	s.turns = append(s.turns, turn)
	s.turnsMu.Unlock()

	m.logger.Info("turn completed", "session", s.id, "chunks", len(chunks))
	return turn, nil
}

// Cancel aborts the in-flight turn, if any. The discarded turn leaves no
// trace in the history; previously completed turns are unaffected. Cancel on
// an idle session is a no-op.
func (s *Session) Cancel() {
	s.cancelMu.Lock()
	cancel := s.cancel
	s.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Reset terminates the session. An in-flight turn is cancelled; its result
// is discarded.
func (s *Session) Reset() {
	s.state.Store(int32(SessionTerminated))
	s.Cancel()
	s.mgr.logger.Info("session terminated", "session", s.id)
}

// buildMessages assembles the completion request: the system prompt with the
// retrieved context substituted, the most recent prior turns that fit the
// history budget, then the current query.
func (s *Session) buildMessages(query string, chunks []ScoredChunk) []ChatMessage {
	var contextText strings.Builder
	for _, c := range chunks {
		if contextText.Len() > 0 {
			contextText.WriteString("\n\n")
		}
		contextText.WriteString(c.Content)
	}

	messages := []ChatMessage{SystemMessage(fmt.Sprintf(s.mgr.prompt, contextText.String()))}

	// Replay whole prior turns, newest backwards, until the budget is spent.
	s.turnsMu.Lock()
	prior := s.turns
	budget := s.mgr.historyBudget
	start := len(prior)
	used := 0
	for start > 0 {
		t := prior[start-1]
		used += len(t.Query) + len(t.Response)
		if used > budget {
			break
		}
		start--
	}
	replay := prior[start:]
	history := make([]ChatMessage, 0, len(replay)*2)
	for _, t := range replay {
		history = append(history, UserMessage(t.Query), AssistantMessage(t.Response))
	}
	s.turnsMu.Unlock()

	messages = append(messages, history...)
	return append(messages, UserMessage(query))
}
