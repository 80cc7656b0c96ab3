// Package session implements the session lifecycle and persistence engine:
// session identity, history synchronization with the backend handle,
// save/switch ordering, automatic title derivation and audit logging.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/azor-ai/azor/internal/audit"
	"github.com/azor-ai/azor/internal/provider"
)

// DefaultTitle is the sentinel title assigned at creation. It is replaced at
// most once, by auto-titling or an explicit rename, and never reinstated.
const DefaultTitle = "New Session"

const defaultContextWindow = 32768

// Assistant describes the persona attached to every session.
type Assistant struct {
	Name         string
	SystemPrompt string
}

// Options tunes session construction.
type Options struct {
	// ID is the session identity; a fresh UUID is generated when empty.
	ID string

	// History seeds the backend handle.
	History []provider.Entry

	// Title overrides the default sentinel.
	Title string

	// ContextWindow is the model context size used for remaining-token
	// calculations; defaults to 32768.
	ContextWindow int

	// ThinkingBudget is forwarded to the backend handle.
	ThinkingBudget int
}

// Session owns one conversation: its identity, title and history, plus
// exactly one live backend handle. The handle's history is authoritative;
// every read or persist path reconciles from it first.
type Session struct {
	ID    string
	Title string

	assistant      Assistant
	backend        provider.Provider
	chat           provider.Chat
	history        []provider.Entry
	store          Store
	auditLog       *audit.Log
	contextWindow  int
	thinkingBudget int
	log            zerolog.Logger
}

// New creates a session and establishes a fresh backend handle seeded with
// opts.History. A handle initialization failure is wrapped as ErrBackendInit;
// startup code treats it as fatal.
func New(backend provider.Provider, store Store, auditLog *audit.Log, assistant Assistant, log zerolog.Logger, opts Options) (*Session, error) {
	s := &Session{
		ID:             opts.ID,
		Title:          opts.Title,
		assistant:      assistant,
		backend:        backend,
		history:        append([]provider.Entry(nil), opts.History...),
		store:          store,
		auditLog:       auditLog,
		contextWindow:  opts.ContextWindow,
		thinkingBudget: opts.ThinkingBudget,
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Title == "" {
		s.Title = DefaultTitle
	}
	if s.contextWindow <= 0 {
		s.contextWindow = defaultContextWindow
	}
	s.log = log.With().Str("session_id", s.ID).Logger()

	if err := s.resetChat(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the persisted record for id and constructs a session exactly as
// New does, seeded with the stored history and title. Missing or corrupt
// records return ErrNotFound / ErrCorruptData without side effects.
func Load(backend provider.Provider, store Store, auditLog *audit.Log, assistant Assistant, log zerolog.Logger, id string, opts Options) (*Session, error) {
	rec, err := store.Load(id)
	if err != nil {
		return nil, err
	}
	opts.ID = id
	opts.History = rec.History
	opts.Title = rec.Title
	return New(backend, store, auditLog, assistant, log, opts)
}

// resetChat recreates the backend handle seeded with the current in-memory
// history. Required whenever history is mutated outside the backend's own
// append flow (load, truncate, clear).
func (s *Session) resetChat() error {
	chat, err := s.backend.NewChat(s.assistant.SystemPrompt, s.history, s.thinkingBudget)
	if err != nil {
		return fmt.Errorf("session %s: %w: %w", s.ID, ErrBackendInit, err)
	}
	s.chat = chat
	return nil
}

// reconcile overwrites the local history with the backend handle's copy.
// The handle is the source of truth; this runs before every read or persist.
func (s *Session) reconcile() {
	if s.chat != nil {
		s.history = s.chat.History()
	}
}

// Save reconciles history and writes the persisted record. In-memory state
// is never mutated on failure; the caller decides whether to retry.
func (s *Session) Save() error {
	s.reconcile()
	rec := &Record{
		SessionID:    s.ID,
		Title:        s.Title,
		Model:        s.backend.Model(),
		SystemPrompt: s.assistant.SystemPrompt,
		History:      s.history,
	}
	if err := s.store.Save(rec); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

// Rename sets the title and persists immediately. The title change is kept
// in memory even when the persist fails.
func (s *Session) Rename(newTitle string) error {
	s.Title = newTitle
	return s.Save()
}

// SendMessage forwards text to the backend handle, reconciles history from
// it, then runs auto-titling (first completed exchange only) and appends an
// audit entry. Audit failures are logged and swallowed; a backend failure is
// surfaced and leaves the history unreconciled.
func (s *Session) SendMessage(ctx context.Context, text string) (string, error) {
	if s.chat == nil {
		return "", fmt.Errorf("session %s: %w: no live handle", s.ID, ErrBackendRequest)
	}

	reply, err := s.chat.Send(ctx, text)
	if err != nil {
		return "", fmt.Errorf("session %s: %w: %w", s.ID, ErrBackendRequest, err)
	}

	s.reconcile()

	if s.Title == DefaultTitle && len(s.history) == 2 {
		s.autoTitle(ctx)
	}

	tokens := s.CountTokens(ctx)
	if err := s.auditLog.Append(audit.Entry{
		SessionID:   s.ID,
		Prompt:      text,
		Response:    reply,
		TotalTokens: tokens,
		Model:       s.backend.Model(),
	}); err != nil {
		s.log.Warn().Err(err).Msg("audit append failed")
	}

	return reply, nil
}

// autoTitle derives a title from the first completed exchange. It fires at
// most once per session: the trigger requires history length exactly 2, which
// can only hold immediately after the first exchange. Any failure leaves the
// sentinel in place with no retry.
func (s *Session) autoTitle(ctx context.Context) {
	userText := s.history[0].Text()
	assistantText := s.history[1].Text()

	prompt := "Based on the dialogue below, generate a short single-sentence title for the thread. " +
		"The title must contain no punctuation and be based on the assistant's response. " +
		"Dialogue:\n" +
		"USER: " + userText + "\n" +
		"ASSISTANT: " + assistantText

	raw, err := s.backend.GenerateText(ctx, prompt)
	if err != nil {
		s.log.Warn().Err(err).Msg("auto-title generation failed")
		return
	}

	title := cleanTitle(raw)
	if title == "" {
		return
	}

	s.Title = title
	if err := s.Save(); err != nil {
		s.log.Warn().Err(err).Msg("persist after auto-title failed")
	}
}

// cleanTitle strips surrounding whitespace and a single trailing punctuation
// character.
func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if title == "" {
		return ""
	}
	switch title[len(title)-1] {
	case '.', '!', '?', ',':
		title = strings.TrimSpace(title[:len(title)-1])
	}
	return title
}

// History reconciles from the backend handle and returns the sequence. The
// read path always re-syncs; it never returns stale memory.
func (s *Session) History() []provider.Entry {
	s.reconcile()
	return append([]provider.Entry(nil), s.history...)
}

// ClearHistory discards the history, recreates the backend handle with an
// empty seed and persists the now-empty record.
func (s *Session) ClearHistory() error {
	s.history = nil
	if err := s.resetChat(); err != nil {
		return err
	}
	return s.Save()
}

// PopLastExchange removes exactly the trailing user/assistant pair. The
// backend handle cannot express truncation as an append, so it is rebuilt
// with the truncated history. Returns false with no mutation when fewer than
// two entries exist.
func (s *Session) PopLastExchange() (bool, error) {
	s.reconcile()
	if len(s.history) < 2 {
		return false, nil
	}

	s.history = s.history[:len(s.history)-2]
	if err := s.resetChat(); err != nil {
		return false, err
	}
	if err := s.Save(); err != nil {
		return true, err
	}
	return true, nil
}

// CountTokens reports total tokens over the reconciled history. A backend
// counting failure yields 0 rather than propagating.
func (s *Session) CountTokens(ctx context.Context) int {
	s.reconcile()
	n, err := s.backend.CountTokens(ctx, s.history)
	if err != nil {
		s.log.Warn().Err(err).Msg("token count failed")
		return 0
	}
	return n
}

// RemainingTokens reports context window headroom.
func (s *Session) RemainingTokens(ctx context.Context) int {
	return s.contextWindow - s.CountTokens(ctx)
}

// TokenInfo returns (total, remaining, max) in one call.
func (s *Session) TokenInfo(ctx context.Context) (int, int, int) {
	total := s.CountTokens(ctx)
	return total, s.contextWindow - total, s.contextWindow
}

// IsEmpty reports whether the session has no complete exchange.
func (s *Session) IsEmpty() bool {
	s.reconcile()
	return len(s.history) < 2
}

// AssistantName returns the display name of the attached assistant persona.
func (s *Session) AssistantName() string {
	return s.assistant.Name
}

// Model returns the backend model identifier bound to this session.
func (s *Session) Model() string {
	return s.backend.Model()
}
