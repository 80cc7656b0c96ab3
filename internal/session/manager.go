package session

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/azor-ai/azor/internal/audit"
	"github.com/azor-ai/azor/internal/provider"
)

// Manager orchestrates session lifecycle and holds the single current
// session. All state transitions go through its methods; the current-session
// reference is replaced as a whole, never partially mutated.
type Manager struct {
	backend   provider.Provider
	store     Store
	auditLog  *audit.Log
	assistant Assistant
	opts      Options
	log       zerolog.Logger

	current *Session
}

// NewManager creates a manager with no active session. opts.ID, opts.History
// and opts.Title are ignored; the per-session values are set by the lifecycle
// methods.
func NewManager(backend provider.Provider, store Store, auditLog *audit.Log, assistant Assistant, log zerolog.Logger, opts Options) *Manager {
	opts.ID = ""
	opts.History = nil
	opts.Title = ""
	return &Manager{
		backend:   backend,
		store:     store,
		auditLog:  auditLog,
		assistant: assistant,
		opts:      opts,
		log:       log,
	}
}

// Current returns the active session, or ErrNoActiveSession before one is
// installed.
func (m *Manager) Current() (*Session, error) {
	if m.current == nil {
		return nil, ErrNoActiveSession
	}
	return m.current, nil
}

// HasActive reports whether a session is installed.
func (m *Manager) HasActive() bool {
	return m.current != nil
}

// CreateResult reports the outcome of CreateNew.
type CreateResult struct {
	Session       *Session
	SaveAttempted bool
	PreviousID    string
	SaveErr       error
}

// CreateNew creates and installs a brand-new session, optionally saving the
// current one first. A save failure is reported but does not block creation.
func (m *Manager) CreateNew(saveCurrent bool) (CreateResult, error) {
	var res CreateResult

	if saveCurrent && m.current != nil {
		res.SaveAttempted = true
		res.PreviousID = m.current.ID
		res.SaveErr = m.current.Save()
	}

	sess, err := New(m.backend, m.store, m.auditLog, m.assistant, m.log, m.opts)
	if err != nil {
		return res, err
	}
	m.current = sess
	res.Session = sess
	return res, nil
}

// SwitchResult reports the outcome of SwitchTo.
type SwitchResult struct {
	Session       *Session
	SaveAttempted bool
	PreviousID    string
	LoadErr       error
	HasHistory    bool
}

// SwitchTo saves the current session (save-before-switch, unconditional on
// outcome), then loads id. On load failure the current session is left
// untouched and the error is reported; no replacement occurs.
func (m *Manager) SwitchTo(id string) SwitchResult {
	var res SwitchResult

	if m.current != nil {
		res.SaveAttempted = true
		res.PreviousID = m.current.ID
		if err := m.current.Save(); err != nil {
			m.log.Warn().Err(err).Str("session_id", res.PreviousID).Msg("save before switch failed")
		}
	}

	sess, err := Load(m.backend, m.store, m.auditLog, m.assistant, m.log, id, m.opts)
	if err != nil {
		res.LoadErr = err
		return res
	}

	m.current = sess
	res.Session = sess
	res.HasHistory = !sess.IsEmpty()
	return res
}

// RemoveResult reports the outcome of RemoveCurrentAndCreateNew.
type RemoveResult struct {
	Session   *Session
	RemovedID string
	RemoveErr error
}

// RemoveCurrentAndCreateNew deletes the current session's record (best
// effort) and installs a fresh session regardless of the deletion outcome.
func (m *Manager) RemoveCurrentAndCreateNew() (RemoveResult, error) {
	var res RemoveResult
	if m.current == nil {
		return res, ErrNoActiveSession
	}

	res.RemovedID = m.current.ID
	res.RemoveErr = m.store.Delete(res.RemovedID)

	sess, err := New(m.backend, m.store, m.auditLog, m.assistant, m.log, m.opts)
	if err != nil {
		return res, err
	}
	m.current = sess
	res.Session = sess
	return res, nil
}

// InitResult reports the outcome of InitFromID. LoadErr carries a non-fatal
// load failure that caused the fallback to a fresh session.
type InitResult struct {
	Session *Session
	LoadErr error
}

// InitFromID installs the initial session. With an id it attempts a load and
// falls back to a brand-new session on failure; the load error is surfaced in
// the result but is not fatal. Without an id it creates a new session
// directly.
func (m *Manager) InitFromID(id string) (InitResult, error) {
	var res InitResult

	if id != "" {
		sess, loadErr := Load(m.backend, m.store, m.auditLog, m.assistant, m.log, id, m.opts)
		if loadErr == nil {
			m.current = sess
			res.Session = sess
			return res, nil
		}
		res.LoadErr = loadErr
	}

	sess, err := New(m.backend, m.store, m.auditLog, m.assistant, m.log, m.opts)
	if err != nil {
		return res, err
	}
	m.current = sess
	res.Session = sess
	return res, nil
}

// RenameCurrent delegates to the active session's Rename.
func (m *Manager) RenameCurrent(newTitle string) error {
	if m.current == nil {
		return fmt.Errorf("rename: %w", ErrNoActiveSession)
	}
	if err := m.current.Rename(newTitle); err != nil {
		return fmt.Errorf("rename session %s: %w", m.current.ID, err)
	}
	return nil
}

// Teardown persists the active session if it holds at least one complete
// exchange. Empty or incomplete sessions are never written, so blank records
// do not accumulate.
func (m *Manager) Teardown() error {
	if m.current == nil {
		return nil
	}
	if m.current.IsEmpty() {
		m.log.Info().Str("session_id", m.current.ID).Msg("session empty, skipping final save")
		return nil
	}
	return m.current.Save()
}

// ListAll enumerates every stored session.
func (m *Manager) ListAll() ([]Info, error) {
	return m.store.List()
}
