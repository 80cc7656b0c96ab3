package session

import (
	"time"

	"github.com/azor-ai/azor/internal/provider"
)

// Record is the persisted form of one session.
type Record struct {
	SessionID    string           `json:"session_id"`
	Title        string           `json:"title,omitempty"`
	Model        string           `json:"model"`
	SystemPrompt string           `json:"system_prompt"`
	History      []provider.Entry `json:"history"`
}

// Info is a lightweight summary of a saved session (for listing).
type Info struct {
	ID           string
	Title        string
	Model        string
	MessageCount int
	LastActivity time.Time
}

// Store abstracts session record persistence.
type Store interface {
	// Save writes the full record, overwriting any existing one for its id.
	Save(rec *Record) error

	// Load reads the record for id. It returns ErrNotFound if no record
	// exists and ErrCorruptData if the record cannot be parsed.
	Load(id string) (*Record, error)

	// List enumerates every readable record. Records that fail to parse are
	// skipped; List itself only fails on store-level errors.
	List() ([]Info, error)

	// Delete removes the record for id.
	Delete(id string) error
}
