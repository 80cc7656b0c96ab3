package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists one JSON record per session under a base directory.
// Writes overwrite the previous file directly; a crash mid-write can corrupt
// the prior record. Single-process access is assumed.
type FileStore struct {
	dir string
}

// NewFileStore creates the base directory if needed and returns the store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// DefaultStoreDir returns the default record directory
// (~/.local/share/azor/sessions).
func DefaultStoreDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "azor", "sessions"), nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) Save(rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", rec.SessionID, err)
	}
	if err := os.WriteFile(s.path(rec.SessionID), data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", rec.SessionID, err)
	}
	return nil
}

func (s *FileStore) Load(id string) (*Record, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("session %s: %w", id, ErrCorruptData)
	}
	if rec.SessionID == "" {
		rec.SessionID = id
	}
	return &rec, nil
}

func (s *FileStore) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		rec, err := s.Load(id)
		if err != nil {
			// Best-effort enumeration: skip unreadable records.
			continue
		}
		info := Info{
			ID:           rec.SessionID,
			Title:        rec.Title,
			Model:        rec.Model,
			MessageCount: len(rec.History),
		}
		if fi, err := entry.Info(); err == nil {
			info.LastActivity = fi.ModTime()
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (s *FileStore) Delete(id string) error {
	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
