package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/azor-ai/azor/internal/provider"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	rec := &Record{
		SessionID:    "abc-123",
		Title:        "Trip Planning",
		Model:        "test-model",
		SystemPrompt: "be helpful",
		History:      pair("where to?", "somewhere sunny"),
	}
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load("abc-123")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SessionID != rec.SessionID || got.Title != rec.Title ||
		got.Model != rec.Model || got.SystemPrompt != rec.SystemPrompt {
		t.Errorf("Load = %+v, want %+v", got, rec)
	}
	if len(got.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(got.History))
	}
	if got.History[0].Role != provider.RoleUser || got.History[0].Text() != "where to?" {
		t.Errorf("history[0] = %+v", got.History[0])
	}
	if got.History[1].Role != provider.RoleAssistant || got.History[1].Text() != "somewhere sunny" {
		t.Errorf("history[1] = %+v", got.History[1])
	}
}

func TestFileStoreLoadNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("ghost-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFileStoreLoadCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err = store.Load("broken")
	if !errors.Is(err, ErrCorruptData) {
		t.Errorf("err = %v, want ErrCorruptData", err)
	}
}

func TestFileStoreLoadBackfillsID(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	// Records written by older builds may lack the session_id field.
	raw := []byte(`{"title": "Legacy", "model": "m", "system_prompt": "", "history": []}`)
	if err := os.WriteFile(filepath.Join(dir, "legacy-id.json"), raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rec, err := store.Load("legacy-id")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.SessionID != "legacy-id" {
		t.Errorf("SessionID = %q, want legacy-id", rec.SessionID)
	}
}

func TestFileStoreListSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	good := &Record{
		SessionID: "good",
		Title:     "Keeper",
		Model:     "m",
		History:   pair("a", "b"),
	}
	if err := store.Save(good); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("List returned %d entries, want 1", len(infos))
	}
	info := infos[0]
	if info.ID != "good" || info.Title != "Keeper" || info.MessageCount != 2 {
		t.Errorf("info = %+v", info)
	}
	if info.LastActivity.IsZero() {
		t.Error("LastActivity should come from the file mtime")
	}
}

func TestFileStoreListEmpty(t *testing.T) {
	store := newTestStore(t)
	infos, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("List returned %d entries, want 0", len(infos))
	}
}

func TestFileStoreDelete(t *testing.T) {
	store := newTestStore(t)

	rec := &Record{SessionID: "doomed", Model: "m"}
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete("doomed"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load("doomed"); !errors.Is(err, ErrNotFound) {
		t.Errorf("record still loadable after delete: %v", err)
	}
}

func TestFileStoreDeleteMissing(t *testing.T) {
	store := newTestStore(t)
	if err := store.Delete("ghost-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
