package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestManager(t *testing.T, backend *fakeBackend, store Store) *Manager {
	t.Helper()
	return NewManager(backend, store, nil, testAssistant(), zerolog.Nop(), Options{})
}

func TestCurrentBeforeInit(t *testing.T) {
	m := newTestManager(t, newFakeBackend(), newTestStore(t))

	if m.HasActive() {
		t.Error("HasActive = true before initialization")
	}
	if _, err := m.Current(); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Current err = %v, want ErrNoActiveSession", err)
	}
}

func TestInitFromIDNew(t *testing.T) {
	m := newTestManager(t, newFakeBackend(), newTestStore(t))

	res, err := m.InitFromID("")
	if err != nil {
		t.Fatalf("InitFromID: %v", err)
	}
	if res.LoadErr != nil {
		t.Errorf("LoadErr = %v, want nil", res.LoadErr)
	}
	if res.Session == nil || !m.HasActive() {
		t.Fatal("expected an installed session")
	}
	if res.Session.Title != DefaultTitle {
		t.Errorf("Title = %q, want sentinel", res.Session.Title)
	}
}

func TestInitFromIDLoadsExisting(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t)
	if err := store.Save(&Record{
		SessionID:    "known-id",
		Title:        "Old Chat",
		Model:        backend.Model(),
		SystemPrompt: "be helpful",
		History:      pair("q", "a"),
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m := newTestManager(t, backend, store)
	res, err := m.InitFromID("known-id")
	if err != nil {
		t.Fatalf("InitFromID: %v", err)
	}
	if res.LoadErr != nil {
		t.Fatalf("LoadErr = %v, want nil", res.LoadErr)
	}
	if res.Session.ID != "known-id" || res.Session.Title != "Old Chat" {
		t.Errorf("loaded session = (%q, %q), want (known-id, Old Chat)", res.Session.ID, res.Session.Title)
	}
	if res.Session.IsEmpty() {
		t.Error("loaded session should not be empty")
	}
}

func TestInitFromIDFallsBackOnMissingRecord(t *testing.T) {
	m := newTestManager(t, newFakeBackend(), newTestStore(t))

	res, err := m.InitFromID("ghost-id")
	if err != nil {
		t.Fatalf("InitFromID: %v", err)
	}
	if !errors.Is(res.LoadErr, ErrNotFound) {
		t.Errorf("LoadErr = %v, want ErrNotFound", res.LoadErr)
	}
	if res.Session == nil || res.Session.ID == "ghost-id" {
		t.Error("expected a fresh fallback session")
	}
	if !m.HasActive() {
		t.Error("fallback session should be installed")
	}
}

func TestCreateNewSavesCurrent(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t)
	m := newTestManager(t, backend, store)

	first, err := m.InitFromID("")
	if err != nil {
		t.Fatalf("InitFromID: %v", err)
	}
	if _, err := first.Session.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	res, err := m.CreateNew(true)
	if err != nil {
		t.Fatalf("CreateNew: %v", err)
	}
	if !res.SaveAttempted {
		t.Error("SaveAttempted = false, want true")
	}
	if res.SaveErr != nil {
		t.Errorf("SaveErr = %v, want nil", res.SaveErr)
	}
	if res.PreviousID != first.Session.ID {
		t.Errorf("PreviousID = %q, want %q", res.PreviousID, first.Session.ID)
	}
	if res.Session.ID == first.Session.ID {
		t.Error("new session should have a fresh id")
	}

	// Previous session reached the store.
	if _, err := store.Load(first.Session.ID); err != nil {
		t.Errorf("previous session not persisted: %v", err)
	}

	current, err := m.Current()
	if err != nil || current.ID != res.Session.ID {
		t.Errorf("current = %v (%v), want new session installed", current, err)
	}
}

func TestCreateNewWithoutSaving(t *testing.T) {
	m := newTestManager(t, newFakeBackend(), newTestStore(t))

	res, err := m.CreateNew(false)
	if err != nil {
		t.Fatalf("CreateNew: %v", err)
	}
	if res.SaveAttempted {
		t.Error("SaveAttempted = true, want false")
	}
	if res.Session == nil {
		t.Fatal("expected a new session")
	}
}

func TestCreateNewReportsSaveErrorButProceeds(t *testing.T) {
	backend := newFakeBackend()
	failing := &failingStore{saveErr: errors.New("disk full")}
	m := newTestManager(t, backend, failing)
	if _, err := m.InitFromID(""); err != nil {
		t.Fatalf("InitFromID: %v", err)
	}

	res, err := m.CreateNew(true)
	if err != nil {
		t.Fatalf("CreateNew: %v", err)
	}
	if !res.SaveAttempted || res.SaveErr == nil {
		t.Errorf("expected attempted save with error, got attempted=%v err=%v", res.SaveAttempted, res.SaveErr)
	}
	if res.Session == nil {
		t.Error("save failure must not block creating the new session")
	}
}

func TestSwitchToExisting(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t)
	if err := store.Save(&Record{
		SessionID: "target-id",
		Title:     "Target",
		Model:     backend.Model(),
		History:   pair("q", "a"),
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m := newTestManager(t, backend, store)
	first, err := m.InitFromID("")
	if err != nil {
		t.Fatalf("InitFromID: %v", err)
	}
	if _, err := first.Session.SendMessage(context.Background(), "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	res := m.SwitchTo("target-id")
	if !res.SaveAttempted {
		t.Error("SaveAttempted = false, want save-before-switch")
	}
	if res.PreviousID != first.Session.ID {
		t.Errorf("PreviousID = %q, want %q", res.PreviousID, first.Session.ID)
	}
	if res.LoadErr != nil {
		t.Fatalf("LoadErr = %v, want nil", res.LoadErr)
	}
	if res.Session.ID != "target-id" {
		t.Errorf("switched session id = %q, want target-id", res.Session.ID)
	}
	if !res.HasHistory {
		t.Error("HasHistory = false, want true")
	}

	// Save-before-switch ran before the load attempt.
	if _, err := store.Load(first.Session.ID); err != nil {
		t.Errorf("previous session not persisted: %v", err)
	}
}

func TestSwitchToNonexistentRollsBack(t *testing.T) {
	backend := newFakeBackend()
	m := newTestManager(t, backend, newTestStore(t))

	first, err := m.InitFromID("")
	if err != nil {
		t.Fatalf("InitFromID: %v", err)
	}
	if _, err := first.Session.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	before := first.Session.History()

	res := m.SwitchTo("ghost-id")
	if res.LoadErr == nil {
		t.Fatal("expected a load error")
	}
	if !errors.Is(res.LoadErr, ErrNotFound) {
		t.Errorf("LoadErr = %v, want ErrNotFound", res.LoadErr)
	}
	if !strings.Contains(res.LoadErr.Error(), "ghost-id") {
		t.Errorf("error %q should contain the requested id", res.LoadErr)
	}
	if res.Session != nil {
		t.Error("failed switch must not produce a session")
	}

	// The prior session is still current with unmodified history.
	current, err := m.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current.ID != first.Session.ID {
		t.Errorf("current id = %q, want %q (rollback)", current.ID, first.Session.ID)
	}
	after := current.History()
	if len(after) != len(before) {
		t.Fatalf("history length changed: %d -> %d", len(before), len(after))
	}
	for i := range after {
		if after[i].Text() != before[i].Text() {
			t.Errorf("history[%d] = %q, want %q", i, after[i].Text(), before[i].Text())
		}
	}
}

func TestRemoveCurrentAndCreateNew(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t)
	m := newTestManager(t, backend, store)

	first, err := m.InitFromID("")
	if err != nil {
		t.Fatalf("InitFromID: %v", err)
	}
	if _, err := first.Session.SendMessage(context.Background(), "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if err := first.Session.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	res, err := m.RemoveCurrentAndCreateNew()
	if err != nil {
		t.Fatalf("RemoveCurrentAndCreateNew: %v", err)
	}
	if res.RemovedID != first.Session.ID {
		t.Errorf("RemovedID = %q, want %q", res.RemovedID, first.Session.ID)
	}
	if res.RemoveErr != nil {
		t.Errorf("RemoveErr = %v, want nil", res.RemoveErr)
	}
	if _, err := store.Load(res.RemovedID); !errors.Is(err, ErrNotFound) {
		t.Errorf("record still loadable after remove: %v", err)
	}
	if res.Session == nil || res.Session.ID == res.RemovedID {
		t.Error("expected a fresh session installed after removal")
	}
}

func TestRemoveCurrentRecordMissingStillCreatesNew(t *testing.T) {
	m := newTestManager(t, newFakeBackend(), newTestStore(t))
	if _, err := m.InitFromID(""); err != nil {
		t.Fatalf("InitFromID: %v", err)
	}

	// The current session was never saved, so deletion reports not-found;
	// a fresh session is installed regardless.
	res, err := m.RemoveCurrentAndCreateNew()
	if err != nil {
		t.Fatalf("RemoveCurrentAndCreateNew: %v", err)
	}
	if !errors.Is(res.RemoveErr, ErrNotFound) {
		t.Errorf("RemoveErr = %v, want ErrNotFound", res.RemoveErr)
	}
	if res.Session == nil || !m.HasActive() {
		t.Error("expected a fresh session despite removal failure")
	}
}

func TestRemoveWithoutActiveSession(t *testing.T) {
	m := newTestManager(t, newFakeBackend(), newTestStore(t))
	if _, err := m.RemoveCurrentAndCreateNew(); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("err = %v, want ErrNoActiveSession", err)
	}
}

func TestRenameCurrent(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t)
	m := newTestManager(t, backend, store)

	res, err := m.InitFromID("")
	if err != nil {
		t.Fatalf("InitFromID: %v", err)
	}
	if err := m.RenameCurrent("Budget Planning"); err != nil {
		t.Fatalf("RenameCurrent: %v", err)
	}
	if res.Session.Title != "Budget Planning" {
		t.Errorf("Title = %q, want %q", res.Session.Title, "Budget Planning")
	}

	rec, err := store.Load(res.Session.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.Title != "Budget Planning" {
		t.Errorf("persisted title = %q, want %q", rec.Title, "Budget Planning")
	}
}

func TestRenameCurrentWithoutActiveSession(t *testing.T) {
	m := newTestManager(t, newFakeBackend(), newTestStore(t))
	if err := m.RenameCurrent("x"); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("err = %v, want ErrNoActiveSession", err)
	}
}

func TestTeardownSkipsEmptySession(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t)
	m := newTestManager(t, backend, store)

	res, err := m.InitFromID("")
	if err != nil {
		t.Fatalf("InitFromID: %v", err)
	}
	if err := m.Teardown(); err != nil {
		t.Fatalf("Teardown: %v", err)
	}

	// An empty session is never written.
	if _, err := store.Load(res.Session.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty session was persisted: %v", err)
	}
}

func TestTeardownPersistsNonEmptySession(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t)
	m := newTestManager(t, backend, store)

	res, err := m.InitFromID("")
	if err != nil {
		t.Fatalf("InitFromID: %v", err)
	}
	if _, err := res.Session.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if err := m.Teardown(); err != nil {
		t.Fatalf("Teardown: %v", err)
	}

	rec, err := store.Load(res.Session.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rec.History) != 2 {
		t.Errorf("persisted history length = %d, want 2", len(rec.History))
	}
}

func TestTeardownWithoutSession(t *testing.T) {
	m := newTestManager(t, newFakeBackend(), newTestStore(t))
	if err := m.Teardown(); err != nil {
		t.Errorf("Teardown = %v, want nil", err)
	}
}
