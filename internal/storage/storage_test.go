package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	if _, err := s.Get("missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set("k", "v"); err != nil {
		t.Fatal(err)
	}
	if value, err := s.Get("k"); err != nil || value != "v" {
		t.Errorf("expected v, got %q (%v)", value, err)
	}

	if err := s.Delete("k"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get("k"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("token", "abc"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("cart", "[]"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("cart"); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if value, err := reopened.Get("token"); err != nil || value != "abc" {
		t.Errorf("expected persisted token, got %q (%v)", value, err)
	}
	if _, err := reopened.Get("cart"); err != ErrNotFound {
		t.Errorf("expected deleted key to stay deleted, got %v", err)
	}
}

func TestFileStoreCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("not json at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("expected corrupt file to be tolerated, got %v", err)
	}
	if _, err := s.Get("anything"); err != ErrNotFound {
		t.Errorf("expected empty store, got %v", err)
	}

	// The next write replaces the corrupt file with a valid snapshot.
	if err := s.Set("k", "v"); err != nil {
		t.Fatal(err)
	}
	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if value, err := reopened.Get("k"); err != nil || value != "v" {
		t.Errorf("expected recovered store to persist, got %q (%v)", value, err)
	}
}

func TestFileStoreCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("expected nested directory to be created, got %v", err)
	}
}
