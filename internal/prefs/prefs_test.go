package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsWhenUnset(t *testing.T) {
	s := Open(t.TempDir(), "http://127.0.0.1:5000")
	if got := s.Title(); got != DefaultTitle {
		t.Errorf("Title() = %q, want %q", got, DefaultTitle)
	}
	if got := s.ChunkSize(); got != DefaultChunkSize {
		t.Errorf("ChunkSize() = %d, want %d", got, DefaultChunkSize)
	}
}

func TestSetPersistsImmediately(t *testing.T) {
	dir := t.TempDir()
	s := Open(dir, "http://127.0.0.1:5000")
	if err := s.Set(KeyTitle, "Help Desk"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(KeyChunkSize, "250"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened := Open(dir, "http://127.0.0.1:5000")
	if got := reopened.Title(); got != "Help Desk" {
		t.Errorf("Title() = %q, want %q", got, "Help Desk")
	}
	if got := reopened.ChunkSize(); got != 250 {
		t.Errorf("ChunkSize() = %d, want 250", got)
	}
}

func TestChunkSizeCoercion(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"300", 300},
		{" 42 ", 42},
		{"abc", DefaultChunkSize},
		{"-5", DefaultChunkSize},
		{"0", DefaultChunkSize},
		{"12.5", DefaultChunkSize},
	}
	for _, tt := range tests {
		s := Open(t.TempDir(), "http://x")
		s.Set(KeyChunkSize, tt.raw)
		if got := s.ChunkSize(); got != tt.want {
			t.Errorf("ChunkSize(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestScopedPerOrigin(t *testing.T) {
	dir := t.TempDir()
	Open(dir, "http://127.0.0.1:5000").Set(KeyTitle, "Local")
	if got := Open(dir, "https://chat.example.com").Title(); got != DefaultTitle {
		t.Errorf("other origin Title() = %q, want default", got)
	}

	if _, err := os.Stat(filepath.Join(dir, "prefs", "http_127.0.0.1_5000.json")); err != nil {
		t.Errorf("prefs file: %v", err)
	}
}

func TestOriginSlug(t *testing.T) {
	tests := map[string]string{
		"http://127.0.0.1:5000":         "http_127.0.0.1_5000",
		"https://chat.example.com/app/": "https_chat.example.com",
		"not a url":                     "not_a_url",
	}
	for in, want := range tests {
		if got := OriginSlug(in); got != want {
			t.Errorf("OriginSlug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFailedSetKeepsDefault(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "prefs"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s := Open(dir, "http://127.0.0.1:5000")

	if err := s.Set(KeyTitle, "Unsaved"); err == nil {
		t.Fatal("Set expected error when the prefs dir is a file")
	}
	if got := s.Title(); got != DefaultTitle {
		t.Errorf("Title() = %q, want %q", got, DefaultTitle)
	}
}
