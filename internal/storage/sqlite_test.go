package storage

import (
	"errors"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) || len(v1) != 2 {
		t.Errorf("migration count = %d -> %d, want 2", len(v1), len(v2))
	}
}

func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

func TestParseMigrationVersion(t *testing.T) {
	if v, err := parseMigrationVersion("002_documents.sql"); err != nil || v != 2 {
		t.Errorf("parseMigrationVersion = %d, %v", v, err)
	}
	if _, err := parseMigrationVersion("documents.sql"); err == nil {
		t.Error("expected error for unnumbered migration")
	}
}

func TestPersonas_UpsertListDelete(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertPersona(Persona{Name: "X", Instructions: "first"}); err != nil {
		t.Fatalf("UpsertPersona: %v", err)
	}
	if err := s.UpsertPersona(Persona{Name: "X", Instructions: "instr"}); err != nil {
		t.Fatalf("UpsertPersona overwrite: %v", err)
	}
	if err := s.UpsertPersona(Persona{Name: "x", Instructions: "lower"}); err != nil {
		t.Fatalf("UpsertPersona lower: %v", err)
	}

	all, err := s.ListPersonas()
	if err != nil {
		t.Fatalf("ListPersonas: %v", err)
	}
	if all["X"] != "instr" || all["x"] != "lower" || len(all) != 2 {
		t.Errorf("personas = %v", all)
	}

	if err := s.DeletePersona("X"); err != nil {
		t.Fatalf("DeletePersona: %v", err)
	}
	if _, err := s.GetPersona("X"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPersona after delete err = %v, want ErrNotFound", err)
	}
	if err := s.DeletePersona("X"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestEnsurePersonaKeepsExisting(t *testing.T) {
	s := openTestStore(t)
	s.UpsertPersona(Persona{Name: "Default", Instructions: "custom"})
	if err := s.EnsurePersona(Persona{Name: "Default", Instructions: "seed"}); err != nil {
		t.Fatalf("EnsurePersona: %v", err)
	}
	p, err := s.GetPersona("Default")
	if err != nil {
		t.Fatalf("GetPersona: %v", err)
	}
	if p.Instructions != "custom" {
		t.Errorf("instructions = %q, want custom", p.Instructions)
	}
}

func TestDocuments_OptionalIngestion(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	chunked := Document{
		ID: "d1", Name: "faq.txt", Content: []byte("hello world"), UploadedAt: now,
		Ingestion: &Ingestion{Chunks: 3, Skipped: 0, TokenEstimate: 420, CostEstimate: 0.00084},
	}
	verbatim := Document{ID: "d2", Name: "logo.png", Content: []byte{0x89, 'P'}, UploadedAt: now.Add(time.Minute)}

	if err := s.SaveDocument(chunked, []string{"hello", "world", "again"}); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if err := s.SaveDocument(verbatim, nil); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	docs, err := s.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len(docs) = %d, want 2", len(docs))
	}
	if docs[0].Ingestion == nil || *docs[0].Ingestion != *chunked.Ingestion {
		t.Errorf("docs[0].Ingestion = %+v", docs[0].Ingestion)
	}
	if docs[1].Ingestion != nil {
		t.Errorf("docs[1].Ingestion = %+v, want nil", docs[1].Ingestion)
	}
	if docs[0].Content != nil {
		t.Error("ListDocuments returned content")
	}
	if !docs[1].UploadedAt.Equal(verbatim.UploadedAt) {
		t.Errorf("uploaded_at = %v, want %v", docs[1].UploadedAt, verbatim.UploadedAt)
	}

	got, err := s.GetDocument("d2")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if string(got.Content) != string(verbatim.Content) {
		t.Errorf("content = %v", got.Content)
	}
}

func TestDeleteDocumentRemovesChunks(t *testing.T) {
	s := openTestStore(t)
	s.SaveDocument(Document{ID: "d1", Name: "a.txt", UploadedAt: time.Now(), Ingestion: &Ingestion{Chunks: 1}}, []string{"refund policy"})

	chunks, err := s.SearchChunks([]string{"REFUND"}, 10)
	if err != nil || len(chunks) != 1 {
		t.Fatalf("SearchChunks = %v, %v", chunks, err)
	}

	if err := s.DeleteDocument("d1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, err := s.GetDocument("d1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument err = %v, want ErrNotFound", err)
	}
	chunks, _ = s.SearchChunks([]string{"refund"}, 10)
	if len(chunks) != 0 {
		t.Errorf("chunks left after delete: %v", chunks)
	}
	if err := s.DeleteDocument("d1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestHistory(t *testing.T) {
	s := openTestStore(t)
	for i, text := range []string{"one", "two", "three"} {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		if err := s.AppendHistory(HistoryEntry{Role: role, Content: text, Persona: "Default"}); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	recent, err := s.RecentHistory(2)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "two" || recent[1].Content != "three" {
		t.Errorf("recent = %+v", recent)
	}

	n, err := s.ClearHistory()
	if err != nil || n != 3 {
		t.Fatalf("ClearHistory = %d, %v; want 3", n, err)
	}
	recent, _ = s.RecentHistory(10)
	if len(recent) != 0 {
		t.Errorf("history after clear = %+v", recent)
	}
}
