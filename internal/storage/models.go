package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

type Persona struct {
	Name         string
	Instructions string
	UpdatedAt    time.Time
}

// Ingestion is set only for documents that were chunked.
type Ingestion struct {
	Chunks        int
	Skipped       int
	TokenEstimate int
	CostEstimate  float64
}

type Document struct {
	ID         string
	Name       string
	Content    []byte // only populated by GetDocument
	UploadedAt time.Time
	Ingestion  *Ingestion
}

type Chunk struct {
	DocumentID string
	Seq        int
	Content    string
}

type HistoryEntry struct {
	ID        int64
	CreatedAt time.Time
	Role      string // "user" or "assistant"
	Content   string
	Persona   string
}
