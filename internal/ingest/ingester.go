package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/chatdesk/internal/storage"
)

// DocumentStore persists ingested documents.
type DocumentStore interface {
	SaveDocument(doc storage.Document, chunks []string) error
}

// File is one uploaded file.
type File struct {
	Name    string
	Content []byte
}

// Ingester turns uploaded files into stored documents with chunk metadata.
type Ingester struct {
	store  DocumentStore
	now    func() time.Time
	logger *slog.Logger
}

// NewIngester creates an Ingester writing to store.
func NewIngester(store DocumentStore) *Ingester {
	return &Ingester{
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
	}
}

// SetLogger overrides the default logger.
func (in *Ingester) SetLogger(l *slog.Logger) {
	in.logger = l
}

type prepared struct {
	doc    storage.Document
	chunks []string
}

// prepare extracts and splits one file. A chunkable file whose text cannot be
// extracted is stored verbatim.
func (in *Ingester) prepare(f File, chunkSize int) prepared {
	doc := storage.Document{
		ID:         uuid.New().String(),
		Name:       f.Name,
		Content:    f.Content,
		UploadedAt: in.now(),
	}
	if !Chunkable(f.Name) {
		return prepared{doc: doc}
	}

	text, err := extractText(f.Name, f.Content)
	if err != nil {
		in.logger.Warn("storing document verbatim", "name", f.Name, "error", err)
		return prepared{doc: doc}
	}

	chunks, skipped := Split(text, chunkSize)
	tokens, cost := Estimate(chunks)
	doc.Ingestion = &storage.Ingestion{
		Chunks:        len(chunks),
		Skipped:       skipped,
		TokenEstimate: tokens,
		CostEstimate:  cost,
	}
	return prepared{doc: doc, chunks: chunks}
}

// Ingest stores a single file.
func (in *Ingester) Ingest(ctx context.Context, f File, chunkSize int) (storage.Document, error) {
	docs, err := in.Batch(ctx, []File{f}, chunkSize)
	if err != nil {
		return storage.Document{}, err
	}
	return docs[0], nil
}

// Batch extracts files in parallel and stores them in input order.
// Returned documents carry no Content.
func (in *Ingester) Batch(ctx context.Context, files []File, chunkSize int) ([]storage.Document, error) {
	results := make([]prepared, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = in.prepare(f, chunkSize)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	docs := make([]storage.Document, 0, len(results))
	for _, p := range results {
		if err := in.store.SaveDocument(p.doc, p.chunks); err != nil {
			return docs, fmt.Errorf("saving %s: %w", p.doc.Name, err)
		}
		in.logger.Debug("document ingested", "id", p.doc.ID, "name", p.doc.Name, "chunks", len(p.chunks))
		p.doc.Content = nil
		docs = append(docs, p.doc)
	}
	return docs, nil
}
