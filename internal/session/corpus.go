package session

import (
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/kalambet/chatdesk/internal/transport"
)

// SortKey orders the corpus projection.
type SortKey string

const (
	SortName SortKey = "name"
	SortDate SortKey = "date"
	SortType SortKey = "type"
)

// FilterAll is the identity filter.
const FilterAll = "all"

func reduceCorpus(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case UploadRequested:
		return uploadFiles(s, ev.Files, ev.ChunkSize)
	case FilesDropped:
		return uploadFiles(s, ev.Files, 0)
	case DocumentDeleteRequested:
		if refusal := requireAdmin(s); refusal != nil {
			return s, refusal
		}
		label := ev.ID
		for _, d := range s.Corpus.Cache.Data {
			if d.ID == ev.ID {
				label = d.Name
				break
			}
		}
		return confirm(s, Confirmation{
			Kind:   ConfirmDeleteDocument,
			Target: ev.ID,
			Prompt: fmt.Sprintf("Delete document %q?", label),
		})
	case DocumentsRefreshRequested:
		return fetchDocuments(s)
	case FilterChanged:
		f := strings.TrimSpace(ev.Filter)
		if f == "" {
			f = FilterAll
		}
		s.Corpus.Filter = f
	case SortChanged:
		s.Corpus.Sort = ev.Sort
	case DocumentsLoaded:
		var current bool
		s.Corpus.Cache, current = s.Corpus.Cache.settle(ev.Gen, slices.Clone(ev.Docs), ev.Err)
		if current && ev.Err != nil {
			return s, []Effect{fail(MsgGenericFailure)}
		}
	case DocumentsUploaded:
		s.Corpus.Uploading = false
		if ev.Err != nil {
			return refetchDocuments(s, fail(MsgGenericFailure))
		}
		s.Corpus.LastUpload = slices.Clone(ev.Docs)
		return refetchDocuments(s, succeed(uploadSummary(ev.Docs)))
	case DocumentDeleted:
		if ev.Err != nil {
			return refetchDocuments(s, fail(MsgGenericFailure))
		}
		return refetchDocuments(s, succeed("Document deleted."))
	}
	return s, nil
}

// uploadFiles is the single upload path for form submit and drag-and-drop.
func uploadFiles(s State, files []transport.UploadFile, chunkSize int) (State, []Effect) {
	if refusal := requireAdmin(s); refusal != nil {
		return s, refusal
	}
	if len(files) == 0 {
		return s, []Effect{refuse(MsgChooseFile)}
	}
	if s.Corpus.Uploading {
		return s, []Effect{refuse(MsgUploadInFlight)}
	}
	if chunkSize <= 0 {
		chunkSize = s.Corpus.ChunkSize
	}
	s.Corpus.Uploading = true
	return s, []Effect{UploadDocuments{Files: slices.Clone(files), ChunkSize: chunkSize}}
}

func uploadSummary(docs []transport.Document) string {
	if len(docs) == 0 {
		return "Upload complete."
	}
	if len(docs) == 1 {
		return fmt.Sprintf("Uploaded %s.", docs[0].Name)
	}
	return fmt.Sprintf("Uploaded %d documents.", len(docs))
}

func refetchDocuments(s State, notice Effect) (State, []Effect) {
	s, effects := fetchDocuments(s)
	return s, append([]Effect{notice}, effects...)
}

func fetchDocuments(s State) (State, []Effect) {
	var gen int
	s.Corpus.Cache, gen = s.Corpus.Cache.begin()
	return s, []Effect{FetchDocuments{Gen: gen}}
}

// View is the filtered, sorted projection of the cached corpus.
func (c CorpusState) View() []transport.Document {
	return List(c.Cache.Data, c.Filter, c.Sort)
}

// List filters docs by extension and orders them by key without touching
// the input slice. An unknown key keeps the input order.
func List(docs []transport.Document, filter string, key SortKey) []transport.Document {
	out := make([]transport.Document, 0, len(docs))
	for _, d := range docs {
		if matchesFilter(d.Name, filter) {
			out = append(out, d)
		}
	}

	switch key {
	case SortName:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	case SortDate:
		sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	case SortType:
		sort.SliceStable(out, func(i, j int) bool { return Extension(out[i].Name) < Extension(out[j].Name) })
	}
	return out
}

func matchesFilter(name, filter string) bool {
	f := strings.ToLower(strings.TrimSpace(filter))
	if f == "" || f == FilterAll {
		return true
	}
	if !strings.HasPrefix(f, ".") {
		f = "." + f
	}
	return strings.HasSuffix(strings.ToLower(name), f)
}

// Extension returns the text after the last "." in name, or "".
func Extension(name string) string {
	ext := path.Ext(name)
	return strings.TrimPrefix(ext, ".")
}

// Extensions lists the distinct lower-cased extensions present in docs.
func Extensions(docs []transport.Document) []string {
	seen := make(map[string]bool)
	var exts []string
	for _, d := range docs {
		ext := strings.ToLower(Extension(d.Name))
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// FormatIngestion renders chunk metadata, or "" when the document was
// stored verbatim.
func FormatIngestion(in *transport.Ingestion) string {
	if in == nil {
		return ""
	}
	return fmt.Sprintf("chunks %d · skipped %d · tokens %d · cost $%.5f",
		in.Chunks, in.Skipped, in.TokenEstimate, in.CostEstimate)
}
