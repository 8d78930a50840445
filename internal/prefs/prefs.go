// Package prefs persists the console's display preferences per backend origin.
package prefs

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/kalambet/chatdesk/internal/config"
)

const (
	KeyTitle     = "title"
	KeyChunkSize = "chunkSize"

	DefaultTitle     = "FAQ Chatbot"
	DefaultChunkSize = 500
)

// Store reads and writes preferences. Values are stored as strings and
// coerced on read.
type Store struct {
	backend config.ConfigBackend
}

// Open returns the store for the backend at origin, kept under dir.
func Open(dir, origin string) *Store {
	path := filepath.Join(dir, "prefs", OriginSlug(origin)+".json")
	return New(config.NewFileBackend(path))
}

// New wraps an existing backend.
func New(b config.ConfigBackend) *Store {
	return &Store{backend: b}
}

// Get returns the stored value for key, or def when unset or unreadable.
func (s *Store) Get(key, def string) string {
	v, ok, err := s.backend.GetString(key)
	if err != nil || !ok {
		return def
	}
	return v
}

// Set writes key immediately.
func (s *Store) Set(key, value string) error {
	return s.backend.SetString(key, value)
}

func (s *Store) Title() string {
	if t := strings.TrimSpace(s.Get(KeyTitle, "")); t != "" {
		return t
	}
	return DefaultTitle
}

// ChunkSize returns the stored chunk size, or the default when the stored
// value is not a positive integer.
func (s *Store) ChunkSize() int {
	raw := strings.TrimSpace(s.Get(KeyChunkSize, ""))
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return DefaultChunkSize
	}
	return n
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// OriginSlug turns a backend URL into a file name: scheme, host and port.
func OriginSlug(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return strings.Trim(unsafeChars.ReplaceAllString(origin, "_"), "_")
	}
	slug := u.Scheme + "_" + u.Host
	return strings.Trim(unsafeChars.ReplaceAllString(slug, "_"), "_")
}
