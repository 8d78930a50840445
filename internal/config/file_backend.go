package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// FileBackend stores keys as a flat JSON object at a fixed path.
// Every write is flushed to disk before returning.
type FileBackend struct {
	path string

	mu   sync.Mutex
	data map[string]any
}

// NewFileBackend loads the JSON object at path. A missing or unreadable
// file yields an empty backend; the file is created on the first write.
func NewFileBackend(path string) *FileBackend {
	b := &FileBackend{path: path, data: make(map[string]any)}
	b.load()
	return b
}

// Path returns the file the backend persists to.
func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) load() {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "[WARN] could not read %s: %v. Using default values.\n", b.path, err)
		}
		return
	}
	if err := json.Unmarshal(data, &b.data); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] could not parse %s: %v. Using default values.\n", b.path, err)
		b.data = make(map[string]any)
	}
}

func (b *FileBackend) save() error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(b.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.path, data, 0o600)
}

func (b *FileBackend) GetString(key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v), true, nil
	}
	return s, true, nil
}

func (b *FileBackend) GetInt(key string) (int, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	switch val := v.(type) {
	case float64:
		if val < math.MinInt || val > math.MaxInt || val != math.Trunc(val) {
			return 0, true, fmt.Errorf("value %v for %s is not a valid integer or is out of range", val, key)
		}
		return int(val), true, nil
	case int:
		return val, true, nil
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("invalid type for %s", key)
	}
}

func (b *FileBackend) SetString(key, val string) error {
	return b.put(key, val, true)
}

func (b *FileBackend) SetInt(key string, val int) error {
	return b.put(key, val, true)
}

func (b *FileBackend) Delete(key string) error {
	return b.put(key, nil, false)
}

// put applies one change and persists it. A failed save restores the
// previous in-memory value so readers never see unsaved data.
func (b *FileBackend) put(key string, val any, set bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev, had := b.data[key]
	if set {
		b.data[key] = val
	} else {
		delete(b.data, key)
	}
	if err := b.save(); err != nil {
		if had {
			b.data[key] = prev
		} else {
			delete(b.data, key)
		}
		return err
	}
	return nil
}
