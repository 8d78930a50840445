//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.chatdesk.app"

func defaultDataDir() string {
	return underHome("chatdesk-data", "Library", "Application Support", "chatdesk")
}

func underHome(fallback string, elem ...string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(append([]string{home}, elem...)...)
}

// defaultsBackend stores keys in UserDefaults through the `defaults` tool.
type defaultsBackend struct {
	domain string
}

func newPlatformBackend() ConfigBackend {
	return &defaultsBackend{domain: defaultsDomain}
}

func (b *defaultsBackend) run(args ...string) ([]byte, error) {
	return exec.Command("defaults", append([]string{args[0], b.domain}, args[1:]...)...).CombinedOutput()
}

func (b *defaultsBackend) GetString(key string) (string, bool, error) {
	out, err := b.run("read", key)
	val := strings.TrimSpace(string(out))
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr) && exitErr.ExitCode() == 1:
		// Key does not exist.
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("defaults read %s: %w: %s", key, err, val)
	}
	return val, true, nil
}

func (b *defaultsBackend) GetInt(key string) (int, bool, error) {
	val, ok, err := b.GetString(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return i, true, nil
}

func (b *defaultsBackend) write(key string, args ...string) error {
	if out, err := b.run(append([]string{"write", key}, args...)...); err != nil {
		return fmt.Errorf("defaults write %s: %w: %s", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (b *defaultsBackend) SetString(key, val string) error {
	return b.write(key, "-string", val)
}

func (b *defaultsBackend) SetInt(key string, val int) error {
	return b.write(key, "-int", strconv.Itoa(val))
}

func (b *defaultsBackend) Delete(key string) error {
	_, err := b.run("delete", key)
	return err
}
