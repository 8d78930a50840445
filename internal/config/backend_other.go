//go:build !darwin

package config

import (
	"os"
	"path/filepath"
)

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "chatdesk-data"
		}
	}
	return filepath.Join(dir, "chatdesk")
}

func newPlatformBackend() ConfigBackend {
	return NewFileBackend(filepath.Join(configDir(), "config.json"))
}

// configDir is $XDG_CONFIG_HOME/chatdesk, falling back to ~/.config/chatdesk.
func configDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "chatdesk")
}
