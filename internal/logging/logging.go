// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps a config level name to a slog level. Unknown names are info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetupStderr installs a text handler on stderr for one-shot commands.
func SetupStderr(level string) *slog.Logger {
	l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: ParseLevel(level)}))
	slog.SetDefault(l)
	return l
}

// SetupFile installs a JSON handler writing to a rotating file, so log
// output never lands on a terminal owned by the interactive console.
// An empty path uses <dataDir>/logs/<name>.log.
func SetupFile(path, dataDir, name, level string) (*slog.Logger, io.Closer) {
	if path == "" {
		path = filepath.Join(dataDir, "logs", name+".log")
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	l := slog.New(slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: ParseLevel(level)}))
	slog.SetDefault(l)
	return l, rotator
}
