package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "backend.url", typ: kString, env: "CHATDESK_BACKEND_URL",
		apply:   func(cfg *Config, v any) { cfg.Backend.URL = v.(string) },
		extract: func(cfg Config) any { return cfg.Backend.URL },
	},
	{
		key: "chat.model", typ: kString, env: "CHATDESK_CHAT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Chat.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.Model },
	},
	{
		key: "chat.temperature", typ: kFloat, env: "CHATDESK_CHAT_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Chat.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Chat.Temperature },
	},
	{
		key: "storage.data_dir", typ: kString, env: "CHATDESK_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "CHATDESK_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.file", typ: kString, env: "CHATDESK_LOG_FILE",
		apply:   func(cfg *Config, v any) { cfg.Log.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.File },
	},
	{
		key: "stub.port", typ: kInt, env: "CHATDESK_STUB_PORT",
		apply:   func(cfg *Config, v any) { cfg.Stub.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Stub.Port },
	},
	{
		key: "stub.admin_password", typ: kString, env: "CHATDESK_STUB_ADMIN_PASSWORD",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Stub.AdminPassword = v.(string) },
		extract: func(cfg Config) any { return cfg.Stub.AdminPassword },
	},
	{
		key: "upstream.base_url", typ: kString, env: "CHATDESK_UPSTREAM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Upstream.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Upstream.BaseURL },
	},
	{
		key: "upstream.model", typ: kString, env: "CHATDESK_UPSTREAM_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Upstream.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Upstream.Model },
	},
	{
		key: "upstream.api_key", typ: kString, env: "CHATDESK_UPSTREAM_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Upstream.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Upstream.APIKey },
	},
}

func lookup(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parse converts raw to the key's type.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		i, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid integer value for %s: %w", s.key, err)
		}
		return i, nil
	case kFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float value for %s: %w", s.key, err)
		}
		return f, nil
	}
	return raw, nil
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[WARN] "+format+"\n", args...)
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			warnf("%v. Using default value.", err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

// applyEnvOverrides applies CHATDESK_* variables. Empty variables are ignored.
func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if s.env == "" || raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			warnf("%s: %v. Using default value.", s.env, err)
			continue
		}
		s.apply(cfg, v)
	}
}
