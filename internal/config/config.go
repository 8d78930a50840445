package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Backend  BackendConfig
	Chat     ChatConfig
	Storage  StorageConfig
	Log      LogConfig
	Stub     StubConfig
	Upstream UpstreamConfig
}

// BackendConfig points the console at the chat backend.
type BackendConfig struct {
	URL string
}

type ChatConfig struct {
	Model       string
	Temperature float64
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
	File  string
}

// StubConfig configures the local stub backend started by `chatdesk serve-stub`.
type StubConfig struct {
	Port          int
	AdminPassword string
}

// UpstreamConfig configures the OpenAI-compatible model endpoint the stub
// backend forwards chat turns to. An empty APIKey switches the stub to echo mode.
type UpstreamConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

func defaults() Config {
	return Config{
		Backend: BackendConfig{
			URL: "http://127.0.0.1:5000",
		},
		Chat: ChatConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Stub: StubConfig{
			Port:          5000,
			AdminPassword: "admin",
		},
		Upstream: UpstreamConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
	}
}

// Load reads configuration from the platform-native backend, a .env file in
// the working directory, environment variables, and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.chatdesk.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/chatdesk/config.json.
//
// Environment variables (CHATDESK_*) override backend values on all platforms.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "[WARN] could not read .env: %v\n", err)
	}
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Upstream.APIKey == "" {
		if key, err := kc.Get("chatdesk", "upstream_api_key"); err == nil && key != "" {
			cfg.Upstream.APIKey = key
		}
	}

	if cfg.Backend.URL == "" {
		return Config{}, fmt.Errorf("missing required config: backend.url (set CHATDESK_BACKEND_URL)")
	}
	cfg.Backend.URL = strings.TrimRight(cfg.Backend.URL, "/")

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
