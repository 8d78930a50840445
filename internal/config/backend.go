package config

// ConfigBackend is a flat key/value store. Config keys use the platform
// backend (UserDefaults on macOS, a JSON file elsewhere); per-backend
// preferences always use a FileBackend.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
