//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// keychainGet reads {"service": {"account": "value"}} from secrets.json in
// the data directory. Linux has no system keychain we can rely on.
func keychainGet(service, account string) ([]byte, error) {
	path := filepath.Join(defaultDataDir(), "secrets.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret store not available: %w", err)
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	val, ok := secrets[service][account]
	if !ok {
		return nil, fmt.Errorf("no secret for %s/%s", service, account)
	}
	return []byte(val), nil
}
