package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// The summarizer API key is looked up in the key file first, then in the
// PERPLEXITY_API_KEY environment variable.
const keyEnvVar = "PERPLEXITY_API_KEY"

const apiKeyField = "perplexity_api_key"

// keyFilePath returns ~/.config/deckfetch/config.json.
func keyFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "deckfetch", "config.json"), nil
}

// APIKey returns the configured summarizer API key, or "" when unset.
func APIKey() string {
	if key := keyFromFile(); key != "" {
		return key
	}
	return os.Getenv(keyEnvVar)
}

// KeySource reports where the current key comes from: "config", "env", or "".
func KeySource() string {
	if keyFromFile() != "" {
		return "config"
	}
	if os.Getenv(keyEnvVar) != "" {
		return "env"
	}
	return ""
}

// SaveAPIKey writes the key to the key file, creating the directory as needed.
func SaveAPIKey(key string) error {
	path, err := keyFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	cfg := readKeyFile(path)
	cfg[apiKeyField] = key

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

// ClearAPIKey removes the saved key. The file itself is deleted when no
// other settings remain.
func ClearAPIKey() error {
	path, err := keyFilePath()
	if err != nil {
		return err
	}
	cfg := readKeyFile(path)
	if _, ok := cfg[apiKeyField]; !ok {
		return nil
	}
	delete(cfg, apiKeyField)

	if len(cfg) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove key file: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key file: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// MaskKey returns a display-safe form of a key, e.g. "pplx-123****...****abcd".
// Keys too short to show a prefix safely are masked entirely.
func MaskKey(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) < 8:
		return "****"
	case len(key) <= 12:
		return key[:4] + "****"
	default:
		return key[:8] + "****...****" + key[len(key)-4:]
	}
}

func keyFromFile() string {
	path, err := keyFilePath()
	if err != nil {
		return ""
	}
	cfg := readKeyFile(path)
	if v, ok := cfg[apiKeyField].(string); ok {
		return v
	}
	return ""
}

// readKeyFile returns the parsed key file contents, or an empty map on any
// read or parse failure.
func readKeyFile(path string) map[string]any {
	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]any{}
	}
	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil || cfg == nil {
		return map[string]any{}
	}
	return cfg
}
