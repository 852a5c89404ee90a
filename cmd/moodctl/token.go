package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// tokenStore keeps the session token between invocations.
type tokenStore struct {
	path string
	env  string // MOODMAP_TOKEN; wins over the file when set
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".moodmap-token"
	}
	return filepath.Join(dir, "moodmap", "token")
}

// Load returns the saved token, or "" when there is none.
func (s tokenStore) Load() (string, error) {
	if s.env != "" {
		return s.env, nil
	}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// Save writes the token readable by the owner only.
func (s tokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// Clear removes the token file. A missing file is not an error.
func (s tokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}
