package kb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/saudraja/ollama-ai-scrapper/strategy"
)

// Load hydrates the KB from its store file. A missing or empty file is
// "no prior knowledge", not an error. A file that exists but does not
// parse as the published schema (a map of "provider/field" to strategy
// records) fails with ErrStoreCorrupt.
func (k *KB) Load() error {
	data, err := os.ReadFile(k.path)
	if errors.Is(err, fs.ErrNotExist) {
		k.logger.Info("kb: no store file, starting empty", "path", k.path)
		return nil
	}
	if err != nil {
		return &ErrStoreCorrupt{Path: k.path, Cause: err}
	}
	if len(data) == 0 {
		return nil
	}

	var raw map[string][]*strategy.Strategy
	if err := json.Unmarshal(data, &raw); err != nil {
		return &ErrStoreCorrupt{Path: k.path, Cause: err}
	}
	for kk, list := range raw {
		for _, s := range list {
			if err := s.Validate(); err != nil {
				return &ErrStoreCorrupt{Path: k.path, Cause: fmt.Errorf("key %s: %w", kk, err)}
			}
		}
	}

	k.mu.Lock()
	k.entries = raw
	if k.entries == nil {
		k.entries = make(map[string][]*strategy.Strategy)
	}
	k.streaks = make(map[string]map[string]int)
	k.mu.Unlock()

	k.logger.Info("kb: loaded", "path", k.path, "keys", len(raw))
	return nil
}

// persistLocked writes the store file atomically (temp file + rename).
// Must be called with mu held.
func (k *KB) persistLocked() error {
	data, err := json.MarshalIndent(k.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("kb: marshal store: %w", err)
	}

	dir := filepath.Dir(k.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("kb: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".kb-*.json")
	if err != nil {
		return fmt.Errorf("kb: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("kb: write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("kb: close store: %w", err)
	}
	if err := os.Rename(tmp.Name(), k.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("kb: replace store: %w", err)
	}
	return nil
}
