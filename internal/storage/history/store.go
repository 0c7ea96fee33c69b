// Package history persists the composite engine's daily history per
// instrument so restarts keep accumulated bars and session profiles.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/quantarb/marketprofile/internal/services/composite"
)

const defaultStateDir = "./wal/history"

// Store persists composite history for a single instrument.
type Store struct {
	path string
}

func getStateDir() string {
	if stateDir := os.Getenv("MARKETPROFILE_HISTORY_DIR"); stateDir != "" {
		return stateDir
	}
	return defaultStateDir
}

// NewStore creates a history store for the given symbol.
func NewStore(dir, symbol string) (*Store, error) {
	if dir == "" {
		dir = getStateDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create history dir")
	}

	name := sanitizeSymbol(symbol)
	if name == "" {
		return nil, errors.Errorf("invalid symbol %q", symbol)
	}

	return &Store{path: filepath.Join(dir, fmt.Sprintf("%s.json", name))}, nil
}

// Load reads the stored history from disk. Returns nil without error when
// nothing was stored yet.
func (s *Store) Load() (*composite.State, error) {
	if s == nil || s.path == "" {
		return nil, nil
	}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read history state")
	}

	if len(payload) == 0 {
		return nil, nil
	}

	var state composite.State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, errors.Wrap(err, "decode history state")
	}

	return &state, nil
}

// Save writes the history to disk atomically via temp file.
func (s *Store) Save(state composite.State) error {
	if s == nil || s.path == "" {
		return nil
	}

	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode history state")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write history temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist history state")
	}

	return nil
}

func sanitizeSymbol(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return ""
	}

	var b strings.Builder
	prevUnderscore := false
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevUnderscore = false
			continue
		}
		if !prevUnderscore {
			b.WriteByte('_')
			prevUnderscore = true
		}
	}

	return strings.Trim(b.String(), "_")
}
