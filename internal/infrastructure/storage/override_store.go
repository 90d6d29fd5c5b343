package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"BeerSync/internal/domain"
	"BeerSync/internal/ports"
)

// ErrOverridesFormat is returned when the overrides document is not { "overrides": [...] }.
var ErrOverridesFormat = errors.New("invalid overrides format")

// JSONOverrideStore reads manual corrections from a JSON file.
type JSONOverrideStore struct {
	path string
}

var _ ports.OverrideStore = (*JSONOverrideStore)(nil)

type overridesDocument struct {
	Overrides *[]overrideEntry `json:"overrides"`
}

type overrideEntry struct {
	Nr     int            `json:"nr"`
	Fields map[string]any `json:"fields"`
}

// NewJSONOverrideStore points the store at path.
func NewJSONOverrideStore(path string) *JSONOverrideStore {
	return &JSONOverrideStore{path: path}
}

// LoadOverrides returns the validated patches. A missing file is an empty set.
// Entries and fields that do not fit the record schema are dropped and
// reported in the returned warnings.
func (s *JSONOverrideStore) LoadOverrides(ctx context.Context) (domain.Overrides, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Overrides{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read overrides %s: %w", s.path, err)
	}

	return ParseOverrides(raw)
}

// ParseOverrides decodes and validates an overrides document.
func ParseOverrides(raw []byte) (domain.Overrides, []string, error) {
	var doc overridesDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrOverridesFormat, err)
	}
	if doc.Overrides == nil {
		return nil, nil, fmt.Errorf("%w: expected { \"overrides\": [] }", ErrOverridesFormat)
	}

	var (
		out      = domain.Overrides{}
		warnings []string
	)
	for i, entry := range *doc.Overrides {
		if entry.Nr <= 0 {
			warnings = append(warnings, fmt.Sprintf("override #%d: nr must be a positive integer", i))
			continue
		}

		patch, ok := out[entry.Nr]
		if !ok {
			patch = domain.NewPatch()
		}

		names := make([]string, 0, len(entry.Fields))
		for name := range entry.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if err := patch.Set(name, entry.Fields[name]); err != nil {
				warnings = append(warnings, fmt.Sprintf("override nr %d: %v", entry.Nr, err))
			}
		}
		out[entry.Nr] = patch
	}

	return out, warnings, nil
}
