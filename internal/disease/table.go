// Package disease canonicalizes raw classifier labels and derives the
// severity tier and booking advice shown to patients.
package disease

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/Skufu/diagnosis-assistant/internal/artifact"
)

//go:embed diseases.yaml
var defaultTable []byte

// Entry is one row of the mapping table.
type Entry struct {
	Name     string   `yaml:"name"`
	Severity Severity `yaml:"severity,omitempty"`
	Warning  string   `yaml:"warning,omitempty"`
}

// Table maps lowercased raw labels to their canonical entry. It is built once
// and only read afterwards.
type Table struct {
	entries map[string]Entry
}

// Canonical is the display form of a raw label.
type Canonical struct {
	Name     string
	Override Severity
	Warning  string
}

type tableFile struct {
	Diseases map[string]Entry `yaml:"diseases"`
}

// DefaultTable returns the table compiled into the binary.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultTable)
}

// LoadTable reads a YAML mapping table from path.
func LoadTable(path string) (*Table, error) {
	data, err := artifact.ReadFile("disease mapping table", path)
	if err != nil {
		return nil, err
	}
	return ParseTable(data)
}

// ParseTable decodes and validates a YAML mapping table.
func ParseTable(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode disease table: %w", err)
	}
	if len(file.Diseases) == 0 {
		return nil, errors.New("disease table has no entries")
	}

	t := &Table{entries: make(map[string]Entry, len(file.Diseases))}
	for raw, entry := range file.Diseases {
		key := tableKey(raw)
		if key == "" {
			return nil, errors.New("disease table: blank label")
		}
		if _, dup := t.entries[key]; dup {
			return nil, fmt.Errorf("disease table: %q is listed twice", key)
		}
		entry.Name = strings.TrimSpace(entry.Name)
		if entry.Name == "" {
			return nil, fmt.Errorf("disease table: %q has no name", raw)
		}
		if entry.Severity != "" {
			sev, err := ParseSeverity(string(entry.Severity))
			if err != nil {
				return nil, fmt.Errorf("disease table: %q: %w", raw, err)
			}
			entry.Severity = sev
		}
		entry.Warning = strings.TrimSpace(entry.Warning)
		t.entries[key] = entry
	}
	return t, nil
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Lookup finds the entry for a raw label, ignoring case and surrounding space.
func (t *Table) Lookup(label string) (Entry, bool) {
	e, ok := t.entries[tableKey(label)]
	return e, ok
}

// Canonicalize maps a raw label to its display form. Labels without an entry
// are title-cased and carry no override or warning.
func (t *Table) Canonicalize(label string) Canonical {
	if e, ok := t.Lookup(label); ok {
		return Canonical{Name: e.Name, Override: e.Severity, Warning: e.Warning}
	}
	// cases.Caser keeps state, so one per call.
	return Canonical{Name: cases.Title(language.English).String(label)}
}

func tableKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
