// Package catalog holds the frozen, ordered schemas that define the feature
// and label index spaces of the classifier.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Skufu/diagnosis-assistant/internal/artifact"
)

// Key returns the lookup form of a symptom or label name.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(name)))
}

// Symptoms is the symptom-feature schema. Position i of a feature vector
// corresponds to Names()[i].
type Symptoms struct {
	names []string
	index map[string]int
}

// NewSymptoms builds a schema from names in feature order. Names must be
// non-empty and distinct case-insensitively.
func NewSymptoms(names []string) (*Symptoms, error) {
	if len(names) == 0 {
		return nil, errors.New("symptom schema is empty")
	}
	s := &Symptoms{
		names: make([]string, len(names)),
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		key := Key(name)
		if key == "" {
			return nil, fmt.Errorf("symptom schema: blank name at position %d", i)
		}
		if prev, ok := s.index[key]; ok {
			return nil, fmt.Errorf("symptom schema: %q at position %d duplicates position %d", name, i, prev)
		}
		s.names[i] = name
		s.index[key] = i
	}
	return s, nil
}

// LoadSymptoms reads a JSON array of symptom names from path.
func LoadSymptoms(path string) (*Symptoms, error) {
	names, err := loadNames("symptom schema", path)
	if err != nil {
		return nil, err
	}
	return NewSymptoms(names)
}

// Len is the feature vector length.
func (s *Symptoms) Len() int { return len(s.names) }

// Index returns the feature position of name, matched case-insensitively.
func (s *Symptoms) Index(name string) (int, bool) {
	i, ok := s.index[Key(name)]
	return i, ok
}

// Names returns a copy of the schema in feature order.
func (s *Symptoms) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Labels is the ordered disease label catalog. Label id i is the i-th entry of
// the classifier's probability output.
type Labels struct {
	names []string
}

// NewLabels builds a label catalog from names in class order.
func NewLabels(names []string) (*Labels, error) {
	if len(names) == 0 {
		return nil, errors.New("label catalog is empty")
	}
	seen := make(map[string]int, len(names))
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("label catalog: blank label at id %d", i)
		}
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("label catalog: %q at id %d duplicates id %d", name, i, prev)
		}
		seen[name] = i
	}
	out := make([]string, len(names))
	copy(out, names)
	return &Labels{names: out}, nil
}

// LoadLabels reads a JSON array of disease labels from path.
func LoadLabels(path string) (*Labels, error) {
	names, err := loadNames("label catalog", path)
	if err != nil {
		return nil, err
	}
	return NewLabels(names)
}

// Len is the number of classes.
func (l *Labels) Len() int { return len(l.names) }

// Name returns the raw label for id.
func (l *Labels) Name(id int) string { return l.names[id] }

func loadNames(artifactName, path string) ([]string, error) {
	data, err := artifact.ReadFile(artifactName, path)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("decode %s: %w", artifactName, err)
	}
	return names, nil
}
