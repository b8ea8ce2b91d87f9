package diagnosis

import (
	"github.com/Skufu/diagnosis-assistant/internal/catalog"
	"github.com/Skufu/diagnosis-assistant/internal/disease"
)

const (
	DefaultMinConfidence   = 0.01
	DefaultOverfetchFactor = 2
	MaxOverfetchFactor     = 25
)

// Options are the tuning knobs of the post-processing pipeline.
type Options struct {
	MinConfidence   float64
	OverfetchFactor int
}

// DefaultOptions returns the production tuning.
func DefaultOptions() Options {
	return Options{
		MinConfidence:   DefaultMinConfidence,
		OverfetchFactor: DefaultOverfetchFactor,
	}
}

// ApplyDefaults fills zero values.
func (o *Options) ApplyDefaults() {
	if o.MinConfidence == 0 {
		o.MinConfidence = DefaultMinConfidence
	}
	if o.OverfetchFactor == 0 {
		o.OverfetchFactor = DefaultOverfetchFactor
	}
}

// Prediction is one enriched candidate.
type Prediction struct {
	Label       string
	Disease     string
	Probability float64
	Severity    disease.Severity
	Warning     string
	ShouldBook  bool
}

// PostProcess walks ranked candidates in order and keeps at most k of them.
// Candidates under minConfidence are skipped, and a candidate whose canonical
// name was already kept is dropped so the most probable one wins.
func PostProcess(ranked []Ranked, labels *catalog.Labels, table *disease.Table, k int, minConfidence float64) []Prediction {
	out := make([]Prediction, 0, k)
	seen := make(map[string]struct{}, k)
	for _, r := range ranked {
		if len(out) >= k {
			break
		}
		if r.Probability < minConfidence {
			continue
		}
		label := labels.Name(r.LabelID)
		canon := table.Canonicalize(label)
		sev := disease.ClassifySeverity(label, r.Probability, canon.Override)

		if _, dup := seen[canon.Name]; dup {
			continue
		}
		seen[canon.Name] = struct{}{}

		name := canon.Name
		if canon.Warning != "" {
			name += " (" + canon.Warning + ")"
		}
		out = append(out, Prediction{
			Label:       label,
			Disease:     name,
			Probability: r.Probability,
			Severity:    sev,
			Warning:     canon.Warning,
			ShouldBook:  disease.ShouldBook(sev, r.Probability),
		})
	}
	return out
}
