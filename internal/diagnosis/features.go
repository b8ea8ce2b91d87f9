package diagnosis

import "github.com/Skufu/diagnosis-assistant/internal/catalog"

// FeatureVector is a binary row aligned to the symptom schema.
type FeatureVector []float64

// BuildFeatureVector sets position i for every symptom that matches schema
// entry i. Unknown symptoms are ignored.
func BuildFeatureVector(schema *catalog.Symptoms, symptoms []string) FeatureVector {
	v := make(FeatureVector, schema.Len())
	for _, s := range symptoms {
		if i, ok := schema.Index(s); ok {
			v[i] = 1
		}
	}
	return v
}

// Active counts the set positions.
func (v FeatureVector) Active() int {
	n := 0
	for _, x := range v {
		if x != 0 {
			n++
		}
	}
	return n
}

// IsZero reports whether no schema symptom was recognized.
func (v FeatureVector) IsZero() bool { return v.Active() == 0 }
