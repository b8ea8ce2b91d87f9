package classifier

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Skufu/diagnosis-assistant/internal/artifact"
)

const leaf = -1

// Tree is one decision tree in the flat array layout scikit-learn exports.
// Node i is a leaf when ChildrenLeft[i] == -1; otherwise a row goes left when
// row[Feature[i]] <= Threshold[i].
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Forest is a random forest whose class probabilities are the mean of the
// normalized leaf distributions of its trees. It is read-only after loading.
type Forest struct {
	NFeatures int    `json:"n_features"`
	NClasses  int    `json:"n_classes"`
	Trees     []Tree `json:"trees"`
}

// LoadForest reads and validates an exported forest.
func LoadForest(path string) (*Forest, error) {
	data, err := artifact.ReadFile("classifier model", path)
	if err != nil {
		return nil, err
	}
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode classifier model: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("classifier model: %w", err)
	}
	return &f, nil
}

// Validate checks every index a prediction can follow, so Predict never walks
// out of bounds or loops.
func (f *Forest) Validate() error {
	if f.NFeatures <= 0 || f.NClasses <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", f.NFeatures, f.NClasses)
	}
	if len(f.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for t, tree := range f.Trees {
		n := len(tree.ChildrenLeft)
		if n == 0 {
			return fmt.Errorf("tree %d is empty", t)
		}
		if len(tree.ChildrenRight) != n || len(tree.Feature) != n || len(tree.Threshold) != n || len(tree.Value) != n {
			return fmt.Errorf("tree %d: node arrays differ in length", t)
		}
		for i := 0; i < n; i++ {
			if len(tree.Value[i]) != f.NClasses {
				return fmt.Errorf("tree %d node %d: %d class values, want %d", t, i, len(tree.Value[i]), f.NClasses)
			}
			left, right := tree.ChildrenLeft[i], tree.ChildrenRight[i]
			if left == leaf {
				continue
			}
			if left <= i || left >= n || right <= i || right >= n {
				return fmt.Errorf("tree %d node %d: bad children %d/%d", t, i, left, right)
			}
			if tree.Feature[i] < 0 || tree.Feature[i] >= f.NFeatures {
				return fmt.Errorf("tree %d node %d: feature %d out of range", t, i, tree.Feature[i])
			}
		}
	}
	return nil
}

// Dims returns the input and output widths.
func (f *Forest) Dims() (int, int) { return f.NFeatures, f.NClasses }

// Close is a no-op.
func (f *Forest) Close() error { return nil }

// Predict returns one probability per class.
func (f *Forest) Predict(features []float64) ([]float64, error) {
	if len(features) != f.NFeatures {
		return nil, &InferenceError{Err: fmt.Errorf("got %d features, want %d", len(features), f.NFeatures)}
	}
	probs := make([]float64, f.NClasses)
	for _, tree := range f.Trees {
		counts := tree.Value[tree.leafFor(features)]
		total := 0.0
		for _, c := range counts {
			total += c
		}
		if total <= 0 {
			continue
		}
		for k, c := range counts {
			probs[k] += c / total
		}
	}
	n := float64(len(f.Trees))
	for k := range probs {
		probs[k] /= n
	}
	return probs, nil
}

func (t Tree) leafFor(features []float64) int {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		if features[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return node
}
