package diagnosis

import (
	"cmp"
	"slices"
)

// Ranked is one label id with its probability.
type Ranked struct {
	LabelID     int
	Probability float64
}

// Rank returns the top min(k*factor, len(probs)) labels by descending
// probability, breaking ties by ascending label id.
func Rank(probs []float64, k, factor int) []Ranked {
	if factor < 1 {
		factor = 1
	}
	if k < 1 || len(probs) == 0 {
		return nil
	}
	limit := len(probs)
	if factor <= limit/k {
		limit = k * factor
	}
	all := make([]Ranked, len(probs))
	for i, p := range probs {
		all[i] = Ranked{LabelID: i, Probability: p}
	}
	slices.SortFunc(all, func(a, b Ranked) int {
		if c := cmp.Compare(b.Probability, a.Probability); c != 0 {
			return c
		}
		return cmp.Compare(a.LabelID, b.LabelID)
	})
	return all[:limit]
}
