package diagnosis

import (
	"math"

	"github.com/Skufu/diagnosis-assistant/internal/disease"
)

// Response is the wire form of a diagnosis.
type Response struct {
	Predictions []PredictionView `json:"predictions"`
}

// PredictionView is one prediction as rendered to clients.
type PredictionView struct {
	Disease               string  `json:"disease"`
	Probability           float64 `json:"probability"`
	Severity              string  `json:"severity"`
	ShouldBookAppointment bool    `json:"should_book_appointment"`
}

// NewResponse renders predictions with severities in lang and probabilities
// rounded to six decimals.
func NewResponse(preds []Prediction, lang disease.Language) Response {
	views := make([]PredictionView, len(preds))
	for i, p := range preds {
		views[i] = PredictionView{
			Disease:               p.Disease,
			Probability:           roundProbability(p.Probability),
			Severity:              p.Severity.Display(lang),
			ShouldBookAppointment: p.ShouldBook,
		}
	}
	return Response{Predictions: views}
}

func roundProbability(p float64) float64 {
	return math.Round(p*1e6) / 1e6
}
