// Package diagnosis turns a symptom request into a ranked, deduplicated list
// of candidate diseases with severity and booking advice.
package diagnosis

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/Skufu/diagnosis-assistant/internal/catalog"
	"github.com/Skufu/diagnosis-assistant/internal/classifier"
	"github.com/Skufu/diagnosis-assistant/internal/disease"
)

// Engine holds everything loaded at startup. Nothing in it changes afterwards,
// so one Engine serves concurrent requests without locking.
type Engine struct {
	symptoms *catalog.Symptoms
	labels   *catalog.Labels
	table    *disease.Table
	model    classifier.Classifier
	opts     Options
	logger   *slog.Logger
}

// NewEngine wires the loaded artifacts together. When model reports its
// dimensions they must match the catalogs.
func NewEngine(symptoms *catalog.Symptoms, labels *catalog.Labels, table *disease.Table, model classifier.Classifier, opts Options, logger *slog.Logger) (*Engine, error) {
	if symptoms == nil || labels == nil || table == nil || model == nil {
		return nil, errors.New("diagnosis engine needs symptoms, labels, disease table and model")
	}
	if m, ok := model.(classifier.Model); ok {
		if err := classifier.CheckDims(m, symptoms.Len(), labels.Len()); err != nil {
			return nil, err
		}
	}
	opts.ApplyDefaults()
	if opts.MinConfidence < 0 || opts.MinConfidence > 1 {
		return nil, fmt.Errorf("min confidence %v outside [0,1]", opts.MinConfidence)
	}
	if opts.OverfetchFactor < 1 || opts.OverfetchFactor > MaxOverfetchFactor {
		return nil, fmt.Errorf("overfetch factor %d must be between 1 and %d", opts.OverfetchFactor, MaxOverfetchFactor)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		symptoms: symptoms,
		labels:   labels,
		table:    table,
		model:    model,
		opts:     opts,
		logger:   logger,
	}, nil
}

// WithLogger returns a copy of e that logs to logger. The loaded artifacts are
// shared.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	if logger == nil {
		return e
	}
	c := *e
	c.logger = logger
	return &c
}

// Symptoms returns the recognized symptom names in schema order.
func (e *Engine) Symptoms() []string { return e.symptoms.Names() }

// Diagnose scores a validated request.
func (e *Engine) Diagnose(req Request) ([]Prediction, error) {
	if len(req.Symptoms) == 0 {
		return nil, newError(KindEmptySymptomSet, "at least one symptom is required")
	}
	if req.TopK < MinTopK || req.TopK > MaxTopK {
		return nil, newError(KindValidation, "top_k must be between %d and %d, got %d", MinTopK, MaxTopK, req.TopK)
	}

	vec := BuildFeatureVector(e.symptoms, req.Symptoms)
	if vec.IsZero() {
		return nil, newError(KindNoRecognizedSymptoms, "none of the %d symptoms match the model's symptom list", len(req.Symptoms))
	}

	probs, err := e.model.Predict(vec)
	if err != nil {
		e.logger.Error("classifier failed", "error", err, "active_features", vec.Active())
		return nil, &Error{Kind: KindInference, Msg: "could not run the diagnosis model", Err: err}
	}
	if len(probs) != e.labels.Len() {
		err := fmt.Errorf("model returned %d probabilities for %d labels", len(probs), e.labels.Len())
		e.logger.Error("classifier output mismatch", "error", err)
		return nil, &Error{Kind: KindInference, Msg: "could not run the diagnosis model", Err: err}
	}
	for i, p := range probs {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			err := fmt.Errorf("probability %v for label %d", p, i)
			e.logger.Error("classifier output invalid", "error", err)
			return nil, &Error{Kind: KindInference, Msg: "could not run the diagnosis model", Err: err}
		}
	}

	ranked := Rank(probs, req.TopK, e.opts.OverfetchFactor)
	preds := PostProcess(ranked, e.labels, e.table, req.TopK, e.opts.MinConfidence)
	e.logger.Debug("diagnosis complete",
		"symptoms", len(req.Symptoms),
		"recognized", vec.Active(),
		"candidates", len(ranked),
		"predictions", len(preds))
	return preds, nil
}

// DiagnoseJSON parses body and scores it.
func (e *Engine) DiagnoseJSON(body []byte) (Request, []Prediction, error) {
	req, err := ParseRequest(body)
	if err != nil {
		return Request{}, nil, err
	}
	preds, err := e.Diagnose(req)
	return req, preds, err
}
