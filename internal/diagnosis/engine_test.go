package diagnosis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/diagnosis-assistant/internal/classifier"
	"github.com/Skufu/diagnosis-assistant/internal/disease"
)

var testLabelNames = []string{
	"common cold", "influenza a", "influenza b", "stroke", "pneumonia",
	"migraine", "gastritis", "sepsis", "bronchitis", "skin polyp",
	"measles", "asthma",
}

func fixedClassifier(probs []float64) classifier.Classifier {
	return classifier.Func(func([]float64) ([]float64, error) {
		out := make([]float64, len(probs))
		copy(out, probs)
		return out, nil
	})
}

func newTestEngine(t *testing.T, model classifier.Classifier) *Engine {
	t.Helper()
	e, err := NewEngine(testSymptoms(t), testLabels(t, testLabelNames...), testTable(t), model, DefaultOptions(), nil)
	require.NoError(t, err)
	return e
}

func TestDiagnoseUnknownSymptom(t *testing.T) {
	called := false
	e := newTestEngine(t, classifier.Func(func([]float64) ([]float64, error) {
		called = true
		return nil, nil
	}))

	_, _, err := e.DiagnoseJSON([]byte(`{"symptoms": ["qwerty123"]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRecognizedSymptoms))
	assert.True(t, IsClientError(err))
	assert.False(t, called, "classifier must not run without a recognized symptom")
}

func TestDiagnoseEmptySymptoms(t *testing.T) {
	e := newTestEngine(t, fixedClassifier(make([]float64, len(testLabelNames))))

	_, _, err := e.DiagnoseJSON([]byte(`{"symptoms": []}`))
	assert.True(t, errors.Is(err, ErrEmptySymptomSet))

	_, err = e.Diagnose(Request{TopK: 5})
	assert.True(t, errors.Is(err, ErrEmptySymptomSet))
}

func TestDiagnoseRejectsOutOfRangeTopK(t *testing.T) {
	e := newTestEngine(t, fixedClassifier(make([]float64, len(testLabelNames))))

	_, err := e.Diagnose(Request{Symptoms: []string{"fever"}, TopK: 0})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDiagnoseTopThreeOfTenDistinct(t *testing.T) {
	// Ten distinct diseases, none sharing a display name.
	probs := []float64{0.02, 0.03, 0, 0.20, 0.15, 0.12, 0.11, 0.10, 0.09, 0, 0.08, 0.13}
	e := newTestEngine(t, fixedClassifier(probs))

	preds, err := e.Diagnose(Request{Symptoms: []string{"fever"}, TopK: 3})
	require.NoError(t, err)
	require.Len(t, preds, 3)
	assert.Equal(t, []string{"stroke", "pneumonia", "asthma"}, labelsOf(preds))
	for i := 1; i < len(preds); i++ {
		assert.Greater(t, preds[i-1].Probability, preds[i].Probability)
	}
}

func TestDiagnoseCollidingDisplayNames(t *testing.T) {
	probs := make([]float64, len(testLabelNames))
	probs[1] = 0.30 // influenza a
	probs[2] = 0.45 // influenza b
	probs[5] = 0.25
	e := newTestEngine(t, fixedClassifier(probs))

	preds, err := e.Diagnose(Request{Symptoms: []string{"fever", "cough"}, TopK: 5})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "Cúm", preds[0].Disease)
	assert.Equal(t, 0.45, preds[0].Probability)
	assert.Equal(t, "Migraine", preds[1].Disease)
}

func TestDiagnoseInvariants(t *testing.T) {
	probs := []float64{0.05, 0.18, 0.17, 0.01, 0.16, 0.009, 0.12, 0.10, 0.08, 0.07, 0.03, 0.011}
	e := newTestEngine(t, fixedClassifier(probs))

	for k := MinTopK; k <= MaxTopK; k++ {
		preds, err := e.Diagnose(Request{Symptoms: []string{"headache"}, TopK: k})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(preds), k)

		seen := map[string]bool{}
		for i, p := range preds {
			assert.False(t, seen[p.Disease], "k=%d duplicate %s", k, p.Disease)
			seen[p.Disease] = true
			assert.GreaterOrEqual(t, p.Probability, DefaultMinConfidence)
			if i > 0 {
				assert.GreaterOrEqual(t, preds[i-1].Probability, p.Probability)
			}
		}
	}
}

func TestDiagnoseIsDeterministic(t *testing.T) {
	forest := &classifier.Forest{
		NFeatures: len(testSymptomNames),
		NClasses:  len(testLabelNames),
		Trees:     []classifier.Tree{stumpOn(0, len(testLabelNames)), stumpOn(3, len(testLabelNames))},
	}
	require.NoError(t, forest.Validate())
	e := newTestEngine(t, forest)

	body := []byte(`{"symptoms": ["Fever", "chest pain"], "top_k": 4}`)
	_, first, err := e.DiagnoseJSON(body)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, again, err := e.DiagnoseJSON(body)
			assert.NoError(t, err)
			if diff := cmp.Diff(first, again); diff != "" {
				t.Errorf("non-deterministic response (-first +again):\n%s", diff)
			}
		}()
	}
	wg.Wait()
}

func TestDiagnoseWrappedPayloadMatchesPlain(t *testing.T) {
	probs := []float64{0.3, 0.2, 0.1, 0.1, 0.1, 0.05, 0.05, 0.04, 0.03, 0.02, 0.01, 0}
	e := newTestEngine(t, fixedClassifier(probs))

	_, wrapped, err := e.DiagnoseJSON([]byte(`[{"symptoms": ["fever", "nausea"], "topK": 5}]`))
	require.NoError(t, err)
	_, plain, err := e.DiagnoseJSON([]byte(`{"symptoms": ["fever", "nausea"], "top_k": 5}`))
	require.NoError(t, err)

	a, _ := json.Marshal(NewResponse(wrapped, disease.Vietnamese))
	b, _ := json.Marshal(NewResponse(plain, disease.Vietnamese))
	assert.JSONEq(t, string(b), string(a))
}

func TestDiagnoseInferenceError(t *testing.T) {
	boom := &classifier.InferenceError{Err: fmt.Errorf("session closed")}
	e := newTestEngine(t, classifier.Func(func([]float64) ([]float64, error) {
		return nil, boom
	}))

	_, err := e.Diagnose(Request{Symptoms: []string{"fever"}, TopK: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInference))
	assert.False(t, IsClientError(err))

	var inf *classifier.InferenceError
	assert.True(t, errors.As(err, &inf))
}

func TestDiagnoseRejectsMalformedDistribution(t *testing.T) {
	tests := map[string][]float64{
		"short":    {0.5, 0.5},
		"negative": append([]float64{-0.1}, make([]float64, len(testLabelNames)-1)...),
	}
	for name, probs := range tests {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, fixedClassifier(probs))
			_, err := e.Diagnose(Request{Symptoms: []string{"fever"}, TopK: 5})
			assert.True(t, errors.Is(err, ErrInference))
		})
	}
}

func TestNewEngineChecksModelDims(t *testing.T) {
	forest := &classifier.Forest{NFeatures: 2, NClasses: len(testLabelNames)}
	_, err := NewEngine(testSymptoms(t), testLabels(t, testLabelNames...), testTable(t), forest, DefaultOptions(), nil)
	require.Error(t, err)
}

func TestNewEngineValidatesOptions(t *testing.T) {
	model := fixedClassifier(nil)
	_, err := NewEngine(testSymptoms(t), testLabels(t, testLabelNames...), testTable(t), model, Options{MinConfidence: 2}, nil)
	assert.Error(t, err)
	_, err = NewEngine(testSymptoms(t), testLabels(t, testLabelNames...), testTable(t), model, Options{OverfetchFactor: -1}, nil)
	assert.Error(t, err)
	_, err = NewEngine(testSymptoms(t), testLabels(t, testLabelNames...), testTable(t), model, Options{OverfetchFactor: math.MaxInt}, nil)
	assert.Error(t, err)
}

func TestNewResponseRounding(t *testing.T) {
	resp := NewResponse([]Prediction{{
		Disease:     "Đột quỵ",
		Probability: 0.12345678,
		Severity:    disease.High,
		ShouldBook:  false,
	}}, disease.Vietnamese)

	require.Len(t, resp.Predictions, 1)
	assert.Equal(t, 0.123457, resp.Predictions[0].Probability)
	assert.Equal(t, "nặng", resp.Predictions[0].Severity)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"predictions":[{"disease":"Đột quỵ","probability":0.123457,"severity":"nặng","should_book_appointment":false}]}`, string(raw))
}

func TestNewResponseEmptyPredictionsIsArray(t *testing.T) {
	raw, err := json.Marshal(NewResponse(nil, disease.English))
	require.NoError(t, err)
	assert.JSONEq(t, `{"predictions":[]}`, string(raw))
}

// stumpOn builds a one-split tree that favours the class equal to feature.
func stumpOn(feature, classes int) classifier.Tree {
	absent := make([]float64, classes)
	present := make([]float64, classes)
	for i := range absent {
		absent[i] = 1
		present[i] = 1
	}
	present[feature] = 10
	return classifier.Tree{
		ChildrenLeft:  []int{1, -1, -1},
		ChildrenRight: []int{2, -1, -1},
		Feature:       []int{feature, -2, -2},
		Threshold:     []float64{0.5, -2, -2},
		Value:         [][]float64{absent, absent, present},
	}
}

func labelsOf(preds []Prediction) []string {
	out := make([]string, len(preds))
	for i, p := range preds {
		out[i] = p.Label
	}
	return out
}
