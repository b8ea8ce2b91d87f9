package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/diagnosis-assistant/internal/catalog"
	"github.com/Skufu/diagnosis-assistant/internal/disease"
)

const testTableYAML = `
diseases:
  influenza a:
    name: Cúm
  influenza b:
    name: Cúm
  skin polyp:
    name: Bệnh lý da
    severity: medium
    warning: cần khám chuyên khoa
  stroke:
    name: Đột quỵ
`

func testTable(t *testing.T) *disease.Table {
	t.Helper()
	table, err := disease.ParseTable([]byte(testTableYAML))
	require.NoError(t, err)
	return table
}

func testLabels(t *testing.T, names ...string) *catalog.Labels {
	t.Helper()
	l, err := catalog.NewLabels(names)
	require.NoError(t, err)
	return l
}

func TestPostProcessDedupKeepsMostProbable(t *testing.T) {
	labels := testLabels(t, "influenza a", "influenza b", "stroke")
	ranked := []Ranked{
		{LabelID: 1, Probability: 0.5},
		{LabelID: 0, Probability: 0.3},
		{LabelID: 2, Probability: 0.2},
	}

	got := PostProcess(ranked, labels, testTable(t), 5, 0.01)
	require.Len(t, got, 2)
	assert.Equal(t, "Cúm", got[0].Disease)
	assert.Equal(t, "influenza b", got[0].Label)
	assert.Equal(t, 0.5, got[0].Probability)
	assert.Equal(t, "Đột quỵ", got[1].Disease)
	assert.Equal(t, disease.High, got[1].Severity)
	assert.False(t, got[1].ShouldBook)
}

func TestPostProcessConfidenceFloor(t *testing.T) {
	labels := testLabels(t, "stroke", "common cold", "measles")
	ranked := []Ranked{
		{LabelID: 0, Probability: 0.98},
		{LabelID: 1, Probability: 0.01},
		{LabelID: 2, Probability: 0.0099},
	}

	got := PostProcess(ranked, labels, testTable(t), 5, 0.01)
	require.Len(t, got, 2)
	assert.Equal(t, "Common Cold", got[1].Disease)
	assert.Equal(t, disease.Low, got[1].Severity)
	assert.True(t, got[0].ShouldBook)
}

func TestPostProcessAppendsWarning(t *testing.T) {
	labels := testLabels(t, "skin polyp")
	got := PostProcess([]Ranked{{LabelID: 0, Probability: 0.7}}, labels, testTable(t), 1, 0.01)

	require.Len(t, got, 1)
	assert.Equal(t, "Bệnh lý da (cần khám chuyên khoa)", got[0].Disease)
	assert.Equal(t, "cần khám chuyên khoa", got[0].Warning)
	assert.Equal(t, disease.Medium, got[0].Severity)
	assert.True(t, got[0].ShouldBook)
}

func TestPostProcessOverrideBeatsFixedLists(t *testing.T) {
	table, err := disease.ParseTable([]byte("diseases:\n  stroke:\n    name: Đột quỵ\n    severity: low\n"))
	require.NoError(t, err)
	labels := testLabels(t, "stroke")

	got := PostProcess([]Ranked{{LabelID: 0, Probability: 0.9}}, labels, table, 1, 0.01)
	require.Len(t, got, 1)
	assert.Equal(t, disease.Low, got[0].Severity)
	assert.False(t, got[0].ShouldBook)
}

func TestPostProcessStopsAtK(t *testing.T) {
	labels := testLabels(t, "a", "b", "c", "d")
	ranked := []Ranked{
		{LabelID: 0, Probability: 0.4},
		{LabelID: 1, Probability: 0.3},
		{LabelID: 2, Probability: 0.2},
		{LabelID: 3, Probability: 0.1},
	}

	got := PostProcess(ranked, labels, testTable(t), 2, 0.01)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Disease)
	assert.Equal(t, "B", got[1].Disease)
}

func TestPostProcessMayReturnFewer(t *testing.T) {
	labels := testLabels(t, "influenza a", "influenza b")
	ranked := []Ranked{
		{LabelID: 0, Probability: 0.6},
		{LabelID: 1, Probability: 0.4},
	}

	got := PostProcess(ranked, labels, testTable(t), 1, 0.01)
	assert.Len(t, got, 1)

	got = PostProcess(nil, labels, testTable(t), 3, 0.01)
	assert.Empty(t, got)
}
