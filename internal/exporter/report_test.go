package exporter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/pkg/contracts/domain"
	"datapipe/pkg/contracts/fault"
)

func sampleAggregate() domain.Aggregate {
	return domain.Aggregate{
		Year:         2024,
		GeneratedAt:  "2024-05-01T12:00:00Z",
		RowCount:     92,
		ColumnCount:  18,
		CompleteRows: 90,
		CompletePct:  97.82608695652173,
		Numeric: []domain.ColumnStats{
			{
				Column: "med_inc",
				Stats: domain.NumericStats{
					Count: 92, Mean: 3.87, Median: 3.53, Std: 1.89,
					Min: 0.49, Max: 15.0, Q25: 2.56, Q75: 4.74,
				},
			},
			{
				Column: "med_house_val",
				Stats: domain.NumericStats{
					Count: 92, Mean: 2.06, Median: 1.79, Std: 1.15,
					Min: 0.14, Max: 5.0, Q25: 1.19, Q75: 2.64,
				},
			},
		},
		Categories: []domain.CategoryBreakdown{
			{
				Column: "income_category",
				Counts: []domain.CategoryCount{
					{Label: "medium", Count: 40},
					{Label: "low", Count: 30},
					{Label: "high", Count: 22},
				},
			},
		},
	}
}

func TestRenderUnsupportedFormat(t *testing.T) {
	data, err := Render(sampleAggregate(), "xml")
	require.Error(t, err)
	assert.True(t, fault.IsCode(err, fault.CodeUnsupportedFormat))
	assert.Nil(t, data)
}

func TestRenderJSON(t *testing.T) {
	data, err := Render(sampleAggregate(), domain.FormatJSON)
	require.NoError(t, err)

	var back domain.Aggregate
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, sampleAggregate(), back)
}

func TestTextRoundTrip(t *testing.T) {
	agg := sampleAggregate()
	data, err := Render(agg, domain.FormatText)
	require.NoError(t, err)

	back, err := ParseText(data)
	require.NoError(t, err)
	assert.Equal(t, agg, back)
}

// Both formats must describe identical values: decode each and compare
// field for field.
func TestFormatEquivalence(t *testing.T) {
	agg := sampleAggregate()

	jsonData, err := Render(agg, domain.FormatJSON)
	require.NoError(t, err)
	var fromJSON domain.Aggregate
	require.NoError(t, json.Unmarshal(jsonData, &fromJSON))

	textData, err := Render(agg, domain.FormatText)
	require.NoError(t, err)
	fromText, err := ParseText(textData)
	require.NoError(t, err)

	assert.Equal(t, fromJSON.Year, fromText.Year)
	assert.Equal(t, fromJSON.RowCount, fromText.RowCount)
	assert.Equal(t, fromJSON.ColumnCount, fromText.ColumnCount)
	assert.Equal(t, fromJSON.CompleteRows, fromText.CompleteRows)
	assert.InDelta(t, fromJSON.CompletePct, fromText.CompletePct, 1e-12)

	require.Equal(t, len(fromJSON.Numeric), len(fromText.Numeric))
	for i := range fromJSON.Numeric {
		j, x := fromJSON.Numeric[i], fromText.Numeric[i]
		assert.Equal(t, j.Column, x.Column)
		assert.Equal(t, j.Stats.Count, x.Stats.Count)
		assert.InDelta(t, j.Stats.Mean, x.Stats.Mean, 1e-12)
		assert.InDelta(t, j.Stats.Median, x.Stats.Median, 1e-12)
		assert.InDelta(t, j.Stats.Std, x.Stats.Std, 1e-12)
		assert.InDelta(t, j.Stats.Min, x.Stats.Min, 1e-12)
		assert.InDelta(t, j.Stats.Max, x.Stats.Max, 1e-12)
		assert.InDelta(t, j.Stats.Q25, x.Stats.Q25, 1e-12)
		assert.InDelta(t, j.Stats.Q75, x.Stats.Q75, 1e-12)
	}

	require.Equal(t, len(fromJSON.Categories), len(fromText.Categories))
	for i := range fromJSON.Categories {
		assert.Equal(t, fromJSON.Categories[i], fromText.Categories[i])
	}
}

func TestParseTextRejectsGarbage(t *testing.T) {
	_, err := ParseText([]byte("DATA REPORT 2024\nno separator here\n"))
	assert.Error(t, err)
}
