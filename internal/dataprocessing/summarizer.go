package dataprocessing

import (
	"sort"
	"time"

	"datapipe/internal/table"
	"datapipe/pkg/contracts/domain"
)

// Summarize computes the single aggregate structure both report formats
// render from: row and column counts, completeness, per-numeric-column
// descriptive statistics and per-categorical-column value counts. Column
// order follows the schema; category labels sort by descending count, ties
// by label, so rendering is deterministic.
func Summarize(t *table.Table) domain.Aggregate {
	agg := domain.Aggregate{
		RowCount:    t.Len(),
		ColumnCount: t.Schema().Len(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if year, err := t.ConstantInt(domain.ColYear); err == nil {
		agg.Year = int(year)
	}

	complete := 0
	for i := 0; i < t.Len(); i++ {
		full := true
		for _, v := range t.Row(i) {
			if v.IsNull() {
				full = false
				break
			}
		}
		if full {
			complete++
		}
	}
	agg.CompleteRows = complete
	if t.Len() > 0 {
		agg.CompletePct = float64(complete) / float64(t.Len()) * 100
	}

	for idx, col := range t.Schema().Columns() {
		switch {
		case col.Kind.IsNumeric():
			var vals []float64
			for i := 0; i < t.Len(); i++ {
				if v := t.Row(i)[idx]; !v.IsNull() {
					vals = append(vals, v.AsFloat())
				}
			}
			if len(vals) == 0 {
				continue
			}
			agg.Numeric = append(agg.Numeric, domain.ColumnStats{
				Column: col.Name,
				Stats:  numericStats(vals),
			})
		case col.Kind == table.KindString:
			counts := make(map[string]int)
			for i := 0; i < t.Len(); i++ {
				if v := t.Row(i)[idx]; !v.IsNull() {
					counts[v.AsString()]++
				}
			}
			if len(counts) == 0 {
				continue
			}
			agg.Categories = append(agg.Categories, domain.CategoryBreakdown{
				Column: col.Name,
				Counts: sortedCounts(counts),
			})
		}
	}
	return agg
}

func numericStats(vals []float64) domain.NumericStats {
	min, max := vals[0], vals[0]
	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return domain.NumericStats{
		Count:  len(vals),
		Mean:   Mean(vals),
		Median: Median(vals),
		Std:    StdDev(vals),
		Min:    min,
		Max:    max,
		Q25:    Quantile(vals, 0.25),
		Q75:    Quantile(vals, 0.75),
	}
}

func sortedCounts(counts map[string]int) []domain.CategoryCount {
	out := make([]domain.CategoryCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, domain.CategoryCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
