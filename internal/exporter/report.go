// Package exporter renders the aggregate summary into the report formats.
// Both formats render from the same aggregate; neither recomputes anything.
package exporter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"datapipe/pkg/contracts/domain"
	"datapipe/pkg/contracts/fault"
)

// Render serializes the aggregate in the requested format. An unsupported
// format returns unsupported_format and no bytes.
func Render(agg domain.Aggregate, format string) ([]byte, error) {
	switch format {
	case domain.FormatJSON:
		return json.MarshalIndent(agg, "", "  ")
	case domain.FormatText:
		return renderText(agg), nil
	default:
		return nil, fault.New(fault.CodeUnsupportedFormat, "unsupported report format %q", format)
	}
}

func renderText(agg domain.Aggregate) []byte {
	var b bytes.Buffer
	w := func(format string, args ...any) { fmt.Fprintf(&b, format+"\n", args...) }

	w("DATA REPORT %d", agg.Year)
	w("generated_at: %s", agg.GeneratedAt)
	w("row_count: %d", agg.RowCount)
	w("column_count: %d", agg.ColumnCount)
	w("complete_rows: %d", agg.CompleteRows)
	w("complete_pct: %s", formatFloat(agg.CompletePct))

	w("")
	w("NUMERIC STATISTICS")
	for _, cs := range agg.Numeric {
		w("[%s]", cs.Column)
		w("  count: %d", cs.Stats.Count)
		w("  mean: %s", formatFloat(cs.Stats.Mean))
		w("  median: %s", formatFloat(cs.Stats.Median))
		w("  std: %s", formatFloat(cs.Stats.Std))
		w("  min: %s", formatFloat(cs.Stats.Min))
		w("  max: %s", formatFloat(cs.Stats.Max))
		w("  q25: %s", formatFloat(cs.Stats.Q25))
		w("  q75: %s", formatFloat(cs.Stats.Q75))
	}

	w("")
	w("CATEGORY BREAKDOWN")
	for _, cb := range agg.Categories {
		w("[%s]", cb.Column)
		for _, c := range cb.Counts {
			w("  %s: %d", c.Label, c.Count)
		}
	}
	return b.Bytes()
}

// formatFloat prints with full round-trip precision so the text report
// carries the same values as the JSON one.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ParseText decodes a text report back into an aggregate. It exists so the
// format equivalence between text and JSON can be verified mechanically.
func ParseText(data []byte) (domain.Aggregate, error) {
	var agg domain.Aggregate
	const (
		secHeader = iota
		secNumeric
		secCategories
	)
	section := secHeader
	var curStats *domain.ColumnStats
	var curCat *domain.CategoryBreakdown

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "DATA REPORT "):
			year, err := strconv.Atoi(strings.TrimPrefix(trimmed, "DATA REPORT "))
			if err != nil {
				return agg, fmt.Errorf("parse report year: %w", err)
			}
			agg.Year = year
			continue
		case trimmed == "NUMERIC STATISTICS":
			section = secNumeric
			continue
		case trimmed == "CATEGORY BREAKDOWN":
			section = secCategories
			continue
		case strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"):
			name := trimmed[1 : len(trimmed)-1]
			switch section {
			case secNumeric:
				agg.Numeric = append(agg.Numeric, domain.ColumnStats{Column: name})
				curStats = &agg.Numeric[len(agg.Numeric)-1]
			case secCategories:
				agg.Categories = append(agg.Categories, domain.CategoryBreakdown{Column: name})
				curCat = &agg.Categories[len(agg.Categories)-1]
			}
			continue
		}

		key, val, ok := strings.Cut(trimmed, ": ")
		if !ok {
			return agg, fmt.Errorf("unparseable report line %q", trimmed)
		}

		switch section {
		case secHeader:
			if err := parseHeaderField(&agg, key, val); err != nil {
				return agg, err
			}
		case secNumeric:
			if curStats == nil {
				return agg, fmt.Errorf("statistic %q outside a column block", key)
			}
			if err := parseStatField(&curStats.Stats, key, val); err != nil {
				return agg, err
			}
		case secCategories:
			if curCat == nil {
				return agg, fmt.Errorf("category %q outside a column block", key)
			}
			n, err := strconv.Atoi(val)
			if err != nil {
				return agg, fmt.Errorf("parse count for %q: %w", key, err)
			}
			curCat.Counts = append(curCat.Counts, domain.CategoryCount{Label: key, Count: n})
		}
	}
	if err := sc.Err(); err != nil {
		return agg, err
	}
	return agg, nil
}

func parseHeaderField(agg *domain.Aggregate, key, val string) error {
	switch key {
	case "generated_at":
		agg.GeneratedAt = val
		return nil
	case "complete_pct":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		agg.CompletePct = f
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	switch key {
	case "row_count":
		agg.RowCount = n
	case "column_count":
		agg.ColumnCount = n
	case "complete_rows":
		agg.CompleteRows = n
	default:
		return fmt.Errorf("unknown report field %q", key)
	}
	return nil
}

func parseStatField(s *domain.NumericStats, key, val string) error {
	if key == "count" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parse count: %w", err)
		}
		s.Count = n
		return nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	switch key {
	case "mean":
		s.Mean = f
	case "median":
		s.Median = f
	case "std":
		s.Std = f
	case "min":
		s.Min = f
	case "max":
		s.Max = f
	case "q25":
		s.Q25 = f
	case "q75":
		s.Q75 = f
	default:
		return fmt.Errorf("unknown statistic %q", key)
	}
	return nil
}
