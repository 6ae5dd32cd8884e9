package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"datapipe/internal/config"
	"datapipe/internal/table"
	"datapipe/pkg/contracts/domain"
	"datapipe/pkg/contracts/fault"
)

// Null-fill rule names for numeric columns.
const (
	FillMean = "mean"
	FillZero = "zero"
)

// CleanOptions toggles and parameterizes the cleaning steps. Each step can
// be switched off independently; the defaults run all of them.
type CleanOptions struct {
	ValidateRows bool
	Deduplicate  bool

	RemoveOutliers   bool
	OutlierThreshold float64
	OutlierColumns   []string

	EnforceRanges   bool
	PositiveColumns []string

	FillNulls   bool
	NumericFill string
	StringFill  string
}

// DefaultCleanOptions returns the standard cleaning configuration.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{
		ValidateRows:     true,
		Deduplicate:      true,
		RemoveOutliers:   true,
		OutlierThreshold: 1.5,
		OutlierColumns:   domain.DefaultOutlierColumns(),
		EnforceRanges:    true,
		PositiveColumns:  domain.DefaultPositiveColumns(),
		FillNulls:        true,
		NumericFill:      FillMean,
		StringFill:       "unknown",
	}
}

// CleanOptionsFromConfig maps the configured cleaning defaults onto options.
func CleanOptionsFromConfig(cfg config.CleaningConfig) CleanOptions {
	opts := DefaultCleanOptions()
	opts.RemoveOutliers = cfg.RemoveOutliers
	if cfg.OutlierThreshold > 0 {
		opts.OutlierThreshold = cfg.OutlierThreshold
	}
	if len(cfg.OutlierColumns) > 0 {
		opts.OutlierColumns = cfg.OutlierColumns
	}
	if len(cfg.PositiveColumns) > 0 {
		opts.PositiveColumns = cfg.PositiveColumns
	}
	if cfg.NumericFill != "" {
		opts.NumericFill = cfg.NumericFill
	}
	if cfg.StringFill != "" {
		opts.StringFill = cfg.StringFill
	}
	return opts
}

// Cleaner validates and repairs a raw record table.
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a cleaner.
func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger}
}

// Clean runs the cleaning steps in order: row validation, deduplication,
// IQR outlier fencing, positivity range checks, null fill. Row-level
// defects are recovered by dropping and counted in the report; a required
// column with no values at all is an invalid_schema error and aborts the
// stage. Surviving rows are stamped with a quality score column.
func (c *Cleaner) Clean(ctx context.Context, t *table.Table, opts CleanOptions) (*table.Table, domain.CleanReport, error) {
	report := domain.CleanReport{
		RowsIn:           t.Len(),
		OutliersByColumn: make(map[string]int),
	}
	if year, err := t.ConstantInt(domain.ColYear); err == nil {
		report.Year = int(year)
	}

	schema := t.Schema()
	if err := c.checkRequiredColumns(t); err != nil {
		return nil, report, err
	}

	// Work on row indices so each step sees the survivors of the previous
	// one.
	keep := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		keep = append(keep, i)
	}

	if opts.ValidateRows {
		keep = c.dropIncompleteRows(t, keep, &report)
	}
	if opts.Deduplicate {
		keep = c.dropDuplicateRows(t, keep, &report)
	}
	if opts.RemoveOutliers {
		keep = c.dropOutlierRows(t, keep, opts, &report)
	}
	if opts.EnforceRanges {
		keep = c.dropNonPositiveRows(t, keep, opts, &report)
	}

	out := table.New(schema)
	for _, i := range keep {
		src := t.Row(i)
		row := make(table.Row, len(src))
		copy(row, src)
		if err := out.Append(row); err != nil {
			return nil, report, err
		}
	}

	if opts.FillNulls {
		c.fillNulls(out, opts)
	}

	out, err := c.withQualityScore(out)
	if err != nil {
		return nil, report, err
	}

	report.RowsOut = out.Len()
	c.logger.InfoContext(ctx, "cleaning complete",
		slog.Int("rows_in", report.RowsIn),
		slog.Int("rows_out", report.RowsOut),
		slog.Int("missing_value", report.Dropped.MissingValue),
		slog.Int("duplicates", report.Dropped.Duplicate),
		slog.Int("outliers", report.Dropped.Outlier),
		slog.Int("out_of_range", report.Dropped.OutOfRange))
	return out, report, nil
}

// checkRequiredColumns fails when a required column carries no values at
// all: recovering by dropping every row would silently erase the dataset.
func (c *Cleaner) checkRequiredColumns(t *table.Table) error {
	for _, col := range t.Schema().Columns() {
		if !col.Required {
			continue
		}
		vals, err := t.Column(col.Name)
		if err != nil {
			return fault.New(fault.CodeInvalidSchema, "required column %q not declared", col.Name)
		}
		allNull := true
		for _, v := range vals {
			if !v.IsNull() {
				allNull = false
				break
			}
		}
		if allNull && t.Len() > 0 {
			return fault.New(fault.CodeInvalidSchema, "required column %q has no values", col.Name)
		}
	}
	return nil
}

func (c *Cleaner) dropIncompleteRows(t *table.Table, keep []int, report *domain.CleanReport) []int {
	cols := t.Schema().Columns()
	out := keep[:0]
	for _, i := range keep {
		row := t.Row(i)
		complete := true
		for j, col := range cols {
			if col.Required && row[j].IsNull() {
				complete = false
				break
			}
		}
		if complete {
			out = append(out, i)
		} else {
			report.Dropped.MissingValue++
		}
	}
	return out
}

func (c *Cleaner) dropDuplicateRows(t *table.Table, keep []int, report *domain.CleanReport) []int {
	seen := make(map[string]struct{}, len(keep))
	out := keep[:0]
	for _, i := range keep {
		row := t.Row(i)
		parts := make([]string, len(row))
		for j, v := range row {
			parts[j] = v.Encode()
		}
		key := strings.Join(parts, "\x1f")
		if _, dup := seen[key]; dup {
			report.Dropped.Duplicate++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, i)
	}
	return out
}

// dropOutlierRows applies IQR fencing per monitored numeric column over the
// column's non-null values; a row is dropped when any monitored column
// flags it.
func (c *Cleaner) dropOutlierRows(t *table.Table, keep []int, opts CleanOptions, report *domain.CleanReport) []int {
	type fence struct {
		idx    int
		lo, hi float64
	}
	var fences []fence

	for _, name := range opts.OutlierColumns {
		col, idx, ok := t.Schema().Lookup(name)
		if !ok || !col.Kind.IsNumeric() {
			continue
		}
		var vals []float64
		for _, i := range keep {
			if v := t.Row(i)[idx]; !v.IsNull() {
				vals = append(vals, v.AsFloat())
			}
		}
		if len(vals) < 4 {
			// Too few points for meaningful quartiles.
			continue
		}
		q1 := Quantile(vals, 0.25)
		q3 := Quantile(vals, 0.75)
		iqr := q3 - q1
		fences = append(fences, fence{
			idx: idx,
			lo:  q1 - opts.OutlierThreshold*iqr,
			hi:  q3 + opts.OutlierThreshold*iqr,
		})
	}
	if len(fences) == 0 {
		return keep
	}

	colName := func(idx int) string { return t.Schema().Columns()[idx].Name }
	out := keep[:0]
	for _, i := range keep {
		row := t.Row(i)
		flagged := false
		for _, f := range fences {
			v := row[f.idx]
			if v.IsNull() {
				continue
			}
			if x := v.AsFloat(); x < f.lo || x > f.hi {
				report.OutliersByColumn[colName(f.idx)]++
				flagged = true
			}
		}
		if flagged {
			report.Dropped.Outlier++
		} else {
			out = append(out, i)
		}
	}
	return out
}

// dropNonPositiveRows drops rows whose monitored columns carry a zero or
// negative value. Null cells pass; missing values are the validation
// step's concern.
func (c *Cleaner) dropNonPositiveRows(t *table.Table, keep []int, opts CleanOptions, report *domain.CleanReport) []int {
	var idxs []int
	for _, name := range opts.PositiveColumns {
		col, idx, ok := t.Schema().Lookup(name)
		if !ok || !col.Kind.IsNumeric() {
			continue
		}
		idxs = append(idxs, idx)
	}
	if len(idxs) == 0 {
		return keep
	}

	out := keep[:0]
	for _, i := range keep {
		row := t.Row(i)
		valid := true
		for _, idx := range idxs {
			v := row[idx]
			if v.IsNull() {
				continue
			}
			if v.AsFloat() <= 0 {
				valid = false
				break
			}
		}
		if valid {
			out = append(out, i)
		} else {
			report.Dropped.OutOfRange++
		}
	}
	return out
}

// withQualityScore appends the constant quality score column. Input that
// already carries the column, such as a re-cleaned clean artifact, passes
// through unchanged.
func (c *Cleaner) withQualityScore(t *table.Table) (*table.Table, error) {
	if t.Schema().Has(domain.ColDataQualityScore) {
		return t, nil
	}
	schema, err := t.Schema().Extend(
		table.Column{Name: domain.ColDataQualityScore, Kind: table.KindFloat, Required: false},
	)
	if err != nil {
		return nil, err
	}
	out := table.New(schema)
	for i := 0; i < t.Len(); i++ {
		row := make(table.Row, 0, schema.Len())
		row = append(row, t.Row(i)...)
		row = append(row, table.Float(1.0))
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// fillNulls replaces remaining nulls in optional columns with the
// configured per-kind default. Date columns carry no fill rule and keep
// their nulls.
func (c *Cleaner) fillNulls(t *table.Table, opts CleanOptions) {
	for idx, col := range t.Schema().Columns() {
		if col.Required {
			continue
		}
		switch {
		case col.Kind.IsNumeric():
			fill := 0.0
			if opts.NumericFill == FillMean {
				var vals []float64
				for i := 0; i < t.Len(); i++ {
					if v := t.Row(i)[idx]; !v.IsNull() {
						vals = append(vals, v.AsFloat())
					}
				}
				if len(vals) > 0 {
					fill = Mean(vals)
				}
			}
			for i := 0; i < t.Len(); i++ {
				if t.Row(i)[idx].IsNull() {
					if col.Kind == table.KindInt {
						t.Row(i)[idx] = table.Int(int64(math.Round(fill)))
					} else {
						t.Row(i)[idx] = table.Float(fill)
					}
				}
			}
		case col.Kind == table.KindString:
			for i := 0; i < t.Len(); i++ {
				if t.Row(i)[idx].IsNull() {
					t.Row(i)[idx] = table.String(opts.StringFill)
				}
			}
		}
	}
}
