package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"datapipe/internal/table"
	"datapipe/pkg/contracts/domain"
	"datapipe/pkg/contracts/fault"
)

// OutOfRangeLabel is assigned to bucketed values that fall outside every
// bin. Bucketing is total: out-of-range is a label, not an error.
const OutOfRangeLabel = "out_of_range"

// DeriveOp names a combination-feature operation.
type DeriveOp string

const (
	DeriveRatio   DeriveOp = "ratio"
	DeriveDiff    DeriveOp = "diff"
	DeriveProduct DeriveOp = "product"
	DeriveConcat  DeriveOp = "concat"
	DeriveLog     DeriveOp = "log"
)

// BucketSpec bins a numeric column into ordered, labelled intervals.
// Edges must be strictly increasing; the first edge may be -Inf and the
// last +Inf. Each bin is half-open [edge[i], edge[i+1]); a value equal to a
// finite final edge closes into the last bin.
type BucketSpec struct {
	Column string
	Edges  []float64
	Labels []string
}

// DeriveSpec combines existing columns into a new one with a deterministic
// per-row function; it must not depend on row order or on other rows.
// Guard is added to the denominator of ratio features to avoid division by
// zero. The log op is unary, log(1+x) of Left, and leaves Right empty.
type DeriveSpec struct {
	Op    DeriveOp
	Left  string
	Right string
	Guard float64
}

// FeatureSpec is one named derivation rule: exactly one of Bucket or
// Derive is set.
type FeatureSpec struct {
	Name   string
	Bucket *BucketSpec
	Derive *DeriveSpec
}

// DefaultFeatureSpecs is the static feature set of this pipeline version.
func DefaultFeatureSpecs() []FeatureSpec {
	return []FeatureSpec{
		{
			Name: domain.ColIncomeCategory,
			Bucket: &BucketSpec{
				Column: domain.ColMedInc,
				Edges:  []float64{0, 3, 5, 7, math.Inf(1)},
				Labels: []string{"low", "medium", "high", "very_high"},
			},
		},
		{
			Name: domain.ColHouseAgeCategory,
			Bucket: &BucketSpec{
				Column: domain.ColHouseAge,
				Edges:  []float64{0, 10, 25, 40, math.Inf(1)},
				Labels: []string{"new", "modern", "old", "very_old"},
			},
		},
		{
			Name:   domain.ColRoomsPerHousehold,
			Derive: &DeriveSpec{Op: DeriveRatio, Left: domain.ColAveRooms, Right: domain.ColAveBedrms},
		},
		{
			Name:   domain.ColPopulationDensity,
			Derive: &DeriveSpec{Op: DeriveRatio, Left: domain.ColPopulation, Right: domain.ColAveOccup, Guard: 1},
		},
		{
			Name:   domain.ColIncomePerCapita,
			Derive: &DeriveSpec{Op: DeriveRatio, Left: domain.ColMedInc, Right: domain.ColAveOccup},
		},
		{
			Name:   domain.ColBedroomRatio,
			Derive: &DeriveSpec{Op: DeriveRatio, Left: domain.ColAveBedrms, Right: domain.ColAveRooms, Guard: 0.01},
		},
		{
			Name:   domain.ColIncomeAgeInteraction,
			Derive: &DeriveSpec{Op: DeriveProduct, Left: domain.ColMedInc, Right: domain.ColHouseAge},
		},
		{
			Name:   domain.ColMedIncLog,
			Derive: &DeriveSpec{Op: DeriveLog, Left: domain.ColMedInc},
		},
		{
			Name:   domain.ColHouseAgeLog,
			Derive: &DeriveSpec{Op: DeriveLog, Left: domain.ColHouseAge},
		},
		{
			Name:   domain.ColAveRoomsLog,
			Derive: &DeriveSpec{Op: DeriveLog, Left: domain.ColAveRooms},
		},
		{
			Name:   domain.ColPopulationLog,
			Derive: &DeriveSpec{Op: DeriveLog, Left: domain.ColPopulation},
		},
	}
}

// Builder derives feature columns from a cleaned table.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a feature builder.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger}
}

// BuildFeatures applies the specs to the table and returns a new table with
// the original columns plus one column per spec, same row count. A spec
// referencing an undeclared column fails with unknown_column.
func (b *Builder) BuildFeatures(ctx context.Context, t *table.Table, specs []FeatureSpec) (*table.Table, error) {
	cols := make([]table.Column, 0, len(specs))
	for _, spec := range specs {
		if err := b.validateSpec(t.Schema(), spec); err != nil {
			return nil, err
		}
		cols = append(cols, table.Column{Name: spec.Name, Kind: spec.kind()})
	}

	schema, err := t.Schema().Extend(cols...)
	if err != nil {
		return nil, fmt.Errorf("extend schema: %w", err)
	}

	out := table.New(schema)
	for i := 0; i < t.Len(); i++ {
		src := t.Row(i)
		row := make(table.Row, 0, schema.Len())
		row = append(row, src...)
		for _, spec := range specs {
			row = append(row, b.derive(t, i, spec))
		}
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}

	b.logger.InfoContext(ctx, "features built",
		slog.Int("rows", out.Len()),
		slog.Int("columns_in", t.Schema().Len()),
		slog.Int("features_added", len(specs)))
	return out, nil
}

// kind returns the value kind the spec produces.
func (s FeatureSpec) kind() table.Kind {
	switch {
	case s.Bucket != nil:
		return table.KindString
	case s.Derive != nil && s.Derive.Op == DeriveConcat:
		return table.KindString
	default:
		return table.KindFloat
	}
}

func (b *Builder) validateSpec(schema *table.Schema, spec FeatureSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("feature spec without a name")
	}
	if (spec.Bucket == nil) == (spec.Derive == nil) {
		return fmt.Errorf("feature %q: exactly one of bucket or derive must be set", spec.Name)
	}

	if bs := spec.Bucket; bs != nil {
		if !schema.Has(bs.Column) {
			return fault.New(fault.CodeUnknownColumn, "feature %q references column %q", spec.Name, bs.Column)
		}
		if len(bs.Edges) < 2 {
			return fmt.Errorf("feature %q: need at least two bin edges", spec.Name)
		}
		if len(bs.Labels) != len(bs.Edges)-1 {
			return fmt.Errorf("feature %q: %d labels for %d edges", spec.Name, len(bs.Labels), len(bs.Edges))
		}
		for i := 1; i < len(bs.Edges); i++ {
			if bs.Edges[i] <= bs.Edges[i-1] {
				return fmt.Errorf("feature %q: bin edges not strictly increasing", spec.Name)
			}
		}
		return nil
	}

	ds := spec.Derive
	cols := []string{ds.Left, ds.Right}
	if ds.Op == DeriveLog {
		cols = cols[:1]
	}
	for _, col := range cols {
		if !schema.Has(col) {
			return fault.New(fault.CodeUnknownColumn, "feature %q references column %q", spec.Name, col)
		}
	}
	return nil
}

func (b *Builder) derive(t *table.Table, row int, spec FeatureSpec) table.Value {
	if spec.Bucket != nil {
		v, _ := t.Value(row, spec.Bucket.Column)
		return bucketValue(v, spec.Bucket)
	}

	ds := spec.Derive
	left, _ := t.Value(row, ds.Left)

	if ds.Op == DeriveLog {
		if left.IsNull() {
			return table.Null(table.KindFloat)
		}
		x := math.Log1p(left.AsFloat())
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return table.Null(table.KindFloat)
		}
		return table.Float(x)
	}

	right, _ := t.Value(row, ds.Right)

	if ds.Op == DeriveConcat {
		if left.IsNull() || right.IsNull() {
			return table.Null(table.KindString)
		}
		return table.String(left.Encode() + "_" + right.Encode())
	}

	if left.IsNull() || right.IsNull() {
		return table.Null(table.KindFloat)
	}
	l, r := left.AsFloat(), right.AsFloat()
	switch ds.Op {
	case DeriveRatio:
		den := r + ds.Guard
		if den == 0 {
			return table.Null(table.KindFloat)
		}
		return table.Float(l / den)
	case DeriveDiff:
		return table.Float(l - r)
	case DeriveProduct:
		return table.Float(l * r)
	default:
		return table.Null(table.KindFloat)
	}
}

// bucketValue assigns the half-open bin for v. Null in, null out.
func bucketValue(v table.Value, bs *BucketSpec) table.Value {
	if v.IsNull() {
		return table.Null(table.KindString)
	}
	x := v.AsFloat()
	last := len(bs.Edges) - 1
	for i := 0; i < last; i++ {
		if x >= bs.Edges[i] && x < bs.Edges[i+1] {
			return table.String(bs.Labels[i])
		}
	}
	// A value equal to a finite final edge closes into the last bucket.
	if !math.IsInf(bs.Edges[last], 1) && x == bs.Edges[last] {
		return table.String(bs.Labels[last-1])
	}
	return table.String(OutOfRangeLabel)
}
