package dataprocessing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/internal/table"
	"datapipe/pkg/contracts/domain"
	"datapipe/pkg/contracts/fault"
)

func featureSchema() *table.Schema {
	return table.MustSchema(
		table.Column{Name: "x", Kind: table.KindFloat, Required: true},
		table.Column{Name: "y", Kind: table.KindFloat, Required: false},
	)
}

func featureTable(t *testing.T, rows ...[2]table.Value) *table.Table {
	t.Helper()
	tbl := table.New(featureSchema())
	for _, r := range rows {
		require.NoError(t, tbl.Append(table.Row{r[0], r[1]}))
	}
	return tbl
}

func bucketSpec(edges []float64, labels []string) []FeatureSpec {
	return []FeatureSpec{{
		Name:   "x_category",
		Bucket: &BucketSpec{Column: "x", Edges: edges, Labels: labels},
	}}
}

func TestBucketAssignment(t *testing.T) {
	tests := []struct {
		name  string
		edges []float64
		x     float64
		want  string
	}{
		{name: "first bin", edges: []float64{0, 2, 4, math.Inf(1)}, x: 1, want: "low"},
		{name: "lower edge inclusive", edges: []float64{0, 2, 4, math.Inf(1)}, x: 2, want: "mid"},
		{name: "upper edge exclusive", edges: []float64{0, 2, 4, math.Inf(1)}, x: 3.999, want: "mid"},
		{name: "open top bin", edges: []float64{0, 2, 4, math.Inf(1)}, x: 1000, want: "high"},
		{name: "below range", edges: []float64{0, 2, 4, math.Inf(1)}, x: -1, want: OutOfRangeLabel},
		{name: "finite final edge closes last bin", edges: []float64{0, 2, 4}, x: 4, want: "mid"},
		{name: "above finite final edge", edges: []float64{0, 2, 4}, x: 4.5, want: OutOfRangeLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := []string{"low", "mid", "high"}[:len(tt.edges)-1]
			tbl := featureTable(t, [2]table.Value{table.Float(tt.x), table.Float(1)})

			out, err := NewBuilder(nil).BuildFeatures(context.Background(), tbl, bucketSpec(tt.edges, labels))
			require.NoError(t, err)

			v, ok := out.Value(0, "x_category")
			require.True(t, ok)
			assert.Equal(t, tt.want, v.AsString())
		})
	}
}

func TestBucketNullPropagates(t *testing.T) {
	tbl := featureTable(t, [2]table.Value{table.Null(table.KindFloat), table.Float(1)})
	specs := bucketSpec([]float64{0, 2, math.Inf(1)}, []string{"low", "high"})

	out, err := NewBuilder(nil).BuildFeatures(context.Background(), tbl, specs)
	require.NoError(t, err)

	v, _ := out.Value(0, "x_category")
	assert.True(t, v.IsNull())
}

func TestRatioDerivation(t *testing.T) {
	tbl := featureTable(t,
		[2]table.Value{table.Float(6), table.Float(2)},
		[2]table.Value{table.Float(6), table.Float(0)},
		[2]table.Value{table.Float(6), table.Null(table.KindFloat)},
	)
	specs := []FeatureSpec{{
		Name:   "x_per_y",
		Derive: &DeriveSpec{Op: DeriveRatio, Left: "x", Right: "y"},
	}}

	out, err := NewBuilder(nil).BuildFeatures(context.Background(), tbl, specs)
	require.NoError(t, err)

	v, _ := out.Value(0, "x_per_y")
	assert.InDelta(t, 3.0, v.AsFloat(), 1e-12)

	zero, _ := out.Value(1, "x_per_y")
	assert.True(t, zero.IsNull(), "zero denominator yields null, not Inf")

	null, _ := out.Value(2, "x_per_y")
	assert.True(t, null.IsNull(), "null operand propagates")
}

func TestRatioGuardAvoidsZeroDenominator(t *testing.T) {
	tbl := featureTable(t, [2]table.Value{table.Float(10), table.Float(0)})
	specs := []FeatureSpec{{
		Name:   "guarded",
		Derive: &DeriveSpec{Op: DeriveRatio, Left: "x", Right: "y", Guard: 1},
	}}

	out, err := NewBuilder(nil).BuildFeatures(context.Background(), tbl, specs)
	require.NoError(t, err)

	v, _ := out.Value(0, "guarded")
	require.False(t, v.IsNull())
	assert.InDelta(t, 10.0, v.AsFloat(), 1e-12)
}

func TestDiffAndProductDerivations(t *testing.T) {
	tbl := featureTable(t, [2]table.Value{table.Float(6), table.Float(2)})
	specs := []FeatureSpec{
		{Name: "diff", Derive: &DeriveSpec{Op: DeriveDiff, Left: "x", Right: "y"}},
		{Name: "product", Derive: &DeriveSpec{Op: DeriveProduct, Left: "x", Right: "y"}},
	}

	out, err := NewBuilder(nil).BuildFeatures(context.Background(), tbl, specs)
	require.NoError(t, err)

	d, _ := out.Value(0, "diff")
	assert.InDelta(t, 4.0, d.AsFloat(), 1e-12)
	p, _ := out.Value(0, "product")
	assert.InDelta(t, 12.0, p.AsFloat(), 1e-12)
}

func TestLogDerivation(t *testing.T) {
	tbl := featureTable(t,
		[2]table.Value{table.Float(0), table.Float(1)},
		[2]table.Value{table.Float(math.E - 1), table.Float(1)},
		[2]table.Value{table.Null(table.KindFloat), table.Float(1)},
		[2]table.Value{table.Float(-2), table.Float(1)},
	)
	specs := []FeatureSpec{{
		Name:   "x_log",
		Derive: &DeriveSpec{Op: DeriveLog, Left: "x"},
	}}

	out, err := NewBuilder(nil).BuildFeatures(context.Background(), tbl, specs)
	require.NoError(t, err)

	zero, _ := out.Value(0, "x_log")
	assert.InDelta(t, 0.0, zero.AsFloat(), 1e-12, "log1p(0) is 0")

	one, _ := out.Value(1, "x_log")
	assert.InDelta(t, 1.0, one.AsFloat(), 1e-12, "log1p(e-1) is 1")

	null, _ := out.Value(2, "x_log")
	assert.True(t, null.IsNull(), "null operand propagates")

	undef, _ := out.Value(3, "x_log")
	assert.True(t, undef.IsNull(), "log1p below -1 yields null")
}

func TestLogDerivationIgnoresRight(t *testing.T) {
	tbl := featureTable(t, [2]table.Value{table.Float(3), table.Float(1)})
	specs := []FeatureSpec{{
		Name:   "x_log",
		Derive: &DeriveSpec{Op: DeriveLog, Left: "x"},
	}}

	out, err := NewBuilder(nil).BuildFeatures(context.Background(), tbl, specs)
	require.NoError(t, err)

	v, _ := out.Value(0, "x_log")
	assert.InDelta(t, math.Log1p(3), v.AsFloat(), 1e-12)
}

func TestBuildFeaturesPreservesRowsAndColumns(t *testing.T) {
	tbl := featureTable(t,
		[2]table.Value{table.Float(1), table.Float(2)},
		[2]table.Value{table.Float(3), table.Float(4)},
	)
	specs := bucketSpec([]float64{0, 2, math.Inf(1)}, []string{"low", "high"})

	out, err := NewBuilder(nil).BuildFeatures(context.Background(), tbl, specs)
	require.NoError(t, err)

	assert.Equal(t, tbl.Len(), out.Len())
	assert.Equal(t, tbl.Schema().Len()+1, out.Schema().Len())
	v, ok := out.Value(1, "x")
	require.True(t, ok)
	assert.InDelta(t, 3.0, v.AsFloat(), 1e-12, "original columns unchanged")
}

func TestBuildFeaturesUnknownColumn(t *testing.T) {
	tbl := featureTable(t, [2]table.Value{table.Float(1), table.Float(2)})
	specs := []FeatureSpec{{
		Name:   "broken",
		Derive: &DeriveSpec{Op: DeriveRatio, Left: "x", Right: "nope"},
	}}

	_, err := NewBuilder(nil).BuildFeatures(context.Background(), tbl, specs)
	require.Error(t, err)
	assert.True(t, fault.IsCode(err, fault.CodeUnknownColumn))
}

func TestBuildFeaturesSpecValidation(t *testing.T) {
	tbl := featureTable(t, [2]table.Value{table.Float(1), table.Float(2)})

	tests := []struct {
		name string
		spec FeatureSpec
	}{
		{name: "no rule", spec: FeatureSpec{Name: "empty"}},
		{name: "both rules", spec: FeatureSpec{
			Name:   "both",
			Bucket: &BucketSpec{Column: "x", Edges: []float64{0, 1}, Labels: []string{"a"}},
			Derive: &DeriveSpec{Op: DeriveRatio, Left: "x", Right: "y"},
		}},
		{name: "label count mismatch", spec: FeatureSpec{
			Name:   "labels",
			Bucket: &BucketSpec{Column: "x", Edges: []float64{0, 1, 2}, Labels: []string{"a"}},
		}},
		{name: "non increasing edges", spec: FeatureSpec{
			Name:   "edges",
			Bucket: &BucketSpec{Column: "x", Edges: []float64{0, 2, 2}, Labels: []string{"a", "b"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(nil).BuildFeatures(context.Background(), tbl, []FeatureSpec{tt.spec})
			assert.Error(t, err)
		})
	}
}

func TestDefaultFeatureSpecsMatchHousingSchema(t *testing.T) {
	schema := domain.CleanSchema()
	featureCols := domain.FeatureSchema()
	for _, spec := range DefaultFeatureSpecs() {
		assert.True(t, featureCols.Has(spec.Name), spec.Name)
		if spec.Bucket != nil {
			assert.True(t, schema.Has(spec.Bucket.Column), spec.Name)
		}
		if spec.Derive != nil {
			assert.True(t, schema.Has(spec.Derive.Left), spec.Name)
			if spec.Derive.Op != DeriveLog {
				assert.True(t, schema.Has(spec.Derive.Right), spec.Name)
			}
		}
	}
}

func TestDefaultFeatureSpecsDeriveExpectedValues(t *testing.T) {
	tbl := table.New(domain.CleanSchema())
	require.NoError(t, tbl.Append(table.Row{
		table.Float(8.3), table.Float(41), table.Float(6.98), table.Float(1.02),
		table.Float(322), table.Float(2.55), table.Float(37.88), table.Float(-122.23),
		table.Float(4.526), table.String("coastal"), table.Int(2024),
		table.Null(table.KindDate), table.Float(1.0),
	}))

	out, err := NewBuilder(nil).BuildFeatures(context.Background(), tbl, DefaultFeatureSpecs())
	require.NoError(t, err)

	interaction, _ := out.Value(0, domain.ColIncomeAgeInteraction)
	assert.InDelta(t, 8.3*41, interaction.AsFloat(), 1e-9)

	incLog, _ := out.Value(0, domain.ColMedIncLog)
	assert.InDelta(t, math.Log1p(8.3), incLog.AsFloat(), 1e-12)
	ageLog, _ := out.Value(0, domain.ColHouseAgeLog)
	assert.InDelta(t, math.Log1p(41), ageLog.AsFloat(), 1e-12)
	roomsLog, _ := out.Value(0, domain.ColAveRoomsLog)
	assert.InDelta(t, math.Log1p(6.98), roomsLog.AsFloat(), 1e-12)
	popLog, _ := out.Value(0, domain.ColPopulationLog)
	assert.InDelta(t, math.Log1p(322), popLog.AsFloat(), 1e-12)
}
