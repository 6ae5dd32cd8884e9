package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind Kind
		want Value
	}{
		{name: "int", raw: "42", kind: KindInt, want: Int(42)},
		{name: "int from float form", raw: "2024.0", kind: KindInt, want: Int(2024)},
		{name: "int garbage", raw: "abc", kind: KindInt, want: Null(KindInt)},
		{name: "int fractional float", raw: "2024.5", kind: KindInt, want: Null(KindInt)},
		{name: "float", raw: "3.14", kind: KindFloat, want: Float(3.14)},
		{name: "float garbage", raw: "n/a", kind: KindFloat, want: Null(KindFloat)},
		{name: "string", raw: "coastal", kind: KindString, want: String("coastal")},
		{name: "date", raw: "2024-05-01", kind: KindDate, want: Date(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))},
		{name: "date garbage", raw: "05/01/2024", kind: KindDate, want: Null(KindDate)},
		{name: "empty is null", raw: "", kind: KindFloat, want: Null(KindFloat)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw, tt.kind)
			assert.True(t, got.Equal(tt.want), "got %#v, want %#v", got, tt.want)
		})
	}
}

func TestValueEncodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    Value
	}{
		{name: "int", v: Int(-7)},
		{name: "float", v: Float(8.3252)},
		{name: "string", v: String("inland")},
		{name: "date", v: Date(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))},
		{name: "null", v: Null(KindFloat)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			back := Parse(tt.v.Encode(), tt.v.Kind())
			assert.True(t, back.Equal(tt.v))
		})
	}
}

func TestAsFloatConvertsInt(t *testing.T) {
	assert.Equal(t, 5.0, Int(5).AsFloat())
	assert.Equal(t, 2.5, Float(2.5).AsFloat())
}

func TestNewSchemaRejectsDuplicates(t *testing.T) {
	_, err := NewSchema(
		Column{Name: "a", Kind: KindInt},
		Column{Name: "a", Kind: KindFloat},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestSchemaExtend(t *testing.T) {
	base := MustSchema(Column{Name: "a", Kind: KindInt})
	ext, err := base.Extend(Column{Name: "b", Kind: KindString})
	require.NoError(t, err)
	assert.Equal(t, 2, ext.Len())
	assert.Equal(t, 1, base.Len(), "extend must not mutate the base schema")
	assert.True(t, ext.Has("b"))
	assert.False(t, base.Has("b"))
}

func TestTableAppendValidation(t *testing.T) {
	schema := MustSchema(
		Column{Name: "n", Kind: KindInt, Required: true},
		Column{Name: "s", Kind: KindString},
	)
	tbl := New(schema)

	require.NoError(t, tbl.Append(Row{Int(1), String("x")}))

	err := tbl.Append(Row{Int(1)})
	require.Error(t, err, "arity mismatch")

	err = tbl.Append(Row{String("1"), String("x")})
	require.Error(t, err, "kind mismatch")
	assert.Contains(t, err.Error(), "cell kind")

	assert.Equal(t, 1, tbl.Len())
}

func TestConstantInt(t *testing.T) {
	schema := MustSchema(Column{Name: "year", Kind: KindInt, Required: true})

	tbl := New(schema)
	require.NoError(t, tbl.Append(Row{Int(2024)}))
	require.NoError(t, tbl.Append(Row{Null(KindInt)}))
	require.NoError(t, tbl.Append(Row{Int(2024)}))

	c, err := tbl.ConstantInt("year")
	require.NoError(t, err)
	assert.Equal(t, int64(2024), c)

	require.NoError(t, tbl.Append(Row{Int(2025)}))
	_, err = tbl.ConstantInt("year")
	assert.Error(t, err)
}
