package domain

// NumericStats is the descriptive statistics block for one numeric column.
// Quantiles use the same linear-interpolation contract as the cleaner.
type NumericStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// ColumnStats pairs a column name with its statistics. Slices, not maps,
// keep both report formats deterministically ordered.
type ColumnStats struct {
	Column string       `json:"column"`
	Stats  NumericStats `json:"stats"`
}

// CategoryCount is one label's row count within a categorical column.
type CategoryCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CategoryBreakdown is the value distribution of one categorical column.
type CategoryBreakdown struct {
	Column string          `json:"column"`
	Counts []CategoryCount `json:"counts"`
}

// Aggregate is the single summary structure both report formats render
// from. Computing it once and rendering twice is what guarantees the
// formats describe identical values.
type Aggregate struct {
	Year        int    `json:"year"`
	GeneratedAt string `json:"generated_at"`

	RowCount     int     `json:"row_count"`
	ColumnCount  int     `json:"column_count"`
	CompleteRows int     `json:"complete_rows"`
	CompletePct  float64 `json:"complete_pct"`

	Numeric    []ColumnStats       `json:"numeric"`
	Categories []CategoryBreakdown `json:"categories"`
}
