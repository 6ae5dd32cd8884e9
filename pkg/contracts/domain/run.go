package domain

// Report output formats accepted by the reporter.
const (
	FormatText = "txt"
	FormatJSON = "json"
)

// RunParams is the per-invocation configuration threaded by value through
// every stage. Immutable once constructed; zero-value fields fall back to
// configuration defaults when the runner builds stage options.
type RunParams struct {
	Year    int    `json:"year" validate:"required,gt=0"`
	Verbose bool   `json:"verbose"`
	Format  string `json:"format" validate:"omitempty,oneof=txt json"`

	// Cleaner options. RemoveOutliers is a pointer so that "unset" can fall
	// back to the configured default rather than forcing false.
	RemoveOutliers   *bool   `json:"remove_outliers,omitempty"`
	OutlierThreshold float64 `json:"outlier_threshold,omitempty" validate:"omitempty,gt=0"`
}

// DropCounts breaks the cleaner's dropped rows down by reason.
type DropCounts struct {
	MissingValue int `json:"missing_value"`
	Duplicate    int `json:"duplicate"`
	Outlier      int `json:"outlier"`
	OutOfRange   int `json:"out_of_range"`
}

// Total returns the sum over all drop reasons.
func (d DropCounts) Total() int {
	return d.MissingValue + d.Duplicate + d.Outlier + d.OutOfRange
}

// CleanReport accounts for every row the cleaner saw. Invariant:
// RowsIn - RowsOut == Dropped.Total().
type CleanReport struct {
	Year    int        `json:"year"`
	RowsIn  int        `json:"rows_in"`
	RowsOut int        `json:"rows_out"`
	Dropped DropCounts `json:"dropped"`

	// OutliersByColumn counts flagged values per monitored column. A row
	// flagged by several columns is still dropped (and counted) once.
	OutliersByColumn map[string]int `json:"outliers_by_column,omitempty"`
}
