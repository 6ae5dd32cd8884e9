package domain

import "datapipe/internal/table"

// Column names of the yearly housing dataset flowing through the pipeline.
const (
	ColMedInc         = "med_inc"
	ColHouseAge       = "house_age"
	ColAveRooms       = "ave_rooms"
	ColAveBedrms      = "ave_bedrms"
	ColPopulation     = "population"
	ColAveOccup       = "ave_occup"
	ColLatitude       = "latitude"
	ColLongitude      = "longitude"
	ColMedHouseVal    = "med_house_val"
	ColRegion         = "region"
	ColYear           = "year"
	ColExtractionDate = "extraction_date"
)

// ColDataQualityScore is stamped on every row that survives cleaning.
const ColDataQualityScore = "data_quality_score"

// Feature column names added by the feature builder.
const (
	ColIncomeCategory       = "income_category"
	ColHouseAgeCategory     = "house_age_category"
	ColRoomsPerHousehold    = "rooms_per_household"
	ColPopulationDensity    = "population_density"
	ColIncomePerCapita      = "income_per_capita"
	ColBedroomRatio         = "bedroom_ratio"
	ColIncomeAgeInteraction = "income_age_interaction"
	ColMedIncLog            = "med_inc_log"
	ColHouseAgeLog          = "house_age_log"
	ColAveRoomsLog          = "ave_rooms_log"
	ColPopulationLog        = "population_log"
)

// SourceSchema describes the upstream dataset: the housing measurements plus
// the year key used to select one run's slice.
func SourceSchema() *table.Schema {
	return table.MustSchema(
		table.Column{Name: ColMedInc, Kind: table.KindFloat, Required: true},
		table.Column{Name: ColHouseAge, Kind: table.KindFloat, Required: true},
		table.Column{Name: ColAveRooms, Kind: table.KindFloat, Required: true},
		table.Column{Name: ColAveBedrms, Kind: table.KindFloat, Required: true},
		table.Column{Name: ColPopulation, Kind: table.KindFloat, Required: true},
		table.Column{Name: ColAveOccup, Kind: table.KindFloat, Required: true},
		table.Column{Name: ColLatitude, Kind: table.KindFloat, Required: false},
		table.Column{Name: ColLongitude, Kind: table.KindFloat, Required: false},
		table.Column{Name: ColMedHouseVal, Kind: table.KindFloat, Required: true},
		table.Column{Name: ColRegion, Kind: table.KindString, Required: false},
		table.Column{Name: ColYear, Kind: table.KindInt, Required: true},
	)
}

// RawSchema is the raw artifact layout: the source columns stamped with the
// extraction date.
func RawSchema() *table.Schema {
	s, err := SourceSchema().Extend(
		table.Column{Name: ColExtractionDate, Kind: table.KindDate, Required: false},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// CleanSchema is the clean artifact layout: the raw columns plus the
// quality score the cleaner stamps on surviving rows.
func CleanSchema() *table.Schema {
	s, err := RawSchema().Extend(
		table.Column{Name: ColDataQualityScore, Kind: table.KindFloat, Required: false},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// FeatureSchema is the features artifact layout: the clean columns plus the
// columns added by the default feature set.
func FeatureSchema() *table.Schema {
	s, err := CleanSchema().Extend(
		table.Column{Name: ColIncomeCategory, Kind: table.KindString, Required: false},
		table.Column{Name: ColHouseAgeCategory, Kind: table.KindString, Required: false},
		table.Column{Name: ColRoomsPerHousehold, Kind: table.KindFloat, Required: false},
		table.Column{Name: ColPopulationDensity, Kind: table.KindFloat, Required: false},
		table.Column{Name: ColIncomePerCapita, Kind: table.KindFloat, Required: false},
		table.Column{Name: ColBedroomRatio, Kind: table.KindFloat, Required: false},
		table.Column{Name: ColIncomeAgeInteraction, Kind: table.KindFloat, Required: false},
		table.Column{Name: ColMedIncLog, Kind: table.KindFloat, Required: false},
		table.Column{Name: ColHouseAgeLog, Kind: table.KindFloat, Required: false},
		table.Column{Name: ColAveRoomsLog, Kind: table.KindFloat, Required: false},
		table.Column{Name: ColPopulationLog, Kind: table.KindFloat, Required: false},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// DefaultOutlierColumns are the numeric columns monitored by IQR fencing
// unless overridden by configuration.
func DefaultOutlierColumns() []string {
	return []string{ColMedHouseVal}
}

// DefaultPositiveColumns are the numeric columns whose rows must carry a
// strictly positive value to survive cleaning.
func DefaultPositiveColumns() []string {
	return []string{ColAveRooms, ColPopulation}
}
