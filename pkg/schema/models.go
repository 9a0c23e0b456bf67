// Package schema provides warehouse schema models for bcndb.
// The warehouse is a small star schema: two dimension tables
// (neighborhoods, time_periods), four fact tables keyed by composite
// natural keys, and an ETL audit table.
package schema

import (
	"time"
)

// Neighborhood is one row of the neighborhood dimension. Barcelona
// has exactly 73 administrative neighborhoods; the table is seeded
// once at schema bootstrap and later only enriched (nullable fields
// filled when still NULL, never overwritten).
type Neighborhood struct {
	// ID is the official municipal neighborhood code (1-73).
	ID int `gorm:"primaryKey"`

	// Name is the official neighborhood name.
	Name string `gorm:"size:100;not null"`

	// District is the administrative district the neighborhood
	// belongs to.
	District string `gorm:"size:50"`

	// DistrictID is the official district code (1-10).
	DistrictID int

	// Geometry is the serialized boundary polygon (GeoJSON), when known.
	Geometry *string

	// CentroidLon and CentroidLat are derived from Geometry by the
	// enrichment step.
	CentroidLon *float64
	CentroidLat *float64

	// AreaHa is the polygon area in hectares, derived from Geometry.
	AreaHa *float64

	// INECode is the external statistical code used by the national
	// statistics institute, filled from a static reference mapping.
	INECode *string `gorm:"size:10"`
}

func (Neighborhood) TableName() string { return "neighborhoods" }

// TimePeriod is one row of the time dimension. Year and quarter
// granularities are both materialized, without gaps, for the whole
// configured horizon.
type TimePeriod struct {
	// PeriodKey is the raw period key: "2021" or "2021-Q3".
	PeriodKey string `gorm:"primaryKey;size:10"`

	// Year is the calendar year of the period.
	Year int `gorm:"not null"`

	// Quarter is 1-4 for quarter rows, NULL for year rows.
	Quarter *int

	// Granularity is "year" or "quarter".
	Granularity string `gorm:"size:10;not null"`

	// Season is the meteorological season of the quarter midpoint,
	// empty for year rows.
	Season string `gorm:"size:10"`
}

func (TimePeriod) TableName() string { return "time_periods" }

// DemographicFact holds population counts by sex and age group.
type DemographicFact struct {
	NeighborhoodID int    `gorm:"primaryKey"`
	PeriodKey      string `gorm:"primaryKey;size:10"`
	Sex            string `gorm:"primaryKey;size:10"`
	AgeGroup       string `gorm:"primaryKey;size:20"`

	// Population is a non-negative head count.
	Population int `gorm:"not null"`

	// SourceTag names the source whose record won deduplication.
	SourceTag string `gorm:"size:50"`

	UpdatedAt time.Time
}

func (DemographicFact) TableName() string { return "demographics" }

// DemographicExtendedFact holds population counts for extended
// categories (nationality, education, household type, unemployment).
type DemographicExtendedFact struct {
	NeighborhoodID int    `gorm:"primaryKey"`
	PeriodKey      string `gorm:"primaryKey;size:10"`
	Category       string `gorm:"primaryKey;size:20"`
	CategoryValue  string `gorm:"primaryKey;size:50"`

	Population int    `gorm:"not null"`
	SourceTag  string `gorm:"size:50"`
	UpdatedAt  time.Time
}

func (DemographicExtendedFact) TableName() string {
	return "demographics_extended"
}

// HousingPriceFact holds sale and rent price observations.
type HousingPriceFact struct {
	NeighborhoodID int    `gorm:"primaryKey"`
	PeriodKey      string `gorm:"primaryKey;size:10"`
	// Tenure is "sale" or "rent".
	Tenure string `gorm:"primaryKey;size:10"`

	// PriceEURM2 is the mean sale price per square meter (sale rows).
	PriceEURM2 *float64

	// RentEURMonth is the mean monthly rent (rent rows).
	RentEURMonth *float64

	// TransactionCount is the number of observations behind the mean,
	// when the source reports it.
	TransactionCount *int

	SourceTag string `gorm:"size:50"`
	UpdatedAt time.Time
}

func (HousingPriceFact) TableName() string { return "housing_prices" }

// IncomeFact holds household income observations.
type IncomeFact struct {
	NeighborhoodID int    `gorm:"primaryKey"`
	PeriodKey      string `gorm:"primaryKey;size:10"`

	// RFDIndex is the disposable family income index (city = 100).
	RFDIndex *float64

	// IncomePerCapita is mean income per person in EUR.
	IncomePerCapita *float64

	// AggregationMethod records how census-section values were rolled
	// up to neighborhood grain: "weighted_mean", "mean" or "direct".
	AggregationMethod string `gorm:"size:20"`

	SourceTag string `gorm:"size:50"`
	UpdatedAt time.Time
}

func (IncomeFact) TableName() string { return "income" }

// ETLRun is the audit record of one pipeline execution. One row per
// run, written even when the run aborts.
type ETLRun struct {
	// RunID is a UUID assigned at run start.
	RunID string `gorm:"primaryKey;size:36"`

	StartedAt  time.Time `gorm:"not null"`
	FinishedAt time.Time

	// OverallStatus is "committed", "degraded" or "aborted".
	OverallStatus string `gorm:"size:10;not null"`

	// TableDetail is a JSON document with per-fact-table outcome:
	// rows loaded, rows excluded, completeness, validity, status.
	TableDetail string `gorm:"type:text"`
}

func (ETLRun) TableName() string { return "etl_runs" }
