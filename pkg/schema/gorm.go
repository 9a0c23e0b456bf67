package schema

import (
	"gorm.io/gorm"
)

// FactTables lists the fact table names in load order.
var FactTables = []string{
	"demographics",
	"demographics_extended",
	"housing_prices",
	"income",
}

// AllModels returns all schema models for GORM AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&Neighborhood{},
		&TimePeriod{},
		&DemographicFact{},
		&DemographicExtendedFact{},
		&HousingPriceFact{},
		&IncomeFact{},
		&ETLRun{},
	}
}

// Migrate runs GORM AutoMigrate to create or update schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
