// Package ioschema manages the warehouse schema: creation via GORM
// AutoMigrate, dimension seeding and idempotent enrichment of the
// neighborhood dimension.
package ioschema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/barriodata/bcndb/pkg/bcndb"
	"github.com/barriodata/bcndb/pkg/config"
	"github.com/barriodata/bcndb/pkg/schema"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type manager struct {
	cfg *config.Config

	// ineCodes maps neighborhood codes to external statistical codes.
	// Loaded from the embedded reference file by the caller.
	ineCodes map[int]string
}

// New creates the schema manager.
func New(cfg *config.Config, ineCodes map[int]string) bcndb.SchemaManager {
	return &manager{cfg: cfg, ineCodes: ineCodes}
}

func (m *manager) connect(ctx context.Context) (*gorm.DB, error) {
	c := m.cfg.Database
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, GORMConnectionError(err)
	}
	return gdb.WithContext(ctx), nil
}

func closeDB(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.Close()
	}
}

// Create creates all warehouse tables and seeds the two dimension
// tables. Safe to run repeatedly: existing dimension rows are left
// untouched.
func (m *manager) Create(ctx context.Context) error {
	gdb, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer closeDB(gdb)

	if err := schema.Migrate(gdb); err != nil {
		return CreateError(err)
	}

	if err := m.seed(gdb); err != nil {
		return err
	}

	slog.Info("schema created",
		"tables", len(schema.AllModels()),
		"neighborhoods", len(schema.Neighborhoods()),
	)
	return nil
}

// Migrate updates the schema to the latest version without touching
// dimension data.
func (m *manager) Migrate(ctx context.Context) error {
	gdb, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer closeDB(gdb)

	if err := schema.Migrate(gdb); err != nil {
		return MigrateError(err)
	}

	slog.Info("schema migrated")
	return nil
}

func (m *manager) seed(gdb *gorm.DB) error {
	hoods := schema.Neighborhoods()
	err := gdb.Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(hoods, 100).Error
	if err != nil {
		return SeedError("neighborhoods", err)
	}

	periods := schema.TimePeriods(
		m.cfg.Extract.YearFrom, m.cfg.Extract.YearTo)
	err = gdb.Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(periods, 500).Error
	if err != nil {
		return SeedError("time_periods", err)
	}

	return nil
}

// Enrich fills missing neighborhood attributes. Each attribute is
// only written where it is still NULL, so hand-corrected values
// survive re-runs.
func (m *manager) Enrich(ctx context.Context) error {
	gdb, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer closeDB(gdb)

	var codesFilled int
	for id, code := range m.ineCodes {
		res := gdb.Model(&schema.Neighborhood{}).
			Where("id = ? AND ine_code IS NULL", id).
			Update("ine_code", code)
		if res.Error != nil {
			return EnrichError("ine_code", res.Error)
		}
		codesFilled += int(res.RowsAffected)
	}

	// derive centroid and area from stored boundary polygons
	var hoods []schema.Neighborhood
	err = gdb.
		Where("geometry IS NOT NULL").
		Where("centroid_lon IS NULL OR centroid_lat IS NULL OR area_ha IS NULL").
		Find(&hoods).Error
	if err != nil {
		return EnrichError("geometry", err)
	}

	var geomFilled int
	for _, h := range hoods {
		if h.Geometry == nil {
			continue
		}
		lon, lat, areaHa, gErr := geometryDerived(*h.Geometry)
		if gErr != nil {
			slog.Warn("cannot derive geometry attributes",
				"neighborhood", h.ID, "error", gErr)
			continue
		}

		updates := map[string]any{}
		if h.CentroidLon == nil {
			updates["centroid_lon"] = lon
		}
		if h.CentroidLat == nil {
			updates["centroid_lat"] = lat
		}
		if h.AreaHa == nil {
			updates["area_ha"] = areaHa
		}
		res := gdb.Model(&schema.Neighborhood{}).
			Where("id = ?", h.ID).
			Updates(updates)
		if res.Error != nil {
			return EnrichError("geometry", res.Error)
		}
		geomFilled++
	}

	slog.Info("neighborhood dimension enriched",
		"ine_codes_filled", codesFilled,
		"geometries_derived", geomFilled,
	)
	return nil
}
