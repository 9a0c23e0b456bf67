package ioschema

import (
	"fmt"

	"github.com/barriodata/bcndb/pkg/errcode"
)

func GORMConnectionError(err error) error {
	return &errcode.Error{
		Code: errcode.SchemaGORMConnectionError,
		Err:  fmt.Errorf("cannot connect for schema management: %w", err),
	}
}

func CreateError(err error) error {
	return &errcode.Error{
		Code: errcode.SchemaCreateError,
		Err:  fmt.Errorf("cannot create schema: %w", err),
	}
}

func MigrateError(err error) error {
	return &errcode.Error{
		Code: errcode.SchemaMigrateError,
		Err:  fmt.Errorf("cannot migrate schema: %w", err),
	}
}

func SeedError(table string, err error) error {
	return &errcode.Error{
		Code: errcode.SchemaSeedError,
		Err:  fmt.Errorf("cannot seed %s: %w", table, err),
	}
}

func EnrichError(what string, err error) error {
	return &errcode.Error{
		Code: errcode.SchemaEnrichError,
		Err:  fmt.Errorf("cannot enrich %s: %w", what, err),
	}
}
