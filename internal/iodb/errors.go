package iodb

import (
	"fmt"

	"github.com/barriodata/bcndb/pkg/errcode"
)

func ConnectionError(
	host string, port int, database, user string, err error,
) error {
	return &errcode.Error{
		Code: errcode.DBConnectionError,
		Err: fmt.Errorf(
			"cannot connect to %s:%d/%s as %s: %w",
			host, port, database, user, err,
		),
	}
}

func NotConnectedError() error {
	return &errcode.Error{
		Code: errcode.DBNotConnectedError,
		Err:  fmt.Errorf("database not connected"),
	}
}

func TableExistsCheckError(table string, err error) error {
	return &errcode.Error{
		Code: errcode.DBTableExistsCheckError,
		Err: fmt.Errorf(
			"cannot check if table %s exists: %w", table, err,
		),
	}
}

func TableCheckError(err error) error {
	return &errcode.Error{
		Code: errcode.DBTableCheckError,
		Err:  fmt.Errorf("cannot check for tables: %w", err),
	}
}

func QueryTablesError(err error) error {
	return &errcode.Error{
		Code: errcode.DBQueryTablesError,
		Err:  fmt.Errorf("cannot query table list: %w", err),
	}
}

func ScanTableError(err error) error {
	return &errcode.Error{
		Code: errcode.DBScanTableError,
		Err:  fmt.Errorf("cannot scan table name: %w", err),
	}
}

func DropTableError(table string, err error) error {
	return &errcode.Error{
		Code: errcode.DBDropTableError,
		Err:  fmt.Errorf("cannot drop table %s: %w", table, err),
	}
}
