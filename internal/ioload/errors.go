package ioload

import (
	"fmt"

	"github.com/barriodata/bcndb/pkg/errcode"
)

func RefSetsError(dimension string, err error) error {
	return &errcode.Error{
		Code: errcode.DBTableCheckError,
		Err: fmt.Errorf(
			"cannot fetch %s dimension keys: %w", dimension, err,
		),
	}
}

func BeginError(table string, err error) error {
	return &errcode.Error{
		Code: errcode.LoadBeginError,
		Err: fmt.Errorf(
			"cannot begin load transaction for %s: %w", table, err,
		),
	}
}

func LockError(table string, err error) error {
	return &errcode.Error{
		Code: errcode.LoadLockError,
		Err: fmt.Errorf(
			"cannot acquire advisory lock for %s: %w", table, err,
		),
	}
}

func UpsertError(table string, err error) error {
	return &errcode.Error{
		Code: errcode.LoadUpsertError,
		Err:  fmt.Errorf("cannot upsert into %s: %w", table, err),
	}
}

func CommitError(table string, err error) error {
	return &errcode.Error{
		Code: errcode.LoadCommitError,
		Err: fmt.Errorf(
			"cannot commit load transaction for %s: %w", table, err,
		),
	}
}

func AuditError(err error) error {
	return &errcode.Error{
		Code: errcode.LoadAuditError,
		Err:  fmt.Errorf("cannot write audit record: %w", err),
	}
}
