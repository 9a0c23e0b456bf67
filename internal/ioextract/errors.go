package ioextract

import (
	"fmt"

	"github.com/barriodata/bcndb/pkg/errcode"
)

func PersistError(source, path string, err error) error {
	return &errcode.Error{
		Code: errcode.ExtractPersistError,
		Err: fmt.Errorf(
			"cannot persist raw payload for %s at %s: %w",
			source, path, err,
		),
	}
}
