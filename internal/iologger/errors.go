package iologger

import (
	"fmt"

	"github.com/barriodata/bcndb/pkg/errcode"
)

func CreateLogFileError(path string, err error) error {
	return &errcode.Error{
		Code: errcode.CreateLogFileError,
		Err:  fmt.Errorf("cannot create log file %s: %w", path, err),
	}
}
