package iofs

import (
	"fmt"

	"github.com/barriodata/bcndb/pkg/errcode"
)

func CreateDirError(dir string, err error) error {
	return &errcode.Error{
		Code: errcode.CreateDirError,
		Err:  fmt.Errorf("cannot create directory %s: %w", dir, err),
	}
}

func CopyFileError(path string, err error) error {
	return &errcode.Error{
		Code: errcode.CopyFileError,
		Err:  fmt.Errorf("cannot write file %s: %w", path, err),
	}
}

func ReadFileError(path string, err error) error {
	return &errcode.Error{
		Code: errcode.ReadFileError,
		Err:  fmt.Errorf("cannot read %s: %w", path, err),
	}
}
