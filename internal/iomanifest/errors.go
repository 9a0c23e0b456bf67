package iomanifest

import (
	"fmt"

	"github.com/barriodata/bcndb/pkg/errcode"
)

func OpenError(path string, err error) error {
	return &errcode.Error{
		Code: errcode.ManifestOpenError,
		Err:  fmt.Errorf("cannot open manifest %s: %w", path, err),
	}
}

func AppendError(source string, err error) error {
	return &errcode.Error{
		Code: errcode.ManifestAppendError,
		Err: fmt.Errorf(
			"cannot append manifest entry for %s: %w", source, err,
		),
	}
}

func LookupError(source string, err error) error {
	return &errcode.Error{
		Code: errcode.ManifestLookupError,
		Err: fmt.Errorf(
			"cannot read manifest for %s: %w", source, err,
		),
	}
}
