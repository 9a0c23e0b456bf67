// Package errcode enumerates stable error codes for bcndb.
// Codes let the CLI and the audit log classify failures without
// matching on error message strings.
package errcode

// Code identifies a class of error raised by bcndb components.
type Code int

const (
	UnknownError Code = iota

	// File System errors
	CreateDirError
	CopyFileError
	ReadFileError
	WriteFileError

	// Logging errors
	CreateLogFileError

	// Database errors
	DBConnectionError
	DBTableCheckError
	DBNotConnectedError
	DBTableExistsCheckError
	DBQueryTablesError
	DBScanTableError
	DBDropTableError

	// Schema errors
	SchemaGORMConnectionError
	SchemaCreateError
	SchemaMigrateError
	SchemaSeedError
	SchemaEnrichError

	// Manifest errors
	ManifestOpenError
	ManifestAppendError
	ManifestLookupError

	// Extraction errors
	ExtractSourcesConfigError
	ExtractStrategyError
	ExtractExhaustedError
	ExtractPersistError

	// Validation errors
	ValidateFKCeilingError

	// Load errors
	LoadBeginError
	LoadLockError
	LoadUpsertError
	LoadCommitError
	LoadAuditError
)

// Error pairs a Code with an underlying error. Component packages
// wrap their failures in Error via constructor functions in their
// own errors.go files.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
