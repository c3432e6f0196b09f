package dataset

import "errors"

// Sentinel errors forming the engine's error taxonomy. Callers classify
// per-family failures with errors.Is against these values.
var (
	// ErrInvalidConfiguration indicates a bad date range, missing seed, or
	// unsupported mode. Fatal to the whole run; nothing is generated.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnknownFamily indicates a registry lookup with an unrecognised family name.
	ErrUnknownFamily = errors.New("unknown dataset family")

	// ErrUnknownSection indicates a reference lookup with an unrecognised section code.
	ErrUnknownSection = errors.New("unknown laboratory section")

	// ErrUnknownCategory indicates a reference lookup with an unrecognised test category.
	ErrUnknownCategory = errors.New("unknown test category")

	// ErrSchemaMismatch indicates a model-based source table whose columns do
	// not satisfy the expected family schema.
	ErrSchemaMismatch = errors.New("source table schema mismatch")

	// ErrValidationFailure indicates generated data violated a declared invariant.
	ErrValidationFailure = errors.New("dataset validation failure")

	// ErrPersistenceFailure indicates an I/O error while writing output artifacts.
	ErrPersistenceFailure = errors.New("dataset persistence failure")
)
