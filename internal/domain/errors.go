package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ingestion and query paths. Handlers match these
// with errors.Is to choose an HTTP status.
var (
	// ErrNoDataset means no ingestion has ever succeeded.
	ErrNoDataset = errors.New("no dataset available")

	// ErrEmptyDataset means an ingestion attempt produced zero usable
	// records; the previous dataset, if any, is left untouched.
	ErrEmptyDataset = errors.New("ingestion produced no usable records")

	// ErrUnsupportedFormat means the uploaded file extension is not one we
	// can read.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrParse means the uploaded file could not be read at all.
	ErrParse = errors.New("file could not be parsed")

	// ErrNotConnected means refresh was invoked with no stored credentials.
	ErrNotConnected = errors.New("no tracker connection configured")

	// ErrInvalidCredentials means the credential shape failed the local
	// necessary-not-sufficient checks before any live call.
	ErrInvalidCredentials = errors.New("invalid tracker credentials")

	// ErrTrackerAuth means the remote tracker rejected the credentials.
	ErrTrackerAuth = errors.New("tracker rejected credentials")

	// ErrTrackerTimeout means an outbound tracker call exceeded its
	// deadline. Retrying is the caller's decision.
	ErrTrackerTimeout = errors.New("tracker call timed out")

	// ErrTrackerUnreachable covers network-level failures other than
	// timeouts.
	ErrTrackerUnreachable = errors.New("tracker unreachable")
)

// NormalizationError reports a single malformed record. It is non-fatal:
// the record is skipped and the skip counted.
type NormalizationError struct {
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize: field %q: %s", e.Field, e.Reason)
}
