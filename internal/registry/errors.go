package registry

import "errors"

// Errors for registry operations.
var (
	// ErrInvalidConfig indicates a key builder received an incomplete or
	// invalid raw configuration (e.g. missing host). Never cached.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCreationFailed wraps a factory failure for a category/key pair.
	// Never cached; the next request for the same key retries.
	ErrCreationFailed = errors.New("instance creation failed")

	// ErrClosed is returned when the registry has been shut down.
	ErrClosed = errors.New("registry closed")

	// ErrUnknownCategory indicates a snapshot request for a category the
	// registry does not manage.
	ErrUnknownCategory = errors.New("unknown service category")
)
