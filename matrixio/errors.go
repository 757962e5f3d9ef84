// Package matrixio persists large multidimensional numerical arrays
// produced by distributed computations into portable NetCDF containers
// and retrieves them later with exact shape validation.
//
// The layer supports partial writes and reads: each worker in a process
// group contributes or reads one rectangular sub-region (a hyperslab) of
// a larger logical array, and in-memory buffers may be interleaved so
// that paired channels (for example real and imaginary components) can
// be written with separate calls. The on-disk encoding is delegated to
// github.com/ctessum/cdf; this package owns the index-space translation
// between local buffers and global array coordinates, and the collective
// create/publish/barrier/open protocol that keeps a worker group
// consistent.
package matrixio

import "errors"

// Common errors. ErrValidation and ErrResource are the two fatal error
// categories; every error returned by this package wraps one of the
// sentinels below and can be tested with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrResource   = errors.New("resource failure")
	ErrClosed     = errors.New("handle is closed")
	ErrReadOnly   = errors.New("container is read-only")
	ErrNotFound   = errors.New("object not found")
)
