package topology

import (
	"errors"
)

var (
	// ErrShortReference means the reference cannot hold a single module
	// and its successor window.
	ErrShortReference = errors.New("reference is too short")

	// ErrMissingKmer means the pore model has no entry for a canonical
	// k-mer of the reference.
	ErrMissingKmer = errors.New("k-mer missing from pore model")

	// ErrConcentration means the analogue concentration is not in [0, 1].
	ErrConcentration = errors.New("analogue concentration out of range")

	// ErrCompile wraps any failure reported by a Runtime.
	ErrCompile = errors.New("runtime rejected topology")
)
