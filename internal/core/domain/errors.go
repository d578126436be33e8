package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable marks failures reaching the vector or binding
	// storage backend. Recoverable by retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrEmbeddingFailure marks failures of the embedding collaborator.
	// Recoverable by retry.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrNotBound is the normal outcome of resolving a channel that has no
	// tenant association yet.
	ErrNotBound = errors.New("channel not bound")
	// ErrInvalidTenant marks requests naming a tenant outside the configured
	// allowlist. Rejected before the core pipeline runs.
	ErrInvalidTenant = errors.New("invalid tenant")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
