package main

import (
	"errors"

	"github.com/mossforge/moss/pkg/hashstore"
	"github.com/mossforge/moss/pkg/repo"
	"github.com/mossforge/moss/pkg/resolver"
	"github.com/mossforge/moss/pkg/root"
	"github.com/mossforge/moss/pkg/stone"
	"github.com/mossforge/moss/pkg/transaction"
)

// exitCodeFor maps an operation's error to the exit codes spec.md §6.2
// defines, unwrapping AbortedError to classify the failure underneath.
func exitCodeFor(err error) int {
	if err == nil {
		return exitSuccess
	}

	var aborted *transaction.AbortedError
	if errors.As(err, &aborted) {
		return exitCodeFor(aborted.Err)
	}

	switch {
	case errors.Is(err, root.ErrRootLocked):
		return exitLockContention
	case errors.Is(err, repo.ErrIntegrityFailure),
		errors.Is(err, stone.ErrChecksumMismatch),
		errors.Is(err, hashstore.ErrHashMismatch):
		return exitIntegrityFailed
	case errors.Is(err, resolver.ErrProviderNotFound):
		return exitTransactionFailed
	}

	var conflict *resolver.ConflictError
	var pathConflict *transaction.PathConflictError
	if errors.As(err, &conflict) || errors.As(err, &pathConflict) {
		return exitTransactionFailed
	}

	return exitUserError
}
