package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mossforge/moss/pkg/hashstore"
	"github.com/mossforge/moss/pkg/repo"
	"github.com/mossforge/moss/pkg/resolver"
	"github.com/mossforge/moss/pkg/root"
	"github.com/mossforge/moss/pkg/stone"
	"github.com/mossforge/moss/pkg/transaction"
	"github.com/mossforge/moss/pkg/types"
)

func TestExitCodeForNil(t *testing.T) {
	require.Equal(t, exitSuccess, exitCodeFor(nil))
}

func TestExitCodeForLockContention(t *testing.T) {
	require.Equal(t, exitLockContention, exitCodeFor(root.ErrRootLocked))
	require.Equal(t, exitLockContention, exitCodeFor(fmt.Errorf("wrap: %w", root.ErrRootLocked)))
}

func TestExitCodeForIntegrityFailures(t *testing.T) {
	require.Equal(t, exitIntegrityFailed, exitCodeFor(repo.ErrIntegrityFailure))
	require.Equal(t, exitIntegrityFailed, exitCodeFor(stone.ErrChecksumMismatch))
	require.Equal(t, exitIntegrityFailed, exitCodeFor(hashstore.ErrHashMismatch))
}

func TestExitCodeForPlanningFailures(t *testing.T) {
	require.Equal(t, exitTransactionFailed, exitCodeFor(resolver.ErrProviderNotFound))

	pnf := &resolver.ProviderNotFoundError{Kind: types.KindSharedLibrary, Value: "libc.so.6"}
	require.Equal(t, exitTransactionFailed, exitCodeFor(pnf))

	conflict := &resolver.ConflictError{
		Package:  &types.Package{Name: "a"},
		Conflict: &types.Package{Name: "b"},
		Value:    "some-capability",
	}
	require.Equal(t, exitTransactionFailed, exitCodeFor(conflict))

	pathConflict := &transaction.PathConflictError{Path: "bin/foo"}
	require.Equal(t, exitTransactionFailed, exitCodeFor(pathConflict))
}

func TestExitCodeForAbortedUnwrapsInnerError(t *testing.T) {
	aborted := &transaction.AbortedError{Err: root.ErrRootLocked}
	require.Equal(t, exitLockContention, exitCodeFor(aborted))
}

func TestExitCodeForUnknownErrorIsUserError(t *testing.T) {
	require.Equal(t, exitUserError, exitCodeFor(errors.New("boom")))
}
