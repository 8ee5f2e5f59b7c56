package transaction

import (
	"fmt"
	"os"
	"sort"

	"github.com/mossforge/moss/pkg/types"
)

// Sweep removes state rows beyond retention (oldest first, excluding the
// active state) along with their retained root directories, then deletes
// any blob no longer referenced by a surviving state's layout entries.
// Called on demand from the CLI's `sweep` command, per spec.md §4.5's
// "optional, triggered by CLI" closing note.
func (e *Engine) Sweep() (removedStates int, removedBlobs int, err error) {
	if err := e.root.Lock(); err != nil {
		return 0, 0, err
	}
	defer e.root.Unlock()

	activeID, err := e.root.ActiveStateID()
	if err != nil {
		return 0, 0, fmt.Errorf("transaction: sweep: read active state: %w", err)
	}

	states, err := e.state.List()
	if err != nil {
		return 0, 0, fmt.Errorf("transaction: sweep: list states: %w", err)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID > states[j].ID })

	retention := e.retention
	if retention <= 0 {
		retention = 1
	}

	kept := 0
	var toDelete []*types.State
	for _, s := range states {
		if s.ID == activeID {
			continue
		}
		if kept < retention {
			kept++
			continue
		}
		toDelete = append(toDelete, s)
	}

	for _, s := range toDelete {
		if err := os.RemoveAll(e.root.StateDir(s.ID)); err != nil {
			return removedStates, 0, fmt.Errorf("transaction: sweep: remove root for state %d: %w", s.ID, err)
		}
		if err := e.state.Delete(s.ID); err != nil {
			return removedStates, 0, fmt.Errorf("transaction: sweep: delete state %d: %w", s.ID, err)
		}
		removedStates++
	}

	if err := e.purgeUnreachablePackages(toDelete, states); err != nil {
		return removedStates, 0, err
	}

	referenced, err := e.layout.AllContentHashes()
	if err != nil {
		return removedStates, 0, fmt.Errorf("transaction: sweep: enumerate referenced blobs: %w", err)
	}
	removedBlobs, err = e.store.Sweep(referenced)
	if err != nil {
		return removedStates, removedBlobs, fmt.Errorf("transaction: sweep: reclaim blobs: %w", err)
	}

	e.logger.Info().Int("states", removedStates).Int("blobs", removedBlobs).Msg("sweep complete")
	return removedStates, removedBlobs, nil
}

// purgeUnreachablePackages drops Layout and Metadata DB rows for any
// package no longer selected by a surviving state, now that deleted has
// been removed from the State DB. A package reachable from any remaining
// state (including via an old selection row) is kept.
func (e *Engine) purgeUnreachablePackages(deleted, all []*types.State) error {
	deletedIDs := make(map[int64]bool, len(deleted))
	for _, s := range deleted {
		deletedIDs[s.ID] = true
	}

	reachable := make(map[types.Hash]bool)
	for _, s := range all {
		if deletedIDs[s.ID] {
			continue
		}
		for _, sel := range s.Selections {
			reachable[sel.PackageHash] = true
		}
	}

	for _, s := range deleted {
		for _, sel := range s.Selections {
			if reachable[sel.PackageHash] {
				continue
			}
			if err := e.layout.RemovePackage(sel.PackageHash); err != nil {
				return fmt.Errorf("transaction: sweep: remove layout for %x: %w", sel.PackageHash[:], err)
			}
			if err := e.meta.DeletePackage(sel.PackageHash); err != nil {
				return fmt.Errorf("transaction: sweep: remove metadata for %x: %w", sel.PackageHash[:], err)
			}
		}
	}
	return nil
}
