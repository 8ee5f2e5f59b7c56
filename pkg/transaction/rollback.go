package transaction

import (
	"fmt"
	"path/filepath"

	"github.com/mossforge/moss/pkg/types"
)

// Activate switches the active root to a previously committed state
// without resolving anything new, per spec.md §4.5's rollback note:
// exchange targetID's retained root back into /usr and rewrite .stateID.
// targetID must still have a retained roots/<id>/usr/ tree; states culled
// by Sweep can no longer be activated.
func (e *Engine) Activate(targetID int64) (*types.State, error) {
	if err := e.root.Lock(); err != nil {
		return nil, err
	}
	defer e.root.Unlock()

	target, err := e.state.Get(targetID)
	if err != nil {
		return nil, fmt.Errorf("transaction: activate: load state %d: %w", targetID, err)
	}
	if target == nil {
		return nil, fmt.Errorf("transaction: activate: state %d not found", targetID)
	}

	currentID, err := e.root.ActiveStateID()
	if err != nil {
		return nil, fmt.Errorf("transaction: activate: read active state: %w", err)
	}
	if currentID == targetID {
		return target, nil
	}

	targetRoot := e.root.StateDir(targetID)
	targetUsr := filepath.Join(targetRoot, "usr")
	previousRoot := e.root.StateDir(currentID)

	if err := activate(targetRoot, targetUsr, e.root.UsrPath(), previousRoot); err != nil {
		return nil, fmt.Errorf("transaction: activate state %d: %w", targetID, err)
	}
	if err := e.root.SetActiveStateID(targetID); err != nil {
		return nil, fmt.Errorf("transaction: activate: set active state id to %d: %w", targetID, err)
	}

	e.logger.Info().Int64("from", currentID).Int64("to", targetID).Msg("activated retained state")
	return target, nil
}
