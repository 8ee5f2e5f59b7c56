package transaction

import (
	"fmt"
	"os"
	"path/filepath"
)

// Reconcile repairs a process killed during the non-interruptible window
// of spec.md §7's Critical error bucket: after the State DB row for a
// transaction commits but before the /usr exchange and .stateID rewrite
// finish. It is safe to call on every startup, including when nothing is
// wrong.
//
// If the committed state's staging directory is still present, the
// exchange never happened (or didn't finish); Reconcile completes it. If
// the newest state's tree is retained under roots/<id>/, the marker was
// set on purpose by Activate and is left alone. Otherwise the exchange
// already succeeded and only the marker write was lost; Reconcile just
// rewrites it.
func (e *Engine) Reconcile() error {
	activeID, err := e.root.ActiveStateID()
	if err != nil {
		return fmt.Errorf("transaction: reconcile: read active state: %w", err)
	}

	latest, err := e.state.Latest()
	if err != nil {
		return fmt.Errorf("transaction: reconcile: load latest state: %w", err)
	}
	if latest == nil || latest.ID == activeID {
		return nil
	}

	e.logger.Warn().Int64("marker", activeID).Int64("latest_commit", latest.ID).Msg("reconciling interrupted transaction")

	matches, err := filepath.Glob(filepath.Join(e.root.RootsDir(), fmt.Sprintf("%d.staging-*", latest.ID)))
	if err != nil {
		return fmt.Errorf("transaction: reconcile: glob staging dirs: %w", err)
	}

	if len(matches) > 0 {
		stagingRoot := matches[0]
		stagingUsr := filepath.Join(stagingRoot, "usr")
		previousRoot := e.root.StateDir(activeID)
		if err := activate(stagingRoot, stagingUsr, e.root.UsrPath(), previousRoot); err != nil {
			return fmt.Errorf("transaction: reconcile: complete interrupted exchange: %w", err)
		}
	} else if _, err := os.Stat(e.root.StateDir(latest.ID)); err == nil {
		return nil
	}

	if err := e.root.SetActiveStateID(latest.ID); err != nil {
		return fmt.Errorf("transaction: reconcile: set active state id to %d: %w", latest.ID, err)
	}
	return nil
}
