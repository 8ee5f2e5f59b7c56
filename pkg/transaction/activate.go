package transaction

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// activate performs spec.md §4.5 step 7: exchange stagingUsr into place as
// the active usr/, preserving whatever was there before under
// previousRoot. If usrPath does not yet exist (a fresh install root with
// no prior state), it is a plain rename instead of an exchange.
//
// The same function serves rollback: stagingRoot/stagingUsr may name an
// existing roots/<id> directory rather than a freshly staged one, and
// previousRoot the roots/<id> directory the now-deactivated state should
// be filed under.
func activate(stagingRoot, stagingUsr, usrPath, previousRoot string) error {
	if _, err := os.Stat(usrPath); errors.Is(err, os.ErrNotExist) {
		if err := os.Rename(stagingUsr, usrPath); err != nil {
			return fmt.Errorf("transaction: bootstrap rename usr: %w", err)
		}
		return os.Remove(stagingRoot)
	}

	if err := unix.Renameat2(unix.AT_FDCWD, stagingUsr, unix.AT_FDCWD, usrPath, unix.RENAME_EXCHANGE); err != nil {
		return fmt.Errorf("transaction: exchange usr: %w", err)
	}

	// stagingUsr now holds what used to live at usrPath; relocate the
	// staging directory itself to become the previous state's retained
	// root.
	if err := os.Rename(stagingRoot, previousRoot); err != nil {
		return fmt.Errorf("transaction: retire previous root: %w", err)
	}
	return nil
}
