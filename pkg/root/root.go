package root

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

// Root is a handle on one install root's filesystem layout, per spec.md
// §6.3.
type Root struct {
	path string
	lock *flock.Flock
}

// Open returns a Root for opts.Path (defaulting to "/"), creating the
// .moss/ directory structure if absent.
func Open(opts Options) (*Root, error) {
	path := opts.Path
	if path == "" {
		path = "/"
	}
	r := &Root{path: path}
	for _, dir := range []string{r.mossDir(), r.StorePath(), r.dbDir(), r.RootsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("root: create %s: %w", dir, err)
		}
	}
	r.lock = flock.New(r.LockPath())
	return r, nil
}

func (r *Root) mossDir() string { return filepath.Join(r.path, ".moss") }
func (r *Root) dbDir() string   { return filepath.Join(r.mossDir(), "db") }

// LockPath is the advisory exclusive lock file, <root>/.moss/lock.
func (r *Root) LockPath() string { return filepath.Join(r.mossDir(), "lock") }

// StorePath is the hash store root, <root>/.moss/store/.
func (r *Root) StorePath() string { return filepath.Join(r.mossDir(), "store") }

// DBPath returns <root>/.moss/db/<name>.db: used for the three databases
// "meta", "layout" and "state", and for the repository cache "repos".
func (r *Root) DBPath(name string) string { return filepath.Join(r.dbDir(), name+".db") }

// RootsDir is <root>/.moss/roots/, holding one subdirectory per state ID.
func (r *Root) RootsDir() string { return filepath.Join(r.mossDir(), "roots") }

// StateDir returns the per-state root directory for id.
func (r *Root) StateDir(id int64) string {
	return filepath.Join(r.RootsDir(), strconv.FormatInt(id, 10))
}

// StagingDir returns a fresh staging directory for a transaction targeting
// newStateID, disambiguated with suffix (typically a uuid) so a retried
// transaction never collides with a prior attempt's leftovers.
func (r *Root) StagingDir(newStateID int64, suffix string) string {
	return filepath.Join(r.RootsDir(), fmt.Sprintf("%d.staging-%s", newStateID, suffix))
}

// UsrPath is the active, exchanged usr/ tree at <root>/usr.
func (r *Root) UsrPath() string { return filepath.Join(r.path, "usr") }

// StateIDPath is the active state marker, <root>/usr/.stateID.
func (r *Root) StateIDPath() string { return filepath.Join(r.UsrPath(), ".stateID") }

// Lock acquires the exclusive root lock without blocking, returning
// ErrRootLocked if another process holds it.
func (r *Root) Lock() error {
	ok, err := r.lock.TryLock()
	if err != nil {
		return fmt.Errorf("root: acquire lock: %w", err)
	}
	if !ok {
		return ErrRootLocked
	}
	return nil
}

// RLock acquires a shared lock for read-only operations (queries, list),
// per spec.md §5's "readers take a shared lock; mutators take exclusive".
func (r *Root) RLock() error {
	ok, err := r.lock.TryRLock()
	if err != nil {
		return fmt.Errorf("root: acquire shared lock: %w", err)
	}
	if !ok {
		return ErrRootLocked
	}
	return nil
}

// Unlock releases whichever lock mode was acquired.
func (r *Root) Unlock() error {
	return r.lock.Unlock()
}

// ActiveStateID reads the active state marker. It returns 0, nil if the
// marker has never been written (a fresh root with no committed state).
func (r *Root) ActiveStateID() (int64, error) {
	data, err := os.ReadFile(r.StateIDPath())
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("root: read state id: %w", err)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("root: parse state id: %w", err)
	}
	return id, nil
}

// SetActiveStateID atomically rewrites the active state marker: write to a
// temp file in the same directory, then rename over it, per spec.md §4.5
// step 7.
func (r *Root) SetActiveStateID(id int64) error {
	dir := filepath.Dir(r.StateIDPath())
	tmp, err := os.CreateTemp(dir, ".stateID-*")
	if err != nil {
		return fmt.Errorf("root: create state id temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strconv.FormatInt(id, 10)); err != nil {
		tmp.Close()
		return fmt.Errorf("root: write state id: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("root: sync state id: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("root: close state id temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.StateIDPath()); err != nil {
		return fmt.Errorf("root: rename state id into place: %w", err)
	}
	return nil
}

// Path returns the install root's filesystem path.
func (r *Root) Path() string { return r.path }
