package transaction

import (
	"context"
	"io"
	"time"

	"github.com/mossforge/moss/pkg/repo"
	"github.com/mossforge/moss/pkg/resolver"
	"github.com/mossforge/moss/pkg/trigger"
	"github.com/mossforge/moss/pkg/types"
)

// MetaStore is the metadata database write/read path the engine needs.
// *meta.Store satisfies it directly.
type MetaStore interface {
	resolver.CandidateSource
	UpsertPackage(pkg *types.Package) error
	DeletePackage(hash types.Hash) error
}

// LayoutStore is the layout database path the engine needs. *layout.Store
// satisfies it directly.
type LayoutStore interface {
	AddPackage(packageID types.Hash, entries []types.LayoutEntry) error
	EntriesFor(packageID types.Hash) ([]types.LayoutEntry, error)
	RemovePackage(packageID types.Hash) error
	AllContentHashes() (map[types.Hash]struct{}, error)
}

// StateStore is the state database path the engine needs. *state.Store
// satisfies it directly.
type StateStore interface {
	Commit(st *types.State, created time.Time) (int64, error)
	Latest() (*types.State, error)
	Get(id int64) (*types.State, error)
	List() ([]*types.State, error)
	Delete(id int64) error
}

// BlobStore is the hash store path the engine needs. *hashstore.Store
// satisfies it directly.
type BlobStore interface {
	Contains(hash types.Hash) bool
	Absorb(r io.Reader, expected types.Hash) error
	LinkInto(hash types.Hash, targetPath string, mode uint32, uid, gid uint32) error
	Sweep(referenced map[types.Hash]struct{}) (int, error)
}

// Fetcher is the repository client path the engine needs. *repo.Client
// satisfies it directly.
type Fetcher interface {
	FetchStone(ctx context.Context, pkg *types.Package) (repo.FetchedStone, error)
}

// RootHandle is the install-root lock and path layout the engine needs.
// *root.Root satisfies it directly.
type RootHandle interface {
	Lock() error
	Unlock() error
	StorePath() string
	RootsDir() string
	StateDir(id int64) string
	StagingDir(newStateID int64, suffix string) string
	UsrPath() string
	ActiveStateID() (int64, error)
	SetActiveStateID(id int64) error
}

// TriggerRunner runs a transaction's deduplicated trigger set against a
// staged tree. *trigger.Runner satisfies it directly.
type TriggerRunner interface {
	Run(ctx context.Context, rootfsPath string, triggers []trigger.Trigger) error
}
