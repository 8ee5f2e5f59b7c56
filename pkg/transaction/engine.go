package transaction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mossforge/moss/pkg/metrics"
	"github.com/mossforge/moss/pkg/resolver"
	"github.com/mossforge/moss/pkg/trigger"
	"github.com/mossforge/moss/pkg/types"
)

// Engine drives a resolved plan through fetch, staging, triggers, and
// atomic activation, per spec.md §4.5.
type Engine struct {
	root     RootHandle
	store    BlobStore
	meta     MetaStore
	layout   LayoutStore
	state    StateStore
	resolver *resolver.Resolver
	fetcher  Fetcher
	triggers TriggerRunner
	logger   zerolog.Logger

	retention int
}

// Config bundles the collaborators Engine needs. Retention is the number
// of past states, besides the active one, that Sweep keeps; a value below
// 1 is treated as 1.
type Config struct {
	Root      RootHandle
	Store     BlobStore
	Meta      MetaStore
	Layout    LayoutStore
	State     StateStore
	Fetcher   Fetcher
	Triggers  TriggerRunner
	Logger    zerolog.Logger
	Retention int
}

// New returns an Engine wired to cfg's collaborators.
func New(cfg Config) *Engine {
	return &Engine{
		root:      cfg.Root,
		store:     cfg.Store,
		meta:      cfg.Meta,
		layout:    cfg.Layout,
		state:     cfg.State,
		resolver:  resolver.New(cfg.Meta),
		fetcher:   cfg.Fetcher,
		triggers:  cfg.Triggers,
		logger:    cfg.Logger,
		retention: cfg.Retention,
	}
}

// Install resolves names as KindPackageName provider expressions and runs
// the resulting plan.
func (e *Engine) Install(ctx context.Context, names []string) (*types.State, error) {
	var add []types.Dependency
	for _, n := range names {
		add = append(add, types.Dependency{Kind: types.KindPackageName, Value: n})
	}
	return e.Run(ctx, resolver.ChangeSet{Add: add})
}

// Remove runs a plan dropping names and their now-orphaned dependencies.
func (e *Engine) Remove(ctx context.Context, names []string) (*types.State, error) {
	return e.Run(ctx, resolver.ChangeSet{Remove: names})
}

// Run resolves change against the active state and executes the full
// transaction, per spec.md §4.5 steps 1-8.
func (e *Engine) Run(ctx context.Context, change resolver.ChangeSet) (*types.State, error) {
	if err := e.root.Lock(); err != nil {
		return nil, err // ErrRootLocked, per spec.md §7's Resource error bucket
	}
	defer e.root.Unlock()

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.TransactionDuration, "total")

	activeID, err := e.root.ActiveStateID()
	if err != nil {
		return nil, fmt.Errorf("transaction: read active state: %w", err)
	}
	current, err := e.state.Get(activeID)
	if err != nil {
		return nil, fmt.Errorf("transaction: load current state: %w", err)
	}

	plan, err := e.resolver.Resolve(current, change)
	if err != nil {
		metrics.TransactionsTotal.WithLabelValues("aborted").Inc()
		return nil, err
	}
	metrics.ResolverClosureSize.Observe(float64(len(plan.Selections)))

	st, err := e.execute(ctx, current, plan)
	if err != nil {
		metrics.TransactionsTotal.WithLabelValues("aborted").Inc()
		return nil, err
	}
	metrics.TransactionsTotal.WithLabelValues("committed").Inc()
	return st, nil
}

// execute runs steps 2-8 against an already-locked root.
func (e *Engine) execute(ctx context.Context, current *types.State, plan *resolver.Plan) (*types.State, error) {
	fetchTimer := metrics.NewTimer()
	allEntries := make(map[types.Hash][]types.LayoutEntry, len(plan.Selections))

	installed := make(map[types.Hash]*absorbed, len(plan.Install))
	for _, pkg := range plan.Install {
		a, err := e.absorbPackage(ctx, pkg)
		if err != nil {
			return nil, &AbortedError{Step: "fetch-and-absorb", Err: err}
		}
		installed[pkg.Hash] = a
	}
	fetchTimer.ObserveDurationVec(metrics.TransactionDuration, "fetch")

	var triggers []trigger.Trigger
	for _, sel := range plan.Selections {
		if a, ok := installed[sel.PackageHash]; ok {
			allEntries[sel.PackageHash] = a.entries
			triggers = append(triggers, a.triggers...)
			continue
		}
		entries, err := e.layout.EntriesFor(sel.PackageHash)
		if err != nil {
			return nil, &AbortedError{Step: "load-retained-layout", Err: err}
		}
		allEntries[sel.PackageHash] = entries
	}

	if err := detectCollisions(allEntries); err != nil {
		return nil, &AbortedError{Step: "collision-check", Err: err}
	}

	nextID, err := e.nextStateID(current)
	if err != nil {
		return nil, &AbortedError{Step: "allocate-state-id", Err: err}
	}

	stagingRoot := e.root.StagingDir(nextID, uuid.NewString())
	stagingUsr := filepath.Join(stagingRoot, "usr")

	stageTimer := metrics.NewTimer()
	if _, err := buildStagingTree(e.store, stagingUsr, allEntries); err != nil {
		removeAll(stagingRoot)
		return nil, &AbortedError{Step: "stage", Err: err}
	}
	stageTimer.ObserveDurationVec(metrics.TransactionDuration, "stage")

	triggerTimer := metrics.NewTimer()
	if err := e.triggers.Run(ctx, stagingUsr, triggers); err != nil {
		removeAll(stagingRoot)
		return nil, &AbortedError{Step: "trigger", Err: err}
	}
	triggerTimer.ObserveDurationVec(metrics.TransactionDuration, "trigger")

	st := &types.State{
		Kind:       types.StateKindTransaction,
		Selections: plan.Selections,
	}
	created := time.Now()
	id, err := e.state.Commit(st, created)
	if err != nil {
		removeAll(stagingRoot)
		return nil, &AbortedError{Step: "commit", Err: err}
	}
	st.ID = id
	st.Created = created

	var previousRoot string
	if current != nil {
		previousRoot = e.root.StateDir(current.ID)
	} else {
		previousRoot = e.root.StateDir(0)
	}

	activateTimer := metrics.NewTimer()
	if err := activate(stagingRoot, stagingUsr, e.root.UsrPath(), previousRoot); err != nil {
		// Past this point the State row is committed but the exchange did
		// not complete: Reconcile resolves this on next startup, per
		// spec.md §7's Critical error bucket.
		return nil, fmt.Errorf("transaction: activate state %d: %w", id, err)
	}
	activateTimer.ObserveDurationVec(metrics.TransactionDuration, "activate")

	if err := e.root.SetActiveStateID(id); err != nil {
		return nil, fmt.Errorf("transaction: set active state id to %d: %w", id, err)
	}
	metrics.ActiveStateID.Set(float64(id))

	e.logger.Info().Int64("state", id).Int("install", len(plan.Install)).Int("remove", len(plan.Remove)).Msg("transaction committed")
	return st, nil
}

func (e *Engine) nextStateID(current *types.State) (int64, error) {
	if current == nil {
		return 1, nil
	}
	states, err := e.state.List()
	if err != nil {
		return 0, err
	}
	max := current.ID
	for _, s := range states {
		if s.ID > max {
			max = s.ID
		}
	}
	return max + 1, nil
}

// removeAll is a best-effort staging cleanup: a leftover directory here is
// harmless, reclaimed by the next sweep.
func removeAll(path string) {
	_ = os.RemoveAll(path)
}
