package main

import (
	"fmt"
	"net/http"

	"github.com/mossforge/moss/pkg/db/layout"
	"github.com/mossforge/moss/pkg/db/meta"
	"github.com/mossforge/moss/pkg/db/state"
	"github.com/mossforge/moss/pkg/hashstore"
	"github.com/mossforge/moss/pkg/log"
	"github.com/mossforge/moss/pkg/metrics"
	"github.com/mossforge/moss/pkg/repo"
	"github.com/mossforge/moss/pkg/root"
	"github.com/mossforge/moss/pkg/transaction"
	"github.com/mossforge/moss/pkg/trigger"
)

// env bundles every opened handle a subcommand might need, closed in
// reverse-acquisition order once the command returns.
type env struct {
	root      *root.Root
	store     *hashstore.Store
	meta      *meta.Store
	layout    *layout.Store
	state     *state.Store
	cache     *repo.Cache
	client    *repo.Client
	retention int
}

func openEnv(rootPath string, retention int, metricsAddr string) (*env, error) {
	metricsEnabled := metricsAddr != ""
	serveMetrics(metricsAddr)

	r, err := root.Open(root.Options{Path: rootPath, Retention: retention})
	registerComponent(metricsEnabled, "root", err)
	if err != nil {
		return nil, fmt.Errorf("open root: %w", err)
	}

	hs, err := hashstore.New(r.StorePath())
	registerComponent(metricsEnabled, "store", err)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	ms, err := meta.Open(r.DBPath("meta"))
	registerComponent(metricsEnabled, "meta", err)
	if err != nil {
		return nil, fmt.Errorf("open meta db: %w", err)
	}

	ls, err := layout.Open(r.DBPath("layout"))
	registerComponent(metricsEnabled, "layout", err)
	if err != nil {
		return nil, fmt.Errorf("open layout db: %w", err)
	}

	ss, err := state.Open(r.DBPath("state"))
	registerComponent(metricsEnabled, "state", err)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	cache, err := repo.OpenCache(r.DBPath("repos"))
	if err != nil {
		return nil, fmt.Errorf("open repo cache: %w", err)
	}

	client := repo.New(cache, ms, log.WithComponent("repo"))

	return &env{
		root: r, store: hs, meta: ms, layout: ls, state: ss,
		cache: cache, client: client, retention: retention,
	}, nil
}

func registerComponent(enabled bool, name string, err error) {
	if !enabled {
		return
	}
	if err != nil {
		metrics.RegisterComponent(name, false, err.Error())
		return
	}
	metrics.RegisterComponent(name, true, "")
}

// serveMetrics starts a background Prometheus + health-check listener on
// addr, per spec.md §6.3's MetricsAddr wiring. It never blocks; listener
// errors are logged, not returned, since metrics are diagnostic only.
func serveMetrics(addr string) {
	if addr == "" {
		return
	}
	metrics.SetVersion(Version)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", metrics.HealthHandler())
	mux.HandleFunc("/readyz", metrics.ReadyHandler())
	mux.HandleFunc("/livez", metrics.LivenessHandler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Logger.Error().Err(err).Str("addr", addr).Msg("metrics listener exited")
		}
	}()
}

func (e *env) Close() {
	e.cache.Close()
	e.state.Close()
	e.layout.Close()
	e.meta.Close()
}

// engine builds a transaction.Engine over an already-open env, wiring a
// containerd trigger runner against the socket moss's packaging
// convention expects.
func (e *env) engine() (*transaction.Engine, error) {
	ce, err := trigger.NewContainerdEngine(trigger.DefaultSocketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to containerd: %w", err)
	}
	runner := trigger.New(ce, log.WithComponent("trigger"))

	eng := transaction.New(transaction.Config{
		Root:      e.root,
		Store:     e.store,
		Meta:      e.meta,
		Layout:    e.layout,
		State:     e.state,
		Fetcher:   e.client,
		Triggers:  runner,
		Logger:    log.WithComponent("transaction"),
		Retention: e.retention,
	})

	if err := eng.Reconcile(); err != nil {
		return nil, fmt.Errorf("reconcile root: %w", err)
	}
	return eng, nil
}
