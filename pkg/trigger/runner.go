package trigger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mossforge/moss/pkg/metrics"
)

// Engine runs one trigger to completion inside a sandbox rooted at
// rootfsPath and returns its exit code. ContainerdEngine is the production
// implementation; tests supply a fake.
type Engine interface {
	RunOnce(ctx context.Context, id, rootfsPath string, t Trigger) (exitCode int, err error)
}

// Runner sequences a transaction's deduplicated trigger set through an
// Engine, stopping at the first failure per spec.md §4.5 step 5.
type Runner struct {
	engine Engine
	logger zerolog.Logger
}

// New returns a Runner backed by engine.
func New(engine Engine, logger zerolog.Logger) *Runner {
	return &Runner{engine: engine, logger: logger}
}

// Run executes every trigger against rootfsPath, in order, deduplicating
// identical invocations first.
func (r *Runner) Run(ctx context.Context, rootfsPath string, triggers []Trigger) error {
	for _, t := range Dedup(triggers) {
		id := "moss-trigger-" + uuid.NewString()
		timer := metrics.NewTimer()
		exitCode, err := r.engine.RunOnce(ctx, id, rootfsPath, t)
		timer.ObserveDuration(metrics.TriggerDuration)
		metrics.TriggersRun.Inc()

		logEvent := r.logger.Info()
		if err != nil || exitCode != 0 {
			logEvent = r.logger.Error()
		}
		logEvent.Str("program", t.Program).Int("exit_code", exitCode).Msg("trigger run")

		if err != nil {
			return fmt.Errorf("trigger: run %s: %w", t.Program, err)
		}
		if exitCode != 0 {
			return &FailedError{Trigger: t, ExitCode: exitCode, Err: fmt.Errorf("nonzero exit")}
		}
	}
	return nil
}
