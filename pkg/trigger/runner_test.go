package trigger

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	calls   []Trigger
	exit    map[string]int
	failErr map[string]error
}

func (f *fakeEngine) RunOnce(ctx context.Context, id, rootfsPath string, t Trigger) (int, error) {
	f.calls = append(f.calls, t)
	if err, ok := f.failErr[t.Program]; ok {
		return -1, err
	}
	return f.exit[t.Program], nil
}

func TestDedupRemovesIdenticalTriggers(t *testing.T) {
	triggers := []Trigger{
		{Program: "bin/ldconfig"},
		{Program: "bin/ldconfig"},
		{Program: "bin/update-font-cache"},
	}
	deduped := Dedup(triggers)
	assert.Len(t, deduped, 2)
}

func TestRunnerRunsEachTriggerOnce(t *testing.T) {
	engine := &fakeEngine{exit: map[string]int{}}
	r := New(engine, zerolog.Nop())

	triggers := []Trigger{
		{Program: "bin/ldconfig"},
		{Program: "bin/ldconfig"},
		{Program: "bin/update-icon-cache"},
	}
	require.NoError(t, r.Run(context.Background(), "/staging/usr", triggers))
	assert.Len(t, engine.calls, 2)
}

func TestRunnerStopsOnNonzeroExit(t *testing.T) {
	engine := &fakeEngine{exit: map[string]int{"bin/broken": 1}}
	r := New(engine, zerolog.Nop())

	triggers := []Trigger{
		{Program: "bin/broken"},
		{Program: "bin/never-runs"},
	}
	err := r.Run(context.Background(), "/staging/usr", triggers)
	require.Error(t, err)
	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "bin/broken", failed.Trigger.Program)
	assert.Len(t, engine.calls, 1)
}
