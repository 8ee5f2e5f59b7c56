package trigger

import (
	"github.com/mossforge/moss/pkg/types"
)

// Trigger is one external program a package asks to run against the
// staged usr/ tree, declared in the package's stone Attributes payload.
type Trigger struct {
	Package types.Hash
	// Program is a path relative to the staging usr/ root, e.g.
	// "bin/ldconfig".
	Program string
	Args    []string
}

// Dedup removes triggers that are byte-identical in program and
// arguments: several packages in the same transaction commonly declare
// the same system-wide trigger (ldconfig, font cache, icon cache), and it
// only needs to run once per transaction.
func Dedup(triggers []Trigger) []Trigger {
	seen := make(map[string]bool, len(triggers))
	out := make([]Trigger, 0, len(triggers))
	for _, t := range triggers {
		key := t.Program
		for _, a := range t.Args {
			key += "\x00" + a
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
