package root

import "github.com/mossforge/moss/pkg/log"

// Options configures a Root, populated from cmd/moss's global cobra flags.
type Options struct {
	// Path is the install root, selected by -D/--root. Defaults to "/".
	Path string

	// Retention is how many trailing states a sweep keeps beyond the
	// active one. A value below 1 keeps one.
	Retention int

	LogLevel  log.Level
	LogJSON   bool

	// MetricsAddr, if non-empty, is the address cmd/moss serves
	// pkg/metrics.Handler on.
	MetricsAddr string
}
