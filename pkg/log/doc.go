/*
Package log provides moss's structured logging, wrapping zerolog with a
global logger, JSON or console output, and component-scoped child
loggers.

Call Init once at process start with the level and format parsed from
cobra flags in cmd/moss; every other package obtains a logger via
WithComponent, WithPackageHash, or WithStateID rather than touching the
global Logger directly, so log lines carry consistent context fields.
*/
package log
