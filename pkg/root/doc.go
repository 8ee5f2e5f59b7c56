/*
Package root owns the install-root handle: the single object, per spec.md
§9's "global state as an explicit object" note, that names the filesystem
layout under an install root (§6.3) and serialises mutators against it via
an advisory lock at <root>/.moss/lock.

cmd/moss constructs one Root per invocation from cobra flags; every other
package that touches the filesystem — hashstore, the three db stores,
transaction, repo — is handed paths derived from it rather than
constructing its own.
*/
package root
