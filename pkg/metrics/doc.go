/*
Package metrics exposes moss's Prometheus collectors: blob store
throughput, resolver closure sizes, transaction phase durations, repo
fetch latency/errors, and trigger execution time. cmd/moss registers
these at startup and optionally serves them over HTTP via Handler when
run with --metrics-addr.

The health sub-API (HealthStatus, HealthChecker) is independent of
Prometheus: it backs a small JSON /healthz-style response for operators
scripting around `moss sync` in cron, without pulling in a metrics
scraper.
*/
package metrics
