/*
Package metrics provides Prometheus metrics collection, a generic
health-check registry, and HTTP exposition handlers for strata.

Archive, restore, and gc each update counters and histograms as they run
(ArchiveFilesScanned, RestoreBytesWritten, GCPacksRepacked, and friends);
Collector separately samples repository-wide gauges (indexed blob/pack
counts) on a fixed interval, since those aren't naturally observed at any
single call site. Handler exposes the registry for scraping; HealthHandler,
ReadyHandler, and LivenessHandler expose a small JSON health/readiness/
liveness surface driven by RegisterComponent/UpdateComponent, independent of
Prometheus, for callers that just want a boolean up/down signal (e.g. a
container orchestrator probing a long-running strata-serve process).
*/
package metrics
