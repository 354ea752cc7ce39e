/*
Package metrics provides Prometheus metrics collection and exposition for the
broker, plus the /healthz and /readyz HTTP handlers (pkg/api mounts both).

# Metrics Catalog

promptrelay_queue_depth{priority}:
  - Type: Gauge
  - Number of QUEUED messages by priority (high/normal/low)
  - Sampled periodically by Collector, since queue membership changes faster
    than it's useful to update on every enqueue/dequeue

promptrelay_messages_total{state}:
  - Type: Counter
  - Messages that reached a terminal state (completed/failed/cancelled)
  - Incremented at the point of transition by pkg/store

promptrelay_processing_duration_seconds:
  - Type: Histogram
  - Wall-clock time a message spends in PROCESSING

promptrelay_queue_wait_duration_seconds:
  - Type: Histogram
  - Wall-clock time a message spends QUEUED before dispatch starts it

promptrelay_stream_subscribers:
  - Type: Gauge
  - Current count of live SSE subscribers across all streams

promptrelay_api_requests_total{route, status}:
  - Type: Counter
  - HTTP requests by route and response status

promptrelay_api_request_duration_seconds{route}:
  - Type: Histogram
  - HTTP handler latency by route

promptrelay_threads_total:
  - Type: Gauge
  - Distinct threads currently tracked in the thread index

# Timer Pattern

	timer := metrics.NewTimer()
	// ... do work ...
	timer.ObserveDuration(metrics.ProcessingDuration)

# Collector

Collector periodically samples state that has no single mutation point to
hook a metric update into — queue depth and thread count are consequences of
many different store/scheduler operations, so a ticker-driven sampler is
simpler than instrumenting every call site. It depends on two narrow
interfaces (QueueSampler, ThreadSampler) rather than importing pkg/scheduler
or pkg/store directly, since pkg/store imports pkg/metrics to update
counters and histograms inline.

# Health and Readiness

RegisterComponent/UpdateComponent track the store, scheduler, and dispatch
worker; GetHealth (/healthz) reports unhealthy if any registered component
is unhealthy. GetReadiness (/readyz) is three-valued: "ready" once all three
critical components are registered and healthy, "not_ready" before that, and
"draining" once SetDraining(true) has been called — engine.Shutdown calls it
as soon as it starts refusing new submissions, so a load balancer stops
routing here without waiting for a component to actually report unhealthy.
*/
package metrics
