/*
Package engine assembles pkg/store, pkg/scheduler, pkg/broadcaster, and
pkg/dispatch into one object with an explicit init/run/shutdown lifecycle:
every adapter (pkg/api, cmd/promptrelay) is handed the same *Engine rather
than reaching for a global.

# Shutdown semantics

There is no durability and no multi-worker parallelism, so shutdown has
no work-handoff problem to solve: Submit starts refusing immediately,
already-QUEUED messages are abandoned (there is nothing to persist them
to), and the only thing worth waiting for is the single in-flight message,
which finishes or times out on its own schedule. Shutdown's context only
bounds how long the caller is willing to wait for that — it does not cancel
the message currently PROCESSING.
*/
package engine
