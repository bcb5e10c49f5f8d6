/*
Package observability turns pipeline lifecycle events into Prometheus metrics.

Metrics registers its collectors on a caller-supplied registry and exposes LifecycleHooks that
can be merged with logging hooks and passed to fsmconv.WithLifecycleHooks.
*/
package observability
