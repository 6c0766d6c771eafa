/*
Package observability exposes transition lifecycle metrics.

Metrics translates domain.LifecycleHooks into Prometheus collectors: transitions
by outcome, mutations by mode, flush size and in-flight duration. Plug the
hooks into a transitioner with vista.WithLifecycleHooks, possibly chained with
other hooks via domain.ChainHooks.
*/
package observability
