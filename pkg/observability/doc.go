/*
Package observability turns pairing lifecycle hooks into Prometheus metrics.

Collectors live on a dedicated registry so that tests and embedders do not
share global state. Attach them with pairing.WithLifecycleHooks(m.Hooks()) and
expose m.Handler() on /metrics.
*/
package observability
