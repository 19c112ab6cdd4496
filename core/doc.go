// Package core contains the canonical callbridge domain contracts, entities,
// and orchestration logic: the admission engine, the bridge store contract,
// the connection registry, and the connection lifecycle coordinator.
// Lower-level adapters must depend on this package; core must not depend on
// transport-specific or storage-specific adapters.
package core
