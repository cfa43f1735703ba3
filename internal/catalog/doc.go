// Package catalog holds the pattern catalog snapshot and its similarity graph.
//
// The catalog is loaded once at startup from ingestion tooling output and is
// immutable during a query. A rebuild trigger swaps in a fresh snapshot
// atomically; in-flight queries keep the snapshot they started with.
package catalog
