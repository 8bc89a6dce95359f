// Package domain holds the core types of the hazard alert engine: readings,
// alerts, geographic buckets, the error taxonomy, and the alert store
// contract. It has no dependencies on the pipeline packages built on top of
// it.
package domain
