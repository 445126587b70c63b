// Package domain holds the campaign aggregate: entities, relationships,
// and the per-user campaign set that the durable store persists.
//
// Everything in this package is plain data plus synchronous, in-place
// mutation. Cross-context consistency is not this package's concern; the
// sync controller owns that. Every type exposes a Clone method producing a
// fully isolated copy so history snapshots never share mutable structure
// with the live aggregate.
package domain
