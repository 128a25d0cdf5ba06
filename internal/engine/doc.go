// Package engine implements the colloquium planning core: slot search,
// protocolist selection, availability evaluation, the consecutive-session
// break rule, and the merge/re-optimization workflow.
//
// The package is pure: it performs no I/O, takes consistent snapshots of the
// entity collections as input, and returns newly constructed value objects.
// Callers are responsible for serializing writes to the shared event
// collection between calls.
package engine
