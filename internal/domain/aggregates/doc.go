// Package aggregates defines the write boundaries of the outreach engine and the
// error taxonomy shared by services and the HTTP edge.
//
// Contracts avoid persistence/transport details and describe where invariants must
// be enforced atomically.
package aggregates
