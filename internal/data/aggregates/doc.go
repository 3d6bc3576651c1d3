// Package aggregates implements the domain aggregate contracts over GORM.
//
// Aggregates compose the table repos from internal/data/repos and own the
// transaction boundary of every invariant-critical write. The engagement
// aggregate is the only writer of institution score and state.
package aggregates
