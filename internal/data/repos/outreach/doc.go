// Package outreach holds the table repos behind institutions, the outreach event
// ledger, drafts and email templates.
//
// Institution score/state columns have no update path here; the engagement
// aggregate is their only writer. The event ledger is append-only.
package outreach
