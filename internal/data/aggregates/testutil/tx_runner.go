package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/outreach-backend/internal/data/aggregates"
	"github.com/yungbote/outreach-backend/internal/platform/dbctx"
)

// InjectedTxRunner wraps a real runner and injects failures at the transaction
// boundary. FailCommit runs the body inside the inner transaction and then fails it,
// so the inner runner rolls back everything the body wrote.
type InjectedTxRunner struct {
	Inner aggregates.TxRunner

	FailBegin  error
	FailCommit error

	mu            sync.Mutex
	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin, failCommit := r.FailBegin, r.FailCommit
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	body := func(dbc dbctx.Context) error {
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		return failCommit
	}
	var err error
	if r.Inner != nil {
		err = r.Inner.InTx(ctx, body)
	} else {
		err = body(dbctx.Context{Ctx: ctx})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.RollbackCalls++
	} else {
		r.CommitCalls++
	}
	return err
}
