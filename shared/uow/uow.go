// Package uow defines the unit of work the boundary layer opens around every
// top-level operation, and the after-commit hooks services register inside
// it.
package uow

import (
	"context"
	"sync"
)

// Runner executes fn inside one storage transaction. The context passed to
// fn carries the transaction; if fn returns an error every effect is rolled
// back and no after-commit hook runs.
type Runner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	WithinReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type hooksKey struct{}

// Hooks collects callbacks to run once the enclosing transaction commits.
type Hooks struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

// Attach returns a child context carrying an empty hook list.
func Attach(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

// AfterCommit registers fn on the unit of work carried by ctx. Outside a unit
// of work there is nothing to wait for, so fn runs immediately.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	h, ok := ctx.Value(hooksKey{}).(*Hooks)
	if !ok {
		fn(context.WithoutCancel(ctx))
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

// Run executes the registered hooks in registration order. The hooks get a
// context that survives cancellation of the request that committed.
func (h *Hooks) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	for _, fn := range fns {
		fn(detached)
	}
}
