package uow

import (
	"context"
	"errors"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

type ctxKey struct{}

func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok
}

// Attach binds unit to ctx, letting the unit inject its own driver state first.
func Attach(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}

// Current returns the unit already bound to ctx or begins a new one. The returned finish
// function is nil when the unit belongs to the caller; otherwise it must be called with the
// handler's outcome to commit or roll back.
func Current(ctx context.Context, factory UoWFactory, opts TxOptions) (UnitOfWork, context.Context, func(error) error, error) {
	if unit, ok := FromContext(ctx); ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := Attach(ctx, unit)
	finish := func(outcome error) error {
		if outcome != nil || opts.ReadOnly {
			_ = unit.Rollback(execCtx)
			return outcome
		}
		return unit.Commit(execCtx)
	}
	return unit, execCtx, finish, nil
}
