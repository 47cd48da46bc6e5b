package domain

import "context"

// UnitOfWork coordinates a set of repository operations within a single
// database transaction so multi-row lifecycle transitions commit or abort as
// one unit. It also exposes repository capabilities so the orchestrator can
// operate through it.
//
// Typical usage:
//  uow, err := factory.Begin(ctx)
//  if err != nil { ... }
//  defer uow.Rollback()
//  offer, err := uow.GetOfferForUpdateCtx(ctx, id)
//  ... validate, mutate ...
//  if err := uow.Commit(); err != nil { ... }
//
// NOTE: keep the transaction as short as possible; row locks acquired through
// the ForUpdate methods are held until Commit or Rollback.
type UnitOfWork interface {
	Commit() error
	Rollback() error

	ListingRepository
	OfferRepository
	DealRepository
}

// UnitOfWorkFactory starts new UnitOfWork instances. A returned UnitOfWork
// is already begun.
type UnitOfWorkFactory interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}
