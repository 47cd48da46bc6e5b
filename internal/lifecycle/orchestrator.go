// Package lifecycle implements the listing/offer/deal state machine. Every
// multi-row transition runs inside one unit of work as lock → validate →
// mutate → commit: validating without the lock would leave the precondition
// stale by the time the mutation runs under concurrent callers.
package lifecycle

import (
	"context"
	"time"

	"exchange-market/internal/domain"
	"exchange-market/internal/models"
	errs "exchange-market/pkg/errors"
	"exchange-market/pkg/events"
	"exchange-market/pkg/logging"
	"exchange-market/pkg/metrics"
)

// ViewCounter bumps a listing's view count. Implementations are free to
// batch; views are approximate by design.
type ViewCounter interface {
	Bump(ctx context.Context, listingID int64)
}

// Orchestrator coordinates the repositories through units of work. It is the
// only writer of system-driven status transitions.
type Orchestrator struct {
	repo   domain.Repository
	uow    domain.UnitOfWorkFactory
	views  ViewCounter
	rec    events.Recorder
	log    *logging.ComponentLogger

	mAccepted  *metrics.Counter
	mCompleted *metrics.Counter
	mCancelled *metrics.Counter
}

func NewOrchestrator(repo domain.Repository, uow domain.UnitOfWorkFactory, views ViewCounter, rec events.Recorder, log *logging.Logger) *Orchestrator {
	o := &Orchestrator{
		repo:       repo,
		uow:        uow,
		views:      views,
		rec:        rec,
		mAccepted:  metrics.Default.Counter("offers_accepted_total", "Offers accepted"),
		mCompleted: metrics.Default.Counter("deals_completed_total", "Deals completed by mutual confirmation"),
		mCancelled: metrics.Default.Counter("deals_cancelled_total", "Deals cancelled by a party"),
	}
	if log != nil {
		o.log = log.WithComponent("lifecycle")
	}
	return o
}

func (o *Orchestrator) record(ctx context.Context, e events.Event) {
	if o.rec == nil {
		return
	}
	// Audit trail only; a failed append never affects the committed transition.
	if err := o.rec.Record(ctx, e); err != nil && o.log != nil {
		o.log.Warn("event append failed", logging.String("type", e.Type()), logging.ListingID(e.ListingID()))
	}
}

// --- Listings ---

// ListingInput carries the caller-supplied fields for a new listing.
type ListingInput struct {
	ProductID         int64
	Quantity          int
	Condition         models.Condition
	Description       *string
	City              *string
	WantedDescription *string
}

func (o *Orchestrator) CreateListing(ctx context.Context, ownerID int64, in ListingInput) (*models.Listing, error) {
	const op = "lifecycle.CreateListing"
	if in.Quantity <= 0 {
		return nil, errs.NewValidation(op, "quantity must be positive", nil)
	}
	if !in.Condition.Valid() {
		return nil, errs.NewValidation(op, "unknown condition", nil)
	}
	p, err := o.repo.GetProductCtx(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errs.NewValidation(op, "unknown product", nil)
	}

	l := &models.Listing{
		OwnerID:           ownerID,
		ProductID:         in.ProductID,
		Quantity:          in.Quantity,
		Condition:         in.Condition,
		Description:       in.Description,
		City:              in.City,
		WantedDescription: in.WantedDescription,
		Status:            models.ListingActive,
	}
	if err := o.repo.CreateListingCtx(ctx, l); err != nil {
		return nil, err
	}
	o.record(ctx, events.ListingCreated{
		Base:      events.Base{Ts: time.Now(), LID: l.ID},
		OwnerID:   ownerID,
		ProductID: in.ProductID,
	})
	return l, nil
}

// GetListing returns the public listing view and bumps the view counter.
// The bump is an at-least-once side effect outside any transaction.
func (o *Orchestrator) GetListing(ctx context.Context, id int64) (*models.ListingView, error) {
	const op = "lifecycle.GetListing"
	v, err := o.repo.GetListingViewCtx(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errs.NewNotFound(op, "listing", id)
	}
	if o.views != nil {
		o.views.Bump(ctx, id)
	}
	return v, nil
}

func (o *Orchestrator) ListListings(ctx context.Context, f models.ListingFilter) ([]models.ListingView, int, error) {
	return o.repo.ListListingsCtx(ctx, f)
}

func (o *Orchestrator) MyListings(ctx context.Context, ownerID int64) ([]models.OwnerListing, error) {
	return o.repo.ListingsByOwnerCtx(ctx, ownerID)
}

// ownerStatuses are the only status values an owner may set directly.
// Completion is always system-driven.
var ownerStatuses = map[models.ListingStatus]bool{
	models.ListingActive:    true,
	models.ListingPaused:    true,
	models.ListingCancelled: true,
}

// UpdateListing applies a sparse, owner-authorized edit.
func (o *Orchestrator) UpdateListing(ctx context.Context, callerID, id int64, upd models.ListingUpdate) (*models.Listing, error) {
	const op = "lifecycle.UpdateListing"
	if upd.Empty() {
		return nil, errs.NewValidation(op, "no fields to update", nil)
	}
	if upd.Quantity != nil && *upd.Quantity <= 0 {
		return nil, errs.NewValidation(op, "quantity must be positive", nil)
	}
	if upd.Condition != nil && !upd.Condition.Valid() {
		return nil, errs.NewValidation(op, "unknown condition", nil)
	}
	if upd.Status != nil && !ownerStatuses[*upd.Status] {
		return nil, errs.NewValidation(op, "status not settable by owner", nil)
	}

	l, err := o.repo.GetListingCtx(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, errs.NewNotFound(op, "listing", id)
	}
	if !domain.IsListingOwner(l, callerID) {
		return nil, errs.NewForbidden(op, "caller does not own the listing")
	}
	if upd.Status != nil && l.Status.Terminal() {
		return nil, errs.NewState(op, "listing already closed")
	}
	return o.repo.UpdateListingFieldsCtx(ctx, id, upd)
}

// OwnListing returns the listing only when the caller owns it. Used by
// owner-scoped reads such as the audit trail.
func (o *Orchestrator) OwnListing(ctx context.Context, callerID, id int64) (*models.Listing, error) {
	const op = "lifecycle.OwnListing"
	l, err := o.repo.GetListingCtx(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, errs.NewNotFound(op, "listing", id)
	}
	if !domain.IsListingOwner(l, callerID) {
		return nil, errs.NewForbidden(op, "caller does not own the listing")
	}
	return l, nil
}

// CancelListing is the owner's direct cancellation. Allowed only while the
// listing is active: a paused listing has an in-progress deal behind it and
// must be resolved through the deal instead.
func (o *Orchestrator) CancelListing(ctx context.Context, callerID, id int64) error {
	const op = "lifecycle.CancelListing"
	l, err := o.repo.GetListingCtx(ctx, id)
	if err != nil {
		return err
	}
	if l == nil {
		return errs.NewNotFound(op, "listing", id)
	}
	if !domain.IsListingOwner(l, callerID) {
		return errs.NewForbidden(op, "caller does not own the listing")
	}
	if l.Status != models.ListingActive {
		return errs.NewState(op, "only an active listing can be cancelled")
	}
	return o.repo.SetListingStatusCtx(ctx, id, models.ListingCancelled)
}

// --- Offers ---

// OfferInput carries the caller-supplied fields for a new offer.
type OfferInput struct {
	ListingID int64
	Message   *string
	Items     []OfferItemInput
}

type OfferItemInput struct {
	ProductID int64
	Quantity  int
	Condition models.Condition
}

// CreateOffer inserts a pending offer with its items as one atomic unit.
// The listing is read inside the same transaction so its status cannot
// change between validation and insert.
func (o *Orchestrator) CreateOffer(ctx context.Context, callerID int64, in OfferInput) (*models.Offer, error) {
	const op = "lifecycle.CreateOffer"
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, errs.NewValidation(op, "item quantity must be positive", nil)
		}
		if !it.Condition.Valid() {
			return nil, errs.NewValidation(op, "unknown item condition", nil)
		}
	}

	uow, err := o.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	l, err := uow.GetListingCtx(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, errs.NewNotFound(op, "listing", in.ListingID)
	}
	if l.Status != models.ListingActive {
		return nil, errs.NewState(op, "listing is not active")
	}
	if l.OwnerID == callerID {
		return nil, errs.NewValidation(op, "cannot offer on own listing", nil)
	}

	offer := &models.Offer{
		ListingID:  in.ListingID,
		FromUserID: callerID,
		ToUserID:   l.OwnerID,
		Message:    in.Message,
		Status:     models.OfferPending,
	}
	for _, it := range in.Items {
		offer.Items = append(offer.Items, models.OfferItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Condition: it.Condition,
		})
	}
	if err := uow.CreateOfferCtx(ctx, offer); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return offer, nil
}

func (o *Orchestrator) GetOffer(ctx context.Context, callerID, id int64) (*models.Offer, error) {
	const op = "lifecycle.GetOffer"
	off, err := o.repo.GetOfferCtx(ctx, id)
	if err != nil {
		return nil, err
	}
	if off == nil {
		return nil, errs.NewNotFound(op, "offer", id)
	}
	if !domain.IsOfferRecipient(off, callerID) && !domain.IsOfferAuthor(off, callerID) {
		return nil, errs.NewForbidden(op, "caller is not a party to the offer")
	}
	return off, nil
}

func (o *Orchestrator) IncomingOffers(ctx context.Context, userID int64) ([]models.OfferView, error) {
	return o.repo.IncomingOffersCtx(ctx, userID)
}

func (o *Orchestrator) OutgoingOffers(ctx context.Context, userID int64) ([]models.OfferView, error) {
	return o.repo.OutgoingOffersCtx(ctx, userID)
}

// AcceptResult is the outcome of a successful acceptance.
type AcceptResult struct {
	Offer *models.Offer `json:"offer"`
	Deal  *models.Deal  `json:"deal"`
}

// AcceptOffer is the protocol's critical section. The listing row is locked
// before the offer row so that competing accepts on the same listing queue
// on one lock instead of deadlocking on each other's offer rows; the offer
// is then re-read under its own lock and validated.
//
// Inside one transaction: flip the offer to accepted, bulk-reject every
// other pending offer, create the deal, pause the listing. Any failure
// rolls back all of it.
func (o *Orchestrator) AcceptOffer(ctx context.Context, callerID, offerID int64) (*AcceptResult, error) {
	const op = "lifecycle.AcceptOffer"
	uow, err := o.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	// Unlocked read to discover the listing id.
	off, err := uow.GetOfferCtx(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if off == nil {
		return nil, errs.NewNotFound(op, "offer", offerID)
	}

	listing, err := uow.GetListingForUpdateCtx(ctx, off.ListingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, errs.NewNotFound(op, "listing", off.ListingID)
	}

	// Re-read under lock: the first read is stale once we hold the listing.
	off, err = uow.GetOfferForUpdateCtx(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if off == nil {
		return nil, errs.NewNotFound(op, "offer", offerID)
	}
	if !domain.IsOfferRecipient(off, callerID) {
		return nil, errs.NewForbidden(op, "only the listing owner may accept")
	}
	if off.Status != models.OfferPending {
		return nil, errs.NewState(op, "offer already handled")
	}
	if listing.Status != models.ListingActive {
		return nil, errs.NewState(op, "listing is not active")
	}

	if err := uow.SetOfferStatusCtx(ctx, offerID, models.OfferAccepted); err != nil {
		return nil, err
	}
	rejected, err := uow.RejectPendingOffersCtx(ctx, off.ListingID, offerID)
	if err != nil {
		return nil, err
	}
	deal := &models.Deal{
		OfferID:   offerID,
		ListingID: off.ListingID,
		SellerID:  off.ToUserID,
		BuyerID:   off.FromUserID,
		Status:    models.DealInProgress,
	}
	if err := uow.CreateDealCtx(ctx, deal); err != nil {
		return nil, err
	}
	if err := uow.SetListingStatusCtx(ctx, off.ListingID, models.ListingPaused); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	off.Status = models.OfferAccepted
	o.mAccepted.Inc(1)
	if o.log != nil {
		o.log.Info("offer accepted",
			logging.OfferID(offerID), logging.ListingID(off.ListingID),
			logging.DealID(deal.ID), logging.Int64("rejected_offers", rejected))
	}
	o.record(ctx, events.OfferAccepted{
		Base:     events.Base{Ts: time.Now(), LID: off.ListingID},
		OfferID:  offerID,
		DealID:   deal.ID,
		Rejected: rejected,
	})
	return &AcceptResult{Offer: off, Deal: deal}, nil
}

// RejectOffer declines a pending offer. Single-row transition, but it still
// takes the row lock so a racing accept cannot be overwritten.
func (o *Orchestrator) RejectOffer(ctx context.Context, callerID, offerID int64) (*models.Offer, error) {
	return o.closeOffer(ctx, callerID, offerID, models.OfferRejected)
}

// CancelOffer withdraws the caller's own pending offer.
func (o *Orchestrator) CancelOffer(ctx context.Context, callerID, offerID int64) (*models.Offer, error) {
	return o.closeOffer(ctx, callerID, offerID, models.OfferCancelled)
}

func (o *Orchestrator) closeOffer(ctx context.Context, callerID, offerID int64, to models.OfferStatus) (*models.Offer, error) {
	const op = "lifecycle.closeOffer"
	uow, err := o.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	off, err := uow.GetOfferForUpdateCtx(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if off == nil {
		return nil, errs.NewNotFound(op, "offer", offerID)
	}
	switch to {
	case models.OfferRejected:
		if !domain.IsOfferRecipient(off, callerID) {
			return nil, errs.NewForbidden(op, "only the listing owner may reject")
		}
	case models.OfferCancelled:
		if !domain.IsOfferAuthor(off, callerID) {
			return nil, errs.NewForbidden(op, "only the offer author may cancel")
		}
	}
	if off.Status != models.OfferPending {
		return nil, errs.NewState(op, "offer already handled")
	}
	if err := uow.SetOfferStatusCtx(ctx, offerID, to); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	off.Status = to
	return off, nil
}

// --- Deals ---

func (o *Orchestrator) GetDeal(ctx context.Context, callerID, id int64) (*models.DealView, error) {
	const op = "lifecycle.GetDeal"
	v, err := o.repo.GetDealViewCtx(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errs.NewNotFound(op, "deal", id)
	}
	if !domain.IsDealParty(&v.Deal, callerID) {
		return nil, errs.NewForbidden(op, "caller is not a party to the deal")
	}
	return v, nil
}

func (o *Orchestrator) MyDeals(ctx context.Context, userID int64) ([]models.DealView, error) {
	return o.repo.DealsByUserCtx(ctx, userID)
}

// ConfirmDeal records the caller's confirmation under the deal's row lock.
// Two parties confirming at the same wall-clock moment serialize on the
// lock; whichever runs second observes both flags set and completes the
// deal. Confirming an already-confirmed side is idempotent.
func (o *Orchestrator) ConfirmDeal(ctx context.Context, callerID, dealID int64) (*models.Deal, error) {
	const op = "lifecycle.ConfirmDeal"
	uow, err := o.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	d, err := uow.GetDealForUpdateCtx(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errs.NewNotFound(op, "deal", dealID)
	}
	if d.Status != models.DealInProgress {
		return nil, errs.NewState(op, "deal already completed or cancelled")
	}
	side, ok := domain.DealSideOf(d, callerID)
	if !ok {
		return nil, errs.NewForbidden(op, "caller is not a party to the deal")
	}

	if err := uow.SetDealConfirmedCtx(ctx, dealID, side); err != nil {
		return nil, err
	}

	// Re-read within the same transaction: the other side's flag may have
	// been committed before our lock was granted.
	d, err = uow.GetDealCtx(ctx, dealID)
	if err != nil {
		return nil, err
	}
	completed := d.SellerConfirmed && d.BuyerConfirmed
	if completed {
		if err := uow.CompleteDealCtx(ctx, dealID); err != nil {
			return nil, err
		}
		if err := uow.SetListingStatusCtx(ctx, d.ListingID, models.ListingCompleted); err != nil {
			return nil, err
		}
		d, err = uow.GetDealCtx(ctx, dealID)
		if err != nil {
			return nil, err
		}
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if completed {
		o.mCompleted.Inc(1)
		if o.log != nil {
			o.log.Info("deal completed", logging.DealID(dealID), logging.ListingID(d.ListingID))
		}
		o.record(ctx, events.DealCompleted{
			Base:     events.Base{Ts: time.Now(), LID: d.ListingID},
			DealID:   dealID,
			SellerID: d.SellerID,
			BuyerID:  d.BuyerID,
		})
	}
	return d, nil
}

// CancelDeal backs out of an in-progress deal and reactivates the listing.
// Both writes share the transaction; a cancelled deal never leaves its
// listing paused.
func (o *Orchestrator) CancelDeal(ctx context.Context, callerID, dealID int64) (*models.Deal, error) {
	const op = "lifecycle.CancelDeal"
	uow, err := o.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	d, err := uow.GetDealForUpdateCtx(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errs.NewNotFound(op, "deal", dealID)
	}
	if !domain.IsDealParty(d, callerID) {
		return nil, errs.NewForbidden(op, "caller is not a party to the deal")
	}
	if d.Status != models.DealInProgress {
		return nil, errs.NewState(op, "deal already completed or cancelled")
	}

	if err := uow.CancelDealCtx(ctx, dealID); err != nil {
		return nil, err
	}
	if err := uow.SetListingStatusCtx(ctx, d.ListingID, models.ListingActive); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	d.Status = models.DealCancelled
	o.mCancelled.Inc(1)
	if o.log != nil {
		o.log.Info("deal cancelled", logging.DealID(dealID), logging.ListingID(d.ListingID), logging.UserID(callerID))
	}
	o.record(ctx, events.DealCancelled{
		Base:        events.Base{Ts: time.Now(), LID: d.ListingID},
		DealID:      dealID,
		CancelledBy: callerID,
	})
	return d, nil
}

// --- Reviews ---

// CreateReview lets a party of a completed deal rate the other party.
func (o *Orchestrator) CreateReview(ctx context.Context, callerID, dealID int64, rating int, comment *string) (*models.Review, error) {
	const op = "lifecycle.CreateReview"
	if rating < 1 || rating > 5 {
		return nil, errs.NewValidation(op, "rating must be between 1 and 5", nil)
	}
	d, err := o.repo.GetDealCtx(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errs.NewNotFound(op, "deal", dealID)
	}
	side, ok := domain.DealSideOf(d, callerID)
	if !ok {
		return nil, errs.NewForbidden(op, "caller is not a party to the deal")
	}
	if d.Status != models.DealCompleted {
		return nil, errs.NewState(op, "deal is not completed")
	}
	existing, err := o.repo.ReviewByDealAuthorCtx(ctx, dealID, callerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errs.NewState(op, "deal already reviewed by caller")
	}

	target := d.SellerID
	if side == models.SideSeller {
		target = d.BuyerID
	}
	r := &models.Review{
		DealID:       dealID,
		AuthorID:     callerID,
		TargetUserID: target,
		Rating:       rating,
		Comment:      comment,
	}
	if err := o.repo.CreateReviewCtx(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (o *Orchestrator) UserReviews(ctx context.Context, userID int64) ([]models.Review, float64, error) {
	return o.repo.ReviewsForUserCtx(ctx, userID)
}

// --- Catalog ---

func (o *Orchestrator) Products(ctx context.Context, category string) ([]models.Product, error) {
	return o.repo.ProductsCtx(ctx, category)
}
