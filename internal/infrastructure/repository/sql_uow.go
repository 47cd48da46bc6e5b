package repository

import (
	"context"
	"database/sql"

	"exchange-market/internal/domain"
	"exchange-market/internal/models"
	"exchange-market/pkg/database"
	errs "exchange-market/pkg/errors"
)

// SQLUnitOfWorkFactory starts SQL-backed UnitOfWork transactions.
type SQLUnitOfWorkFactory struct {
	db *database.DB
}

func NewSQLUnitOfWorkFactory(db *database.DB) *SQLUnitOfWorkFactory {
	return &SQLUnitOfWorkFactory{db: db}
}

// Ensure interface conformance
var _ domain.UnitOfWorkFactory = (*SQLUnitOfWorkFactory)(nil)

func (f *SQLUnitOfWorkFactory) Begin(ctx context.Context) (domain.UnitOfWork, error) {
	tx, err := f.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return nil, errs.NewStore("uow.Begin", "begin tx", err)
	}
	return &SQLUnitOfWork{tx: tx}, nil
}

// SQLUnitOfWork coordinates repository operations on a single *sql.Tx. Row
// locks taken through the ForUpdate methods are released when the
// transaction ends.
type SQLUnitOfWork struct {
	tx *sql.Tx
	// simple guard to avoid double commit/rollback
	closed bool
}

// compile-time check: SQLUnitOfWork implements UnitOfWork and repo methods
var _ domain.UnitOfWork = (*SQLUnitOfWork)(nil)

func (u *SQLUnitOfWork) Commit() error {
	if u.closed {
		return nil
	}
	u.closed = true
	if err := u.tx.Commit(); err != nil {
		return errs.NewStore("uow.Commit", "commit tx", err)
	}
	return nil
}

func (u *SQLUnitOfWork) Rollback() error {
	if u.closed {
		return nil
	}
	u.closed = true
	return u.tx.Rollback()
}

// Listing repository methods

func (u *SQLUnitOfWork) CreateListingCtx(ctx context.Context, l *models.Listing) error {
	return insertListing(ctx, u.tx, l)
}

func (u *SQLUnitOfWork) GetListingCtx(ctx context.Context, id int64) (*models.Listing, error) {
	return getListing(ctx, u.tx, id, false)
}

func (u *SQLUnitOfWork) GetListingForUpdateCtx(ctx context.Context, id int64) (*models.Listing, error) {
	return getListing(ctx, u.tx, id, true)
}

func (u *SQLUnitOfWork) GetListingViewCtx(ctx context.Context, id int64) (*models.ListingView, error) {
	return getListingView(ctx, u.tx, id)
}

func (u *SQLUnitOfWork) ListListingsCtx(ctx context.Context, f models.ListingFilter) ([]models.ListingView, int, error) {
	return listListings(ctx, u.tx, f)
}

func (u *SQLUnitOfWork) ListingsByOwnerCtx(ctx context.Context, ownerID int64) ([]models.OwnerListing, error) {
	return listingsByOwner(ctx, u.tx, ownerID)
}

func (u *SQLUnitOfWork) UpdateListingFieldsCtx(ctx context.Context, id int64, upd models.ListingUpdate) (*models.Listing, error) {
	return updateListingFields(ctx, u.tx, id, upd)
}

func (u *SQLUnitOfWork) SetListingStatusCtx(ctx context.Context, id int64, status models.ListingStatus) error {
	return setListingStatus(ctx, u.tx, id, status)
}

func (u *SQLUnitOfWork) AddListingViewsCtx(ctx context.Context, id int64, delta int64) error {
	return addListingViews(ctx, u.tx, id, delta)
}

// Offer repository methods

func (u *SQLUnitOfWork) CreateOfferCtx(ctx context.Context, o *models.Offer) error {
	return insertOffer(ctx, u.tx, o)
}

func (u *SQLUnitOfWork) GetOfferCtx(ctx context.Context, id int64) (*models.Offer, error) {
	return getOffer(ctx, u.tx, id, false)
}

func (u *SQLUnitOfWork) GetOfferForUpdateCtx(ctx context.Context, id int64) (*models.Offer, error) {
	return getOffer(ctx, u.tx, id, true)
}

func (u *SQLUnitOfWork) OfferItemsCtx(ctx context.Context, offerID int64) ([]models.OfferItem, error) {
	return offerItems(ctx, u.tx, offerID)
}

func (u *SQLUnitOfWork) IncomingOffersCtx(ctx context.Context, userID int64) ([]models.OfferView, error) {
	return offersByParty(ctx, u.tx, "o.to_user_id", userID)
}

func (u *SQLUnitOfWork) OutgoingOffersCtx(ctx context.Context, userID int64) ([]models.OfferView, error) {
	return offersByParty(ctx, u.tx, "o.from_user_id", userID)
}

func (u *SQLUnitOfWork) SetOfferStatusCtx(ctx context.Context, id int64, status models.OfferStatus) error {
	return setOfferStatus(ctx, u.tx, id, status)
}

func (u *SQLUnitOfWork) RejectPendingOffersCtx(ctx context.Context, listingID, exceptOfferID int64) (int64, error) {
	return rejectPendingOffers(ctx, u.tx, listingID, exceptOfferID)
}

// Deal repository methods

func (u *SQLUnitOfWork) CreateDealCtx(ctx context.Context, d *models.Deal) error {
	return insertDeal(ctx, u.tx, d)
}

func (u *SQLUnitOfWork) GetDealCtx(ctx context.Context, id int64) (*models.Deal, error) {
	return getDeal(ctx, u.tx, id, false)
}

func (u *SQLUnitOfWork) GetDealForUpdateCtx(ctx context.Context, id int64) (*models.Deal, error) {
	return getDeal(ctx, u.tx, id, true)
}

func (u *SQLUnitOfWork) GetDealViewCtx(ctx context.Context, id int64) (*models.DealView, error) {
	return getDealView(ctx, u.tx, id)
}

func (u *SQLUnitOfWork) DealsByUserCtx(ctx context.Context, userID int64) ([]models.DealView, error) {
	return dealsByUser(ctx, u.tx, userID)
}

func (u *SQLUnitOfWork) SetDealConfirmedCtx(ctx context.Context, id int64, side models.DealSide) error {
	return setDealConfirmed(ctx, u.tx, id, side)
}

func (u *SQLUnitOfWork) CompleteDealCtx(ctx context.Context, id int64) error {
	return completeDeal(ctx, u.tx, id)
}

func (u *SQLUnitOfWork) CancelDealCtx(ctx context.Context, id int64) error {
	return cancelDeal(ctx, u.tx, id)
}
