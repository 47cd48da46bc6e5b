// Package repository contains the SQL implementations of the domain
// repositories. Query logic lives in package-level functions over a queryer
// so the same statements serve both the plain repository (pool-backed, with
// standard timeouts) and the transactional unit of work.
package repository

import (
	"context"
	"database/sql"

	"exchange-market/internal/domain"
	"exchange-market/internal/models"
	"exchange-market/pkg/database"
	errs "exchange-market/pkg/errors"
)

// queryer is the subset of database/sql shared by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLRepository implements domain.Repository against the connection pool.
// Single-row operations run outside any explicit transaction; multi-row
// lifecycle transitions go through the unit of work instead.
type SQLRepository struct {
	db *database.DB
}

func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// Ensure interface conformance
var _ domain.Repository = (*SQLRepository)(nil)

// Listings

func (r *SQLRepository) CreateListingCtx(ctx context.Context, l *models.Listing) error {
	wctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return insertListing(wctx, r.db.Conn(), l)
}

func (r *SQLRepository) GetListingCtx(ctx context.Context, id int64) (*models.Listing, error) {
	rctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return getListing(rctx, r.db.Conn(), id, false)
}

func (r *SQLRepository) GetListingForUpdateCtx(ctx context.Context, id int64) (*models.Listing, error) {
	// FOR UPDATE outside a transaction locks nothing; surface misuse early.
	return nil, errs.NewStore("repository.GetListingForUpdate", "row lock requires a unit of work", nil)
}

func (r *SQLRepository) GetListingViewCtx(ctx context.Context, id int64) (*models.ListingView, error) {
	rctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return getListingView(rctx, r.db.Conn(), id)
}

func (r *SQLRepository) ListListingsCtx(ctx context.Context, f models.ListingFilter) ([]models.ListingView, int, error) {
	rctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return listListings(rctx, r.db.Conn(), f)
}

func (r *SQLRepository) ListingsByOwnerCtx(ctx context.Context, ownerID int64) ([]models.OwnerListing, error) {
	rctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return listingsByOwner(rctx, r.db.Conn(), ownerID)
}

func (r *SQLRepository) UpdateListingFieldsCtx(ctx context.Context, id int64, upd models.ListingUpdate) (*models.Listing, error) {
	wctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return updateListingFields(wctx, r.db.Conn(), id, upd)
}

func (r *SQLRepository) SetListingStatusCtx(ctx context.Context, id int64, status models.ListingStatus) error {
	wctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return setListingStatus(wctx, r.db.Conn(), id, status)
}

func (r *SQLRepository) AddListingViewsCtx(ctx context.Context, id int64, delta int64) error {
	wctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return addListingViews(wctx, r.db.Conn(), id, delta)
}

// Offers

// CreateOfferCtx wraps its own transaction: the offer row and its item rows
// must land as one unit even outside a lifecycle unit of work.
func (r *SQLRepository) CreateOfferCtx(ctx context.Context, o *models.Offer) error {
	wctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	tx, err := r.db.Conn().BeginTx(wctx, nil)
	if err != nil {
		return errs.NewStore("repository.CreateOffer", "begin tx", err)
	}
	defer tx.Rollback()
	if err := insertOffer(wctx, tx, o); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errs.NewStore("repository.CreateOffer", "commit", err)
	}
	return nil
}

func (r *SQLRepository) GetOfferCtx(ctx context.Context, id int64) (*models.Offer, error) {
	rctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return getOffer(rctx, r.db.Conn(), id, false)
}

func (r *SQLRepository) GetOfferForUpdateCtx(ctx context.Context, id int64) (*models.Offer, error) {
	return nil, errs.NewStore("repository.GetOfferForUpdate", "row lock requires a unit of work", nil)
}

func (r *SQLRepository) OfferItemsCtx(ctx context.Context, offerID int64) ([]models.OfferItem, error) {
	rctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return offerItems(rctx, r.db.Conn(), offerID)
}

func (r *SQLRepository) IncomingOffersCtx(ctx context.Context, userID int64) ([]models.OfferView, error) {
	rctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return offersByParty(rctx, r.db.Conn(), "o.to_user_id", userID)
}

func (r *SQLRepository) OutgoingOffersCtx(ctx context.Context, userID int64) ([]models.OfferView, error) {
	rctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return offersByParty(rctx, r.db.Conn(), "o.from_user_id", userID)
}

func (r *SQLRepository) SetOfferStatusCtx(ctx context.Context, id int64, status models.OfferStatus) error {
	wctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return setOfferStatus(wctx, r.db.Conn(), id, status)
}

func (r *SQLRepository) RejectPendingOffersCtx(ctx context.Context, listingID, exceptOfferID int64) (int64, error) {
	wctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return rejectPendingOffers(wctx, r.db.Conn(), listingID, exceptOfferID)
}

// Deals

func (r *SQLRepository) CreateDealCtx(ctx context.Context, d *models.Deal) error {
	wctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return insertDeal(wctx, r.db.Conn(), d)
}

func (r *SQLRepository) GetDealCtx(ctx context.Context, id int64) (*models.Deal, error) {
	rctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return getDeal(rctx, r.db.Conn(), id, false)
}

func (r *SQLRepository) GetDealForUpdateCtx(ctx context.Context, id int64) (*models.Deal, error) {
	return nil, errs.NewStore("repository.GetDealForUpdate", "row lock requires a unit of work", nil)
}

func (r *SQLRepository) GetDealViewCtx(ctx context.Context, id int64) (*models.DealView, error) {
	rctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return getDealView(rctx, r.db.Conn(), id)
}

func (r *SQLRepository) DealsByUserCtx(ctx context.Context, userID int64) ([]models.DealView, error) {
	rctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return dealsByUser(rctx, r.db.Conn(), userID)
}

func (r *SQLRepository) SetDealConfirmedCtx(ctx context.Context, id int64, side models.DealSide) error {
	wctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return setDealConfirmed(wctx, r.db.Conn(), id, side)
}

func (r *SQLRepository) CompleteDealCtx(ctx context.Context, id int64) error {
	wctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return completeDeal(wctx, r.db.Conn(), id)
}

func (r *SQLRepository) CancelDealCtx(ctx context.Context, id int64) error {
	wctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return cancelDeal(wctx, r.db.Conn(), id)
}

// Catalog

func (r *SQLRepository) ProductsCtx(ctx context.Context, category string) ([]models.Product, error) {
	rctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return listProducts(rctx, r.db.Conn(), category)
}

func (r *SQLRepository) GetProductCtx(ctx context.Context, id int64) (*models.Product, error) {
	rctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return getProduct(rctx, r.db.Conn(), id)
}

// Reviews

func (r *SQLRepository) CreateReviewCtx(ctx context.Context, rv *models.Review) error {
	wctx, cancel := r.db.WriteContext(ctx)
	defer cancel()
	return insertReview(wctx, r.db.Conn(), rv)
}

func (r *SQLRepository) ReviewByDealAuthorCtx(ctx context.Context, dealID, authorID int64) (*models.Review, error) {
	rctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return reviewByDealAuthor(rctx, r.db.Conn(), dealID, authorID)
}

func (r *SQLRepository) ReviewsForUserCtx(ctx context.Context, userID int64) ([]models.Review, float64, error) {
	rctx, cancel := r.db.ReadContext(ctx)
	defer cancel()
	return reviewsForUser(rctx, r.db.Conn(), userID)
}
