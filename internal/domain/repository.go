package domain

import (
	"context"

	"exchange-market/internal/models"
)

// ListingRepository defines data access for listings and their read views.
// Methods returning (*T, nil) with a nil pointer indicate an absent row;
// mapping that to a NotFound error is the orchestrator's job.
type ListingRepository interface {
	CreateListingCtx(ctx context.Context, l *models.Listing) error
	GetListingCtx(ctx context.Context, id int64) (*models.Listing, error)
	// GetListingForUpdateCtx locks the listing row until the surrounding
	// transaction ends. Only meaningful inside a UnitOfWork.
	GetListingForUpdateCtx(ctx context.Context, id int64) (*models.Listing, error)
	GetListingViewCtx(ctx context.Context, id int64) (*models.ListingView, error)
	ListListingsCtx(ctx context.Context, f models.ListingFilter) ([]models.ListingView, int, error)
	ListingsByOwnerCtx(ctx context.Context, ownerID int64) ([]models.OwnerListing, error)
	UpdateListingFieldsCtx(ctx context.Context, id int64, upd models.ListingUpdate) (*models.Listing, error)
	SetListingStatusCtx(ctx context.Context, id int64, status models.ListingStatus) error
	// AddListingViewsCtx bumps the view counter. Plain increment, no lock:
	// view counts tolerate drift under races.
	AddListingViewsCtx(ctx context.Context, id int64, delta int64) error
}

// OfferRepository defines data access for offers and their items.
type OfferRepository interface {
	// CreateOfferCtx inserts the offer row and all item rows as one unit.
	CreateOfferCtx(ctx context.Context, o *models.Offer) error
	GetOfferCtx(ctx context.Context, id int64) (*models.Offer, error)
	// GetOfferForUpdateCtx locks the offer row until the surrounding
	// transaction ends. Only meaningful inside a UnitOfWork.
	GetOfferForUpdateCtx(ctx context.Context, id int64) (*models.Offer, error)
	OfferItemsCtx(ctx context.Context, offerID int64) ([]models.OfferItem, error)
	IncomingOffersCtx(ctx context.Context, userID int64) ([]models.OfferView, error)
	OutgoingOffersCtx(ctx context.Context, userID int64) ([]models.OfferView, error)
	SetOfferStatusCtx(ctx context.Context, id int64, status models.OfferStatus) error
	// RejectPendingOffersCtx bulk-rejects every pending offer on the listing
	// except the given one. Returns the number of offers rejected.
	RejectPendingOffersCtx(ctx context.Context, listingID, exceptOfferID int64) (int64, error)
}

// DealRepository defines data access for deals.
type DealRepository interface {
	CreateDealCtx(ctx context.Context, d *models.Deal) error
	GetDealCtx(ctx context.Context, id int64) (*models.Deal, error)
	// GetDealForUpdateCtx locks the deal row until the surrounding
	// transaction ends. Only meaningful inside a UnitOfWork.
	GetDealForUpdateCtx(ctx context.Context, id int64) (*models.Deal, error)
	GetDealViewCtx(ctx context.Context, id int64) (*models.DealView, error)
	DealsByUserCtx(ctx context.Context, userID int64) ([]models.DealView, error)
	SetDealConfirmedCtx(ctx context.Context, id int64, side models.DealSide) error
	// CompleteDealCtx flips status to completed and stamps completed_at in
	// the same statement.
	CompleteDealCtx(ctx context.Context, id int64) error
	CancelDealCtx(ctx context.Context, id int64) error
}

// CatalogRepository is read-only product lookup glue.
type CatalogRepository interface {
	ProductsCtx(ctx context.Context, category string) ([]models.Product, error)
	GetProductCtx(ctx context.Context, id int64) (*models.Product, error)
}

// ReviewRepository defines access for deal reviews.
type ReviewRepository interface {
	CreateReviewCtx(ctx context.Context, r *models.Review) error
	ReviewByDealAuthorCtx(ctx context.Context, dealID, authorID int64) (*models.Review, error)
	// ReviewsForUserCtx returns all reviews about the user plus the average
	// rating computed on read. The average is never stored.
	ReviewsForUserCtx(ctx context.Context, userID int64) ([]models.Review, float64, error)
}

// Repository aggregates the repos commonly required by services.
type Repository interface {
	ListingRepository
	OfferRepository
	DealRepository
	CatalogRepository
	ReviewRepository
}
