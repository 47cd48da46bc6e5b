package models

import "time"

// DealStatus is the lifecycle state of a deal.
type DealStatus string

const (
	DealInProgress DealStatus = "in_progress"
	DealCompleted  DealStatus = "completed"
	DealCancelled  DealStatus = "cancelled"
)

// DealSide identifies which party of a deal is acting.
type DealSide string

const (
	SideSeller DealSide = "seller"
	SideBuyer  DealSide = "buyer"
)

// Deal is the binding agreement created when an offer is accepted. It
// completes only when both confirmation flags are true; CompletedAt is set
// exactly once, atomically with the status flip.
type Deal struct {
	ID              int64      `json:"id"`
	OfferID         int64      `json:"offer_id"`
	ListingID       int64      `json:"listing_id"`
	SellerID        int64      `json:"seller_id"`
	BuyerID         int64      `json:"buyer_id"`
	Status          DealStatus `json:"status"`
	SellerConfirmed bool       `json:"seller_confirmed"`
	BuyerConfirmed  bool       `json:"buyer_confirmed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DealView is a deal joined with the listing's product name.
type DealView struct {
	Deal
	ProductName string `json:"product_name"`
}
