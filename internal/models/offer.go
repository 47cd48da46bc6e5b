package models

import "time"

// OfferStatus is the lifecycle state of an exchange offer.
type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferCancelled OfferStatus = "cancelled"
)

// Offer is a counter-proposal submitted against a listing. ToUserID is the
// listing owner at creation time, denormalized so authorization checks do
// not need a join. Party identities never change after creation.
type Offer struct {
	ID         int64       `json:"id"`
	ListingID  int64       `json:"listing_id"`
	FromUserID int64       `json:"from_user_id"`
	ToUserID   int64       `json:"to_user_id"`
	Message    *string     `json:"message,omitempty"`
	Status     OfferStatus `json:"status"`
	Items      []OfferItem `json:"items,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// OfferItem describes one counter-good attached to an offer. Items are
// immutable once the offer exists.
type OfferItem struct {
	ID        int64     `json:"id"`
	OfferID   int64     `json:"offer_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Condition Condition `json:"condition"`
}

// OfferView is an offer joined with the listing's product name for the
// incoming/outgoing lists.
type OfferView struct {
	Offer
	ProductName string `json:"product_name"`
}
