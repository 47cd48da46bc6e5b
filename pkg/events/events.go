package events

import (
	"context"
	"time"
)

// Event is the base interface for lifecycle audit events. Payloads stay
// small and JSON-friendly; the event log is an audit trail for the review
// subsystem and admin tooling, never an input to lifecycle transitions.
type Event interface {
	Type() string
	ListingID() int64
	At() time.Time
	Payload() map[string]any
}

// Base contains common event metadata.
type Base struct {
	Ts  time.Time `json:"ts"`
	LID int64     `json:"listing_id"`
}

func (b Base) At() time.Time    { return b.Ts }
func (b Base) ListingID() int64 { return b.LID }

const (
	TypeListingCreated = "listing.created"
	TypeOfferAccepted  = "offer.accepted"
	TypeDealCompleted  = "deal.completed"
	TypeDealCancelled  = "deal.cancelled"
)

// ListingCreated is emitted when a listing enters the marketplace.
type ListingCreated struct {
	Base
	OwnerID   int64 `json:"owner_id"`
	ProductID int64 `json:"product_id"`
}

func (e ListingCreated) Type() string { return TypeListingCreated }
func (e ListingCreated) Payload() map[string]any {
	return map[string]any{"owner_id": e.OwnerID, "product_id": e.ProductID}
}

// OfferAccepted records the acceptance side effects: which offer won, how
// many competitors were rejected, and the deal spawned from it.
type OfferAccepted struct {
	Base
	OfferID  int64 `json:"offer_id"`
	DealID   int64 `json:"deal_id"`
	Rejected int64 `json:"rejected_offers"`
}

func (e OfferAccepted) Type() string { return TypeOfferAccepted }
func (e OfferAccepted) Payload() map[string]any {
	return map[string]any{"offer_id": e.OfferID, "deal_id": e.DealID, "rejected_offers": e.Rejected}
}

// DealCompleted is emitted when both parties have confirmed.
type DealCompleted struct {
	Base
	DealID   int64 `json:"deal_id"`
	SellerID int64 `json:"seller_id"`
	BuyerID  int64 `json:"buyer_id"`
}

func (e DealCompleted) Type() string { return TypeDealCompleted }
func (e DealCompleted) Payload() map[string]any {
	return map[string]any{"deal_id": e.DealID, "seller_id": e.SellerID, "buyer_id": e.BuyerID}
}

// DealCancelled is emitted when a party backs out and the listing reopens.
type DealCancelled struct {
	Base
	DealID      int64 `json:"deal_id"`
	CancelledBy int64 `json:"cancelled_by"`
}

func (e DealCancelled) Type() string { return TypeDealCancelled }
func (e DealCancelled) Payload() map[string]any {
	return map[string]any{"deal_id": e.DealID, "cancelled_by": e.CancelledBy}
}

// Recorder persists events. Implementations must tolerate failure without
// affecting the committed transition: appends are best effort.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// StoredEvent is a durable representation. Seq is a monotonic order within
// the store (BIGINT AUTO_INCREMENT).
type StoredEvent struct {
	Seq       int64          `json:"seq"`
	ListingID int64          `json:"listing_id"`
	Type      string         `json:"type"`
	At        time.Time      `json:"at"`
	Data      map[string]any `json:"data"`
}

// Store extends Recorder with reads for the audit views.
type Store interface {
	Recorder
	ListByListing(ctx context.Context, listingID int64) ([]StoredEvent, error)
}

// NopRecorder discards events. Used in tests and when the event table is
// not provisioned.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) error { return nil }
