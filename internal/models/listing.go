package models

import "time"

// ListingStatus is the lifecycle state of a listing.
type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingPaused    ListingStatus = "paused"
	ListingCompleted ListingStatus = "completed"
	ListingCancelled ListingStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s ListingStatus) Terminal() bool {
	return s == ListingCompleted || s == ListingCancelled
}

// Condition describes the physical state of the goods.
type Condition string

const (
	ConditionNew    Condition = "new"
	ConditionOpened Condition = "opened"
	ConditionUsed   Condition = "used"
)

func (c Condition) Valid() bool {
	return c == ConditionNew || c == ConditionOpened || c == ConditionUsed
}

// Listing is a user's request to exchange a quantity of a catalog product.
// Owned exclusively by its creating user; status transitions are driven
// either by the owner or by the lifecycle orchestrator.
type Listing struct {
	ID                int64         `json:"id"`
	OwnerID           int64         `json:"user_id"`
	ProductID         int64         `json:"product_id"`
	Quantity          int           `json:"quantity"`
	Condition         Condition     `json:"condition"`
	Description       *string       `json:"description,omitempty"`
	City              *string       `json:"city,omitempty"`
	WantedDescription *string       `json:"wanted_description,omitempty"`
	Status            ListingStatus `json:"status"`
	ViewsCount        int64         `json:"views_count"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// ListingView is a listing joined with catalog display metadata.
type ListingView struct {
	Listing
	ProductName     string `json:"product_name"`
	ProductCategory string `json:"product_category"`
}

// OwnerListing is a listing row in the owner's dashboard, with the number
// of pending offers computed on read.
type OwnerListing struct {
	Listing
	ProductName   string `json:"product_name"`
	PendingOffers int    `json:"offers_count"`
}

// ListingFilter narrows a listing browse query. Zero values mean "no filter";
// Status defaults to active when empty. Page is 1-based.
type ListingFilter struct {
	City      string
	Category  string
	ProductID int64
	Status    ListingStatus
	Page      int
	Limit     int
}

// Normalize applies the browse defaults used by the public listing feed.
func (f *ListingFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 50 {
		f.Limit = 20
	}
	if f.Status == "" {
		f.Status = ListingActive
	}
}

// ListingUpdate is a sparse, owner-editable field set. Nil fields are left
// untouched. Status here only covers owner-driven transitions; the
// orchestrator writes system transitions directly.
type ListingUpdate struct {
	Quantity          *int           `json:"quantity,omitempty"`
	Condition         *Condition     `json:"condition,omitempty"`
	Description       *string        `json:"description,omitempty"`
	City              *string        `json:"city,omitempty"`
	WantedDescription *string        `json:"wanted_description,omitempty"`
	Status            *ListingStatus `json:"status,omitempty"`
}

// Empty reports whether the update carries no recognized fields.
func (u ListingUpdate) Empty() bool {
	return u.Quantity == nil && u.Condition == nil && u.Description == nil &&
		u.City == nil && u.WantedDescription == nil && u.Status == nil
}
