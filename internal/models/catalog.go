package models

import "time"

// Product is catalog display metadata. The lifecycle engine only references
// product ids; the catalog itself is read-only glue.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Review is written by one party of a completed deal about the other.
// Reviews read completed-deal state but never participate in lifecycle
// transitions.
type Review struct {
	ID           int64     `json:"id"`
	DealID       int64     `json:"deal_id"`
	AuthorID     int64     `json:"author_id"`
	TargetUserID int64     `json:"target_user_id"`
	Rating       int       `json:"rating"`
	Comment      *string   `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
