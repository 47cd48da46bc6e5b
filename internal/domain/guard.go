package domain

import "exchange-market/internal/models"

// Access guard: stateless checks that the acting identity may touch an
// entity. The identity itself comes from the external identity provider;
// these functions only compare ids already loaded from the store.

// IsListingOwner reports whether userID owns the listing.
func IsListingOwner(l *models.Listing, userID int64) bool {
	return l != nil && l.OwnerID == userID
}

// IsOfferRecipient reports whether userID is the party an offer was made to
// (the listing owner). Only the recipient may accept or reject.
func IsOfferRecipient(o *models.Offer, userID int64) bool {
	return o != nil && o.ToUserID == userID
}

// IsOfferAuthor reports whether userID created the offer. Only the author
// may cancel it.
func IsOfferAuthor(o *models.Offer, userID int64) bool {
	return o != nil && o.FromUserID == userID
}

// IsDealParty reports whether userID is either side of the deal.
func IsDealParty(d *models.Deal, userID int64) bool {
	return d != nil && (d.SellerID == userID || d.BuyerID == userID)
}

// DealSideOf returns which side of the deal userID is on. ok is false when
// userID is not a party.
func DealSideOf(d *models.Deal, userID int64) (side models.DealSide, ok bool) {
	if d == nil {
		return "", false
	}
	switch userID {
	case d.SellerID:
		return models.SideSeller, true
	case d.BuyerID:
		return models.SideBuyer, true
	}
	return "", false
}
