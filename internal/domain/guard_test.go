package domain

import (
	"testing"

	"exchange-market/internal/models"
)

func TestGuards(t *testing.T) {
	l := &models.Listing{ID: 1, OwnerID: 10}
	if !IsListingOwner(l, 10) || IsListingOwner(l, 11) || IsListingOwner(nil, 10) {
		t.Fatal("IsListingOwner")
	}

	o := &models.Offer{ID: 2, FromUserID: 20, ToUserID: 10}
	if !IsOfferRecipient(o, 10) || IsOfferRecipient(o, 20) {
		t.Fatal("IsOfferRecipient")
	}
	if !IsOfferAuthor(o, 20) || IsOfferAuthor(o, 10) {
		t.Fatal("IsOfferAuthor")
	}

	d := &models.Deal{ID: 3, SellerID: 10, BuyerID: 20}
	if !IsDealParty(d, 10) || !IsDealParty(d, 20) || IsDealParty(d, 30) {
		t.Fatal("IsDealParty")
	}
}

func TestDealSideOf(t *testing.T) {
	d := &models.Deal{SellerID: 10, BuyerID: 20}

	cases := []struct {
		userID   int64
		wantSide models.DealSide
		wantOK   bool
	}{
		{10, models.SideSeller, true},
		{20, models.SideBuyer, true},
		{30, "", false},
	}
	for _, tc := range cases {
		side, ok := DealSideOf(d, tc.userID)
		if side != tc.wantSide || ok != tc.wantOK {
			t.Errorf("DealSideOf(%d) = %q,%v; want %q,%v", tc.userID, side, ok, tc.wantSide, tc.wantOK)
		}
	}
	if _, ok := DealSideOf(nil, 10); ok {
		t.Fatal("nil deal must have no side")
	}
}

// A deal where one user is both sides should resolve to seller first; the
// schema forbids it, but the guard must stay deterministic.
func TestDealSideOfSamePartyPrefersSeller(t *testing.T) {
	d := &models.Deal{SellerID: 10, BuyerID: 10}
	side, ok := DealSideOf(d, 10)
	if !ok || side != models.SideSeller {
		t.Fatalf("got %q,%v", side, ok)
	}
}
