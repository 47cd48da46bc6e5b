package lifecycle

import (
	"context"
	"sync"
	"testing"

	"exchange-market/internal/models"
	memtest "exchange-market/internal/testing"
	errs "exchange-market/pkg/errors"
	"exchange-market/pkg/events"
)

const (
	alice = int64(1) // listing owner / seller
	bob   = int64(2) // offer author / buyer
	carol = int64(3)
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *memtest.MemStore, int64) {
	t.Helper()
	store := memtest.NewMemStore()
	productID := store.SeedProduct("mechanical keyboard", "electronics")
	orc := NewOrchestrator(store, store, nil, events.NopRecorder{}, nil)
	return orc, store, productID
}

func mustListing(t *testing.T, orc *Orchestrator, owner, productID int64) *models.Listing {
	t.Helper()
	l, err := orc.CreateListing(context.Background(), owner, ListingInput{
		ProductID: productID,
		Quantity:  1,
		Condition: models.ConditionUsed,
	})
	if err != nil {
		t.Fatalf("CreateListing: %v", err)
	}
	return l
}

func mustOffer(t *testing.T, orc *Orchestrator, from, listingID int64) *models.Offer {
	t.Helper()
	o, err := orc.CreateOffer(context.Background(), from, OfferInput{
		ListingID: listingID,
		Items: []OfferItemInput{
			{ProductID: 1, Quantity: 2, Condition: models.ConditionNew},
		},
	})
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	return o
}

func TestCreateListingValidation(t *testing.T) {
	orc, _, productID := newTestOrchestrator(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   ListingInput
	}{
		{"zero quantity", ListingInput{ProductID: productID, Quantity: 0, Condition: models.ConditionNew}},
		{"bad condition", ListingInput{ProductID: productID, Quantity: 1, Condition: "mint"}},
		{"unknown product", ListingInput{ProductID: 999, Quantity: 1, Condition: models.ConditionNew}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := orc.CreateListing(ctx, alice, tc.in); !errs.IsValidation(err) {
				t.Fatalf("want validation error, got %v", err)
			}
		})
	}

	l := mustListing(t, orc, alice, productID)
	if l.Status != models.ListingActive {
		t.Fatalf("new listing status = %s, want active", l.Status)
	}
}

func TestCreateOfferRules(t *testing.T) {
	orc, _, productID := newTestOrchestrator(t)
	ctx := context.Background()
	l := mustListing(t, orc, alice, productID)

	if _, err := orc.CreateOffer(ctx, alice, OfferInput{ListingID: l.ID}); !errs.IsValidation(err) {
		t.Fatalf("self-offer: want validation error, got %v", err)
	}
	if _, err := orc.CreateOffer(ctx, bob, OfferInput{ListingID: 999}); !errs.IsNotFound(err) {
		t.Fatalf("missing listing: want not found, got %v", err)
	}

	o := mustOffer(t, orc, bob, l.ID)
	if o.Status != models.OfferPending {
		t.Fatalf("offer status = %s, want pending", o.Status)
	}
	if o.ToUserID != alice {
		t.Fatalf("offer recipient = %d, want %d", o.ToUserID, alice)
	}
	if len(o.Items) != 1 || o.Items[0].OfferID != o.ID {
		t.Fatalf("offer items not persisted with offer: %+v", o.Items)
	}

	// Offers are rejected once the listing leaves active.
	if err := orc.CancelListing(ctx, alice, l.ID); err != nil {
		t.Fatalf("CancelListing: %v", err)
	}
	if _, err := orc.CreateOffer(ctx, carol, OfferInput{ListingID: l.ID}); !errs.IsState(err) {
		t.Fatalf("offer on cancelled listing: want state error, got %v", err)
	}
}

func TestAcceptOffer(t *testing.T) {
	orc, store, productID := newTestOrchestrator(t)
	ctx := context.Background()
	l := mustListing(t, orc, alice, productID)
	winner := mustOffer(t, orc, bob, l.ID)
	loser := mustOffer(t, orc, carol, l.ID)

	if _, err := orc.AcceptOffer(ctx, bob, winner.ID); !errs.IsForbidden(err) {
		t.Fatalf("author accepting own offer: want forbidden, got %v", err)
	}

	res, err := orc.AcceptOffer(ctx, alice, winner.ID)
	if err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}
	if res.Offer.Status != models.OfferAccepted {
		t.Fatalf("accepted offer status = %s", res.Offer.Status)
	}
	if res.Deal.SellerID != alice || res.Deal.BuyerID != bob {
		t.Fatalf("deal parties = %d/%d, want %d/%d", res.Deal.SellerID, res.Deal.BuyerID, alice, bob)
	}
	if res.Deal.Status != models.DealInProgress {
		t.Fatalf("deal status = %s, want in_progress", res.Deal.Status)
	}

	lost, _ := store.GetOfferCtx(ctx, loser.ID)
	if lost.Status != models.OfferRejected {
		t.Fatalf("sibling offer status = %s, want rejected", lost.Status)
	}
	after, _ := store.GetListingCtx(ctx, l.ID)
	if after.Status != models.ListingPaused {
		t.Fatalf("listing status = %s, want paused", after.Status)
	}

	// The rejected sibling can no longer be accepted.
	if _, err := orc.AcceptOffer(ctx, alice, loser.ID); !errs.IsState(err) {
		t.Fatalf("accept rejected offer: want state error, got %v", err)
	}
}

func TestConfirmDealSequence(t *testing.T) {
	orc, store, productID := newTestOrchestrator(t)
	ctx := context.Background()
	l := mustListing(t, orc, alice, productID)
	o := mustOffer(t, orc, bob, l.ID)
	res, err := orc.AcceptOffer(ctx, alice, o.ID)
	if err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}
	dealID := res.Deal.ID

	if _, err := orc.ConfirmDeal(ctx, carol, dealID); !errs.IsForbidden(err) {
		t.Fatalf("outsider confirm: want forbidden, got %v", err)
	}

	d, err := orc.ConfirmDeal(ctx, alice, dealID)
	if err != nil {
		t.Fatalf("seller confirm: %v", err)
	}
	if !d.SellerConfirmed || d.BuyerConfirmed || d.Status != models.DealInProgress {
		t.Fatalf("after seller confirm: %+v", d)
	}

	// Confirming again from the same side changes nothing.
	d, err = orc.ConfirmDeal(ctx, alice, dealID)
	if err != nil {
		t.Fatalf("repeat seller confirm: %v", err)
	}
	if d.Status != models.DealInProgress {
		t.Fatalf("repeat confirm flipped status to %s", d.Status)
	}

	d, err = orc.ConfirmDeal(ctx, bob, dealID)
	if err != nil {
		t.Fatalf("buyer confirm: %v", err)
	}
	if d.Status != models.DealCompleted || d.CompletedAt == nil {
		t.Fatalf("after both confirms: %+v", d)
	}
	after, _ := store.GetListingCtx(ctx, l.ID)
	if after.Status != models.ListingCompleted {
		t.Fatalf("listing status = %s, want completed", after.Status)
	}

	if _, err := orc.ConfirmDeal(ctx, alice, dealID); !errs.IsState(err) {
		t.Fatalf("confirm completed deal: want state error, got %v", err)
	}
}

func TestCancelDealReopensListing(t *testing.T) {
	orc, store, productID := newTestOrchestrator(t)
	ctx := context.Background()
	l := mustListing(t, orc, alice, productID)
	o := mustOffer(t, orc, bob, l.ID)
	res, err := orc.AcceptOffer(ctx, alice, o.ID)
	if err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}

	if _, err := orc.CancelDeal(ctx, carol, res.Deal.ID); !errs.IsForbidden(err) {
		t.Fatalf("outsider cancel: want forbidden, got %v", err)
	}
	d, err := orc.CancelDeal(ctx, bob, res.Deal.ID)
	if err != nil {
		t.Fatalf("CancelDeal: %v", err)
	}
	if d.Status != models.DealCancelled {
		t.Fatalf("deal status = %s, want cancelled", d.Status)
	}
	after, _ := store.GetListingCtx(ctx, l.ID)
	if after.Status != models.ListingActive {
		t.Fatalf("listing status = %s, want active again", after.Status)
	}

	if _, err := orc.CancelDeal(ctx, alice, res.Deal.ID); !errs.IsState(err) {
		t.Fatalf("cancel cancelled deal: want state error, got %v", err)
	}
}

func TestConcurrentAccepts(t *testing.T) {
	orc, store, productID := newTestOrchestrator(t)
	ctx := context.Background()
	l := mustListing(t, orc, alice, productID)

	const n = 8
	offerIDs := make([]int64, n)
	for i := 0; i < n; i++ {
		o := mustOffer(t, orc, int64(100+i), l.ID)
		offerIDs[i] = o.ID
	}

	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = orc.AcceptOffer(ctx, alice, offerIDs[i])
		}(i)
	}
	wg.Wait()

	var ok, stateErrs int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errs.IsState(err):
			stateErrs++
		default:
			t.Fatalf("unexpected error kind: %v", err)
		}
	}
	if ok != 1 || stateErrs != n-1 {
		t.Fatalf("got %d successes and %d state errors, want 1 and %d", ok, stateErrs, n-1)
	}

	after, _ := store.GetListingCtx(ctx, l.ID)
	if after.Status != models.ListingPaused {
		t.Fatalf("listing status = %s, want paused", after.Status)
	}
	var accepted int
	for _, id := range offerIDs {
		o, _ := store.GetOfferCtx(ctx, id)
		switch o.Status {
		case models.OfferAccepted:
			accepted++
		case models.OfferRejected:
		default:
			t.Fatalf("offer %d left in status %s", id, o.Status)
		}
	}
	if accepted != 1 {
		t.Fatalf("%d offers accepted, want exactly 1", accepted)
	}
}

func TestConcurrentConfirms(t *testing.T) {
	orc, store, productID := newTestOrchestrator(t)
	ctx := context.Background()
	l := mustListing(t, orc, alice, productID)
	o := mustOffer(t, orc, bob, l.ID)
	res, err := orc.AcceptOffer(ctx, alice, o.ID)
	if err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}

	var wg sync.WaitGroup
	for _, uid := range []int64{alice, bob} {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			if _, err := orc.ConfirmDeal(ctx, uid, res.Deal.ID); err != nil {
				t.Errorf("confirm by %d: %v", uid, err)
			}
		}(uid)
	}
	wg.Wait()

	d, _ := store.GetDealCtx(ctx, res.Deal.ID)
	if d.Status != models.DealCompleted || !d.SellerConfirmed || !d.BuyerConfirmed {
		t.Fatalf("after concurrent confirms: %+v", d)
	}
	after, _ := store.GetListingCtx(ctx, l.ID)
	if after.Status != models.ListingCompleted {
		t.Fatalf("listing status = %s, want completed", after.Status)
	}
}

func TestUpdateListingRules(t *testing.T) {
	orc, _, productID := newTestOrchestrator(t)
	ctx := context.Background()
	l := mustListing(t, orc, alice, productID)

	if _, err := orc.UpdateListing(ctx, alice, l.ID, models.ListingUpdate{}); !errs.IsValidation(err) {
		t.Fatalf("empty update: want validation error, got %v", err)
	}
	qty := 3
	if _, err := orc.UpdateListing(ctx, bob, l.ID, models.ListingUpdate{Quantity: &qty}); !errs.IsForbidden(err) {
		t.Fatalf("non-owner update: want forbidden, got %v", err)
	}
	completed := models.ListingCompleted
	if _, err := orc.UpdateListing(ctx, alice, l.ID, models.ListingUpdate{Status: &completed}); !errs.IsValidation(err) {
		t.Fatalf("owner setting completed: want validation error, got %v", err)
	}

	paused := models.ListingPaused
	got, err := orc.UpdateListing(ctx, alice, l.ID, models.ListingUpdate{Quantity: &qty, Status: &paused})
	if err != nil {
		t.Fatalf("UpdateListing: %v", err)
	}
	if got.Quantity != 3 || got.Status != models.ListingPaused {
		t.Fatalf("update not applied: %+v", got)
	}

	cancelled := models.ListingCancelled
	if _, err := orc.UpdateListing(ctx, alice, l.ID, models.ListingUpdate{Status: &cancelled}); err != nil {
		t.Fatalf("cancel via update: %v", err)
	}
	if _, err := orc.UpdateListing(ctx, alice, l.ID, models.ListingUpdate{Status: &paused}); !errs.IsState(err) {
		t.Fatalf("status change on cancelled listing: want state error, got %v", err)
	}
}

func TestCancelListingOnlyWhileActive(t *testing.T) {
	orc, _, productID := newTestOrchestrator(t)
	ctx := context.Background()
	l := mustListing(t, orc, alice, productID)
	o := mustOffer(t, orc, bob, l.ID)
	if _, err := orc.AcceptOffer(ctx, alice, o.ID); err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}

	// Paused by the accept; direct cancel must go through the deal instead.
	if err := orc.CancelListing(ctx, alice, l.ID); !errs.IsState(err) {
		t.Fatalf("cancel paused listing: want state error, got %v", err)
	}
}

func TestRejectAndCancelOffer(t *testing.T) {
	orc, _, productID := newTestOrchestrator(t)
	ctx := context.Background()
	l := mustListing(t, orc, alice, productID)

	o := mustOffer(t, orc, bob, l.ID)
	if _, err := orc.RejectOffer(ctx, bob, o.ID); !errs.IsForbidden(err) {
		t.Fatalf("author rejecting: want forbidden, got %v", err)
	}
	rejected, err := orc.RejectOffer(ctx, alice, o.ID)
	if err != nil {
		t.Fatalf("RejectOffer: %v", err)
	}
	if rejected.Status != models.OfferRejected {
		t.Fatalf("offer status = %s, want rejected", rejected.Status)
	}

	o2 := mustOffer(t, orc, bob, l.ID)
	if _, err := orc.CancelOffer(ctx, alice, o2.ID); !errs.IsForbidden(err) {
		t.Fatalf("recipient cancelling: want forbidden, got %v", err)
	}
	cancelled, err := orc.CancelOffer(ctx, bob, o2.ID)
	if err != nil {
		t.Fatalf("CancelOffer: %v", err)
	}
	if cancelled.Status != models.OfferCancelled {
		t.Fatalf("offer status = %s, want cancelled", cancelled.Status)
	}
	if _, err := orc.CancelOffer(ctx, bob, o2.ID); !errs.IsState(err) {
		t.Fatalf("double cancel: want state error, got %v", err)
	}
}

func TestReviews(t *testing.T) {
	orc, _, productID := newTestOrchestrator(t)
	ctx := context.Background()
	l := mustListing(t, orc, alice, productID)
	o := mustOffer(t, orc, bob, l.ID)
	res, err := orc.AcceptOffer(ctx, alice, o.ID)
	if err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}
	dealID := res.Deal.ID

	if _, err := orc.CreateReview(ctx, alice, dealID, 5, nil); !errs.IsState(err) {
		t.Fatalf("review of in-progress deal: want state error, got %v", err)
	}

	if _, err := orc.ConfirmDeal(ctx, alice, dealID); err != nil {
		t.Fatal(err)
	}
	if _, err := orc.ConfirmDeal(ctx, bob, dealID); err != nil {
		t.Fatal(err)
	}

	if _, err := orc.CreateReview(ctx, alice, dealID, 0, nil); !errs.IsValidation(err) {
		t.Fatalf("rating 0: want validation error, got %v", err)
	}
	if _, err := orc.CreateReview(ctx, carol, dealID, 5, nil); !errs.IsForbidden(err) {
		t.Fatalf("outsider review: want forbidden, got %v", err)
	}

	r, err := orc.CreateReview(ctx, alice, dealID, 4, nil)
	if err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	if r.TargetUserID != bob {
		t.Fatalf("review target = %d, want %d", r.TargetUserID, bob)
	}
	if _, err := orc.CreateReview(ctx, alice, dealID, 5, nil); !errs.IsState(err) {
		t.Fatalf("duplicate review: want state error, got %v", err)
	}

	if _, err := orc.CreateReview(ctx, bob, dealID, 2, nil); err != nil {
		t.Fatalf("buyer review: %v", err)
	}
	reviews, avg, err := orc.UserReviews(ctx, bob)
	if err != nil {
		t.Fatalf("UserReviews: %v", err)
	}
	if len(reviews) != 1 || avg != 4 {
		t.Fatalf("reviews for buyer: n=%d avg=%v, want 1 and 4", len(reviews), avg)
	}
}

func TestBrowseListings(t *testing.T) {
	orc, store, productID := newTestOrchestrator(t)
	ctx := context.Background()
	other := store.SeedProduct("office chair", "furniture")

	city := "berlin"
	for i := 0; i < 3; i++ {
		if _, err := orc.CreateListing(ctx, alice, ListingInput{
			ProductID: productID, Quantity: 1, Condition: models.ConditionNew, City: &city,
		}); err != nil {
			t.Fatal(err)
		}
	}
	chair, err := orc.CreateListing(ctx, bob, ListingInput{
		ProductID: other, Quantity: 1, Condition: models.ConditionUsed,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := orc.CancelListing(ctx, bob, chair.ID); err != nil {
		t.Fatal(err)
	}

	f := models.ListingFilter{}
	f.Normalize()
	items, total, err := orc.ListListings(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("default browse: total=%d len=%d, want 3/3 (cancelled hidden)", total, len(items))
	}

	f = models.ListingFilter{City: "Berlin", Limit: 2, Page: 1}
	f.Normalize()
	items, total, err = orc.ListListings(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("city page 1: total=%d len=%d, want 3/2", total, len(items))
	}
}

func TestGetListingBumpsViews(t *testing.T) {
	store := memtest.NewMemStore()
	productID := store.SeedProduct("camera", "electronics")
	orc := NewOrchestrator(store, store, bumpThrough{store}, events.NopRecorder{}, nil)
	ctx := context.Background()

	l := mustListing(t, orc, alice, productID)
	for i := 0; i < 3; i++ {
		if _, err := orc.GetListing(ctx, l.ID); err != nil {
			t.Fatal(err)
		}
	}
	got, _ := store.GetListingCtx(ctx, l.ID)
	if got.ViewsCount != 3 {
		t.Fatalf("views = %d, want 3", got.ViewsCount)
	}
}

type bumpThrough struct{ store *memtest.MemStore }

func (b bumpThrough) Bump(ctx context.Context, id int64) {
	_ = b.store.AddListingViewsCtx(ctx, id, 1)
}
