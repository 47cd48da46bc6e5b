package views

import (
	"context"
	"testing"

	"exchange-market/internal/models"
	memtest "exchange-market/internal/testing"
)

func TestSQLCounterBump(t *testing.T) {
	store := memtest.NewMemStore()
	ctx := context.Background()
	l := &models.Listing{OwnerID: 1, ProductID: 1, Quantity: 1,
		Condition: models.ConditionNew, Status: models.ListingActive}
	if err := store.CreateListingCtx(ctx, l); err != nil {
		t.Fatal(err)
	}

	c := NewSQLCounter(store, nil)
	for i := 0; i < 5; i++ {
		c.Bump(ctx, l.ID)
	}
	got, _ := store.GetListingCtx(ctx, l.ID)
	if got.ViewsCount != 5 {
		t.Fatalf("views = %d, want 5", got.ViewsCount)
	}

	// Bumping a missing listing must not panic or error loudly.
	c.Bump(ctx, 999)
}
