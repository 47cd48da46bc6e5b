package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"exchange-market/internal/auth"
	"exchange-market/internal/lifecycle"
	"exchange-market/internal/models"
	memtest "exchange-market/internal/testing"
	"exchange-market/pkg/events"
)

const testSecret = "test-secret"

type nopEvents struct{ events.NopRecorder }

func (nopEvents) ListByListing(context.Context, int64) ([]events.StoredEvent, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memtest.MemStore, int64) {
	t.Helper()
	store := memtest.NewMemStore()
	productID := store.SeedProduct("record player", "electronics")
	orc := lifecycle.NewOrchestrator(store, store, nil, events.NopRecorder{}, nil)
	srv := NewServer(orc, nopEvents{}, nil)
	ts := httptest.NewServer(srv.Router(auth.NewMiddleware(testSecret)))
	t.Cleanup(ts.Close)
	return ts, store, productID
}

func token(t *testing.T, userID int64) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func doJSON(t *testing.T, method, url, bearer string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	_, _ = out.ReadFrom(resp.Body)
	return resp, out.Bytes()
}

func TestAuthRequired(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/listings", "", map[string]interface{}{})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token: status %d, want 401", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/listings", "garbage", map[string]interface{}{})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d, want 401", resp.StatusCode)
	}

	// Browse stays public.
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/listings", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("public browse: status %d, want 200", resp.StatusCode)
	}
}

func TestListingLifecycleOverHTTP(t *testing.T) {
	ts, _, productID := newTestServer(t)
	owner := token(t, 1)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/listings", owner, map[string]interface{}{
		"product_id": productID,
		"quantity":   2,
		"condition":  "used",
		"city":       "hamburg",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d body %s", resp.StatusCode, body)
	}
	var l models.Listing
	if err := json.Unmarshal(body, &l); err != nil {
		t.Fatal(err)
	}
	if l.Status != models.ListingActive {
		t.Fatalf("created status = %s", l.Status)
	}

	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/listings/%d", ts.URL, l.ID), "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: status %d body %s", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/listings/9999", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing listing: status %d, want 404", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/listings/%d", ts.URL, l.ID), token(t, 2),
		map[string]interface{}{"quantity": 5})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign update: status %d, want 403", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/listings/%d", ts.URL, l.ID), owner, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/listings/%d", ts.URL, l.ID), owner, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("double cancel: status %d, want 400", resp.StatusCode)
	}
}

func TestOfferToDealFlowOverHTTP(t *testing.T) {
	ts, _, productID := newTestServer(t)
	seller, buyer := token(t, 1), token(t, 2)

	_, body := doJSON(t, http.MethodPost, ts.URL+"/api/listings", seller, map[string]interface{}{
		"product_id": productID, "quantity": 1, "condition": "new",
	})
	var l models.Listing
	if err := json.Unmarshal(body, &l); err != nil {
		t.Fatal(err)
	}

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/offers", buyer, map[string]interface{}{
		"listing_id": l.ID,
		"items": []map[string]interface{}{
			{"product_id": productID, "quantity": 1, "condition": "used"},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create offer: status %d body %s", resp.StatusCode, body)
	}
	var o models.Offer
	if err := json.Unmarshal(body, &o); err != nil {
		t.Fatal(err)
	}

	// Only the recipient may accept.
	resp, _ = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/offers/%d/accept", ts.URL, o.ID), buyer, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("buyer accepting: status %d, want 403", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/offers/%d/accept", ts.URL, o.ID), seller, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept: status %d body %s", resp.StatusCode, body)
	}
	var res lifecycle.AcceptResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.Deal == nil || res.Deal.Status != models.DealInProgress {
		t.Fatalf("accept result: %s", body)
	}

	// Accepting again is a state error.
	resp, _ = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/offers/%d/accept", ts.URL, o.ID), seller, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("re-accept: status %d, want 400", resp.StatusCode)
	}

	confirmURL := fmt.Sprintf("%s/api/deals/%d/confirm", ts.URL, res.Deal.ID)
	resp, _ = doJSON(t, http.MethodPost, confirmURL, seller, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("seller confirm: status %d", resp.StatusCode)
	}
	resp, body = doJSON(t, http.MethodPost, confirmURL, buyer, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("buyer confirm: status %d", resp.StatusCode)
	}
	var d models.Deal
	if err := json.Unmarshal(body, &d); err != nil {
		t.Fatal(err)
	}
	if d.Status != models.DealCompleted {
		t.Fatalf("deal status = %s, want completed", d.Status)
	}

	// Review the other party, then verify the public review feed.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/reviews", buyer, map[string]interface{}{
		"deal_id": d.ID, "rating": 5,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("review: status %d", resp.StatusCode)
	}
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/users/1/reviews", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("user reviews: status %d", resp.StatusCode)
	}
	var rr userReviewsResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		t.Fatal(err)
	}
	if len(rr.Reviews) != 1 || rr.Average != 5 {
		t.Fatalf("reviews: %s", body)
	}
}

func TestBrowseFilters(t *testing.T) {
	ts, store, productID := newTestServer(t)
	other := store.SeedProduct("bookshelf", "furniture")
	seller := token(t, 1)

	for _, p := range []int64{productID, productID, other} {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/listings", seller, map[string]interface{}{
			"product_id": p, "quantity": 1, "condition": "new",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed listing: %d %s", resp.StatusCode, body)
		}
	}

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/listings?category=furniture", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("browse: status %d", resp.StatusCode)
	}
	var page listingPage
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || len(page.Listings) != 1 {
		t.Fatalf("category filter: %s", body)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/listings?limit=2", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("browse: status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 || len(page.Listings) != 2 || page.Limit != 2 {
		t.Fatalf("pagination: %s", body)
	}
}
