// Package testing provides an in-memory store for exercising the lifecycle
// engine without a database. Row locks are real mutexes held until the unit
// of work ends, so concurrency tests observe the same serialization the SQL
// store provides.
package testing

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"exchange-market/internal/models"
	errs "exchange-market/pkg/errors"
)

// MemStore implements domain.Repository and domain.UnitOfWorkFactory over
// plain maps.
type MemStore struct {
	mu sync.Mutex

	listings   map[int64]*models.Listing
	offers     map[int64]*models.Offer
	offerItems map[int64][]models.OfferItem
	deals      map[int64]*models.Deal
	products   map[int64]*models.Product
	reviews    map[int64]*models.Review

	nextListing int64
	nextOffer   int64
	nextItem    int64
	nextDeal    int64
	nextProduct int64
	nextReview  int64

	rowLocks map[string]*sync.Mutex
}

func NewMemStore() *MemStore {
	return &MemStore{
		listings:   make(map[int64]*models.Listing),
		offers:     make(map[int64]*models.Offer),
		offerItems: make(map[int64][]models.OfferItem),
		deals:      make(map[int64]*models.Deal),
		products:   make(map[int64]*models.Product),
		reviews:    make(map[int64]*models.Review),
		rowLocks:   make(map[string]*sync.Mutex),
	}
}

// SeedProduct inserts a catalog product and returns its id.
func (s *MemStore) SeedProduct(name, category string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProduct++
	s.products[s.nextProduct] = &models.Product{
		ID: s.nextProduct, Name: name, Category: category, CreatedAt: time.Now(),
	}
	return s.nextProduct
}

func (s *MemStore) rowLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rowLocks[key]
	if !ok {
		m = &sync.Mutex{}
		s.rowLocks[key] = m
	}
	return m
}

func copyListing(l *models.Listing) *models.Listing {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

func copyOffer(o *models.Offer) *models.Offer {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]models.OfferItem(nil), o.Items...)
	return &c
}

func copyDeal(d *models.Deal) *models.Deal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// --- ListingRepository ---

func (s *MemStore) CreateListingCtx(_ context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextListing++
	l.ID = s.nextListing
	now := time.Now()
	l.CreatedAt, l.UpdatedAt = now, now
	s.listings[l.ID] = copyListing(l)
	return nil
}

func (s *MemStore) GetListingCtx(_ context.Context, id int64) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyListing(s.listings[id]), nil
}

func (s *MemStore) GetListingForUpdateCtx(context.Context, int64) (*models.Listing, error) {
	return nil, errs.NewStore("memstore.GetListingForUpdate", "row lock requires a unit of work", nil)
}

func (s *MemStore) GetListingViewCtx(_ context.Context, id int64) (*models.ListingView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.listings[id]
	if l == nil {
		return nil, nil
	}
	v := &models.ListingView{Listing: *l}
	if p := s.products[l.ProductID]; p != nil {
		v.ProductName, v.ProductCategory = p.Name, p.Category
	}
	return v, nil
}

func (s *MemStore) ListListingsCtx(_ context.Context, f models.ListingFilter) ([]models.ListingView, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.ListingView
	for _, l := range s.listings {
		if l.Status != f.Status {
			continue
		}
		if f.City != "" && (l.City == nil || !strings.EqualFold(*l.City, f.City)) {
			continue
		}
		if f.ProductID != 0 && l.ProductID != f.ProductID {
			continue
		}
		p := s.products[l.ProductID]
		if f.Category != "" && (p == nil || p.Category != f.Category) {
			continue
		}
		v := models.ListingView{Listing: *l}
		if p != nil {
			v.ProductName, v.ProductCategory = p.Name, p.Category
		}
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)
	start := (f.Page - 1) * f.Limit
	if start >= total {
		return []models.ListingView{}, total, nil
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *MemStore) ListingsByOwnerCtx(_ context.Context, ownerID int64) ([]models.OwnerListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OwnerListing
	for _, l := range s.listings {
		if l.OwnerID != ownerID {
			continue
		}
		ol := models.OwnerListing{Listing: *l}
		if p := s.products[l.ProductID]; p != nil {
			ol.ProductName = p.Name
		}
		for _, o := range s.offers {
			if o.ListingID == l.ID && o.Status == models.OfferPending {
				ol.PendingOffers++
			}
		}
		out = append(out, ol)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemStore) UpdateListingFieldsCtx(_ context.Context, id int64, upd models.ListingUpdate) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.listings[id]
	if l == nil {
		return nil, nil
	}
	if upd.Quantity != nil {
		l.Quantity = *upd.Quantity
	}
	if upd.Condition != nil {
		l.Condition = *upd.Condition
	}
	if upd.Description != nil {
		l.Description = upd.Description
	}
	if upd.City != nil {
		l.City = upd.City
	}
	if upd.WantedDescription != nil {
		l.WantedDescription = upd.WantedDescription
	}
	if upd.Status != nil {
		l.Status = *upd.Status
	}
	l.UpdatedAt = time.Now()
	return copyListing(l), nil
}

func (s *MemStore) SetListingStatusCtx(_ context.Context, id int64, status models.ListingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l := s.listings[id]; l != nil {
		l.Status = status
		l.UpdatedAt = time.Now()
	}
	return nil
}

func (s *MemStore) AddListingViewsCtx(_ context.Context, id int64, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l := s.listings[id]; l != nil {
		l.ViewsCount += delta
	}
	return nil
}

// --- OfferRepository ---

func (s *MemStore) CreateOfferCtx(_ context.Context, o *models.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOffer++
	o.ID = s.nextOffer
	now := time.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	for i := range o.Items {
		s.nextItem++
		o.Items[i].ID = s.nextItem
		o.Items[i].OfferID = o.ID
	}
	s.offers[o.ID] = copyOffer(o)
	s.offerItems[o.ID] = append([]models.OfferItem(nil), o.Items...)
	return nil
}

func (s *MemStore) GetOfferCtx(_ context.Context, id int64) (*models.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOffer(s.offers[id]), nil
}

func (s *MemStore) GetOfferForUpdateCtx(context.Context, int64) (*models.Offer, error) {
	return nil, errs.NewStore("memstore.GetOfferForUpdate", "row lock requires a unit of work", nil)
}

func (s *MemStore) OfferItemsCtx(_ context.Context, offerID int64) ([]models.OfferItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.OfferItem(nil), s.offerItems[offerID]...), nil
}

func (s *MemStore) IncomingOffersCtx(_ context.Context, userID int64) ([]models.OfferView, error) {
	return s.offersByParty(userID, true), nil
}

func (s *MemStore) OutgoingOffersCtx(_ context.Context, userID int64) ([]models.OfferView, error) {
	return s.offersByParty(userID, false), nil
}

func (s *MemStore) offersByParty(userID int64, incoming bool) []models.OfferView {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OfferView
	for _, o := range s.offers {
		if incoming && o.ToUserID != userID {
			continue
		}
		if !incoming && o.FromUserID != userID {
			continue
		}
		v := models.OfferView{Offer: *copyOffer(o)}
		if l := s.listings[o.ListingID]; l != nil {
			if p := s.products[l.ProductID]; p != nil {
				v.ProductName = p.Name
			}
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *MemStore) SetOfferStatusCtx(_ context.Context, id int64, status models.OfferStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o := s.offers[id]; o != nil {
		o.Status = status
		o.UpdatedAt = time.Now()
	}
	return nil
}

func (s *MemStore) RejectPendingOffersCtx(_ context.Context, listingID, exceptOfferID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, o := range s.offers {
		if o.ListingID == listingID && o.ID != exceptOfferID && o.Status == models.OfferPending {
			o.Status = models.OfferRejected
			o.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

// --- DealRepository ---

func (s *MemStore) CreateDealCtx(_ context.Context, d *models.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDeal++
	d.ID = s.nextDeal
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	s.deals[d.ID] = copyDeal(d)
	return nil
}

func (s *MemStore) GetDealCtx(_ context.Context, id int64) (*models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyDeal(s.deals[id]), nil
}

func (s *MemStore) GetDealForUpdateCtx(context.Context, int64) (*models.Deal, error) {
	return nil, errs.NewStore("memstore.GetDealForUpdate", "row lock requires a unit of work", nil)
}

func (s *MemStore) GetDealViewCtx(_ context.Context, id int64) (*models.DealView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.deals[id]
	if d == nil {
		return nil, nil
	}
	v := &models.DealView{Deal: *d}
	if l := s.listings[d.ListingID]; l != nil {
		if p := s.products[l.ProductID]; p != nil {
			v.ProductName = p.Name
		}
	}
	return v, nil
}

func (s *MemStore) DealsByUserCtx(_ context.Context, userID int64) ([]models.DealView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DealView
	for _, d := range s.deals {
		if d.SellerID != userID && d.BuyerID != userID {
			continue
		}
		v := models.DealView{Deal: *d}
		if l := s.listings[d.ListingID]; l != nil {
			if p := s.products[l.ProductID]; p != nil {
				v.ProductName = p.Name
			}
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemStore) SetDealConfirmedCtx(_ context.Context, id int64, side models.DealSide) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.deals[id]
	if d == nil {
		return nil
	}
	if side == models.SideSeller {
		d.SellerConfirmed = true
	} else {
		d.BuyerConfirmed = true
	}
	d.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) CompleteDealCtx(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.deals[id]; d != nil {
		d.Status = models.DealCompleted
		now := time.Now()
		d.CompletedAt = &now
		d.UpdatedAt = now
	}
	return nil
}

func (s *MemStore) CancelDealCtx(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.deals[id]; d != nil {
		d.Status = models.DealCancelled
		d.UpdatedAt = time.Now()
	}
	return nil
}

// --- CatalogRepository / ReviewRepository ---

func (s *MemStore) ProductsCtx(_ context.Context, category string) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Product
	for _, p := range s.products {
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) GetProductCtx(_ context.Context, id int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	if p == nil {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (s *MemStore) CreateReviewCtx(_ context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextReview++
	r.ID = s.nextReview
	r.CreatedAt = time.Now()
	c := *r
	s.reviews[r.ID] = &c
	return nil
}

func (s *MemStore) ReviewByDealAuthorCtx(_ context.Context, dealID, authorID int64) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reviews {
		if r.DealID == dealID && r.AuthorID == authorID {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

func (s *MemStore) ReviewsForUserCtx(_ context.Context, userID int64) ([]models.Review, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Review
	var sum int
	for _, r := range s.reviews {
		if r.TargetUserID == userID {
			out = append(out, *r)
			sum += r.Rating
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	var avg float64
	if len(out) > 0 {
		avg = float64(sum) / float64(len(out))
	}
	return out, avg, nil
}
