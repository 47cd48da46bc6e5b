package testing

import (
	"context"
	"strconv"
	"sync"

	"exchange-market/internal/domain"
	"exchange-market/internal/models"
	errs "exchange-market/pkg/errors"
)

// Begin starts a MemUoW. Locks taken through the ForUpdate methods are held
// until Commit or Rollback, mirroring transaction-scoped row locks.
func (s *MemStore) Begin(context.Context) (domain.UnitOfWork, error) {
	return &MemUoW{store: s, held: make(map[string]*sync.Mutex)}, nil
}

// MemUoW applies mutations to the shared store immediately and keeps an
// undo journal; Rollback replays the journal in reverse. This gives the
// locking behavior the orchestrator depends on without MVCC: writers
// mutate only rows they hold locks on.
type MemUoW struct {
	store  *MemStore
	mu     sync.Mutex
	held   map[string]*sync.Mutex
	order  []string
	undo   []func()
	closed bool
}

func (u *MemUoW) lockRow(key string) {
	u.mu.Lock()
	if _, ok := u.held[key]; ok {
		u.mu.Unlock()
		return
	}
	u.mu.Unlock()

	m := u.store.rowLock(key)
	m.Lock()

	u.mu.Lock()
	u.held[key] = m
	u.order = append(u.order, key)
	u.mu.Unlock()
}

func (u *MemUoW) pushUndo(fn func()) {
	u.mu.Lock()
	u.undo = append(u.undo, fn)
	u.mu.Unlock()
}

func (u *MemUoW) release() {
	for i := len(u.order) - 1; i >= 0; i-- {
		u.held[u.order[i]].Unlock()
	}
	u.order = nil
	u.held = map[string]*sync.Mutex{}
}

func (u *MemUoW) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return errs.NewStore("memuow.Commit", "unit of work already closed", nil)
	}
	u.closed = true
	u.undo = nil
	u.release()
	return nil
}

func (u *MemUoW) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.closed = true
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
	u.release()
	return nil
}

// --- ListingRepository ---

func (u *MemUoW) CreateListingCtx(ctx context.Context, l *models.Listing) error {
	if err := u.store.CreateListingCtx(ctx, l); err != nil {
		return err
	}
	id := l.ID
	u.pushUndo(func() {
		u.store.mu.Lock()
		delete(u.store.listings, id)
		u.store.mu.Unlock()
	})
	return nil
}

func (u *MemUoW) GetListingCtx(ctx context.Context, id int64) (*models.Listing, error) {
	return u.store.GetListingCtx(ctx, id)
}

func (u *MemUoW) GetListingForUpdateCtx(ctx context.Context, id int64) (*models.Listing, error) {
	u.lockRow("listing:" + itoa(id))
	return u.store.GetListingCtx(ctx, id)
}

func (u *MemUoW) GetListingViewCtx(ctx context.Context, id int64) (*models.ListingView, error) {
	return u.store.GetListingViewCtx(ctx, id)
}

func (u *MemUoW) ListListingsCtx(ctx context.Context, f models.ListingFilter) ([]models.ListingView, int, error) {
	return u.store.ListListingsCtx(ctx, f)
}

func (u *MemUoW) ListingsByOwnerCtx(ctx context.Context, ownerID int64) ([]models.OwnerListing, error) {
	return u.store.ListingsByOwnerCtx(ctx, ownerID)
}

func (u *MemUoW) UpdateListingFieldsCtx(ctx context.Context, id int64, upd models.ListingUpdate) (*models.Listing, error) {
	prev, _ := u.store.GetListingCtx(ctx, id)
	l, err := u.store.UpdateListingFieldsCtx(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	u.pushUndo(func() { u.store.restoreListing(prev) })
	return l, nil
}

func (u *MemUoW) SetListingStatusCtx(ctx context.Context, id int64, status models.ListingStatus) error {
	prev, _ := u.store.GetListingCtx(ctx, id)
	if err := u.store.SetListingStatusCtx(ctx, id, status); err != nil {
		return err
	}
	u.pushUndo(func() { u.store.restoreListing(prev) })
	return nil
}

func (u *MemUoW) AddListingViewsCtx(ctx context.Context, id int64, delta int64) error {
	if err := u.store.AddListingViewsCtx(ctx, id, delta); err != nil {
		return err
	}
	u.pushUndo(func() { _ = u.store.AddListingViewsCtx(ctx, id, -delta) })
	return nil
}

// --- OfferRepository ---

func (u *MemUoW) CreateOfferCtx(ctx context.Context, o *models.Offer) error {
	if err := u.store.CreateOfferCtx(ctx, o); err != nil {
		return err
	}
	id := o.ID
	u.pushUndo(func() {
		u.store.mu.Lock()
		delete(u.store.offers, id)
		delete(u.store.offerItems, id)
		u.store.mu.Unlock()
	})
	return nil
}

func (u *MemUoW) GetOfferCtx(ctx context.Context, id int64) (*models.Offer, error) {
	return u.store.GetOfferCtx(ctx, id)
}

func (u *MemUoW) GetOfferForUpdateCtx(ctx context.Context, id int64) (*models.Offer, error) {
	u.lockRow("offer:" + itoa(id))
	return u.store.GetOfferCtx(ctx, id)
}

func (u *MemUoW) OfferItemsCtx(ctx context.Context, offerID int64) ([]models.OfferItem, error) {
	return u.store.OfferItemsCtx(ctx, offerID)
}

func (u *MemUoW) IncomingOffersCtx(ctx context.Context, userID int64) ([]models.OfferView, error) {
	return u.store.IncomingOffersCtx(ctx, userID)
}

func (u *MemUoW) OutgoingOffersCtx(ctx context.Context, userID int64) ([]models.OfferView, error) {
	return u.store.OutgoingOffersCtx(ctx, userID)
}

func (u *MemUoW) SetOfferStatusCtx(ctx context.Context, id int64, status models.OfferStatus) error {
	prev, _ := u.store.GetOfferCtx(ctx, id)
	if err := u.store.SetOfferStatusCtx(ctx, id, status); err != nil {
		return err
	}
	u.pushUndo(func() { u.store.restoreOffer(prev) })
	return nil
}

func (u *MemUoW) RejectPendingOffersCtx(ctx context.Context, listingID, exceptOfferID int64) (int64, error) {
	u.store.mu.Lock()
	var prevs []*models.Offer
	for _, o := range u.store.offers {
		if o.ListingID == listingID && o.ID != exceptOfferID && o.Status == models.OfferPending {
			prevs = append(prevs, copyOffer(o))
		}
	}
	u.store.mu.Unlock()

	n, err := u.store.RejectPendingOffersCtx(ctx, listingID, exceptOfferID)
	if err != nil {
		return 0, err
	}
	u.pushUndo(func() {
		for _, p := range prevs {
			u.store.restoreOffer(p)
		}
	})
	return n, nil
}

// --- DealRepository ---

func (u *MemUoW) CreateDealCtx(ctx context.Context, d *models.Deal) error {
	if err := u.store.CreateDealCtx(ctx, d); err != nil {
		return err
	}
	id := d.ID
	u.pushUndo(func() {
		u.store.mu.Lock()
		delete(u.store.deals, id)
		u.store.mu.Unlock()
	})
	return nil
}

func (u *MemUoW) GetDealCtx(ctx context.Context, id int64) (*models.Deal, error) {
	return u.store.GetDealCtx(ctx, id)
}

func (u *MemUoW) GetDealForUpdateCtx(ctx context.Context, id int64) (*models.Deal, error) {
	u.lockRow("deal:" + itoa(id))
	return u.store.GetDealCtx(ctx, id)
}

func (u *MemUoW) GetDealViewCtx(ctx context.Context, id int64) (*models.DealView, error) {
	return u.store.GetDealViewCtx(ctx, id)
}

func (u *MemUoW) DealsByUserCtx(ctx context.Context, userID int64) ([]models.DealView, error) {
	return u.store.DealsByUserCtx(ctx, userID)
}

func (u *MemUoW) SetDealConfirmedCtx(ctx context.Context, id int64, side models.DealSide) error {
	prev, _ := u.store.GetDealCtx(ctx, id)
	if err := u.store.SetDealConfirmedCtx(ctx, id, side); err != nil {
		return err
	}
	u.pushUndo(func() { u.store.restoreDeal(prev) })
	return nil
}

func (u *MemUoW) CompleteDealCtx(ctx context.Context, id int64) error {
	prev, _ := u.store.GetDealCtx(ctx, id)
	if err := u.store.CompleteDealCtx(ctx, id); err != nil {
		return err
	}
	u.pushUndo(func() { u.store.restoreDeal(prev) })
	return nil
}

func (u *MemUoW) CancelDealCtx(ctx context.Context, id int64) error {
	prev, _ := u.store.GetDealCtx(ctx, id)
	if err := u.store.CancelDealCtx(ctx, id); err != nil {
		return err
	}
	u.pushUndo(func() { u.store.restoreDeal(prev) })
	return nil
}

// --- restore helpers ---

func (s *MemStore) restoreListing(l *models.Listing) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listings[l.ID] = copyListing(l)
	s.mu.Unlock()
}

func (s *MemStore) restoreOffer(o *models.Offer) {
	if o == nil {
		return
	}
	s.mu.Lock()
	s.offers[o.ID] = copyOffer(o)
	s.mu.Unlock()
}

func (s *MemStore) restoreDeal(d *models.Deal) {
	if d == nil {
		return
	}
	s.mu.Lock()
	s.deals[d.ID] = copyDeal(d)
	s.mu.Unlock()
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
