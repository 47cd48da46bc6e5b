package repository

import (
	"context"
	"database/sql"
	"errors"

	"exchange-market/internal/models"
	errs "exchange-market/pkg/errors"
)

const offerCols = "o.id, o.listing_id, o.from_user_id, o.to_user_id, o.message, o.status, o.created_at, o.updated_at"

// insertOffer writes the offer row and every item row. The caller supplies
// the transaction; a failed item insert aborts the whole offer.
func insertOffer(ctx context.Context, q queryer, o *models.Offer) error {
	res, err := q.ExecContext(ctx,
		"INSERT INTO exchange_offers (listing_id, from_user_id, to_user_id, message, status, created_at, updated_at) "+
			"VALUES (?, ?, ?, ?, ?, NOW(), NOW())",
		o.ListingID, o.FromUserID, o.ToUserID, o.Message, o.Status)
	if err != nil {
		return errs.NewStore("repository.insertOffer", "insert offer", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errs.NewStore("repository.insertOffer", "last insert id", err)
	}
	o.ID = id

	for i := range o.Items {
		item := &o.Items[i]
		item.OfferID = id
		ires, err := q.ExecContext(ctx,
			"INSERT INTO exchange_offer_items (offer_id, product_id, quantity, `condition`) VALUES (?, ?, ?, ?)",
			id, item.ProductID, item.Quantity, item.Condition)
		if err != nil {
			return errs.NewStore("repository.insertOffer", "insert offer item", err)
		}
		if iid, err := ires.LastInsertId(); err == nil {
			item.ID = iid
		}
	}
	return nil
}

func scanOffer(row *sql.Row) (*models.Offer, error) {
	var o models.Offer
	var msg sql.NullString
	err := row.Scan(&o.ID, &o.ListingID, &o.FromUserID, &o.ToUserID, &msg, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewStore("repository.scanOffer", "scan offer row", err)
	}
	o.Message = nullToPtr(msg)
	return &o, nil
}

func getOffer(ctx context.Context, q queryer, id int64, forUpdate bool) (*models.Offer, error) {
	query := "SELECT " + offerCols + " FROM exchange_offers o WHERE o.id = ?"
	if forUpdate {
		query += " FOR UPDATE"
	}
	o, err := scanOffer(q.QueryRowContext(ctx, query, id))
	if err != nil || o == nil {
		return o, err
	}
	items, err := offerItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func offerItems(ctx context.Context, q queryer, offerID int64) ([]models.OfferItem, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, offer_id, product_id, quantity, `condition` FROM exchange_offer_items WHERE offer_id = ? ORDER BY id",
		offerID)
	if err != nil {
		return nil, errs.NewStore("repository.offerItems", "query offer items", err)
	}
	defer rows.Close()

	var items []models.OfferItem
	for rows.Next() {
		var it models.OfferItem
		if err := rows.Scan(&it.ID, &it.OfferID, &it.ProductID, &it.Quantity, &it.Condition); err != nil {
			return nil, errs.NewStore("repository.offerItems", "scan offer item", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// offersByParty serves both the incoming and outgoing offer lists; partyCol
// is a trusted column name, never caller input.
func offersByParty(ctx context.Context, q queryer, partyCol string, userID int64) ([]models.OfferView, error) {
	query := "SELECT " + offerCols + ", p.name " +
		"FROM exchange_offers o " +
		"JOIN exchange_listings l ON l.id = o.listing_id " +
		"JOIN exchange_products p ON p.id = l.product_id " +
		"WHERE " + partyCol + " = ? ORDER BY o.created_at DESC, o.id DESC"
	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errs.NewStore("repository.offersByParty", "query offers", err)
	}
	defer rows.Close()

	var out []models.OfferView
	for rows.Next() {
		var v models.OfferView
		var msg sql.NullString
		if err := rows.Scan(&v.ID, &v.ListingID, &v.FromUserID, &v.ToUserID, &msg, &v.Status,
			&v.CreatedAt, &v.UpdatedAt, &v.ProductName); err != nil {
			return nil, errs.NewStore("repository.offersByParty", "scan offer row", err)
		}
		v.Message = nullToPtr(msg)
		out = append(out, v)
	}
	return out, rows.Err()
}

func setOfferStatus(ctx context.Context, q queryer, id int64, status models.OfferStatus) error {
	_, err := q.ExecContext(ctx,
		"UPDATE exchange_offers SET status = ?, updated_at = NOW() WHERE id = ?", status, id)
	if err != nil {
		return errs.NewStore("repository.setOfferStatus", "update status", err)
	}
	return nil
}

func rejectPendingOffers(ctx context.Context, q queryer, listingID, exceptOfferID int64) (int64, error) {
	res, err := q.ExecContext(ctx,
		"UPDATE exchange_offers SET status = 'rejected', updated_at = NOW() "+
			"WHERE listing_id = ? AND id <> ? AND status = 'pending'",
		listingID, exceptOfferID)
	if err != nil {
		return 0, errs.NewStore("repository.rejectPendingOffers", "bulk reject", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errs.NewStore("repository.rejectPendingOffers", "rows affected", err)
	}
	return n, nil
}
