package repository

import (
	"context"
	"database/sql"
	"errors"

	"exchange-market/internal/models"
	errs "exchange-market/pkg/errors"
)

const dealCols = "d.id, d.offer_id, d.listing_id, d.seller_id, d.buyer_id, d.status, " +
	"d.seller_confirmed, d.buyer_confirmed, d.completed_at, d.created_at, d.updated_at"

func insertDeal(ctx context.Context, q queryer, d *models.Deal) error {
	res, err := q.ExecContext(ctx,
		"INSERT INTO exchange_deals (offer_id, listing_id, seller_id, buyer_id, status, seller_confirmed, buyer_confirmed, created_at, updated_at) "+
			"VALUES (?, ?, ?, ?, ?, 0, 0, NOW(), NOW())",
		d.OfferID, d.ListingID, d.SellerID, d.BuyerID, d.Status)
	if err != nil {
		return errs.NewStore("repository.insertDeal", "insert deal", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errs.NewStore("repository.insertDeal", "last insert id", err)
	}
	d.ID = id
	return nil
}

func scanDeal(row *sql.Row) (*models.Deal, error) {
	var d models.Deal
	var completedAt sql.NullTime
	err := row.Scan(&d.ID, &d.OfferID, &d.ListingID, &d.SellerID, &d.BuyerID, &d.Status,
		&d.SellerConfirmed, &d.BuyerConfirmed, &completedAt, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewStore("repository.scanDeal", "scan deal row", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		d.CompletedAt = &t
	}
	return &d, nil
}

func getDeal(ctx context.Context, q queryer, id int64, forUpdate bool) (*models.Deal, error) {
	query := "SELECT " + dealCols + " FROM exchange_deals d WHERE d.id = ?"
	if forUpdate {
		query += " FOR UPDATE"
	}
	return scanDeal(q.QueryRowContext(ctx, query, id))
}

func getDealView(ctx context.Context, q queryer, id int64) (*models.DealView, error) {
	query := "SELECT " + dealCols + ", p.name " +
		"FROM exchange_deals d " +
		"JOIN exchange_listings l ON l.id = d.listing_id " +
		"JOIN exchange_products p ON p.id = l.product_id " +
		"WHERE d.id = ?"
	var v models.DealView
	var completedAt sql.NullTime
	err := q.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.OfferID, &v.ListingID, &v.SellerID, &v.BuyerID, &v.Status,
		&v.SellerConfirmed, &v.BuyerConfirmed, &completedAt, &v.CreatedAt, &v.UpdatedAt,
		&v.ProductName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewStore("repository.getDealView", "scan deal view", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		v.CompletedAt = &t
	}
	return &v, nil
}

func dealsByUser(ctx context.Context, q queryer, userID int64) ([]models.DealView, error) {
	query := "SELECT " + dealCols + ", p.name " +
		"FROM exchange_deals d " +
		"JOIN exchange_listings l ON l.id = d.listing_id " +
		"JOIN exchange_products p ON p.id = l.product_id " +
		"WHERE d.seller_id = ? OR d.buyer_id = ? ORDER BY d.created_at DESC, d.id DESC"
	rows, err := q.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, errs.NewStore("repository.dealsByUser", "query deals", err)
	}
	defer rows.Close()

	var out []models.DealView
	for rows.Next() {
		var v models.DealView
		var completedAt sql.NullTime
		if err := rows.Scan(&v.ID, &v.OfferID, &v.ListingID, &v.SellerID, &v.BuyerID, &v.Status,
			&v.SellerConfirmed, &v.BuyerConfirmed, &completedAt, &v.CreatedAt, &v.UpdatedAt,
			&v.ProductName); err != nil {
			return nil, errs.NewStore("repository.dealsByUser", "scan deal row", err)
		}
		if completedAt.Valid {
			t := completedAt.Time
			v.CompletedAt = &t
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func setDealConfirmed(ctx context.Context, q queryer, id int64, side models.DealSide) error {
	col := "seller_confirmed"
	if side == models.SideBuyer {
		col = "buyer_confirmed"
	}
	// Idempotent: setting an already-true flag is a no-op.
	_, err := q.ExecContext(ctx,
		"UPDATE exchange_deals SET "+col+" = 1, updated_at = NOW() WHERE id = ?", id)
	if err != nil {
		return errs.NewStore("repository.setDealConfirmed", "set confirmation flag", err)
	}
	return nil
}

func completeDeal(ctx context.Context, q queryer, id int64) error {
	// Status flip and completion stamp land in one statement.
	_, err := q.ExecContext(ctx,
		"UPDATE exchange_deals SET status = 'completed', completed_at = NOW(), updated_at = NOW() WHERE id = ?", id)
	if err != nil {
		return errs.NewStore("repository.completeDeal", "complete deal", err)
	}
	return nil
}

func cancelDeal(ctx context.Context, q queryer, id int64) error {
	_, err := q.ExecContext(ctx,
		"UPDATE exchange_deals SET status = 'cancelled', updated_at = NOW() WHERE id = ?", id)
	if err != nil {
		return errs.NewStore("repository.cancelDeal", "cancel deal", err)
	}
	return nil
}
