package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"exchange-market/internal/models"
	errs "exchange-market/pkg/errors"
)

const listingCols = "l.id, l.user_id, l.product_id, l.quantity, l.`condition`, " +
	"l.description, l.city, l.wanted_description, l.status, l.views_count, l.created_at, l.updated_at"

func insertListing(ctx context.Context, q queryer, l *models.Listing) error {
	res, err := q.ExecContext(ctx,
		"INSERT INTO exchange_listings (user_id, product_id, quantity, `condition`, description, city, wanted_description, status, views_count, created_at, updated_at) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, NOW(), NOW())",
		l.OwnerID, l.ProductID, l.Quantity, l.Condition, l.Description, l.City, l.WantedDescription, l.Status)
	if err != nil {
		return errs.NewStore("repository.insertListing", "insert listing", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errs.NewStore("repository.insertListing", "last insert id", err)
	}
	l.ID = id
	return nil
}

func scanListing(row *sql.Row) (*models.Listing, error) {
	var l models.Listing
	var desc, city, wanted sql.NullString
	err := row.Scan(&l.ID, &l.OwnerID, &l.ProductID, &l.Quantity, &l.Condition,
		&desc, &city, &wanted, &l.Status, &l.ViewsCount, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewStore("repository.scanListing", "scan listing row", err)
	}
	l.Description = nullToPtr(desc)
	l.City = nullToPtr(city)
	l.WantedDescription = nullToPtr(wanted)
	return &l, nil
}

func getListing(ctx context.Context, q queryer, id int64, forUpdate bool) (*models.Listing, error) {
	query := "SELECT " + listingCols + " FROM exchange_listings l WHERE l.id = ?"
	if forUpdate {
		query += " FOR UPDATE"
	}
	return scanListing(q.QueryRowContext(ctx, query, id))
}

func getListingView(ctx context.Context, q queryer, id int64) (*models.ListingView, error) {
	query := "SELECT " + listingCols + ", p.name, p.category " +
		"FROM exchange_listings l JOIN exchange_products p ON p.id = l.product_id WHERE l.id = ?"
	var v models.ListingView
	var desc, city, wanted sql.NullString
	err := q.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.OwnerID, &v.ProductID, &v.Quantity, &v.Condition,
		&desc, &city, &wanted, &v.Status, &v.ViewsCount, &v.CreatedAt, &v.UpdatedAt,
		&v.ProductName, &v.ProductCategory)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewStore("repository.getListingView", "scan listing view", err)
	}
	v.Description = nullToPtr(desc)
	v.City = nullToPtr(city)
	v.WantedDescription = nullToPtr(wanted)
	return &v, nil
}

func listListings(ctx context.Context, q queryer, f models.ListingFilter) ([]models.ListingView, int, error) {
	f.Normalize()

	where := "WHERE l.status = ?"
	args := []any{f.Status}
	if f.City != "" {
		where += " AND l.city = ?"
		args = append(args, f.City)
	}
	if f.Category != "" {
		where += " AND p.category = ?"
		args = append(args, f.Category)
	}
	if f.ProductID != 0 {
		where += " AND l.product_id = ?"
		args = append(args, f.ProductID)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM exchange_listings l JOIN exchange_products p ON p.id = l.product_id " + where
	if err := q.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errs.NewStore("repository.listListings", "count listings", err)
	}

	query := "SELECT " + listingCols + ", p.name, p.category " +
		"FROM exchange_listings l JOIN exchange_products p ON p.id = l.product_id " +
		where + " ORDER BY l.created_at DESC, l.id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errs.NewStore("repository.listListings", "query listings", err)
	}
	defer rows.Close()

	var out []models.ListingView
	for rows.Next() {
		var v models.ListingView
		var desc, city, wanted sql.NullString
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.ProductID, &v.Quantity, &v.Condition,
			&desc, &city, &wanted, &v.Status, &v.ViewsCount, &v.CreatedAt, &v.UpdatedAt,
			&v.ProductName, &v.ProductCategory); err != nil {
			return nil, 0, errs.NewStore("repository.listListings", "scan listing row", err)
		}
		v.Description = nullToPtr(desc)
		v.City = nullToPtr(city)
		v.WantedDescription = nullToPtr(wanted)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errs.NewStore("repository.listListings", "row iteration error", err)
	}
	return out, total, nil
}

func listingsByOwner(ctx context.Context, q queryer, ownerID int64) ([]models.OwnerListing, error) {
	query := "SELECT " + listingCols + ", p.name, " +
		"(SELECT COUNT(*) FROM exchange_offers o WHERE o.listing_id = l.id AND o.status = 'pending') " +
		"FROM exchange_listings l JOIN exchange_products p ON p.id = l.product_id " +
		"WHERE l.user_id = ? ORDER BY l.created_at DESC, l.id DESC"
	rows, err := q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, errs.NewStore("repository.listingsByOwner", "query listings", err)
	}
	defer rows.Close()

	var out []models.OwnerListing
	for rows.Next() {
		var v models.OwnerListing
		var desc, city, wanted sql.NullString
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.ProductID, &v.Quantity, &v.Condition,
			&desc, &city, &wanted, &v.Status, &v.ViewsCount, &v.CreatedAt, &v.UpdatedAt,
			&v.ProductName, &v.PendingOffers); err != nil {
			return nil, errs.NewStore("repository.listingsByOwner", "scan listing row", err)
		}
		v.Description = nullToPtr(desc)
		v.City = nullToPtr(city)
		v.WantedDescription = nullToPtr(wanted)
		out = append(out, v)
	}
	return out, rows.Err()
}

func updateListingFields(ctx context.Context, q queryer, id int64, upd models.ListingUpdate) (*models.Listing, error) {
	var sets []string
	var args []any
	if upd.Quantity != nil {
		sets = append(sets, "quantity = ?")
		args = append(args, *upd.Quantity)
	}
	if upd.Condition != nil {
		sets = append(sets, "`condition` = ?")
		args = append(args, *upd.Condition)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.City != nil {
		sets = append(sets, "city = ?")
		args = append(args, *upd.City)
	}
	if upd.WantedDescription != nil {
		sets = append(sets, "wanted_description = ?")
		args = append(args, *upd.WantedDescription)
	}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *upd.Status)
	}
	if len(sets) == 0 {
		return nil, errs.NewValidation("repository.updateListingFields", "no fields to update", nil)
	}

	query := fmt.Sprintf("UPDATE exchange_listings SET %s, updated_at = NOW() WHERE id = ?", strings.Join(sets, ", "))
	args = append(args, id)
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return nil, errs.NewStore("repository.updateListingFields", "update listing", err)
	}
	return getListing(ctx, q, id, false)
}

func setListingStatus(ctx context.Context, q queryer, id int64, status models.ListingStatus) error {
	_, err := q.ExecContext(ctx,
		"UPDATE exchange_listings SET status = ?, updated_at = NOW() WHERE id = ?", status, id)
	if err != nil {
		return errs.NewStore("repository.setListingStatus", "update status", err)
	}
	return nil
}

func addListingViews(ctx context.Context, q queryer, id int64, delta int64) error {
	// Unguarded increment: view counts tolerate drift under races.
	_, err := q.ExecContext(ctx,
		"UPDATE exchange_listings SET views_count = views_count + ? WHERE id = ?", delta, id)
	if err != nil {
		return errs.NewStore("repository.addListingViews", "bump views", err)
	}
	return nil
}

func nullToPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
