package repository

import (
	"context"
	"database/sql"
	"errors"

	"exchange-market/internal/models"
	errs "exchange-market/pkg/errors"
)

func listProducts(ctx context.Context, q queryer, category string) ([]models.Product, error) {
	query := "SELECT id, name, category, created_at FROM exchange_products"
	var args []any
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY name"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.NewStore("repository.listProducts", "query products", err)
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.CreatedAt); err != nil {
			return nil, errs.NewStore("repository.listProducts", "scan product", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func getProduct(ctx context.Context, q queryer, id int64) (*models.Product, error) {
	var p models.Product
	err := q.QueryRowContext(ctx,
		"SELECT id, name, category, created_at FROM exchange_products WHERE id = ?", id).
		Scan(&p.ID, &p.Name, &p.Category, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewStore("repository.getProduct", "scan product", err)
	}
	return &p, nil
}

func insertReview(ctx context.Context, q queryer, r *models.Review) error {
	res, err := q.ExecContext(ctx,
		"INSERT INTO exchange_reviews (deal_id, author_id, target_user_id, rating, comment, created_at) "+
			"VALUES (?, ?, ?, ?, ?, NOW())",
		r.DealID, r.AuthorID, r.TargetUserID, r.Rating, r.Comment)
	if err != nil {
		return errs.NewStore("repository.insertReview", "insert review", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errs.NewStore("repository.insertReview", "last insert id", err)
	}
	r.ID = id
	return nil
}

func reviewByDealAuthor(ctx context.Context, q queryer, dealID, authorID int64) (*models.Review, error) {
	var r models.Review
	var comment sql.NullString
	err := q.QueryRowContext(ctx,
		"SELECT id, deal_id, author_id, target_user_id, rating, comment, created_at "+
			"FROM exchange_reviews WHERE deal_id = ? AND author_id = ?",
		dealID, authorID).
		Scan(&r.ID, &r.DealID, &r.AuthorID, &r.TargetUserID, &r.Rating, &comment, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewStore("repository.reviewByDealAuthor", "scan review", err)
	}
	r.Comment = nullToPtr(comment)
	return &r, nil
}

func reviewsForUser(ctx context.Context, q queryer, userID int64) ([]models.Review, float64, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, deal_id, author_id, target_user_id, rating, comment, created_at "+
			"FROM exchange_reviews WHERE target_user_id = ? ORDER BY created_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, 0, errs.NewStore("repository.reviewsForUser", "query reviews", err)
	}
	defer rows.Close()

	var out []models.Review
	for rows.Next() {
		var r models.Review
		var comment sql.NullString
		if err := rows.Scan(&r.ID, &r.DealID, &r.AuthorID, &r.TargetUserID, &r.Rating, &comment, &r.CreatedAt); err != nil {
			return nil, 0, errs.NewStore("repository.reviewsForUser", "scan review", err)
		}
		r.Comment = nullToPtr(comment)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errs.NewStore("repository.reviewsForUser", "row iteration error", err)
	}

	// Average computed on read; never stored.
	var avg float64
	if err := q.QueryRowContext(ctx,
		"SELECT COALESCE(AVG(rating), 0) FROM exchange_reviews WHERE target_user_id = ?", userID).
		Scan(&avg); err != nil {
		return nil, 0, errs.NewStore("repository.reviewsForUser", "average rating", err)
	}
	return out, avg, nil
}
