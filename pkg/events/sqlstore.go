package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"exchange-market/pkg/database"
)

// SQLStore stores events in a SQL table with ordered ids.
// Table schema:
// CREATE TABLE IF NOT EXISTS exchange_events (
//   id BIGINT AUTO_INCREMENT PRIMARY KEY,
//   listing_id BIGINT NOT NULL,
//   type VARCHAR(64) NOT NULL,
//   at DATETIME(6) NOT NULL,
//   data JSON NOT NULL,
//   KEY idx_listing_id (listing_id),
//   KEY idx_listing_time (listing_id, id)
// );
// NOTE: JSON may be emulated as LONGTEXT on older MySQL variants.

type SQLStore struct {
	db *database.DB
}

func NewSQLStore(db *database.DB) *SQLStore {
	s := &SQLStore{db: db}
	if err := s.ensureTable(); err != nil {
		// Best effort; don't crash app start
		fmt.Printf("[events] ensure table error: %v\n", err)
	}
	return s
}

var _ Store = (*SQLStore)(nil)

func (s *SQLStore) ensureTable() error {
	qry := `CREATE TABLE IF NOT EXISTS exchange_events (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		listing_id BIGINT NOT NULL,
		type VARCHAR(64) NOT NULL,
		at DATETIME(6) NOT NULL,
		data JSON NOT NULL,
		KEY idx_listing_id (listing_id),
		KEY idx_listing_time (listing_id, id)
	)`
	_, err := s.db.Conn().Exec(qry)
	return err
}

func (s *SQLStore) Record(ctx context.Context, e Event) error {
	payload := e.Payload()
	if payload == nil {
		payload = map[string]any{}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	at := e.At()
	if at.IsZero() {
		at = time.Now()
	}

	wctx, cancel := s.db.WriteContext(ctx)
	defer cancel()
	_, err = s.db.Conn().ExecContext(wctx,
		`INSERT INTO exchange_events (listing_id, type, at, data) VALUES (?,?,?,?)`,
		e.ListingID(), e.Type(), at, string(b))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *SQLStore) ListByListing(ctx context.Context, listingID int64) ([]StoredEvent, error) {
	rctx, cancel := s.db.ReadContext(ctx)
	defer cancel()
	rows, err := s.db.Conn().QueryContext(rctx,
		`SELECT id, listing_id, type, at, data FROM exchange_events WHERE listing_id = ? ORDER BY id ASC`,
		listingID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		var raw []byte
		if err := rows.Scan(&ev.Seq, &ev.ListingID, &ev.Type, &ev.At, &raw); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &ev.Data); err != nil {
				return nil, fmt.Errorf("decode event data: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
