package ledger

import (
	"context"
	"fmt"
	"time"
)

// ImportBatch is a recorded payment import run.
type ImportBatch struct {
	ID        string    `json:"id"` // uuid
	CreatedAt time.Time `json:"created_at"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
}

// ImportResult is one per-reservation outcome of a batch.
type ImportResult struct {
	Reservation string `json:"reservation"`
	OK          bool   `json:"ok"`
	Message     string `json:"message"`
}

// RecordBatch stores a finished import batch and its per-row results.
func (db *DB) RecordBatch(ctx context.Context, batchID string, results []ImportResult) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	succeeded := 0
	for _, r := range results {
		if r.OK {
			succeeded++
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO import_batches (id, total, succeeded, failed)
		VALUES (?, ?, ?, ?)`,
		batchID, len(results), succeeded, len(results)-succeeded)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	for _, r := range results {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO import_results (batch_id, reservation, ok, message)
			VALUES (?, ?, ?, ?)`,
			batchID, r.Reservation, r.OK, r.Message)
		if err != nil {
			return fmt.Errorf("failed to insert result: %w", err)
		}
	}

	return tx.Commit()
}

// ListBatches returns recorded batches, newest first.
func (db *DB) ListBatches(ctx context.Context, limit int) ([]*ImportBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, created_at, total, succeeded, failed
		FROM import_batches
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []*ImportBatch
	for rows.Next() {
		var b ImportBatch
		if err := rows.Scan(&b.ID, &b.CreatedAt, &b.Total, &b.Succeeded, &b.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, &b)
	}
	return batches, rows.Err()
}

// BatchResults returns the per-reservation results of a batch.
func (db *DB) BatchResults(ctx context.Context, batchID string) ([]ImportResult, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT reservation, ok, message
		FROM import_results
		WHERE batch_id = ?
		ORDER BY id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch results: %w", err)
	}
	defer rows.Close()

	var results []ImportResult
	for rows.Next() {
		var r ImportResult
		if err := rows.Scan(&r.Reservation, &r.OK, &r.Message); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
