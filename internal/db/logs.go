package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/py-sit/skyalert/internal/models"
)

const logColumns = `id, timestamp, recipient, COALESCE(to_name, ''), weather_type, region,
	COALESCE(subject, ''), COALESCE(content, ''), COALESCE(alert_date, ''),
	COALESCE(condition, ''), COALESCE(category, ''), status, is_test`

// AppendLogEntry appends one delivery outcome record.
func (d *DB) AppendLogEntry(ctx context.Context, e models.DeliveryLogEntry) error {
	query := `
        INSERT INTO delivery_log (timestamp, recipient, to_name, weather_type, region,
            subject, content, alert_date, condition, category, status, is_test)
        VALUES (now(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := d.Pool.Exec(ctx, query,
		e.Recipient, e.ToName, e.WeatherType, e.Region, e.Subject, e.Content,
		e.AlertDate, e.Condition, e.Category, e.Status, e.IsTest)
	if err != nil {
		return fmt.Errorf("failed to append delivery log: %w", err)
	}
	return nil
}

// RecentLogEntries returns all entries with a timestamp at or after since.
// This window scan is the dedup filter's lookback corpus.
func (d *DB) RecentLogEntries(ctx context.Context, since time.Time) ([]models.DeliveryLogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM delivery_log WHERE timestamp >= $1 ORDER BY timestamp`
	rows, err := d.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery log: %w", err)
	}
	defer rows.Close()

	var entries []models.DeliveryLogEntry
	for rows.Next() {
		var e models.DeliveryLogEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Recipient, &e.ToName,
			&e.WeatherType, &e.Region, &e.Subject, &e.Content, &e.AlertDate,
			&e.Condition, &e.Category, &e.Status, &e.IsTest); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TrimLog keeps only the newest keep entries, moving the overflow into
// delivery_log_backup. Backup and trim run in one transaction so a crash
// can never lose records without having copied them first.
func (d *DB) TrimLog(ctx context.Context, keep int) (int64, error) {
	tx, err := d.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin trim transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	overflow := `
        SELECT id FROM delivery_log
        ORDER BY id DESC
        OFFSET $1`
	if _, err := tx.Exec(ctx,
		`INSERT INTO delivery_log_backup SELECT * FROM delivery_log WHERE id IN (`+overflow+`)`,
		keep); err != nil {
		return 0, fmt.Errorf("failed to back up log overflow: %w", err)
	}
	result, err := tx.Exec(ctx,
		`DELETE FROM delivery_log WHERE id IN (`+overflow+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to trim delivery log: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit trim: %w", err)
	}
	return result.RowsAffected(), nil
}
