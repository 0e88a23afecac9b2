package db

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS mail_task (
		id SERIAL PRIMARY KEY,
		task_id VARCHAR(120) UNIQUE NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		payload TEXT NOT NULL,
		is_test BOOLEAN NOT NULL DEFAULT FALSE,
		attempts INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mail_task_pending
		ON mail_task (created_at) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id SERIAL PRIMARY KEY,
		notification_id VARCHAR(160) UNIQUE NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
		recipient VARCHAR(200) NOT NULL,
		title VARCHAR(200) NOT NULL,
		content TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		email_data TEXT NOT NULL,
		is_test BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS delivery_log (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
		recipient VARCHAR(200) NOT NULL,
		to_name VARCHAR(200),
		weather_type VARCHAR(100) NOT NULL,
		region VARCHAR(100) NOT NULL,
		subject TEXT,
		content TEXT,
		alert_date VARCHAR(20),
		condition TEXT,
		category VARCHAR(50),
		status VARCHAR(100) NOT NULL,
		is_test BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS delivery_log_backup (
		LIKE delivery_log INCLUDING ALL
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		id SMALLINT PRIMARY KEY DEFAULT 1,
		first_alert_time VARCHAR(5) NOT NULL DEFAULT '06:00',
		interval_hours INTEGER NOT NULL DEFAULT 12,
		advance_days INTEGER NOT NULL DEFAULT 1,
		interval_prediction BOOLEAN NOT NULL DEFAULT FALSE,
		auto_approval BOOLEAN NOT NULL DEFAULT FALSE,
		retry_count INTEGER NOT NULL DEFAULT 3,
		admin_notify BOOLEAN NOT NULL DEFAULT FALSE,
		admin_email VARCHAR(200) NOT NULL DEFAULT ''
	)`,
	`INSERT INTO settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS personnel (
		id SERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		title VARCHAR(50),
		email VARCHAR(200) NOT NULL,
		phone VARCHAR(50),
		company VARCHAR(200),
		region VARCHAR(100) NOT NULL,
		category VARCHAR(50) NOT NULL,
		weather_types TEXT[] NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS alert_rules (
		id SERIAL PRIMARY KEY,
		weather_type VARCHAR(100) NOT NULL,
		condition TEXT NOT NULL,
		alert_kind VARCHAR(20) NOT NULL DEFAULT 'parameter',
		advance_days INTEGER,
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS templates (
		id SERIAL PRIMARY KEY,
		weather_type VARCHAR(100) NOT NULL,
		target_role VARCHAR(20) NOT NULL DEFAULT 'all',
		subject TEXT,
		content TEXT,
		attachments TEXT[] NOT NULL DEFAULT '{}',
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
}

// InitSchema creates every table the service needs. Statements are
// idempotent so a restart is always safe.
func (d *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema init failed: %w", err)
		}
	}
	return nil
}
