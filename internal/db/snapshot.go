package db

import (
	"context"
	"fmt"

	"github.com/py-sit/skyalert/internal/models"
)

// GetSettings reads the operator settings row. Callers snapshot this once
// per cycle so a mid-cycle settings change cannot produce mixed behavior.
func (d *DB) GetSettings(ctx context.Context) (models.Settings, error) {
	var s models.Settings
	query := `
        SELECT first_alert_time, interval_hours, advance_days, interval_prediction,
               auto_approval, retry_count, admin_notify, admin_email
        FROM settings WHERE id = 1`
	err := d.Pool.QueryRow(ctx, query).Scan(
		&s.FirstAlertTime, &s.IntervalHours, &s.AdvanceDays, &s.IntervalPrediction,
		&s.AutoApproval, &s.RetryCount, &s.AdminNotify, &s.AdminEmail)
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return s, nil
}

// GetCustomers reads the personnel snapshot.
func (d *DB) GetCustomers(ctx context.Context) ([]models.Customer, error) {
	query := `
        SELECT id, name, COALESCE(title, ''), email, COALESCE(phone, ''),
               COALESCE(company, ''), region, category, weather_types
        FROM personnel ORDER BY id`
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load personnel: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Title, &c.Email, &c.Phone,
			&c.Company, &c.Region, &c.Category, &c.WeatherTypes); err != nil {
			return nil, fmt.Errorf("failed to scan personnel: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// GetActiveRules reads the active alert rules snapshot.
func (d *DB) GetActiveRules(ctx context.Context) ([]models.AlertRule, error) {
	query := `
        SELECT id, weather_type, condition, alert_kind, advance_days, active
        FROM alert_rules WHERE active ORDER BY id`
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load alert rules: %w", err)
	}
	defer rows.Close()

	var out []models.AlertRule
	for rows.Next() {
		var r models.AlertRule
		if err := rows.Scan(&r.ID, &r.WeatherType, &r.Condition, &r.AlertKind,
			&r.AdvanceDays, &r.Active); err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetActiveTemplates reads the active email templates snapshot.
func (d *DB) GetActiveTemplates(ctx context.Context) ([]models.Template, error) {
	query := `
        SELECT id, weather_type, target_role, COALESCE(subject, ''),
               COALESCE(content, ''), attachments, active
        FROM templates WHERE active ORDER BY id`
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	defer rows.Close()

	var out []models.Template
	for rows.Next() {
		var t models.Template
		if err := rows.Scan(&t.ID, &t.WeatherType, &t.TargetRole, &t.Subject,
			&t.Content, &t.Attachments, &t.Active); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
