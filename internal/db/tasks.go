package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/py-sit/skyalert/internal/models"
)

const taskColumns = `id, task_id, status, payload, is_test, attempts, COALESCE(error, ''), created_at, updated_at`

// EnqueueTask inserts a pending mail task. A task_id collision replaces the
// existing row instead of erroring: the id embeds a timestamp and random
// suffix, so a collision means the same logical task was staged twice.
func (d *DB) EnqueueTask(ctx context.Context, taskID, payload string, isTest bool) error {
	query := `
        INSERT INTO mail_task (task_id, status, payload, is_test, attempts, error, created_at, updated_at)
        VALUES ($1, 'pending', $2, $3, 0, NULL, now(), now())
        ON CONFLICT (task_id) DO UPDATE
        SET status = 'pending', payload = EXCLUDED.payload, is_test = EXCLUDED.is_test,
            attempts = 0, error = NULL, updated_at = now()`
	if _, err := d.Pool.Exec(ctx, query, taskID, payload, isTest); err != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", taskID, err)
	}
	return nil
}

// ClaimTasks atomically selects pending tasks oldest-first, marks them
// processing, increments attempts, and returns them. The single UPDATE with
// FOR UPDATE SKIP LOCKED in the subquery is the exclusivity boundary: two
// concurrent dispatchers can never claim the same task.
func (d *DB) ClaimTasks(ctx context.Context, isTest *bool, limit int) ([]models.MailTask, error) {
	query := `
        UPDATE mail_task
        SET status = 'processing', attempts = attempts + 1, updated_at = now()
        WHERE id IN (
            SELECT id FROM mail_task
            WHERE status = 'pending' AND ($1::boolean IS NULL OR is_test = $1)
            ORDER BY created_at
            LIMIT $2
            FOR UPDATE SKIP LOCKED
        )
        RETURNING ` + taskColumns
	rows, err := d.Pool.Query(ctx, query, isTest, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.MailTask
	for rows.Next() {
		var t models.MailTask
		if err := rows.Scan(&t.ID, &t.TaskID, &t.Status, &t.Payload, &t.IsTest,
			&t.Attempts, &t.Error, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CompleteTask transitions a processing task to sent.
func (d *DB) CompleteTask(ctx context.Context, taskID string) error {
	return d.finishTask(ctx, taskID, models.TaskSent, "")
}

// FailTask transitions a processing task to failed with the error text.
func (d *DB) FailTask(ctx context.Context, taskID, errText string) error {
	return d.finishTask(ctx, taskID, models.TaskFailed, errText)
}

func (d *DB) finishTask(ctx context.Context, taskID, status, errText string) error {
	query := `
        UPDATE mail_task
        SET status = $1, error = NULLIF($2, ''), updated_at = now()
        WHERE task_id = $3 AND status = 'processing'`
	result, err := d.Pool.Exec(ctx, query, status, errText, taskID)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", taskID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("task %s is not processing: %w", taskID, ErrAlreadyResolved)
	}
	return nil
}

// ResetTask puts a failed task back to pending for another dispatch
// attempt. Operator recovery only; the queue never does this on its own.
func (d *DB) ResetTask(ctx context.Context, taskID string) error {
	query := `
        UPDATE mail_task
        SET status = 'pending', error = NULL, updated_at = now()
        WHERE task_id = $1 AND status = 'failed'`
	result, err := d.Pool.Exec(ctx, query, taskID)
	if err != nil {
		return fmt.Errorf("failed to reset task %s: %w", taskID, err)
	}
	if result.RowsAffected() == 0 {
		var status string
		err := d.Pool.QueryRow(ctx, `SELECT status FROM mail_task WHERE task_id = $1`, taskID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check task %s: %w", taskID, err)
		}
		return fmt.Errorf("task %s is %s, not failed: %w", taskID, status, ErrAlreadyResolved)
	}
	return nil
}

// DeleteAllTasks removes every mail task. Destructive; used only by the
// operator queue reset.
func (d *DB) DeleteAllTasks(ctx context.Context) (int64, error) {
	result, err := d.Pool.Exec(ctx, `DELETE FROM mail_task`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks: %w", err)
	}
	return result.RowsAffected(), nil
}
