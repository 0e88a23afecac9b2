package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/py-sit/skyalert/internal/logging"
	"github.com/py-sit/skyalert/internal/models"
	"github.com/py-sit/skyalert/internal/observability"
	"github.com/py-sit/skyalert/internal/store"
	"github.com/py-sit/skyalert/internal/utils"
)

const (
	sendAttempts  = 3
	sendRetryWait = 2 * time.Second
)

// Dispatcher drains the mail queue: it claims a batch of pending tasks,
// re-checks each against the duplicate window (approval latency can make a
// queued alert stale), and sends with bounded retries. When the durable
// queue is empty it falls back to the legacy staging file.
type Dispatcher struct {
	db      Store
	pending *store.PendingFile
	sender  Sender
	metrics *observability.Metrics
	clock   clockwork.Clock
	logger  *logging.Logger
}

func NewDispatcher(db Store, pending *store.PendingFile, sender Sender, metrics *observability.Metrics, clock clockwork.Clock, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		db:      db,
		pending: pending,
		sender:  sender,
		metrics: metrics,
		clock:   clock,
		logger:  logger,
	}
}

// Dispatch processes up to batchSize queued tasks and returns the sent and
// failed counts.
func (d *Dispatcher) Dispatch(ctx context.Context, batchSize int) (sent, failed int, err error) {
	tasks, err := d.db.ClaimTasks(ctx, nil, batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("claim tasks: %w", err)
	}
	if len(tasks) == 0 {
		return d.dispatchStaged(ctx)
	}

	now := d.clock.Now()
	recent, err := d.db.RecentLogEntries(ctx, now.Add(-DedupWindow))
	if err != nil {
		return 0, 0, fmt.Errorf("load delivery log: %w", err)
	}

	for _, task := range tasks {
		var payload models.EmailPayload
		if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
			d.logger.Errorf("Task %s has unreadable payload: %v", task.TaskID, err)
			d.failTask(ctx, task.TaskID, "invalid payload")
			failed++
			continue
		}

		if DuplicateWithinWeek(recent, now, payload) {
			d.logger.Infof("Task %s suppressed: duplicate of a recent alert to %s", task.TaskID, payload.ToEmail)
			d.failTask(ctx, task.TaskID, "duplicate")
			d.appendLog(ctx, payload, models.LogStatusDuplicate)
			d.metrics.AlertDuplicate()
			continue
		}

		sendErr := utils.Retry(d.logger, sendAttempts, sendRetryWait, func() error {
			return d.sender.Send(ctx, payload)
		})
		if sendErr != nil {
			d.logger.Errorf("Task %s failed after retries: %v", task.TaskID, sendErr)
			d.failTask(ctx, task.TaskID, sendErr.Error())
			d.appendLog(ctx, payload, fmt.Sprintf("failed: %v", sendErr))
			d.metrics.AlertFailed()
			failed++
			continue
		}

		if err := d.db.CompleteTask(ctx, task.TaskID); err != nil {
			d.logger.Errorf("Mark task %s sent failed: %v", task.TaskID, err)
		}
		d.appendLog(ctx, payload, models.LogStatusSent)
		d.metrics.AlertSent()
		sent++
	}

	// Anything mirrored into the staging file was either just handled or
	// already resolved; clearing prevents the fallback path from replaying
	// it next cycle.
	if err := d.pending.Clear(); err != nil {
		d.logger.Errorf("Clear staging file failed: %v", err)
	}

	d.logger.Infof("Dispatched batch: %d sent, %d failed", sent, failed)
	return sent, failed, nil
}

// dispatchStaged sends from the legacy staging file when the durable queue
// is empty. The coarser 3-day region dedup applies here: file entries carry
// no queue history, so only the log can vouch for them.
func (d *Dispatcher) dispatchStaged(ctx context.Context) (sent, failed int, err error) {
	payloads, err := d.pending.Load()
	if err != nil {
		return 0, 0, fmt.Errorf("load staging file: %w", err)
	}
	if len(payloads) == 0 {
		return 0, 0, nil
	}
	d.logger.Infof("Queue empty, sending %d staged emails", len(payloads))

	now := d.clock.Now()
	recent, err := d.db.RecentLogEntries(ctx, now.Add(-LegacyDedupWindow))
	if err != nil {
		return 0, 0, fmt.Errorf("load delivery log: %w", err)
	}

	for _, payload := range payloads {
		if DuplicateWithinThreeDays(recent, now, payload.Region, payload.WeatherType) {
			d.logger.Infof("Staged alert for %s/%s suppressed as duplicate", payload.Region, payload.WeatherType)
			d.appendLog(ctx, payload, models.LogStatusDuplicate)
			d.metrics.AlertDuplicate()
			continue
		}

		sendErr := utils.Retry(d.logger, sendAttempts, sendRetryWait, func() error {
			return d.sender.Send(ctx, payload)
		})
		if sendErr != nil {
			d.logger.Errorf("Staged alert to %s failed: %v", payload.ToEmail, sendErr)
			d.appendLog(ctx, payload, fmt.Sprintf("failed: %v", sendErr))
			d.metrics.AlertFailed()
			failed++
			continue
		}
		d.appendLog(ctx, payload, models.LogStatusSent)
		d.metrics.AlertSent()
		sent++
	}

	if err := d.pending.Clear(); err != nil {
		d.logger.Errorf("Clear staging file failed: %v", err)
	}
	return sent, failed, nil
}

func (d *Dispatcher) failTask(ctx context.Context, taskID, reason string) {
	if err := d.db.FailTask(ctx, taskID, reason); err != nil {
		d.logger.Errorf("Mark task %s failed: %v", taskID, err)
	}
}

func (d *Dispatcher) appendLog(ctx context.Context, payload models.EmailPayload, status string) {
	entry := logEntryFor(payload, d.clock.Now())
	entry.Status = status
	if err := d.db.AppendLogEntry(ctx, entry); err != nil {
		d.logger.Errorf("Append delivery log failed: %v", err)
	}
}
