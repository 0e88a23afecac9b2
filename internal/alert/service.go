package alert

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/py-sit/skyalert/internal/logging"
	"github.com/py-sit/skyalert/internal/models"
	"github.com/py-sit/skyalert/internal/observability"
	"github.com/py-sit/skyalert/internal/store"
)

// logRetention caps the delivery log; rows past this are moved to the
// backup table at the end of each cycle.
const logRetention = 2000

// CycleResult summarizes one evaluation cycle.
type CycleResult struct {
	Candidates    int      `json:"candidates"`
	Duplicates    int      `json:"duplicates"`
	Queued        int      `json:"queued"`
	Staged        int      `json:"staged"`
	Sent          int      `json:"sent"`
	Failed        int      `json:"failed"`
	FetchFailures []string `json:"fetch_failures,omitempty"`
}

// Service owns one full evaluation cycle: snapshot, fetch, evaluate,
// deduplicate, route, dispatch. It also fronts the review operations for
// the API layer.
type Service struct {
	db         Store
	forecaster Forecaster
	evaluator  *Evaluator
	gate       *Gate
	dispatcher *Dispatcher
	pending    *store.PendingFile
	batchSize  int
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *logging.Logger
}

func NewService(
	db Store,
	forecaster Forecaster,
	evaluator *Evaluator,
	gate *Gate,
	dispatcher *Dispatcher,
	pending *store.PendingFile,
	batchSize int,
	clock clockwork.Clock,
	metrics *observability.Metrics,
	logger *logging.Logger,
) *Service {
	return &Service{
		db:         db,
		forecaster: forecaster,
		evaluator:  evaluator,
		gate:       gate,
		dispatcher: dispatcher,
		pending:    pending,
		batchSize:  batchSize,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// Schedule exposes the current schedule settings to the scheduler loop.
func (s *Service) Schedule(ctx context.Context) (string, int, error) {
	settings, err := s.db.GetSettings(ctx)
	if err != nil {
		return "", 0, err
	}
	return settings.FirstAlertTime, settings.IntervalHours, nil
}

// RunCycle executes one evaluation cycle end to end.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	var result CycleResult

	settings, err := s.db.GetSettings(ctx)
	if err != nil {
		return result, fmt.Errorf("load settings: %w", err)
	}
	customers, err := s.db.GetCustomers(ctx)
	if err != nil {
		return result, fmt.Errorf("load personnel: %w", err)
	}
	activeRules, err := s.db.GetActiveRules(ctx)
	if err != nil {
		return result, fmt.Errorf("load rules: %w", err)
	}
	templates, err := s.db.GetActiveTemplates(ctx)
	if err != nil {
		return result, fmt.Errorf("load templates: %w", err)
	}
	if len(activeRules) == 0 || len(customers) == 0 {
		s.logger.Infof("Nothing to evaluate: %d rules, %d subscribers", len(activeRules), len(customers))
		return result, nil
	}

	regions := Regions(customers)
	forecasts, failures := s.forecaster.FetchAll(ctx, regions, maxAdvanceDays(activeRules, settings.AdvanceDays), settings.RetryCount)
	result.FetchFailures = failures

	candidates := s.evaluator.Evaluate(activeRules, customers, forecasts, templates, settings)
	result.Candidates = len(candidates)

	payloads, duplicates, err := s.dedupCandidates(ctx, candidates)
	if err != nil {
		return result, err
	}
	result.Duplicates = duplicates

	result.Queued, result.Staged, err = s.gate.Route(ctx, payloads, settings)
	if err != nil {
		return result, fmt.Errorf("route candidates: %w", err)
	}

	// Dispatch only under auto-approval. In manual mode everything waits
	// for a reviewer; Approve is the only send path.
	if settings.AutoApproval {
		result.Sent, result.Failed, err = s.dispatcher.Dispatch(ctx, s.batchSize)
		if err != nil {
			return result, fmt.Errorf("dispatch: %w", err)
		}
	}

	if moved, err := s.db.TrimLog(ctx, logRetention); err != nil {
		s.logger.Warnf("Trim delivery log failed: %v", err)
	} else if moved > 0 {
		s.logger.Infof("Archived %d old delivery log rows", moved)
	}

	return result, nil
}

// dedupCandidates renders candidates to payloads, dropping those that
// duplicate a delivery within the lookback window. Each suppressed
// candidate gets a recorded-duplicate log row so the window extends from
// the suppression too. Only persisted history counts: two identical
// candidates in the same batch both pass and get their own task or
// notification.
func (s *Service) dedupCandidates(ctx context.Context, candidates []models.Candidate) ([]models.EmailPayload, int, error) {
	if len(candidates) == 0 {
		return nil, 0, nil
	}
	now := s.clock.Now()
	recent, err := s.db.RecentLogEntries(ctx, now.Add(-DedupWindow))
	if err != nil {
		return nil, 0, fmt.Errorf("load delivery log: %w", err)
	}

	var payloads []models.EmailPayload
	duplicates := 0
	for _, c := range candidates {
		payload := BuildPayload(c, false)
		if DuplicateWithinWeek(recent, now, payload) {
			s.logger.Infof("Suppressing duplicate alert: %s/%s to %s", payload.Region, payload.WeatherType, payload.ToEmail)
			entry := logEntryFor(payload, now)
			entry.Status = models.LogStatusDuplicate
			if err := s.db.AppendLogEntry(ctx, entry); err != nil {
				s.logger.Errorf("Append delivery log failed: %v", err)
			}
			s.metrics.AlertDuplicate()
			duplicates++
			continue
		}
		payloads = append(payloads, payload)
	}
	return payloads, duplicates, nil
}

// Approve sends a manually reviewed alert.
func (s *Service) Approve(ctx context.Context, notificationID string) error {
	return s.gate.Approve(ctx, notificationID)
}

// Reject discards a manually reviewed alert.
func (s *Service) Reject(ctx context.Context, notificationID string) error {
	return s.gate.Reject(ctx, notificationID)
}

// PendingReviews lists notifications awaiting manual approval.
func (s *Service) PendingReviews(ctx context.Context) ([]models.Notification, error) {
	return s.db.PendingNotifications(ctx)
}

// ResetTask returns a failed queue task to pending.
func (s *Service) ResetTask(ctx context.Context, taskID string) error {
	return s.db.ResetTask(ctx, taskID)
}

// ClearQueues empties the mail queue, the review set and the staging file.
// Operator escape hatch; delivery history is untouched.
func (s *Service) ClearQueues(ctx context.Context) (tasks, notifications int64, err error) {
	tasks, err = s.db.DeleteAllTasks(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("clear mail queue: %w", err)
	}
	notifications, err = s.db.DeleteAllNotifications(ctx)
	if err != nil {
		return tasks, 0, fmt.Errorf("clear review set: %w", err)
	}
	if err := s.pending.Clear(); err != nil {
		return tasks, notifications, fmt.Errorf("clear staging file: %w", err)
	}
	s.logger.Infof("Cleared queues: %d tasks, %d notifications", tasks, notifications)
	return tasks, notifications, nil
}

// maxAdvanceDays returns the largest advance horizon any rule needs, so one
// fetch covers every rule.
func maxAdvanceDays(activeRules []models.AlertRule, global int) int {
	max := global
	for _, r := range activeRules {
		if days := r.EffectiveAdvanceDays(global); days > max {
			max = days
		}
	}
	return max
}
