package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/py-sit/skyalert/internal/db"
	"github.com/py-sit/skyalert/internal/models"
)

// memStore is an in-memory Store used across the package tests. It mirrors
// the SQL layer's invariants: task claim flips pending to processing, and
// resolution is one-shot.
type memStore struct {
	mu            sync.Mutex
	settings      models.Settings
	customers     []models.Customer
	rules         []models.AlertRule
	templates     []models.Template
	tasks         []models.MailTask
	notifications []models.Notification
	log           []models.DeliveryLogEntry
	now           func() time.Time
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		settings: models.Settings{
			FirstAlertTime:     "08:00",
			IntervalHours:      12,
			AdvanceDays:        1,
			AutoApproval:       true,
			RetryCount:         3,
			IntervalPrediction: false,
		},
		now: now,
	}
}

func (m *memStore) GetSettings(context.Context) (models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *memStore) GetCustomers(context.Context) ([]models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Customer(nil), m.customers...), nil
}

func (m *memStore) GetActiveRules(context.Context) ([]models.AlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AlertRule(nil), m.rules...), nil
}

func (m *memStore) GetActiveTemplates(context.Context) ([]models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Template(nil), m.templates...), nil
}

func (m *memStore) EnqueueTask(_ context.Context, taskID, payload string, isTest bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].TaskID == taskID {
			m.tasks[i].Status = models.TaskPending
			m.tasks[i].Payload = payload
			m.tasks[i].IsTest = isTest
			return nil
		}
	}
	m.tasks = append(m.tasks, models.MailTask{
		ID:        len(m.tasks) + 1,
		TaskID:    taskID,
		Status:    models.TaskPending,
		Payload:   payload,
		IsTest:    isTest,
		CreatedAt: m.now(),
	})
	return nil
}

func (m *memStore) ClaimTasks(_ context.Context, isTest *bool, limit int) ([]models.MailTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var claimed []models.MailTask
	for i := range m.tasks {
		if len(claimed) >= limit {
			break
		}
		if m.tasks[i].Status != models.TaskPending {
			continue
		}
		if isTest != nil && m.tasks[i].IsTest != *isTest {
			continue
		}
		m.tasks[i].Status = models.TaskProcessing
		m.tasks[i].Attempts++
		claimed = append(claimed, m.tasks[i])
	}
	return claimed, nil
}

func (m *memStore) CompleteTask(_ context.Context, taskID string) error {
	return m.finishTask(taskID, models.TaskSent, "")
}

func (m *memStore) FailTask(_ context.Context, taskID, errText string) error {
	return m.finishTask(taskID, models.TaskFailed, errText)
}

func (m *memStore) finishTask(taskID, status, errText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].TaskID == taskID {
			if m.tasks[i].Status != models.TaskProcessing {
				return db.ErrAlreadyResolved
			}
			m.tasks[i].Status = status
			m.tasks[i].Error = errText
			return nil
		}
	}
	return db.ErrNotFound
}

func (m *memStore) ResetTask(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].TaskID == taskID {
			if m.tasks[i].Status != models.TaskFailed {
				return db.ErrAlreadyResolved
			}
			m.tasks[i].Status = models.TaskPending
			m.tasks[i].Error = ""
			return nil
		}
	}
	return db.ErrNotFound
}

func (m *memStore) DeleteAllTasks(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.tasks))
	m.tasks = nil
	return n, nil
}

func (m *memStore) CreateNotification(_ context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = len(m.notifications) + 1
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *memStore) GetNotification(_ context.Context, notificationID string) (models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.NotificationID == notificationID {
			return n, nil
		}
	}
	return models.Notification{}, db.ErrNotFound
}

func (m *memStore) PendingNotifications(context.Context) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.Status == models.NotificationPending {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) ResolveNotification(_ context.Context, notificationID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].NotificationID == notificationID {
			if m.notifications[i].Status != models.NotificationPending {
				return db.ErrAlreadyResolved
			}
			m.notifications[i].Status = status
			return nil
		}
	}
	return db.ErrNotFound
}

func (m *memStore) DeleteAllNotifications(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.notifications))
	m.notifications = nil
	return n, nil
}

func (m *memStore) AppendLogEntry(_ context.Context, e models.DeliveryLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = len(m.log) + 1
	m.log = append(m.log, e)
	return nil
}

func (m *memStore) RecentLogEntries(_ context.Context, since time.Time) ([]models.DeliveryLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DeliveryLogEntry
	for _, e := range m.log {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) TrimLog(_ context.Context, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.log) <= keep {
		return 0, nil
	}
	moved := int64(len(m.log) - keep)
	m.log = m.log[len(m.log)-keep:]
	return moved, nil
}

func (m *memStore) taskByID(taskID string) (models.MailTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.TaskID == taskID {
			return t, true
		}
	}
	return models.MailTask{}, false
}

// fakeSender records sends and can fail a configured number of times.
type fakeSender struct {
	mu       sync.Mutex
	sent     []models.EmailPayload
	failures int
}

func (f *fakeSender) Send(_ context.Context, p models.EmailPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return fmt.Errorf("smtp unavailable")
	}
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeForecaster serves a fixed forecast map.
type fakeForecaster struct {
	forecasts map[string]models.RegionForecast
	failures  []string
}

func (f *fakeForecaster) FetchAll(context.Context, []string, int, int) (map[string]models.RegionForecast, []string) {
	return f.forecasts, f.failures
}

type fakePush struct {
	mu     sync.Mutex
	pushed []models.Notification
}

func (f *fakePush) PushPending(n models.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, n)
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}
