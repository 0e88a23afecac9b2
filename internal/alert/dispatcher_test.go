package alert

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/py-sit/skyalert/internal/logging"
	"github.com/py-sit/skyalert/internal/models"
	"github.com/py-sit/skyalert/internal/store"
)

var dispatchNow = time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)

func newDispatcherFixture(t *testing.T) (*Dispatcher, *memStore, *fakeSender, *store.PendingFile) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(dispatchNow)
	ms := newMemStore(clock.Now)
	sender := &fakeSender{}
	pending := store.NewPendingFile(t.TempDir())
	d := NewDispatcher(ms, pending, sender, nil, clock, logging.Discard())
	return d, ms, sender, pending
}

func enqueuePayload(t *testing.T, ms *memStore, taskID string, p models.EmailPayload) {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, ms.EnqueueTask(context.Background(), taskID, string(data), p.IsTest))
}

func TestDispatchSendsQueuedTask(t *testing.T) {
	d, ms, sender, _ := newDispatcherFixture(t)
	payload := models.EmailPayload{
		ToEmail: "zhang@example.com", ToName: "张三", Subject: "高温预警",
		Region: "北京", WeatherType: "高温", Condition: "温度 >= 35",
	}
	enqueuePayload(t, ms, "task_1_zhang", payload)

	sent, failed, err := d.Dispatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 0, failed)

	task, ok := ms.taskByID("task_1_zhang")
	require.True(t, ok)
	assert.Equal(t, models.TaskSent, task.Status)
	assert.Equal(t, 1, task.Attempts)

	require.Len(t, ms.log, 1)
	assert.Equal(t, models.LogStatusSent, ms.log[0].Status)
	assert.Equal(t, "zhang@example.com", ms.log[0].Recipient)
	assert.Equal(t, 1, sender.sentCount())
}

func TestDispatchSuppressesStaleDuplicate(t *testing.T) {
	d, ms, sender, _ := newDispatcherFixture(t)
	ms.log = append(ms.log, models.DeliveryLogEntry{
		Timestamp:   dispatchNow.AddDate(0, 0, -2),
		Recipient:   "zhang@example.com",
		Region:      "北京",
		WeatherType: "高温",
		Status:      models.LogStatusSent,
	})
	enqueuePayload(t, ms, "task_dup", models.EmailPayload{
		ToEmail: "zhang@example.com", Region: "北京", WeatherType: "高温",
	})

	sent, failed, err := d.Dispatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 0, sender.sentCount())

	task, ok := ms.taskByID("task_dup")
	require.True(t, ok)
	assert.Equal(t, models.TaskFailed, task.Status)
	assert.Equal(t, "duplicate", task.Error)

	require.Len(t, ms.log, 2)
	assert.Equal(t, models.LogStatusDuplicate, ms.log[1].Status)
}

func TestDispatchFailsMalformedPayload(t *testing.T) {
	d, ms, _, _ := newDispatcherFixture(t)
	require.NoError(t, ms.EnqueueTask(context.Background(), "task_bad", "{not json", false))

	sent, failed, err := d.Dispatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 1, failed)

	task, ok := ms.taskByID("task_bad")
	require.True(t, ok)
	assert.Equal(t, models.TaskFailed, task.Status)
}

func TestDispatchClaimIsExclusive(t *testing.T) {
	d, ms, sender, _ := newDispatcherFixture(t)
	enqueuePayload(t, ms, "task_once", models.EmailPayload{ToEmail: "zhang@example.com", Region: "北京", WeatherType: "高温"})

	sent, _, err := d.Dispatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	sent, _, err = d.Dispatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 1, sender.sentCount())
}

func TestDispatchFallsBackToStagedFile(t *testing.T) {
	d, ms, sender, pending := newDispatcherFixture(t)
	staged := []models.EmailPayload{
		{ToEmail: "a@example.com", Subject: "高温预警", Region: "北京", WeatherType: "高温"},
		{ToEmail: "b@example.com", Subject: "暴雨预警", Region: "上海", WeatherType: "暴雨"},
	}
	require.NoError(t, pending.Replace(staged))

	// 上海/暴雨 went out region-wide yesterday.
	ms.log = append(ms.log, models.DeliveryLogEntry{
		Timestamp:   dispatchNow.AddDate(0, 0, -1),
		Recipient:   "someone@example.com",
		Region:      "上海",
		WeatherType: "暴雨",
		Status:      models.LogStatusSent,
	})

	sent, failed, err := d.Dispatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 1, sender.sentCount())
	assert.Equal(t, "a@example.com", sender.sent[0].ToEmail)

	// The staging file is cleared so the next cycle cannot replay it.
	left, err := pending.Load()
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestDispatchClearsStagedFileAfterQueueBatch(t *testing.T) {
	d, ms, _, pending := newDispatcherFixture(t)
	payload := models.EmailPayload{ToEmail: "zhang@example.com", Subject: "高温预警", Region: "北京", WeatherType: "高温"}
	enqueuePayload(t, ms, "task_q", payload)
	require.NoError(t, pending.Replace([]models.EmailPayload{payload}))

	_, _, err := d.Dispatch(context.Background(), 50)
	require.NoError(t, err)

	left, err := pending.Load()
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestDispatchEmptyQueueAndFile(t *testing.T) {
	d, _, _, _ := newDispatcherFixture(t)
	sent, failed, err := d.Dispatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, failed)
}
