package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricetracker/config"
)

func newTestWorker(target string, at time.Time) *Worker {
	w := NewWorker(config.SchedulerConfig{
		TargetURL: target,
		CronKey:   "s3cret",
		Slots:     6,
		BatchSize: 10,
		Interval:  time.Minute,
	}, nil)
	w.now = func() time.Time { return at }
	return w
}

func TestSlotFromUTCMinute(t *testing.T) {
	w := newTestWorker("http://example.com", time.Time{})

	assert.Equal(t, 0, w.Slot(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, 5, w.Slot(time.Date(2024, 5, 1, 12, 17, 0, 0, time.UTC)))
	assert.Equal(t, 0, w.Slot(time.Date(2024, 5, 1, 12, 54, 59, 0, time.UTC)))

	// 09:13 in UTC-3 is 12:13 UTC
	brt := time.FixedZone("BRT", -3*60*60)
	assert.Equal(t, 1, w.Slot(time.Date(2024, 5, 1, 9, 13, 0, 0, brt)))
}

func TestTriggerURLKeepsExistingQuery(t *testing.T) {
	w := newTestWorker("https://tracker.example.com/api/cron/fetch-prices?force=1", time.Time{})

	raw, err := w.TriggerURL(3)
	require.NoError(t, err)
	assert.Contains(t, raw, "force=1")
	assert.Contains(t, raw, "slot=3")
	assert.Contains(t, raw, "slots=6")
	assert.Contains(t, raw, "batchSize=10")
	assert.Contains(t, raw, "key=s3cret")
}

func TestTickSendsShardAndCredentials(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/cron/fetch-prices", r.URL.Path)
		assert.Equal(t, "s3cret", r.Header.Get("x-cron-key"))
		assert.Equal(t, "s3cret", r.URL.Query().Get("key"))
		assert.Equal(t, "2", r.URL.Query().Get("slot"))
		assert.Equal(t, "6", r.URL.Query().Get("slots"))
		assert.Equal(t, "10", r.URL.Query().Get("batchSize"))
		assert.Equal(t, workerUserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	w := newTestWorker(server.URL+"/api/cron/fetch-prices", time.Date(2024, 5, 1, 12, 20, 0, 0, time.UTC))
	require.NoError(t, w.Tick(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTickReportsUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"error":"unauthorized"}`))
	}))
	defer server.Close()

	w := newTestWorker(server.URL, time.Now())
	err := w.Tick(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 401")
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestStartStopsOnCancel(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	w := newTestWorker(server.URL, time.Now())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	// a failed tick does not stop the loop and is not retried before the next interval
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
