package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sjsage522/pricetracker/config"
	"sjsage522/pricetracker/logger"
)

const workerUserAgent = "PriceTracker-Worker/1.0"

// Worker periodically triggers the collection endpoint with a rotating shard slot
type Worker struct {
	client *http.Client
	cfg    config.SchedulerConfig
	now    func() time.Time
	log    *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(cfg config.SchedulerConfig, client *http.Client) *Worker {
	if client == nil {
		// a run processes a whole batch with per-host spacing, so allow it time
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Worker{
		client: client,
		cfg:    cfg,
		now:    time.Now,
		log:    logger.ForScheduler(),
	}
}

// Slot returns the shard slot for a moment: its UTC minute modulo the slot count
func (w *Worker) Slot(at time.Time) int {
	slots := max(1, w.cfg.Slots)
	return at.UTC().Minute() % slots
}

// TriggerURL builds the endpoint URL for a slot
func (w *Worker) TriggerURL(slot int) (string, error) {
	u, err := url.Parse(w.cfg.TargetURL)
	if err != nil {
		return "", fmt.Errorf("parse target url: %w", err)
	}
	q := u.Query()
	q.Set("slot", strconv.Itoa(slot))
	q.Set("slots", strconv.Itoa(max(1, w.cfg.Slots)))
	q.Set("batchSize", strconv.Itoa(max(1, w.cfg.BatchSize)))
	if w.cfg.CronKey != "" {
		q.Set("key", w.cfg.CronKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Tick triggers one run. A non-2xx answer is returned as an error carrying the body.
func (w *Worker) Tick(ctx context.Context) error {
	slot := w.Slot(w.now())
	target, err := w.TriggerURL(slot)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", workerUserAgent)
	if w.cfg.CronKey != "" {
		req.Header.Set("x-cron-key", w.cfg.CronKey)
	}

	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("trigger slot %d: %w", slot, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upstream %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	w.log.Info().
		Int("slot", slot).
		Int("slots", w.cfg.Slots).
		Dur("elapsed", time.Since(start)).
		Msg("Collection run triggered")
	return nil
}

// Start ticks immediately and then on every interval until ctx is cancelled.
// Failures are logged and the next tick proceeds normally.
func (w *Worker) Start(ctx context.Context) error {
	interval := w.cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.Tick(ctx); err != nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Collection run failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
