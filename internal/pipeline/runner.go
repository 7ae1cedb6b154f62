package pipeline

import (
	"context"
	"fmt"
	"time"

	"sjsage522/pricetracker/helpers"
	"sjsage522/pricetracker/internal/crawler"
	"sjsage522/pricetracker/internal/model"
	"sjsage522/pricetracker/internal/price"
	"sjsage522/pricetracker/internal/ratelimit"
	"sjsage522/pricetracker/internal/store"
	"sjsage522/pricetracker/logger"
	perrors "sjsage522/pricetracker/pkg/errors"
	"sjsage522/pricetracker/services/cache"
	"sjsage522/pricetracker/services/publisher"
)

// PageFetcher retrieves product pages
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*helpers.Page, error)
}

// RunParams are the caller supplied knobs of one run
type RunParams struct {
	Slot      *int
	Slots     *int
	BatchSize int
	Force     bool
}

// BatchSummary describes the selected window
type BatchSummary struct {
	Total     int  `json:"total"`
	Processed int  `json:"processed"`
	BatchSize int  `json:"batchSize"`
	Slot      *int `json:"slot"`
	Slots     *int `json:"slots"`
}

// ProductResult is the outcome for one product
type ProductResult struct {
	ProductID string `json:"productId"`
	OK        bool   `json:"ok"`
	Inserted  bool   `json:"inserted,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Price     string `json:"price,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
}

// RunReport is returned by a finished run
type RunReport struct {
	Batch   BatchSummary    `json:"batch"`
	Results []ProductResult `json:"results"`
}

// Options configure a Runner
type Options struct {
	RateLimit        time.Duration
	DefaultBatchSize int
	Currency         string
	DuplicateWindow  time.Duration
}

// Runner executes collection runs. It holds no per-run state.
type Runner struct {
	repo      store.Repository
	registry  *crawler.Registry
	fetcher   PageFetcher
	gate      *Gate
	cooldown  *cache.HostCooldown
	publisher publisher.Publisher
	opts      Options

	clock ratelimit.Clock
	now   func() time.Time
	log   *logger.Logger
}

// NewRunner creates a runner. cooldown and pub may be nil.
func NewRunner(
	repo store.Repository,
	registry *crawler.Registry,
	fetcher PageFetcher,
	cooldown *cache.HostCooldown,
	pub publisher.Publisher,
	opts Options,
) *Runner {
	if opts.DefaultBatchSize <= 0 {
		opts.DefaultBatchSize = 10
	}
	if opts.Currency == "" {
		opts.Currency = "BRL"
	}
	return &Runner{
		repo:      repo,
		registry:  registry,
		fetcher:   fetcher,
		gate:      NewGate(repo, opts.DuplicateWindow),
		cooldown:  cooldown,
		publisher: pub,
		opts:      opts,
		clock:     ratelimit.RealClock,
		now:       time.Now,
		log:       logger.ForPipeline(),
	}
}

// SetClock replaces the clock used for rate limiting and timestamps
func (r *Runner) SetClock(clock ratelimit.Clock) {
	r.clock = clock
	r.now = clock.Now
	r.gate.now = clock.Now
}

// run is the state owned by a single invocation
type run struct {
	limiter *ratelimit.DomainLimiter
	force   bool
	results []ProductResult
}

// Run selects a batch and processes it sequentially.
// It fails only when the catalog cannot be read or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, params RunParams) (*RunReport, error) {
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = r.opts.DefaultBatchSize
	}

	report := &RunReport{
		Batch: BatchSummary{
			BatchSize: batchSize,
			Slot:      params.Slot,
			Slots:     params.Slots,
		},
		Results: []ProductResult{},
	}

	total, err := r.repo.CountActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active products: %w", err)
	}
	report.Batch.Total = total
	if total == 0 {
		return report, nil
	}

	products, err := r.repo.ListActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	batch := SelectBatch(products, params.Slot, params.Slots, batchSize)
	report.Batch.Processed = len(batch)

	state := &run{
		limiter: ratelimit.NewDomainLimiter(r.opts.RateLimit, r.clock),
		force:   params.Force,
	}

	start := r.now()
	for _, product := range batch {
		if err := ctx.Err(); err != nil {
			report.Results = append(report.Results, state.results...)
			return report, fmt.Errorf("run interrupted: %w", err)
		}
		state.results = append(state.results, r.processProduct(ctx, state, product))
	}
	report.Results = append(report.Results, state.results...)

	r.trimStreams(ctx)

	inserted, skipped, failed := summarize(report.Results)
	r.log.Info().
		Int("total", total).
		Int("processed", len(batch)).
		Int("inserted", inserted).
		Int("skipped", skipped).
		Int("failed", failed).
		Dur("elapsed", r.now().Sub(start)).
		Msg("Run finished")
	return report, nil
}

// processProduct walks one product from URL validation to persistence.
// The last-checked timestamp is written on every exit.
func (r *Runner) processProduct(ctx context.Context, state *run, product model.Product) ProductResult {
	checkedAt := r.now()
	log := r.log.WithFields(logger.Fields{
		"product_id": product.ID,
		"store":      string(product.Store),
	})

	defer func() {
		if err := r.repo.UpdateLastChecked(context.WithoutCancel(ctx), product.ID, checkedAt); err != nil {
			log.Error().Err(err).Msg("Failed to update last checked")
		}
	}()

	res, outcome, err := r.collect(ctx, state, product, log)
	if err != nil {
		err = perrors.WithProduct(err, product.ID)
		log.Warn().
			Str("reason", string(perrors.ReasonOf(err))).
			Err(err).
			Msg("Product failed")
		return ProductResult{
			ProductID: product.ID,
			OK:        false,
			Reason:    string(perrors.ReasonOf(err)),
			Detail:    perrors.DetailOf(err),
		}
	}

	result := ProductResult{
		ProductID: product.ID,
		OK:        true,
		Inserted:  outcome.Inserted,
		Skipped:   !outcome.Inserted,
		Price:     res.Price.StringFixed(2),
		Strategy:  string(res.Strategy),
	}

	event := log.Info().
		Str("price", price.Format(res.Price)).
		Str("strategy", string(res.Strategy))
	if outcome.Inserted {
		event.Msg("Price recorded")
		r.publish(ctx, product, outcome)
	} else {
		event.Msg("Price unchanged, skipped")
	}
	return result
}

func (r *Runner) collect(ctx context.Context, state *run, product model.Product, log *logger.Logger) (*crawler.Result, *Outcome, error) {
	// validating-url
	_, host, err := helpers.ParseProductURL(product.URL)
	if err != nil {
		return nil, nil, perrors.NewInvalidURL(product.ID, err)
	}

	extractor, ok := r.registry.Lookup(product.Store)
	if !ok {
		return nil, nil, perrors.NewUnsupportedStore(product.ID, string(product.Store))
	}

	if r.cooldown.Active(host) {
		return nil, nil, perrors.New(perrors.ReasonFetchFailed, product.ID, "host cooling down", nil)
	}

	// rate-limiting
	waited, err := state.limiter.Wait(ctx, host)
	if err != nil {
		return nil, nil, perrors.NewNetwork(product.URL, err)
	}
	if waited > 0 {
		log.Debug().Str("host", host).Dur("waited", waited).Msg("Rate limited")
	}

	// fetching
	page, err := r.fetcher.Fetch(ctx, product.URL)
	if err != nil {
		if perrors.StatusCodeOf(err) == 429 {
			r.cooldown.Start(host)
		}
		if perrors.ReasonOf(err) == perrors.ReasonUnknown {
			err = perrors.NewNetwork(product.URL, err)
		}
		return nil, nil, err
	}

	// extracting and normalizing
	res, err := extractor.Extract(page.Body)
	if err != nil {
		return nil, nil, err
	}

	// dedup-deciding and persisting
	outcome, err := r.gate.Persist(ctx, product.ID, res.Price, r.currency(res), state.force)
	if err != nil {
		return nil, nil, perrors.NewStore(product.ID, "persist observation", err)
	}
	return res, outcome, nil
}

func (r *Runner) currency(res *crawler.Result) string {
	if res.Currency != "" {
		return res.Currency
	}
	return r.opts.Currency
}

func (r *Runner) publish(ctx context.Context, product model.Product, outcome *Outcome) {
	if r.publisher == nil {
		return
	}
	obs := outcome.Observation
	event := publisher.ObservationEvent{
		ID:          obs.ID,
		ProductID:   obs.ProductID,
		Store:       string(product.Store),
		Price:       obs.Price,
		Currency:    obs.Currency,
		CollectedAt: obs.CollectedAt,
	}
	if outcome.Previous != nil {
		prev := outcome.Previous.Price
		event.PreviousPrice = &prev
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.log.Warn().Err(err).Str("product_id", product.ID).Msg("Failed to publish observation")
	}
}

func (r *Runner) trimStreams(ctx context.Context) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.TrimStreams(ctx); err != nil {
		logger.LogError("StreamTrimming", err, "failed to trim observation stream")
	}
}

func summarize(results []ProductResult) (inserted, skipped, failed int) {
	for _, res := range results {
		switch {
		case !res.OK:
			failed++
		case res.Inserted:
			inserted++
		case res.Skipped:
			skipped++
		}
	}
	return
}
