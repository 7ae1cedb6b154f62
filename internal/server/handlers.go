package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sjsage522/pricetracker/internal/pipeline"
	"sjsage522/pricetracker/internal/store"
)

// fetchPricesQuery holds the optional trigger parameters
type fetchPricesQuery struct {
	Slot      *int `form:"slot"`
	Slots     *int `form:"slots"`
	BatchSize *int `form:"batchSize"`
	Force     bool `form:"force"`
}

type priceHistoryQuery struct {
	ProductID string `form:"productId" binding:"required"`
	Days      *int   `form:"days" binding:"omitempty,min=1,max=365"`
}

type fetchPricesResponse struct {
	OK      bool                     `json:"ok"`
	Batch   pipeline.BatchSummary    `json:"batch"`
	Results []pipeline.ProductResult `json:"results"`
}

type historyPoint struct {
	T        int64   `json:"t"`
	V        float64 `json:"v"`
	Currency string  `json:"currency"`
	ID       string  `json:"id"`
}

type historyResponse struct {
	OK        bool           `json:"ok"`
	ProductID string         `json:"productId"`
	Count     int            `json:"count"`
	Points    []historyPoint `json:"points"`
}

// Healthz reports liveness
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// FetchPrices runs one collection batch
// (GET|POST /api/cron/fetch-prices?slot=&slots=&batchSize=&force=1)
func (h *Handler) FetchPrices(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthorized"})
		return
	}

	var query fetchPricesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidQuery(c, err.Error())
		return
	}

	params := pipeline.RunParams{
		Slot:      query.Slot,
		Slots:     query.Slots,
		BatchSize: h.opts.DefaultBatchSize,
		Force:     query.Force,
	}
	if query.BatchSize != nil {
		params.BatchSize = *query.BatchSize
	}
	params.BatchSize = min(max(1, params.BatchSize), pipeline.MaxBatchSize)

	// a dropped scheduler connection must not abort a product mid-way
	ctx := context.WithoutCancel(c.Request.Context())

	report, err := h.runner.Run(ctx, params)
	if err != nil {
		h.log.Error().Err(err).Msg("Collection run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, fetchPricesResponse{
		OK:      true,
		Batch:   report.Batch,
		Results: report.Results,
	})
}

// PriceHistory returns a product's observations, oldest first
// (GET /api/price-history?productId=&days=)
func (h *Handler) PriceHistory(c *gin.Context) {
	var query priceHistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidQuery(c, err.Error())
		return
	}
	productID := strings.TrimSpace(query.ProductID)
	if productID == "" {
		invalidQuery(c, "productId is required")
		return
	}

	var since time.Time
	if query.Days != nil {
		since = h.now().Add(-time.Duration(*query.Days) * 24 * time.Hour)
	}

	observations, err := h.history.ListObservations(c.Request.Context(), productID, since, store.MaxHistoryPoints)
	if err != nil {
		h.log.Error().Err(err).Str("product_id", productID).Msg("Price history read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
		return
	}

	points := make([]historyPoint, 0, len(observations))
	for _, o := range observations {
		currency := o.Currency
		if currency == "" {
			currency = "BRL"
		}
		points = append(points, historyPoint{
			T:        o.CollectedAt.UnixMilli(),
			V:        o.Price.InexactFloat64(),
			Currency: currency,
			ID:       o.ID,
		})
	}

	c.JSON(http.StatusOK, historyResponse{
		OK:        true,
		ProductID: productID,
		Count:     len(points),
		Points:    points,
	})
}

// authorized checks the x-cron-key header, then the key query parameter.
// An empty secret disables the check.
func (h *Handler) authorized(c *gin.Context) bool {
	if h.opts.CronSecret == "" {
		return true
	}
	key := c.GetHeader("x-cron-key")
	if key == "" {
		key = c.Query("key")
	}
	if key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(h.opts.CronSecret)) == 1
}

func invalidQuery(c *gin.Context, detail string) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid-query", "details": detail})
}
