// Package pipeline selects, scrapes and records product prices for one run.
package pipeline

import "sjsage522/pricetracker/internal/model"

// MaxBatchSize caps the products a single run may process
const MaxBatchSize = 500

// ShardOffset returns the first index of a shard window.
// slot is normalized into [0, slots) and the result stays within [0, total-1]
// for any input, including values whose product would overflow int.
func ShardOffset(slot, slots, batchSize, total int) int {
	if slots <= 0 || total <= 0 {
		return 0
	}
	batchSize = max(1, batchSize)

	normalized := slot % slots
	if normalized < 0 {
		normalized += slots
	}

	last := total - 1
	if normalized > last/batchSize {
		return last
	}
	return normalized * batchSize
}

// SelectBatch picks the products for one run from a staleness ordered catalog.
// Without both shard parameters (or with slots <= 0) it takes the head of the list.
func SelectBatch(products []model.Product, slot, slots *int, batchSize int) []model.Product {
	batchSize = max(1, batchSize)

	offset := 0
	if slot != nil && slots != nil && *slots > 0 {
		offset = ShardOffset(*slot, *slots, batchSize, len(products))
	}
	if offset >= len(products) {
		return nil
	}

	end := offset + min(batchSize, len(products)-offset)
	out := make([]model.Product, end-offset)
	copy(out, products[offset:end])
	return out
}
