package cache

import (
	"errors"
	"time"
)

// ErrMiss is returned when a key is not cached
var ErrMiss = errors.New("cache: miss")

// CacheService represents a key/value cache with expiry
type CacheService interface {
	// Get retrieves a value, returning ErrMiss when absent
	Get(key string) ([]byte, error)

	// Set stores a value with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value
	Delete(key string) error
}
