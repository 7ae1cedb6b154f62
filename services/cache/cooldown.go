package cache

import (
	"errors"
	"strconv"
	"time"

	"sjsage522/pricetracker/logger"
)

// HostCooldown blocks a host for a while after it answered 429.
// The block is shared across runs through the cache.
type HostCooldown struct {
	cache    CacheService
	duration time.Duration
	now      func() time.Time
}

// NewHostCooldown creates a cooldown tracker; a nil cache disables it
func NewHostCooldown(cache CacheService, duration time.Duration) *HostCooldown {
	return &HostCooldown{cache: cache, duration: duration, now: time.Now}
}

func cooldownKey(host string) string {
	return "cooldown:" + host
}

// Active reports whether host is cooling down. Cache errors count as not cooling down.
func (c *HostCooldown) Active(host string) bool {
	if c == nil || c.cache == nil {
		return false
	}
	_, err := c.cache.Get(cooldownKey(host))
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrMiss) {
		logger.ForCache().Warn().Err(err).Str("host", host).Msg("Cooldown lookup failed")
	}
	return false
}

// Start puts host on cooldown
func (c *HostCooldown) Start(host string) {
	if c == nil || c.cache == nil || c.duration <= 0 {
		return
	}
	until := c.now().Add(c.duration).Unix()
	if err := c.cache.Set(cooldownKey(host), []byte(strconv.FormatInt(until, 10)), c.duration); err != nil {
		logger.ForCache().Warn().Err(err).Str("host", host).Msg("Failed to set host cooldown")
		return
	}
	logger.ForCache().Info().
		Str("host", host).
		Dur("duration", c.duration).
		Msg("Host put on cooldown")
}
