package ratelimiter

import (
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rwabridge/bridgenode/log"
)

var (
	// ErrRateLimitExceeded is returned when a sender tries to lock more
	// assets than the window allows
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// window tracks the amount of assets a single sender has locked since the
// window started
type window struct {
	start time.Time
	count int
}

// RateLimiter bounds how many assets each sender may lock per time window.
// Windows are fixed-size and reset lazily on the first call after expiry.
type RateLimiter struct {
	mu      sync.Mutex
	cfg     Config
	windows map[common.Address]*window
	logger  *log.Logger
}

// New returns a RateLimiter configured as per cfg
func New(logger *log.Logger, cfg Config) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		windows: make(map[common.Address]*window),
		logger:  logger,
	}
}

// Admit checks that sender can lock requestedCount more assets at time now.
// On success the sender's window usage is increased by requestedCount.
// A MaxPerWindow of 0 disables the limiter.
func (r *RateLimiter) Admit(sender common.Address, requestedCount int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.MaxPerWindow == 0 {
		return nil
	}

	w, ok := r.windows[sender]
	if !ok {
		w = &window{start: now}
		r.windows[sender] = w
	}
	if now.Sub(w.start) >= r.cfg.Window.Duration {
		w.start = now
		w.count = 0
	}
	if w.count+requestedCount > r.cfg.MaxPerWindow {
		r.logger.Debugf(
			"rate limit exceeded for sender %s: %d locked + %d requested > %d allowed",
			sender, w.count, requestedCount, r.cfg.MaxPerWindow,
		)
		return ErrRateLimitExceeded
	}
	w.count += requestedCount

	return nil
}

// Refund gives back budget consumed by a previous Admit whose request failed
// downstream. It only applies if the window that admitted the request is
// still the current one, otherwise it is a no-op.
func (r *RateLimiter) Refund(sender common.Address, count int, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[sender]
	if !ok {
		return
	}
	if now.Sub(w.start) >= r.cfg.Window.Duration {
		return
	}
	w.count -= count
	if w.count < 0 {
		w.count = 0
	}
}

// Usage returns the amount of assets the sender has locked in its current
// window. Expired windows report 0.
func (r *RateLimiter) Usage(sender common.Address, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[sender]
	if !ok || now.Sub(w.start) >= r.cfg.Window.Duration {
		return 0
	}
	return w.count
}

// SetConfig replaces the limiter configuration. It takes effect for
// subsequent calls, in-flight windows keep their accumulated usage.
func (r *RateLimiter) SetConfig(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Infof(
		"rate limit updated: window %s, max per window %d",
		cfg.Window.Duration, cfg.MaxPerWindow,
	)
	r.cfg = cfg
}

// GetConfig returns the current limiter configuration
func (r *RateLimiter) GetConfig() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}
