package metrics

import (
	"sync"
	"sync/atomic"
)

// rateLimitStats holds counters for rate limit drops (HTTP 429).
// Kept simple/thread-safe for use from middlewares and exposition.
type rateLimitStats struct {
	total    uint64
	mu       sync.Mutex
	byPrefix map[string]uint64
}

var rl rateLimitStats

// IncRateLimitDrop increments drop counters for the given prefix.
// Use prefix "global" for global limiter rejections.
func IncRateLimitDrop(prefix string) {
	if prefix == "" {
		prefix = "global"
	}
	atomic.AddUint64(&rl.total, 1)
	rl.mu.Lock()
	if rl.byPrefix == nil {
		rl.byPrefix = make(map[string]uint64)
	}
	rl.byPrefix[prefix]++
	rl.mu.Unlock()
}

// RateLimitSnapshot returns a copy of the current counters.
func RateLimitSnapshot() (total uint64, by map[string]uint64) {
	total = atomic.LoadUint64(&rl.total)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	by = make(map[string]uint64, len(rl.byPrefix))
	for k, v := range rl.byPrefix {
		by[k] = v
	}
	return total, by
}

// automationStats counts rule firings by outcome.
type automationStats struct {
	matched  uint64
	success  uint64
	failure  uint64
	mu       sync.Mutex
	byAction map[string]uint64 // action type -> executed count
}

var auto automationStats

// IncAutomationFiring records one rule firing outcome ("success" or "failure").
func IncAutomationFiring(status string) {
	atomic.AddUint64(&auto.matched, 1)
	switch status {
	case "success":
		atomic.AddUint64(&auto.success, 1)
	case "failure":
		atomic.AddUint64(&auto.failure, 1)
	}
}

// IncAutomationAction records one attempted action dispatch by type.
func IncAutomationAction(actionType string) {
	auto.mu.Lock()
	if auto.byAction == nil {
		auto.byAction = make(map[string]uint64)
	}
	auto.byAction[actionType]++
	auto.mu.Unlock()
}

// AutomationSnapshot returns copies of the current automation counters.
func AutomationSnapshot() (matched, success, failure uint64, byAction map[string]uint64) {
	matched = atomic.LoadUint64(&auto.matched)
	success = atomic.LoadUint64(&auto.success)
	failure = atomic.LoadUint64(&auto.failure)
	auto.mu.Lock()
	defer auto.mu.Unlock()
	byAction = make(map[string]uint64, len(auto.byAction))
	for k, v := range auto.byAction {
		byAction[k] = v
	}
	return matched, success, failure, byAction
}
