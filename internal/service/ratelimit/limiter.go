package ratelimit

import (
    "sync"
    "time"
)

// maxBuckets bounds the key space: API keys include the caller's remote
// address, so the map would otherwise grow without limit.
const maxBuckets = 4096

type bucket struct {
    tokens     float64
    capacity   float64
    refillRate float64 // tokens per second
    last       time.Time
}

// Limiter is a keyed token bucket shared by the FRED client (one bucket
// per upstream) and the API handlers (one bucket per remote+endpoint).
type Limiter struct {
    mu sync.Mutex
    m  map[string]*bucket
}

func New() *Limiter { return &Limiter{m: make(map[string]*bucket)} }

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
    now := time.Now()
    l.mu.Lock()
    b, ok := l.m[key]
    if !ok {
        if len(l.m) >= maxBuckets {
            l.evictStale(now)
        }
        b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
        l.m[key] = b
    }
    // refill
    elapsed := now.Sub(b.last).Seconds()
    if elapsed > 0 {
        b.tokens += elapsed * b.refillRate
        if b.tokens > b.capacity { b.tokens = b.capacity }
        b.last = now
    }
    if b.tokens >= 1 {
        b.tokens -= 1
        l.mu.Unlock()
        return true
    }
    l.mu.Unlock()
    return false
}

// evictStale drops buckets idle long enough to be full again. Callers
// hold l.mu.
func (l *Limiter) evictStale(now time.Time) {
    for k, b := range l.m {
        idle := now.Sub(b.last).Seconds()
        if b.refillRate > 0 && idle*b.refillRate >= b.capacity {
            delete(l.m, k)
        }
    }
}
