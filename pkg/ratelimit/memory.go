// Copyright 2025 The llmgate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// limitRecord is the per-compound-key fixed-window state.
type limitRecord struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window in-process limiter. Counters reset
// hard at window boundaries; this is not a rolling average.
//
// Records are created lazily and never evicted, so memory grows with
// key cardinality. That is an accepted boundary condition of this
// backend: it is meant for single-instance deployments and tests, not
// for unbounded key spaces.
//
// A mutex guards the table. The reference design left the
// read-then-increment sequence unsynchronized; serializing it here is a
// deliberate strengthening so concurrent callers within one process
// cannot over-admit.
type MemoryLimiter struct {
	mu     sync.Mutex
	limits map[string]*limitRecord

	// now is stubbed in tests to advance the clock.
	now func() time.Time
}

// NewMemoryLimiter creates a fixed-window in-process limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		limits: make(map[string]*limitRecord),
		now:    time.Now,
	}
}

// CheckLimit evaluates and, when permitted, records one unit of usage.
// A denied attempt is not counted: the quota it returns reflects the
// un-incremented count.
func (l *MemoryLimiter) CheckLimit(ctx context.Context, key string, maxRequests, windowSeconds int) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	window := time.Duration(windowSeconds) * time.Second

	record, ok := l.limits[compoundKey(key, maxRequests, windowSeconds)]
	if !ok {
		record = &limitRecord{resetAt: now.Add(window)}
		l.limits[compoundKey(key, maxRequests, windowSeconds)] = record
	}

	// Window rollover is a hard reset.
	if !now.Before(record.resetAt) {
		record.count = 0
		record.resetAt = now.Add(window)
	}

	if record.count >= maxRequests {
		return &Result{
			Allowed: false,
			Quota:   l.quotaFor(key, maxRequests, windowSeconds, record.count, record.resetAt),
		}, nil
	}

	record.count++

	return &Result{
		Allowed: true,
		Quota:   l.quotaFor(key, maxRequests, windowSeconds, record.count, record.resetAt),
	}, nil
}

// GetQuota reports current usage without mutating the stored record. An
// expired window reads as zero usage; the physical reset happens on the
// next CheckLimit.
func (l *MemoryLimiter) GetQuota(ctx context.Context, key string, maxRequests, windowSeconds int) (*Quota, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	window := time.Duration(windowSeconds) * time.Second

	record, ok := l.limits[compoundKey(key, maxRequests, windowSeconds)]
	if !ok || !now.Before(record.resetAt) {
		return l.quotaFor(key, maxRequests, windowSeconds, 0, now.Add(window)), nil
	}

	return l.quotaFor(key, maxRequests, windowSeconds, record.count, record.resetAt), nil
}

// ResetLimit clears usage for key across every ceiling/window
// combination previously seen for it.
func (l *MemoryLimiter) ResetLimit(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prefix := key + ":"
	for k, record := range l.limits {
		if strings.HasPrefix(k, prefix) {
			record.count = 0
		}
	}

	return nil
}

func (l *MemoryLimiter) quotaFor(key string, maxRequests, windowSeconds, used int, resetAt time.Time) *Quota {
	return &Quota{
		Key:           key,
		MaxRequests:   maxRequests,
		Used:          used,
		WindowSeconds: windowSeconds,
		ResetAt:       resetAt,
	}
}
