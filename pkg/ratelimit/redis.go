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
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces all limiter state in Redis.
const redisKeyPrefix = "rate_limit:"

// RedisLimiter is a sliding-window limiter backed by Redis sorted sets.
// Each compound key holds a set of request timestamps (score and member
// both the float seconds-since-epoch value, so same-instant calls can
// overwrite a member; an acknowledged precision limitation). The key
// expires after the window so idle traffic cleans itself up.
//
// The grouped pipeline (add, evict, count, expire) executes atomically,
// but the admit decision is computed client-side afterwards, so two
// concurrent callers can both observe counts at the limit and both be
// admitted. That over-admission window is inherent to the
// client-side-decision pattern.
//
// Every attempt is recorded before the decision, denied ones included.
// Store failures propagate; there is no retry and no fail-open.
type RedisLimiter struct {
	rdb *redis.Client

	now func() time.Time
}

// NewRedisLimiter creates a sliding-window limiter on an initialized
// Redis client.
func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{
		rdb: rdb,
		now: time.Now,
	}
}

// CheckLimit records the current request timestamp, evicts entries that
// have aged out of the window, and admits the request when the
// resulting count is within the ceiling. The request that pushes the
// count past maxRequests is denied but remains recorded until it ages
// out.
func (l *RedisLimiter) CheckLimit(ctx context.Context, key string, maxRequests, windowSeconds int) (*Result, error) {
	now := unixSeconds(l.now())
	redisKey := redisKeyPrefix + compoundKey(key, maxRequests, windowSeconds)
	window := time.Duration(windowSeconds) * time.Second

	pipe := l.rdb.Pipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: now, Member: now})
	pipe.ZRemRangeByScore(ctx, redisKey, "0", formatScore(now-float64(windowSeconds)))
	card := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit check for %s: %w", key, err)
	}

	used := int(card.Val())

	resetAt, err := l.resetAt(ctx, redisKey, windowSeconds)
	if err != nil {
		return nil, fmt.Errorf("rate limit check for %s: %w", key, err)
	}

	quota := &Quota{
		Key:           key,
		MaxRequests:   maxRequests,
		Used:          used,
		WindowSeconds: windowSeconds,
		ResetAt:       resetAt,
	}

	return &Result{Allowed: used <= maxRequests, Quota: quota}, nil
}

// GetQuota mirrors CheckLimit without the insert: it evicts aged
// entries and reports the surviving count. It is the one truly
// read-only path on this backend.
func (l *RedisLimiter) GetQuota(ctx context.Context, key string, maxRequests, windowSeconds int) (*Quota, error) {
	now := unixSeconds(l.now())
	redisKey := redisKeyPrefix + compoundKey(key, maxRequests, windowSeconds)

	pipe := l.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", formatScore(now-float64(windowSeconds)))
	card := pipe.ZCard(ctx, redisKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit quota for %s: %w", key, err)
	}

	resetAt, err := l.resetAt(ctx, redisKey, windowSeconds)
	if err != nil {
		return nil, fmt.Errorf("rate limit quota for %s: %w", key, err)
	}

	return &Quota{
		Key:           key,
		MaxRequests:   maxRequests,
		Used:          int(card.Val()),
		WindowSeconds: windowSeconds,
		ResetAt:       resetAt,
	}, nil
}

// ResetLimit deletes every compound key recorded for key.
func (l *RedisLimiter) ResetLimit(ctx context.Context, key string) error {
	pattern := redisKeyPrefix + key + ":*"

	keys, err := l.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		return fmt.Errorf("rate limit reset for %s: %w", key, err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := l.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("rate limit reset for %s: %w", key, err)
	}

	return nil
}

// resetAt derives when the window frees up: the oldest surviving
// timestamp plus the window, or now+window when the set is empty.
func (l *RedisLimiter) resetAt(ctx context.Context, redisKey string, windowSeconds int) (time.Time, error) {
	oldest, err := l.rdb.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err != nil {
		return time.Time{}, err
	}

	window := time.Duration(windowSeconds) * time.Second
	if len(oldest) == 0 {
		return l.now().Add(window), nil
	}

	sec, frac := int64(oldest[0].Score), oldest[0].Score-float64(int64(oldest[0].Score))
	return time.Unix(sec, int64(frac*float64(time.Second))).Add(window), nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
