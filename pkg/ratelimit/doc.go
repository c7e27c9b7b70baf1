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

// Package ratelimit provides request rate limiting for llmgate.
//
// Two interchangeable limiter backends sit behind one interface:
//
//   - MemoryLimiter: a fixed-window in-process counter. Suitable for
//     single-instance deployments and tests. Counters are never evicted,
//     so memory grows with key cardinality.
//   - RedisLimiter: a sliding-window counter backed by Redis sorted sets.
//     Suitable for distributed deployments where all instances must share
//     one budget per key.
//
// The Service facade adds per-resource-type defaults and key namespacing
// on top of a limiter:
//
//	limiter := ratelimit.NewMemoryLimiter()
//	svc := ratelimit.NewService(limiter)
//
//	result, err := svc.CheckAndUpdate(ctx, userID, "gpt")
//	if err != nil {
//	    // unknown resource type or store failure
//	}
//	if !result.Allowed {
//	    // deny with result.Quota.ResetIn() as the retry hint
//	}
//
// # Resource types
//
// A resource type names a category of limited operation with its own
// ceiling and window. Two are built in: "api" (100 requests / 60s) and
// "gpt" (10 requests / 60s). UpdateLimitConfig upserts types at runtime.
//
// # Compound keys
//
// Both backends store state under "key:maxRequests:windowSeconds", so
// changing a resource type's configuration starts a fresh counter for
// the new shape. ResetLimit clears every combination by matching on the
// "key:" prefix.
//
// # Window semantics
//
// The fixed window admits exactly maxRequests calls per window and does
// not count denied attempts. The sliding window records every attempt,
// including denied ones, before deciding; a denied caller therefore
// keeps contributing to the window until its timestamp ages out. This
// asymmetry is deliberate and kept for parity between deployments that
// migrate from one backend to the other in only one direction.
//
// # Failure policy
//
// Redis failures propagate to the caller. There is no fail-open
// fallback: silently admitting all traffic when the store is down would
// defeat the purpose of limiting.
package ratelimit
