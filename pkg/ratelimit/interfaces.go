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
	"strconv"
)

// Limiter is the contract both backends implement. The concrete backend
// is chosen at construction time (see NewLimiterFromConfig); callers
// never switch on the implementation.
type Limiter interface {
	// CheckLimit atomically evaluates whether one more unit of usage is
	// permitted for key under the given ceiling and window and, if
	// permitted, records that unit. A single call consumes at most one
	// unit.
	CheckLimit(ctx context.Context, key string, maxRequests, windowSeconds int) (*Result, error)

	// GetQuota returns the current usage for key without recording
	// anything. If the window has conceptually expired it reports a
	// fresh zero-usage quota; the next CheckLimit performs the actual
	// reset.
	GetQuota(ctx context.Context, key string, maxRequests, windowSeconds int) (*Quota, error)

	// ResetLimit clears all usage for key across every ceiling/window
	// combination it was checked with. Matching is by the "key:" prefix
	// of the compound storage key.
	ResetLimit(ctx context.Context, key string) error
}

// Compile-time interface checks.
var (
	_ Limiter = (*MemoryLimiter)(nil)
	_ Limiter = (*RedisLimiter)(nil)
)

// compoundKey builds the storage key that isolates differently
// configured checks on the same logical subject.
func compoundKey(key string, maxRequests, windowSeconds int) string {
	return key + ":" + strconv.Itoa(maxRequests) + ":" + strconv.Itoa(windowSeconds)
}
