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

import "time"

// Quota is a snapshot of a key's usage against one limit at decision time.
type Quota struct {
	// Key is the limited subject, already namespaced with its resource type.
	Key string `json:"key"`

	// MaxRequests is the ceiling for the window.
	MaxRequests int `json:"max_requests"`

	// Used is the count consumed in the current window.
	Used int `json:"used"`

	// WindowSeconds is the window length.
	WindowSeconds int `json:"window_seconds"`

	// ResetAt is when the window's usage returns to zero.
	ResetAt time.Time `json:"reset_at"`
}

// Remaining returns the requests left in the window, never negative.
// Used can transiently exceed MaxRequests under the sliding window when
// concurrent callers insert before either decides.
func (q *Quota) Remaining() int {
	remaining := q.MaxRequests - q.Used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExceeded reports whether the ceiling has been reached.
func (q *Quota) IsExceeded() bool {
	return q.Used >= q.MaxRequests
}

// ResetIn returns the duration until the window resets, floored at zero.
func (q *Quota) ResetIn() time.Duration {
	d := time.Until(q.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// Result is the outcome of a limit check.
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool `json:"allowed"`

	// Quota is the usage snapshot taken at decision time.
	Quota *Quota `json:"quota"`
}

// Remaining is a pass-through onto the quota snapshot.
func (r *Result) Remaining() int {
	return r.Quota.Remaining()
}

// ResetAt is a pass-through onto the quota snapshot.
func (r *Result) ResetAt() time.Time {
	return r.Quota.ResetAt
}
