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
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrLimitExceeded is the sentinel wrapped by LimitExceededError.
	ErrLimitExceeded = errors.New("rate limit exceeded")

	// ErrUnknownResourceType is returned by the Service when a caller
	// names a resource type that was never registered. It indicates a
	// programming or configuration mistake and is never retried.
	ErrUnknownResourceType = errors.New("unknown resource type")
)

// LimitExceededError signals a deliberate denial, not a subsystem
// failure. It carries the quota that triggered it so callers can report
// retry timing.
type LimitExceededError struct {
	Quota *Quota
}

// Error returns a message with the limit shape and the retry hint.
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: limit of %d requests per %ds reached, try again in %.1fs",
		e.Quota.Key, e.Quota.MaxRequests, e.Quota.WindowSeconds, e.Quota.ResetIn().Seconds())
}

// Unwrap makes the error match errors.Is(err, ErrLimitExceeded).
func (e *LimitExceededError) Unwrap() error {
	return ErrLimitExceeded
}

// IsLimitExceeded reports whether err is a rate limit denial.
func IsLimitExceeded(err error) bool {
	return errors.Is(err, ErrLimitExceeded)
}

// QuotaFromError extracts the denying quota from a rate limit error, or
// nil when err is not a LimitExceededError.
func QuotaFromError(err error) *Quota {
	var lee *LimitExceededError
	if errors.As(err, &lee) {
		return lee.Quota
	}
	return nil
}
