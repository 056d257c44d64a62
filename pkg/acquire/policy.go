// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package acquire

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// minIntervalSeconds is the floor on retry intervals. Anything faster risks
// tripping the provider's rate limiter and converting capacity waits into
// 429 storms.
const minIntervalSeconds = 10

// RetryPolicy draws each retry delay uniformly from a closed interval. The
// draws are independent: jitter against other competing acquirers, not
// exponential backoff.
type RetryPolicy struct {
	MinSeconds int
	MaxSeconds int
}

// ParsePolicy parses an interval expression: a single number of seconds
// ("60") or an inclusive range ("30-60").
func ParsePolicy(expr string) (RetryPolicy, error) {
	lo, hi, isRange := strings.Cut(strings.TrimSpace(expr), "-")

	minSeconds, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return RetryPolicy{}, fmt.Errorf("invalid retry interval %q: %w", expr, err)
	}
	maxSeconds := minSeconds
	if isRange {
		maxSeconds, err = strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return RetryPolicy{}, fmt.Errorf("invalid retry interval %q: %w", expr, err)
		}
	}

	if minSeconds < minIntervalSeconds {
		return RetryPolicy{}, fmt.Errorf("retry interval %q: minimum is %d seconds", expr, minIntervalSeconds)
	}
	if maxSeconds < minSeconds {
		return RetryPolicy{}, fmt.Errorf("retry interval %q: upper bound below lower bound", expr)
	}
	return RetryPolicy{MinSeconds: minSeconds, MaxSeconds: maxSeconds}, nil
}

// Delay draws one delay from [MinSeconds, MaxSeconds], inclusive on both ends.
func (p RetryPolicy) Delay(rng *rand.Rand) time.Duration {
	seconds := p.MinSeconds
	if p.MaxSeconds > p.MinSeconds {
		seconds += rng.Intn(p.MaxSeconds - p.MinSeconds + 1)
	}
	return time.Duration(seconds) * time.Second
}
