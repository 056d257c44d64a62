// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package acquire drives the launch-instance loop against contended capacity:
// attempt, classify the failure, sleep a jittered interval, repeat until the
// capacity appears, a fatal condition stops the run, or the operator
// interrupts it.
package acquire

import (
	"github.com/kuke31/oci/pkg/gateway"
)

// OutcomeKind is the result category of one attempt, or of the whole run.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRetry
	OutcomeFatal
	OutcomeInterrupted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetry:
		return "retry"
	case OutcomeFatal:
		return "fatal"
	case OutcomeInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// RetryReason names why an attempt is worth repeating.
type RetryReason string

const (
	ReasonCapacityUnavailable RetryReason = "capacity_unavailable"
	ReasonServerError         RetryReason = "server_error"
	ReasonRateLimited         RetryReason = "rate_limited"
	ReasonTransientNetwork    RetryReason = "transient_network"
)

// FatalReason names why the loop must stop.
type FatalReason string

const (
	ReasonQuotaExceeded FatalReason = "quota_exceeded"
	ReasonUnknown       FatalReason = "unknown"
)

// Outcome is the classified result of an attempt. Exactly one of Instance,
// RetryReason or FatalReason is meaningful, selected by Kind.
type Outcome struct {
	Kind        OutcomeKind
	Instance    gateway.ResourceRef
	RetryReason RetryReason
	FatalReason FatalReason
	Detail      string
}

// classifyOutcome maps a launch failure to a retry-or-stop decision. The
// status-level classification happens at the gateway boundary; this only
// translates it into loop semantics.
func classifyOutcome(err error) Outcome {
	pe, ok := gateway.AsProviderError(err)
	if !ok {
		pe = gateway.Classify(err)
	}

	switch pe.Class {
	case gateway.ClassCapacityUnavailable:
		return Outcome{Kind: OutcomeRetry, RetryReason: ReasonCapacityUnavailable, Detail: pe.Message}
	case gateway.ClassServerError:
		return Outcome{Kind: OutcomeRetry, RetryReason: ReasonServerError, Detail: pe.Message}
	case gateway.ClassRateLimited:
		return Outcome{Kind: OutcomeRetry, RetryReason: ReasonRateLimited, Detail: pe.Message}
	case gateway.ClassTransientNetwork:
		return Outcome{Kind: OutcomeRetry, RetryReason: ReasonTransientNetwork, Detail: pe.Message}
	case gateway.ClassQuotaExceeded:
		return Outcome{Kind: OutcomeFatal, FatalReason: ReasonQuotaExceeded, Detail: pe.Message}
	default:
		return Outcome{Kind: OutcomeFatal, FatalReason: ReasonUnknown, Detail: err.Error()}
	}
}
