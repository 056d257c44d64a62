// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oracle/oci-go-sdk/v65/common"
)

// Classification is the retry-relevant class of a provider failure, computed
// once at the gateway boundary. Downstream code switches on this value and
// never re-parses error text.
type Classification int

const (
	ClassUnknown Classification = iota
	ClassNotFound
	ClassCapacityUnavailable
	ClassServerError
	ClassRateLimited
	ClassQuotaExceeded
	ClassTransientNetwork
)

func (c Classification) String() string {
	switch c {
	case ClassNotFound:
		return "not_found"
	case ClassCapacityUnavailable:
		return "capacity_unavailable"
	case ClassServerError:
		return "server_error"
	case ClassRateLimited:
		return "rate_limited"
	case ClassQuotaExceeded:
		return "quota_exceeded"
	case ClassTransientNetwork:
		return "transient_network"
	default:
		return "unknown"
	}
}

// Retryable reports whether a failure of this class may be retried.
func (c Classification) Retryable() bool {
	switch c {
	case ClassCapacityUnavailable, ClassServerError, ClassRateLimited, ClassTransientNetwork:
		return true
	default:
		return false
	}
}

// capacityMarker appears in 500 responses when the shape's host pool is exhausted.
const capacityMarker = "Out of host capacity"

// transientMarkers are transport-level failure fragments that are safe to retry.
var transientMarkers = []string{
	"Remote end closed connection without response",
	"Connection aborted",
	"Read timed out",
	"Max retries exceeded",
	"temporarily unavailable",
	"Temporary failure in name resolution",
	"Connection reset by peer",
}

// ProviderError is a provider failure with a machine-checkable status code
// and classification.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
	Class      Classification
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("provider error (%s): %s", e.Class, e.Message)
	}
	return fmt.Sprintf("provider error (%s, HTTP %d, %s): %s", e.Class, e.StatusCode, e.Code, e.Message)
}

// Classify converts an arbitrary SDK error into a *ProviderError. Service
// errors are classified by HTTP status; anything else is matched against the
// known transient transport failure texts. Returns nil for a nil error.
// This function unwraps errors to find OCI service errors even when wrapped.
func Classify(err error) *ProviderError {
	if err == nil {
		return nil
	}

	var serviceErr common.ServiceError
	currentErr := err
	for currentErr != nil {
		if se, ok := common.IsServiceError(currentErr); ok {
			serviceErr = se
			break
		}
		currentErr = errors.Unwrap(currentErr)
	}

	if serviceErr != nil {
		pe := &ProviderError{
			StatusCode: serviceErr.GetHTTPStatusCode(),
			Code:       serviceErr.GetCode(),
			Message:    serviceErr.GetMessage(),
		}
		switch pe.StatusCode {
		case 404:
			pe.Class = ClassNotFound
		case 429:
			pe.Class = ClassRateLimited
		case 400:
			pe.Class = ClassQuotaExceeded
		case 500:
			if strings.Contains(pe.Message, capacityMarker) {
				pe.Class = ClassCapacityUnavailable
			} else {
				pe.Class = ClassServerError
			}
		default:
			pe.Class = ClassUnknown
		}
		return pe
	}

	text := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(text, marker) {
			return &ProviderError{Message: text, Class: ClassTransientNetwork}
		}
	}
	return &ProviderError{Message: text, Class: ClassUnknown}
}

// AsProviderError extracts a *ProviderError from an error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsNotFound reports whether the error chain carries a not-found classification.
func IsNotFound(err error) bool {
	pe, ok := AsProviderError(err)
	return ok && pe.Class == ClassNotFound
}
