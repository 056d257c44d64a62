// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package gateway

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServiceError struct {
	statusCode int
	code       string
	message    string
}

func (e fakeServiceError) GetHTTPStatusCode() int  { return e.statusCode }
func (e fakeServiceError) GetMessage() string      { return e.message }
func (e fakeServiceError) GetCode() string         { return e.code }
func (e fakeServiceError) GetOpcRequestID() string { return "" }
func (e fakeServiceError) Error() string {
	return fmt.Sprintf("Error returned by service. Http Status Code: %d. Error Code: %s. Message: %s", e.statusCode, e.code, e.message)
}

func TestClassify_ServiceErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		class     Classification
		retryable bool
	}{
		{
			name:      "capacity exhaustion",
			err:       fakeServiceError{500, "InternalError", "Out of host capacity."},
			class:     ClassCapacityUnavailable,
			retryable: true,
		},
		{
			name:      "plain internal error",
			err:       fakeServiceError{500, "InternalError", "unexpected condition"},
			class:     ClassServerError,
			retryable: true,
		},
		{
			name:      "throttled",
			err:       fakeServiceError{429, "TooManyRequests", "slow down"},
			class:     ClassRateLimited,
			retryable: true,
		},
		{
			name:      "quota exceeded",
			err:       fakeServiceError{400, "LimitExceeded", "service limit reached"},
			class:     ClassQuotaExceeded,
			retryable: false,
		},
		{
			name:      "not found",
			err:       fakeServiceError{404, "NotAuthorizedOrNotFound", "resource does not exist"},
			class:     ClassNotFound,
			retryable: false,
		},
		{
			name:      "unmapped status",
			err:       fakeServiceError{409, "Conflict", "resource busy"},
			class:     ClassUnknown,
			retryable: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := Classify(tt.err)
			require.NotNil(t, pe)
			assert.Equal(t, tt.class, pe.Class)
			assert.Equal(t, tt.retryable, pe.Class.Retryable())
		})
	}
}

func TestClassify_UnwrapsWrappedServiceError(t *testing.T) {
	wrapped := fmt.Errorf("failed to launch instance: %w", fakeServiceError{429, "TooManyRequests", "slow down"})
	pe := Classify(wrapped)
	require.NotNil(t, pe)
	assert.Equal(t, ClassRateLimited, pe.Class)
	assert.Equal(t, 429, pe.StatusCode)
}

func TestClassify_TransientTransportFailure(t *testing.T) {
	pe := Classify(errors.New("Get \"https://iaas.ap-singapore-1.oraclecloud.com\": Read timed out"))
	require.NotNil(t, pe)
	assert.Equal(t, ClassTransientNetwork, pe.Class)
	assert.True(t, pe.Class.Retryable())
	assert.Zero(t, pe.StatusCode)
}

func TestClassify_UnrecognizedFailureIsFatal(t *testing.T) {
	pe := Classify(errors.New("disk full"))
	require.NotNil(t, pe)
	assert.Equal(t, ClassUnknown, pe.Class)
	assert.False(t, pe.Class.Retryable())
}

func TestClassify_NilYieldsNil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestIsNotFound(t *testing.T) {
	err := fmt.Errorf("failed to get VCN: %w", Classify(fakeServiceError{404, "NotAuthorizedOrNotFound", "no such VCN"}))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(errors.New("disk full")))
}
