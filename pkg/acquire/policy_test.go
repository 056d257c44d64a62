// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package acquire

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		expr    string
		want    RetryPolicy
		wantErr bool
	}{
		{expr: "60", want: RetryPolicy{MinSeconds: 60, MaxSeconds: 60}},
		{expr: "30-60", want: RetryPolicy{MinSeconds: 30, MaxSeconds: 60}},
		{expr: " 30 - 60 ", want: RetryPolicy{MinSeconds: 30, MaxSeconds: 60}},
		{expr: "10", want: RetryPolicy{MinSeconds: 10, MaxSeconds: 10}},
		{expr: "5", wantErr: true},
		{expr: "9-60", wantErr: true},
		{expr: "60-30", wantErr: true},
		{expr: "abc", wantErr: true},
		{expr: "30-", wantErr: true},
		{expr: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParsePolicy(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDelay_SamplesStayInClosedInterval(t *testing.T) {
	policy := RetryPolicy{MinSeconds: 30, MaxSeconds: 60}
	rng := rand.New(rand.NewSource(1))

	seen := map[time.Duration]bool{}
	for i := 0; i < 1000; i++ {
		d := policy.Delay(rng)
		assert.GreaterOrEqual(t, d, 30*time.Second)
		assert.LessOrEqual(t, d, 60*time.Second)
		seen[d] = true
	}
	assert.Greater(t, len(seen), 1, "draws must not all be equal")
}

func TestDelay_DegenerateIntervalIsConstant(t *testing.T) {
	policy := RetryPolicy{MinSeconds: 15, MaxSeconds: 15}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		assert.Equal(t, 15*time.Second, policy.Delay(rng))
	}
}
