// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package acquire

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oracle/oci-go-sdk/v65/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuke31/oci/pkg/gateway"
	"github.com/kuke31/oci/pkg/notify"
)

type launchResult struct {
	instanceID string
	err        error
}

type fakeAPI struct {
	launches     []launchResult
	launchCalls  int
	states       map[string][]core.InstanceLifecycleStateEnum
	stateErrs    map[string][]error
	ipv6Err      error
	ipv6Assigned bool
}

func (f *fakeAPI) LaunchInstance(_ context.Context, _ gateway.LaunchSpec) (string, error) {
	result := f.launches[f.launchCalls]
	f.launchCalls++
	return result.instanceID, result.err
}

func (f *fakeAPI) GetInstanceState(_ context.Context, instanceID string) (core.InstanceLifecycleStateEnum, error) {
	if errs := f.stateErrs[instanceID]; len(errs) > 0 {
		f.stateErrs[instanceID] = errs[1:]
		return "", errs[0]
	}
	states := f.states[instanceID]
	if len(states) == 0 {
		return core.InstanceLifecycleStateRunning, nil
	}
	state := states[0]
	if len(states) > 1 {
		f.states[instanceID] = states[1:]
	}
	return state, nil
}

func (f *fakeAPI) ListVnicAttachments(_ context.Context, _ string) ([]string, error) {
	return []string{"vnic-1"}, nil
}

func (f *fakeAPI) GetVnic(_ context.Context, vnicID string) (gateway.Vnic, error) {
	return gateway.Vnic{ID: vnicID, PublicIP: "203.0.113.7", PrivateIP: "10.0.0.2"}, nil
}

func (f *fakeAPI) AssignIpv6(_ context.Context, _ string) (string, error) {
	if f.ipv6Err != nil {
		return "", f.ipv6Err
	}
	f.ipv6Assigned = true
	return "2603:c020::1", nil
}

type recordingNotifier struct {
	titles []string
	kinds  []notify.MessageKind
}

func (n *recordingNotifier) Notify(_ context.Context, title, _ string, kind notify.MessageKind) bool {
	n.titles = append(n.titles, title)
	n.kinds = append(n.kinds, kind)
	return true
}

func newTestEngine(api *fakeAPI, notifier notify.Notifier) *Engine {
	e := NewEngine(api, RetryPolicy{MinSeconds: 0, MaxSeconds: 0}, notifier, zerolog.Nop())
	e.pollInterval = time.Millisecond
	e.waitCeiling = 50 * time.Millisecond
	return e
}

func capacityError() error {
	return &gateway.ProviderError{
		StatusCode: 500,
		Message:    "Out of host capacity.",
		Class:      gateway.ClassCapacityUnavailable,
	}
}

func TestRun_SucceedsFirstAttempt(t *testing.T) {
	api := &fakeAPI{launches: []launchResult{{instanceID: "inst-1"}}}
	notifier := &recordingNotifier{}

	outcome := newTestEngine(api, notifier).Run(context.Background(), gateway.LaunchSpec{Shape: "VM.Standard.A1.Flex"})

	assert.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "inst-1", outcome.Instance.ID)
	assert.True(t, api.ipv6Assigned)
	require.Len(t, notifier.titles, 1)
	assert.Equal(t, "instance acquired", notifier.titles[0])
	assert.Equal(t, notify.KindMarkdown, notifier.kinds[0])
}

func TestRun_RetriesThroughCapacityExhaustion(t *testing.T) {
	api := &fakeAPI{launches: []launchResult{
		{err: capacityError()},
		{err: capacityError()},
		{instanceID: "inst-1"},
	}}

	outcome := newTestEngine(api, &recordingNotifier{}).Run(context.Background(), gateway.LaunchSpec{})

	assert.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.Equal(t, 3, api.launchCalls)
}

func TestRun_QuotaExceededStopsWithNotification(t *testing.T) {
	api := &fakeAPI{launches: []launchResult{{err: &gateway.ProviderError{
		StatusCode: 400,
		Message:    "service limit reached",
		Class:      gateway.ClassQuotaExceeded,
	}}}}
	notifier := &recordingNotifier{}

	outcome := newTestEngine(api, notifier).Run(context.Background(), gateway.LaunchSpec{})

	assert.Equal(t, OutcomeFatal, outcome.Kind)
	assert.Equal(t, ReasonQuotaExceeded, outcome.FatalReason)
	assert.Equal(t, 1, api.launchCalls)
	require.Len(t, notifier.titles, 1)
	assert.Equal(t, "instance acquisition stopped", notifier.titles[0])
}

func TestRun_TerminatedDuringWaitRetriesIteration(t *testing.T) {
	api := &fakeAPI{
		launches: []launchResult{{instanceID: "inst-dead"}, {instanceID: "inst-2"}},
		states: map[string][]core.InstanceLifecycleStateEnum{
			"inst-dead": {core.InstanceLifecycleStateProvisioning, core.InstanceLifecycleStateTerminated},
		},
	}

	outcome := newTestEngine(api, &recordingNotifier{}).Run(context.Background(), gateway.LaunchSpec{})

	assert.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "inst-2", outcome.Instance.ID)
	assert.Equal(t, 2, api.launchCalls)
}

func TestRun_PollFailureDuringWaitKeepsPollingSameInstance(t *testing.T) {
	// A throttled status poll must not abandon the launched instance and
	// trigger a second launch.
	api := &fakeAPI{
		launches: []launchResult{{instanceID: "inst-1"}, {instanceID: "inst-never"}},
		stateErrs: map[string][]error{
			"inst-1": {&gateway.ProviderError{StatusCode: 429, Class: gateway.ClassRateLimited, Message: "slow down"}},
		},
	}

	outcome := newTestEngine(api, &recordingNotifier{}).Run(context.Background(), gateway.LaunchSpec{})

	assert.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "inst-1", outcome.Instance.ID)
	assert.Equal(t, 1, api.launchCalls)
}

func TestRun_Ipv6FailureDoesNotDowngradeSuccess(t *testing.T) {
	api := &fakeAPI{
		launches: []launchResult{{instanceID: "inst-1"}},
		ipv6Err:  errors.New("subnet has no IPv6 block"),
	}

	outcome := newTestEngine(api, &recordingNotifier{}).Run(context.Background(), gateway.LaunchSpec{})
	assert.Equal(t, OutcomeSuccess, outcome.Kind)
}

func TestRun_CancelledContextInterrupts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	api := &fakeAPI{launches: []launchResult{{instanceID: "inst-1"}}}
	notifier := &recordingNotifier{}
	outcome := newTestEngine(api, notifier).Run(ctx, gateway.LaunchSpec{})

	assert.Equal(t, OutcomeInterrupted, outcome.Kind)
	assert.Zero(t, api.launchCalls)
	assert.Empty(t, notifier.titles, "interruption sends no notification")
}

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		name  string
		class gateway.Classification
		kind  OutcomeKind
		retry RetryReason
		fatal FatalReason
	}{
		{"capacity", gateway.ClassCapacityUnavailable, OutcomeRetry, ReasonCapacityUnavailable, ""},
		{"server error", gateway.ClassServerError, OutcomeRetry, ReasonServerError, ""},
		{"rate limited", gateway.ClassRateLimited, OutcomeRetry, ReasonRateLimited, ""},
		{"transient network", gateway.ClassTransientNetwork, OutcomeRetry, ReasonTransientNetwork, ""},
		{"quota", gateway.ClassQuotaExceeded, OutcomeFatal, "", ReasonQuotaExceeded},
		{"not found", gateway.ClassNotFound, OutcomeFatal, "", ReasonUnknown},
		{"unknown", gateway.ClassUnknown, OutcomeFatal, "", ReasonUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := classifyOutcome(&gateway.ProviderError{Class: tt.class, Message: "m"})
			assert.Equal(t, tt.kind, outcome.Kind)
			assert.Equal(t, tt.retry, outcome.RetryReason)
			assert.Equal(t, tt.fatal, outcome.FatalReason)
		})
	}
}

func TestClassifyOutcome_UnclassifiedError(t *testing.T) {
	outcome := classifyOutcome(errors.New("Read timed out"))
	assert.Equal(t, OutcomeRetry, outcome.Kind)
	assert.Equal(t, ReasonTransientNetwork, outcome.RetryReason)

	outcome = classifyOutcome(errors.New("disk full"))
	assert.Equal(t, OutcomeFatal, outcome.Kind)
	assert.Equal(t, ReasonUnknown, outcome.FatalReason)
}
