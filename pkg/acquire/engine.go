// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package acquire

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/oracle/oci-go-sdk/v65/core"
	"github.com/rs/zerolog"

	"github.com/kuke31/oci/pkg/gateway"
	"github.com/kuke31/oci/pkg/notify"
)

// API is the slice of the provider gateway the engine depends on.
type API interface {
	LaunchInstance(ctx context.Context, spec gateway.LaunchSpec) (string, error)
	GetInstanceState(ctx context.Context, instanceID string) (core.InstanceLifecycleStateEnum, error)
	ListVnicAttachments(ctx context.Context, instanceID string) ([]string, error)
	GetVnic(ctx context.Context, vnicID string) (gateway.Vnic, error)
	AssignIpv6(ctx context.Context, vnicID string) (string, error)
}

// Engine loops launch attempts until one sticks. There is no attempt cap and
// no elapsed-time cap: the loop runs until capacity appears, a fatal
// condition stops it, or the context is cancelled.
type Engine struct {
	api      API
	policy   RetryPolicy
	notifier notify.Notifier
	log      zerolog.Logger

	rng          *rand.Rand
	waitCeiling  time.Duration
	pollInterval time.Duration
}

// NewEngine returns an engine with the default instance-running wait of 300s
// polled every 10s.
func NewEngine(api API, policy RetryPolicy, notifier notify.Notifier, log zerolog.Logger) *Engine {
	return &Engine{
		api:          api,
		policy:       policy,
		notifier:     notifier,
		log:          log,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		waitCeiling:  300 * time.Second,
		pollInterval: 10 * time.Second,
	}
}

// Run attempts to acquire one instance matching spec. The spec's display
// name is overwritten per attempt with the current epoch-millisecond
// timestamp so concurrent acquirers never collide on names. Returns only
// terminal outcomes: success, fatal, or interrupted.
func (e *Engine) Run(ctx context.Context, spec gateway.LaunchSpec) Outcome {
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return Outcome{Kind: OutcomeInterrupted}
		}

		spec.DisplayName = strconv.FormatInt(time.Now().UnixMilli(), 10)
		e.log.Info().Int("attempt", attempt).Str("shape", spec.Shape).Str("display_name", spec.DisplayName).Msg("launching instance")

		instanceID, err := e.api.LaunchInstance(ctx, spec)
		if err != nil {
			outcome := classifyOutcome(err)
			if outcome.Kind == OutcomeRetry {
				e.log.Warn().Str("reason", string(outcome.RetryReason)).Str("detail", outcome.Detail).Msg("attempt failed, will retry")
				if !e.sleep(ctx) {
					return Outcome{Kind: OutcomeInterrupted}
				}
				continue
			}
			e.log.Error().Str("reason", string(outcome.FatalReason)).Str("detail", outcome.Detail).Msg("attempt failed fatally")
			e.notifier.Notify(ctx, "instance acquisition stopped",
				fmt.Sprintf("fatal %s: %s", outcome.FatalReason, outcome.Detail), notify.KindText)
			return outcome
		}

		e.log.Info().Str("instance", instanceID).Msg("launch accepted, waiting for running state")
		if err := e.waitUntilRunning(ctx, instanceID); err != nil {
			if ctx.Err() != nil {
				return Outcome{Kind: OutcomeInterrupted}
			}
			e.log.Warn().Err(err).Str("instance", instanceID).Msg("instance did not reach running state, retrying")
			if !e.sleep(ctx) {
				return Outcome{Kind: OutcomeInterrupted}
			}
			continue
		}

		vnic := e.enrichNetworking(ctx, instanceID)
		e.notifySuccess(ctx, spec, instanceID, vnic)
		return Outcome{
			Kind:     OutcomeSuccess,
			Instance: gateway.ResourceRef{Kind: gateway.KindInstance, ID: instanceID, DisplayName: spec.DisplayName},
		}
	}
}

// waitUntilRunning polls the instance state until RUNNING. A terminating
// state or an exceeded ceiling fails this iteration only; the caller decides
// whether to retry. Poll failures are not terminal: the instance is already
// launched, so abandoning it over a transient poll error would risk a
// duplicate launch. The poll is simply repeated until the deadline.
func (e *Engine) waitUntilRunning(ctx context.Context, instanceID string) error {
	deadline := time.Now().Add(e.waitCeiling)
	for {
		state, err := e.api.GetInstanceState(ctx, instanceID)
		if err != nil {
			e.log.Warn().Err(err).Str("instance", instanceID).Msg("state poll failed, polling again")
		} else {
			switch state {
			case core.InstanceLifecycleStateRunning:
				return nil
			case core.InstanceLifecycleStateTerminating, core.InstanceLifecycleStateTerminated:
				return fmt.Errorf("instance %s entered state %s before running", instanceID, state)
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("instance %s did not reach running state within %s", instanceID, e.waitCeiling)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.pollInterval):
		}
	}
}

// enrichNetworking assigns an IPv6 address to the instance's primary VNIC and
// reads back its addresses. Entirely best-effort: a failure here never
// downgrades the acquisition.
func (e *Engine) enrichNetworking(ctx context.Context, instanceID string) gateway.Vnic {
	vnicIDs, err := e.api.ListVnicAttachments(ctx, instanceID)
	if err != nil || len(vnicIDs) == 0 {
		e.log.Warn().Err(err).Str("instance", instanceID).Msg("failed to resolve VNIC attachments")
		return gateway.Vnic{}
	}
	vnicID := vnicIDs[0]

	if addr, err := e.api.AssignIpv6(ctx, vnicID); err != nil {
		e.log.Warn().Err(err).Str("vnic", vnicID).Msg("failed to assign IPv6 address")
	} else {
		e.log.Info().Str("ipv6", addr).Msg("assigned IPv6 address")
	}

	vnic, err := e.api.GetVnic(ctx, vnicID)
	if err != nil {
		e.log.Warn().Err(err).Str("vnic", vnicID).Msg("failed to read VNIC addresses")
		return gateway.Vnic{ID: vnicID}
	}
	return vnic
}

func (e *Engine) notifySuccess(ctx context.Context, spec gateway.LaunchSpec, instanceID string, vnic gateway.Vnic) {
	var b strings.Builder
	fmt.Fprintf(&b, "### Instance acquired\n\n")
	fmt.Fprintf(&b, "- **Name**: %s\n", spec.DisplayName)
	fmt.Fprintf(&b, "- **Shape**: %s\n", spec.Shape)
	fmt.Fprintf(&b, "- **ID**: %s\n", instanceID)
	if vnic.PublicIP != "" {
		fmt.Fprintf(&b, "- **Public IP**: %s\n", vnic.PublicIP)
	}
	if len(vnic.IPv6Addresses) > 0 {
		fmt.Fprintf(&b, "- **IPv6**: %s\n", vnic.IPv6Addresses[0])
	}
	e.notifier.Notify(ctx, "instance acquired", b.String(), notify.KindMarkdown)
}

// sleep waits one jittered retry interval. Returns false when the context was
// cancelled before the interval elapsed.
func (e *Engine) sleep(ctx context.Context) bool {
	delay := e.policy.Delay(e.rng)
	e.log.Info().Dur("delay", delay).Msg("sleeping before next attempt")
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}
