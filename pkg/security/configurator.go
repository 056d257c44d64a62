// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package security normalizes a VCN's security-list posture. Ingress policy
// lives on NSGs; security lists are stripped of foreign ingress rules and
// topped up with permissive egress.
package security

import (
	"context"
	"fmt"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"
	"github.com/rs/zerolog"

	"github.com/kuke31/oci/pkg/gateway"
	"github.com/kuke31/oci/pkg/store"
	"github.com/kuke31/oci/pkg/topology"
)

// API is the slice of the provider gateway the configurator depends on.
type API interface {
	ListSecurityLists(ctx context.Context, vcnID string) ([]gateway.SecurityList, error)
	ReplaceIngressRules(ctx context.Context, securityListID string, rules []core.IngressSecurityRule) error
	ReplaceEgressRules(ctx context.Context, securityListID string, rules []core.EgressSecurityRule) error
}

// Configurator applies the security-list posture to a VCN, at most once: a
// marker records the VCN whose lists were last normalized, and a matching
// marker skips all provider calls. The marker is an identity check, not a
// content check. Rules edited out-of-band after normalization go undetected
// until the marker is cleared.
type Configurator struct {
	api   API
	store store.Store
	log   zerolog.Logger
}

// NewConfigurator returns a configurator writing its marker to st.
func NewConfigurator(api API, st store.Store, log zerolog.Logger) *Configurator {
	return &Configurator{api: api, store: st, log: log}
}

// Configure normalizes every security list of the topology's VCN. Each list
// is handled independently: a failed update is logged and the remaining lists
// are still processed. The marker is written once at least one list has been
// fully normalized.
func (c *Configurator) Configure(ctx context.Context, topo topology.NetworkTopology) error {
	vcnID := topo.VCN.ID
	if c.store.Get(store.KeySecurityListConfigured) == vcnID {
		c.log.Debug().Str("vcn", vcnID).Msg("security lists already configured, skipping")
		return nil
	}

	lists, err := c.api.ListSecurityLists(ctx, vcnID)
	if err != nil {
		return fmt.Errorf("failed to list security lists of VCN %s: %w", vcnID, err)
	}

	var completed int
	for _, list := range lists {
		if err := c.normalize(ctx, list); err != nil {
			c.log.Warn().Err(err).Str("security_list", list.ID).Msg("failed to normalize security list")
			continue
		}
		completed++
	}

	if completed > 0 {
		c.store.Set(store.KeySecurityListConfigured, vcnID)
		if err := c.store.Flush(); err != nil {
			return fmt.Errorf("failed to persist security posture marker: %w", err)
		}
		c.log.Info().Int("security_lists", completed).Str("vcn", vcnID).Msg("security posture configured")
	}
	return nil
}

func (c *Configurator) normalize(ctx context.Context, list gateway.SecurityList) error {
	// Any non-empty ingress set is foreign and gets cleared; an empty set
	// is already in the desired state.
	if len(list.IngressRules) > 0 {
		if err := c.api.ReplaceIngressRules(ctx, list.ID, []core.IngressSecurityRule{}); err != nil {
			return err
		}
		c.log.Info().Str("security_list", list.DisplayName).Int("cleared", len(list.IngressRules)).Msg("cleared foreign ingress rules")
	}

	egress, changed := topUpEgress(list.EgressRules)
	if changed {
		if err := c.api.ReplaceEgressRules(ctx, list.ID, egress); err != nil {
			return err
		}
		c.log.Info().Str("security_list", list.DisplayName).Msg("added permissive egress rules")
	}
	return nil
}

// topUpEgress appends an any-protocol IPv4 and/or IPv6 egress rule for
// whichever destination is missing, keeping existing entries untouched.
func topUpEgress(existing []core.EgressSecurityRule) ([]core.EgressSecurityRule, bool) {
	var hasV4, hasV6 bool
	for _, rule := range existing {
		if rule.Destination == nil {
			continue
		}
		switch *rule.Destination {
		case "0.0.0.0/0":
			hasV4 = true
		case "::/0":
			hasV6 = true
		}
	}
	if hasV4 && hasV6 {
		return existing, false
	}

	merged := append([]core.EgressSecurityRule{}, existing...)
	if !hasV4 {
		merged = append(merged, anyEgressRule("0.0.0.0/0"))
	}
	if !hasV6 {
		merged = append(merged, anyEgressRule("::/0"))
	}
	return merged, true
}

func anyEgressRule(destination string) core.EgressSecurityRule {
	return core.EgressSecurityRule{
		Destination:     common.String(destination),
		DestinationType: core.EgressSecurityRuleDestinationTypeCidrBlock,
		Protocol:        common.String("all"),
		IsStateless:     common.Bool(false),
	}
}
