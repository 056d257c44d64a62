// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package topology

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/kuke31/oci/pkg/gateway"
	"github.com/kuke31/oci/pkg/store"
)

// API is the slice of the provider gateway the reconciler depends on.
type API interface {
	GetResource(ctx context.Context, kind gateway.ResourceKind, id string) error
	ListVcns(ctx context.Context) ([]gateway.VcnInfo, error)
	ListSubnets(ctx context.Context, vcnID string) ([]gateway.ResourceRef, error)
	ListInternetGateways(ctx context.Context, vcnID string) ([]gateway.ResourceRef, error)
	ListRouteTables(ctx context.Context, vcnID string) ([]gateway.ResourceRef, error)
	ListAvailabilityDomains(ctx context.Context) ([]string, error)
	CreateVcn(ctx context.Context, displayName string) (gateway.VcnInfo, error)
	CreateInternetGateway(ctx context.Context, vcnID, displayName string) (gateway.ResourceRef, error)
	SetDefaultRoutes(ctx context.Context, routeTableID, gatewayID string) error
	CreateSubnet(ctx context.Context, vcn gateway.VcnInfo, displayName string) (gateway.ResourceRef, error)
	CreateNetworkSecurityGroup(ctx context.Context, vcnID, displayName string) (gateway.ResourceRef, error)
	AddSSHIngressRules(ctx context.Context, nsgID string) error
}

// Reconciler makes the network topology exist: validate what the store
// remembers, adopt what the compartment already has, create the rest.
type Reconciler struct {
	api    API
	store  store.Store
	region string
	log    zerolog.Logger
}

// NewReconciler returns a reconciler for the given region.
func NewReconciler(api API, st store.Store, region string, log zerolog.Logger) *Reconciler {
	return &Reconciler{api: api, store: st, region: region, log: log}
}

// Ensure resolves the network topology, idempotently. Safe to call on every
// process start: a topology that validates against the provider causes no
// mutation, a stale one is discarded wholesale and re-resolved by discovery,
// and only an empty compartment triggers creation. Creation failures abort
// the run; partially created resources are left for the next invocation's
// validation pass to pick up.
func (r *Reconciler) Ensure(ctx context.Context) (NetworkTopology, error) {
	candidate := r.load()

	if candidate.hasAnyIdentifier() {
		if r.validate(ctx, candidate) {
			r.log.Info().Str("vcn", candidate.VCN.ID).Msg("persisted topology validated")
			r.persist(candidate)
			return candidate, r.store.Flush()
		}
		r.log.Warn().Msg("persisted topology is stale, discarding and re-resolving")
	}

	adopted, found := r.discover(ctx)
	if found {
		// NSG selection is a user-mediated decision made after this
		// phase, so an adopted topology never inherits a stored NSG.
		r.store.Delete(store.KeyNsgID)
		if !adopted.Complete() {
			r.log.Warn().
				Bool("subnet", !adopted.Subnet.Empty()).
				Bool("gateway", !adopted.Gateway.Empty()).
				Bool("route_table", !adopted.RouteTable.Empty()).
				Msg("adopted topology is partial; instances may lack egress until the missing pieces exist")
		}
		r.log.Info().Str("vcn", adopted.VCN.ID).Msg("adopted existing topology")
		r.persist(adopted)
		return adopted, r.store.Flush()
	}

	created, err := r.create(ctx)
	if err != nil {
		return NetworkTopology{}, err
	}
	return created, r.store.Flush()
}

func (r *Reconciler) load() NetworkTopology {
	return NetworkTopology{
		VCN: gateway.ResourceRef{
			Kind:        gateway.KindVCN,
			ID:          r.store.Get(store.KeyVcnID),
			DisplayName: r.store.Get(store.KeyVcnName),
		},
		Subnet:             gateway.ResourceRef{Kind: gateway.KindSubnet, ID: r.store.Get(store.KeySubnetID)},
		Gateway:            gateway.ResourceRef{Kind: gateway.KindInternetGateway, ID: r.store.Get(store.KeyInternetGatewayID)},
		RouteTable:         gateway.ResourceRef{Kind: gateway.KindRouteTable, ID: r.store.Get(store.KeyRouteTableID)},
		NSG:                gateway.ResourceRef{Kind: gateway.KindNSG, ID: r.store.Get(store.KeyNsgID)},
		AvailabilityDomain: r.store.Get(store.KeyAvailabilityDomain),
	}
}

// validate checks every present core identifier against the provider. Any
// resolution failure, not-found or otherwise, counts as absent: the candidate
// is rejected as a whole and re-resolved, never partially repaired.
func (r *Reconciler) validate(ctx context.Context, candidate NetworkTopology) bool {
	refs := []gateway.ResourceRef{candidate.VCN, candidate.Subnet, candidate.Gateway, candidate.RouteTable}
	for _, ref := range refs {
		if ref.Empty() {
			continue
		}
		if err := r.api.GetResource(ctx, ref.Kind, ref.ID); err != nil {
			r.log.Warn().Err(err).Str("kind", string(ref.Kind)).Str("id", ref.ID).Msg("stored resource did not resolve")
			return false
		}
	}
	return true
}

// discover adopts the first VCN the compartment already has, then the first
// subnet, gateway, route table and availability domain under it. Each is
// independently optional; list failures count as "nothing there".
func (r *Reconciler) discover(ctx context.Context) (NetworkTopology, bool) {
	vcns, err := r.api.ListVcns(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to list VCNs during discovery")
		return NetworkTopology{}, false
	}
	if len(vcns) == 0 {
		return NetworkTopology{}, false
	}
	vcn := vcns[0]

	adopted := NetworkTopology{VCN: vcn.Ref}
	if subnets, err := r.api.ListSubnets(ctx, vcn.Ref.ID); err != nil {
		r.log.Warn().Err(err).Msg("failed to list subnets during discovery")
	} else if len(subnets) > 0 {
		adopted.Subnet = subnets[0]
	}
	if gateways, err := r.api.ListInternetGateways(ctx, vcn.Ref.ID); err != nil {
		r.log.Warn().Err(err).Msg("failed to list internet gateways during discovery")
	} else if len(gateways) > 0 {
		adopted.Gateway = gateways[0]
	}
	if routeTables, err := r.api.ListRouteTables(ctx, vcn.Ref.ID); err != nil {
		r.log.Warn().Err(err).Msg("failed to list route tables during discovery")
	} else if len(routeTables) > 0 {
		adopted.RouteTable = routeTables[0]
	}
	if domains, err := r.api.ListAvailabilityDomains(ctx); err != nil {
		r.log.Warn().Err(err).Msg("failed to list availability domains during discovery")
	} else if len(domains) > 0 {
		adopted.AvailabilityDomain = domains[0]
	}
	return adopted, true
}

// create builds a fresh topology from nothing. Every step persists its result
// before the next step runs, so a failure mid-way leaves a partial record the
// next run's validation pass will detect.
func (r *Reconciler) create(ctx context.Context) (NetworkTopology, error) {
	base := regionBaseName(r.region)

	vcn, err := r.api.CreateVcn(ctx, base)
	if err != nil {
		return NetworkTopology{}, fmt.Errorf("failed to create VCN: %w", err)
	}
	r.log.Info().Str("vcn", vcn.Ref.ID).Msg("created VCN")
	r.store.Set(store.KeyVcnID, vcn.Ref.ID)
	r.store.Set(store.KeyVcnName, vcn.Ref.DisplayName)

	igw, err := r.api.CreateInternetGateway(ctx, vcn.Ref.ID, base+"-internet-gateway")
	if err != nil {
		return NetworkTopology{}, fmt.Errorf("failed to create internet gateway: %w", err)
	}
	r.log.Info().Str("gateway", igw.ID).Msg("created internet gateway")
	r.store.Set(store.KeyInternetGatewayID, igw.ID)

	if err := r.api.SetDefaultRoutes(ctx, vcn.DefaultRouteTableID, igw.ID); err != nil {
		return NetworkTopology{}, fmt.Errorf("failed to set default routes: %w", err)
	}
	r.store.Set(store.KeyRouteTableID, vcn.DefaultRouteTableID)

	subnet, err := r.api.CreateSubnet(ctx, vcn, base+"-subnet")
	if err != nil {
		return NetworkTopology{}, fmt.Errorf("failed to create subnet: %w", err)
	}
	r.log.Info().Str("subnet", subnet.ID).Msg("created subnet")
	r.store.Set(store.KeySubnetID, subnet.ID)

	nsgName := strconv.FormatInt(time.Now().UnixMilli(), 10)
	nsg, err := r.api.CreateNetworkSecurityGroup(ctx, vcn.Ref.ID, nsgName)
	if err != nil {
		return NetworkTopology{}, fmt.Errorf("failed to create network security group: %w", err)
	}
	if err := r.api.AddSSHIngressRules(ctx, nsg.ID); err != nil {
		return NetworkTopology{}, fmt.Errorf("failed to add NSG ingress rules: %w", err)
	}
	r.log.Info().Str("nsg", nsg.ID).Msg("created network security group")
	r.store.Set(store.KeyNsgID, nsg.ID)

	created := NetworkTopology{
		VCN:        vcn.Ref,
		Subnet:     subnet,
		Gateway:    igw,
		RouteTable: gateway.ResourceRef{Kind: gateway.KindRouteTable, ID: vcn.DefaultRouteTableID},
		NSG:        nsg,
	}
	if domains, err := r.api.ListAvailabilityDomains(ctx); err != nil {
		r.log.Warn().Err(err).Msg("failed to list availability domains")
	} else if len(domains) > 0 {
		created.AvailabilityDomain = domains[0]
		r.store.Set(store.KeyAvailabilityDomain, domains[0])
	}
	return created, nil
}

// persist writes the non-empty fields of a topology. Empty fields are never
// written, so a partial adoption cannot clear identifiers resolved earlier.
func (r *Reconciler) persist(t NetworkTopology) {
	r.store.Set(store.KeyVcnID, t.VCN.ID)
	r.store.Set(store.KeyVcnName, t.VCN.DisplayName)
	r.store.Set(store.KeySubnetID, t.Subnet.ID)
	r.store.Set(store.KeyInternetGatewayID, t.Gateway.ID)
	r.store.Set(store.KeyRouteTableID, t.RouteTable.ID)
	r.store.Set(store.KeyAvailabilityDomain, t.AvailabilityDomain)
}
