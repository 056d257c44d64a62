// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package gateway

import (
	"context"
	"fmt"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"
	"github.com/oracle/oci-go-sdk/v65/identity"

	"github.com/kuke31/oci/pkg/client"
)

// OCI talks to the Oracle control plane on behalf of one compartment.
type OCI struct {
	clients       *client.Clients
	compartmentID string
}

// New returns a gateway scoped to the given compartment.
func New(clients *client.Clients, compartmentID string) *OCI {
	return &OCI{clients: clients, compartmentID: compartmentID}
}

// CompartmentID returns the compartment every call is scoped to.
func (g *OCI) CompartmentID() string {
	return g.compartmentID
}

// GetResource checks that the referenced resource still exists. The returned
// error carries ClassNotFound when the provider no longer knows the ID.
func (g *OCI) GetResource(ctx context.Context, kind ResourceKind, id string) error {
	var err error
	switch kind {
	case KindVCN:
		vnet, cerr := g.clients.GetVirtualNetworkClient()
		if cerr != nil {
			return fmt.Errorf("failed to get VirtualNetwork client: %w", cerr)
		}
		_, err = vnet.GetVcn(ctx, core.GetVcnRequest{VcnId: common.String(id)})
	case KindSubnet:
		vnet, cerr := g.clients.GetVirtualNetworkClient()
		if cerr != nil {
			return fmt.Errorf("failed to get VirtualNetwork client: %w", cerr)
		}
		_, err = vnet.GetSubnet(ctx, core.GetSubnetRequest{SubnetId: common.String(id)})
	case KindInternetGateway:
		vnet, cerr := g.clients.GetVirtualNetworkClient()
		if cerr != nil {
			return fmt.Errorf("failed to get VirtualNetwork client: %w", cerr)
		}
		_, err = vnet.GetInternetGateway(ctx, core.GetInternetGatewayRequest{IgId: common.String(id)})
	case KindRouteTable:
		vnet, cerr := g.clients.GetVirtualNetworkClient()
		if cerr != nil {
			return fmt.Errorf("failed to get VirtualNetwork client: %w", cerr)
		}
		_, err = vnet.GetRouteTable(ctx, core.GetRouteTableRequest{RtId: common.String(id)})
	case KindNSG:
		vnet, cerr := g.clients.GetVirtualNetworkClient()
		if cerr != nil {
			return fmt.Errorf("failed to get VirtualNetwork client: %w", cerr)
		}
		_, err = vnet.GetNetworkSecurityGroup(ctx, core.GetNetworkSecurityGroupRequest{NetworkSecurityGroupId: common.String(id)})
	default:
		return fmt.Errorf("unsupported resource kind %q", kind)
	}
	if err != nil {
		return fmt.Errorf("failed to get %s %s: %w", kind, id, Classify(err))
	}
	return nil
}

// DescribeVcn returns the VCN's attributes needed to derive dependent resources.
func (g *OCI) DescribeVcn(ctx context.Context, vcnID string) (VcnInfo, error) {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return VcnInfo{}, fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	resp, err := vnet.GetVcn(ctx, core.GetVcnRequest{VcnId: common.String(vcnID)})
	if err != nil {
		return VcnInfo{}, fmt.Errorf("failed to get VCN %s: %w", vcnID, Classify(err))
	}
	return vcnInfoFromSDK(resp.Vcn), nil
}

// ListVcns returns every VCN in the compartment.
func (g *OCI) ListVcns(ctx context.Context) ([]VcnInfo, error) {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	resp, err := vnet.ListVcns(ctx, core.ListVcnsRequest{
		CompartmentId: common.String(g.compartmentID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list VCNs: %w", Classify(err))
	}

	vcns := make([]VcnInfo, 0, len(resp.Items))
	for _, vcn := range resp.Items {
		vcns = append(vcns, vcnInfoFromSDK(vcn))
	}
	return vcns, nil
}

// ListSubnets returns the subnets in the compartment, optionally restricted to
// one VCN by passing a non-empty vcnID.
func (g *OCI) ListSubnets(ctx context.Context, vcnID string) ([]ResourceRef, error) {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	listReq := core.ListSubnetsRequest{
		CompartmentId: common.String(g.compartmentID),
	}
	if vcnID != "" {
		listReq.VcnId = common.String(vcnID)
	}

	resp, err := vnet.ListSubnets(ctx, listReq)
	if err != nil {
		return nil, fmt.Errorf("failed to list subnets: %w", Classify(err))
	}

	refs := make([]ResourceRef, 0, len(resp.Items))
	for _, subnet := range resp.Items {
		refs = append(refs, refFromSDK(KindSubnet, subnet.Id, subnet.DisplayName))
	}
	return refs, nil
}

// ListInternetGateways returns the internet gateways attached to a VCN.
func (g *OCI) ListInternetGateways(ctx context.Context, vcnID string) ([]ResourceRef, error) {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	resp, err := vnet.ListInternetGateways(ctx, core.ListInternetGatewaysRequest{
		CompartmentId: common.String(g.compartmentID),
		VcnId:         common.String(vcnID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list internet gateways: %w", Classify(err))
	}

	refs := make([]ResourceRef, 0, len(resp.Items))
	for _, gw := range resp.Items {
		refs = append(refs, refFromSDK(KindInternetGateway, gw.Id, gw.DisplayName))
	}
	return refs, nil
}

// ListRouteTables returns the route tables of a VCN.
func (g *OCI) ListRouteTables(ctx context.Context, vcnID string) ([]ResourceRef, error) {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	resp, err := vnet.ListRouteTables(ctx, core.ListRouteTablesRequest{
		CompartmentId: common.String(g.compartmentID),
		VcnId:         common.String(vcnID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list route tables: %w", Classify(err))
	}

	refs := make([]ResourceRef, 0, len(resp.Items))
	for _, rt := range resp.Items {
		refs = append(refs, refFromSDK(KindRouteTable, rt.Id, rt.DisplayName))
	}
	return refs, nil
}

// ListNetworkSecurityGroups returns the NSGs of a VCN.
func (g *OCI) ListNetworkSecurityGroups(ctx context.Context, vcnID string) ([]ResourceRef, error) {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	resp, err := vnet.ListNetworkSecurityGroups(ctx, core.ListNetworkSecurityGroupsRequest{
		CompartmentId: common.String(g.compartmentID),
		VcnId:         common.String(vcnID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list network security groups: %w", Classify(err))
	}

	refs := make([]ResourceRef, 0, len(resp.Items))
	for _, nsg := range resp.Items {
		refs = append(refs, refFromSDK(KindNSG, nsg.Id, nsg.DisplayName))
	}
	return refs, nil
}

// ListAvailabilityDomains returns the availability domain names of the tenancy region.
func (g *OCI) ListAvailabilityDomains(ctx context.Context) ([]string, error) {
	ident, err := g.clients.GetIdentityClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get Identity client: %w", err)
	}

	resp, err := ident.ListAvailabilityDomains(ctx, identity.ListAvailabilityDomainsRequest{
		CompartmentId: common.String(g.compartmentID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list availability domains: %w", Classify(err))
	}

	names := make([]string, 0, len(resp.Items))
	for _, ad := range resp.Items {
		if ad.Name != nil {
			names = append(names, *ad.Name)
		}
	}
	return names, nil
}

// CreateVcn creates an IPv6-enabled VCN with a 10.0.0.0/16 IPv4 block.
func (g *OCI) CreateVcn(ctx context.Context, displayName string) (VcnInfo, error) {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return VcnInfo{}, fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	resp, err := vnet.CreateVcn(ctx, core.CreateVcnRequest{
		CreateVcnDetails: core.CreateVcnDetails{
			CompartmentId: common.String(g.compartmentID),
			CidrBlock:     common.String("10.0.0.0/16"),
			DisplayName:   common.String(displayName),
			IsIpv6Enabled: common.Bool(true),
		},
	})
	if err != nil {
		return VcnInfo{}, fmt.Errorf("failed to create VCN: %w", Classify(err))
	}
	return vcnInfoFromSDK(resp.Vcn), nil
}

// CreateInternetGateway creates an enabled internet gateway in a VCN.
func (g *OCI) CreateInternetGateway(ctx context.Context, vcnID, displayName string) (ResourceRef, error) {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return ResourceRef{}, fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	resp, err := vnet.CreateInternetGateway(ctx, core.CreateInternetGatewayRequest{
		CreateInternetGatewayDetails: core.CreateInternetGatewayDetails{
			CompartmentId: common.String(g.compartmentID),
			VcnId:         common.String(vcnID),
			DisplayName:   common.String(displayName),
			IsEnabled:     common.Bool(true),
		},
	})
	if err != nil {
		return ResourceRef{}, fmt.Errorf("failed to create internet gateway: %w", Classify(err))
	}
	return refFromSDK(KindInternetGateway, resp.Id, resp.DisplayName), nil
}

// SetDefaultRoutes overwrites a route table with IPv4 and IPv6 default routes
// through the given gateway.
func (g *OCI) SetDefaultRoutes(ctx context.Context, routeTableID, gatewayID string) error {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	_, err = vnet.UpdateRouteTable(ctx, core.UpdateRouteTableRequest{
		RtId: common.String(routeTableID),
		UpdateRouteTableDetails: core.UpdateRouteTableDetails{
			RouteRules: []core.RouteRule{
				{
					Destination:     common.String("0.0.0.0/0"),
					DestinationType: core.RouteRuleDestinationTypeCidrBlock,
					NetworkEntityId: common.String(gatewayID),
				},
				{
					Destination:     common.String("::/0"),
					DestinationType: core.RouteRuleDestinationTypeCidrBlock,
					NetworkEntityId: common.String(gatewayID),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update route table %s: %w", routeTableID, Classify(err))
	}
	return nil
}

// CreateSubnet creates a 10.0.0.0/24 subnet, with an IPv6 /64 block when the
// VCN carries one.
func (g *OCI) CreateSubnet(ctx context.Context, vcn VcnInfo, displayName string) (ResourceRef, error) {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return ResourceRef{}, fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	createDetails := core.CreateSubnetDetails{
		CompartmentId: common.String(g.compartmentID),
		VcnId:         common.String(vcn.Ref.ID),
		CidrBlock:     common.String("10.0.0.0/24"),
		DisplayName:   common.String(displayName),
	}
	if ipv6, ok := subnetIpv6Block(vcn.IPv6CidrBlocks); ok {
		createDetails.Ipv6CidrBlock = common.String(ipv6)
	}

	resp, err := vnet.CreateSubnet(ctx, core.CreateSubnetRequest{
		CreateSubnetDetails: createDetails,
	})
	if err != nil {
		return ResourceRef{}, fmt.Errorf("failed to create subnet: %w", Classify(err))
	}
	return refFromSDK(KindSubnet, resp.Id, resp.DisplayName), nil
}

// CreateNetworkSecurityGroup creates an empty NSG in a VCN.
func (g *OCI) CreateNetworkSecurityGroup(ctx context.Context, vcnID, displayName string) (ResourceRef, error) {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return ResourceRef{}, fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	resp, err := vnet.CreateNetworkSecurityGroup(ctx, core.CreateNetworkSecurityGroupRequest{
		CreateNetworkSecurityGroupDetails: core.CreateNetworkSecurityGroupDetails{
			CompartmentId: common.String(g.compartmentID),
			VcnId:         common.String(vcnID),
			DisplayName:   common.String(displayName),
		},
	})
	if err != nil {
		return ResourceRef{}, fmt.Errorf("failed to create network security group: %w", Classify(err))
	}
	return refFromSDK(KindNSG, resp.Id, resp.DisplayName), nil
}

// AddSSHIngressRules adds the standard ingress posture to an NSG: SSH over
// IPv4 and IPv6, plus ICMP echo reachability.
func (g *OCI) AddSSHIngressRules(ctx context.Context, nsgID string) error {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	sshOptions := &core.TcpOptions{
		DestinationPortRange: &core.PortRange{
			Min: common.Int(22),
			Max: common.Int(22),
		},
	}
	ingress := func(protocol, source string) core.AddSecurityRuleDetails {
		return core.AddSecurityRuleDetails{
			Direction:  core.AddSecurityRuleDetailsDirectionIngress,
			Protocol:   common.String(protocol),
			Source:     common.String(source),
			SourceType: core.AddSecurityRuleDetailsSourceTypeCidrBlock,
		}
	}

	sshLocal := ingress("6", "10.0.0.0/24")
	sshLocal.TcpOptions = sshOptions
	sshV4 := ingress("6", "0.0.0.0/0")
	sshV4.TcpOptions = sshOptions
	icmpV4 := ingress("1", "0.0.0.0/0")
	sshV6 := ingress("6", "::/0")
	sshV6.TcpOptions = sshOptions
	icmpV6 := ingress("58", "::/0")
	icmpV6.IcmpOptions = &core.IcmpOptions{
		Type: common.Int(128),
		Code: common.Int(0),
	}

	_, err = vnet.AddNetworkSecurityGroupSecurityRules(ctx, core.AddNetworkSecurityGroupSecurityRulesRequest{
		NetworkSecurityGroupId: common.String(nsgID),
		AddNetworkSecurityGroupSecurityRulesDetails: core.AddNetworkSecurityGroupSecurityRulesDetails{
			SecurityRules: []core.AddSecurityRuleDetails{sshLocal, sshV4, icmpV4, sshV6, icmpV6},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to add ingress rules to NSG %s: %w", nsgID, Classify(err))
	}
	return nil
}

// ListSecurityLists returns the security lists of a VCN with their full rule sets.
func (g *OCI) ListSecurityLists(ctx context.Context, vcnID string) ([]SecurityList, error) {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	resp, err := vnet.ListSecurityLists(ctx, core.ListSecurityListsRequest{
		CompartmentId: common.String(g.compartmentID),
		VcnId:         common.String(vcnID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list security lists: %w", Classify(err))
	}

	lists := make([]SecurityList, 0, len(resp.Items))
	for _, sl := range resp.Items {
		list := SecurityList{
			ID:           derefString(sl.Id),
			DisplayName:  derefString(sl.DisplayName),
			IngressRules: sl.IngressSecurityRules,
			EgressRules:  sl.EgressSecurityRules,
		}
		lists = append(lists, list)
	}
	return lists, nil
}

// ReplaceIngressRules overwrites a security list's ingress rules.
func (g *OCI) ReplaceIngressRules(ctx context.Context, securityListID string, rules []core.IngressSecurityRule) error {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	_, err = vnet.UpdateSecurityList(ctx, core.UpdateSecurityListRequest{
		SecurityListId: common.String(securityListID),
		UpdateSecurityListDetails: core.UpdateSecurityListDetails{
			IngressSecurityRules: rules,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update ingress rules of security list %s: %w", securityListID, Classify(err))
	}
	return nil
}

// ReplaceEgressRules overwrites a security list's egress rules.
func (g *OCI) ReplaceEgressRules(ctx context.Context, securityListID string, rules []core.EgressSecurityRule) error {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	_, err = vnet.UpdateSecurityList(ctx, core.UpdateSecurityListRequest{
		SecurityListId: common.String(securityListID),
		UpdateSecurityListDetails: core.UpdateSecurityListDetails{
			EgressSecurityRules: rules,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update egress rules of security list %s: %w", securityListID, Classify(err))
	}
	return nil
}

func vcnInfoFromSDK(vcn core.Vcn) VcnInfo {
	return VcnInfo{
		Ref:                 refFromSDK(KindVCN, vcn.Id, vcn.DisplayName),
		IPv6CidrBlocks:      vcn.Ipv6CidrBlocks,
		DefaultRouteTableID: derefString(vcn.DefaultRouteTableId),
	}
}

func refFromSDK(kind ResourceKind, id, displayName *string) ResourceRef {
	return ResourceRef{
		Kind:        kind,
		ID:          derefString(id),
		DisplayName: derefString(displayName),
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
