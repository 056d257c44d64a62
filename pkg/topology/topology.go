// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package topology resolves the network prerequisites of an instance launch:
// VCN, subnet, internet gateway, route table, NSG and availability domain.
package topology

import (
	"strings"

	"github.com/kuke31/oci/pkg/gateway"
)

// NetworkTopology is the resolved set of network resources a launch depends on.
// A topology is complete once VCN, subnet, gateway and route table are all
// known; completeness is re-validated against the provider on every run.
type NetworkTopology struct {
	VCN                gateway.ResourceRef
	Subnet             gateway.ResourceRef
	Gateway            gateway.ResourceRef
	RouteTable         gateway.ResourceRef
	NSG                gateway.ResourceRef
	AvailabilityDomain string
}

// Complete reports whether the four core identifiers are all resolved. The
// NSG and availability domain are filled separately and do not gate
// completeness.
func (t NetworkTopology) Complete() bool {
	return !t.VCN.Empty() && !t.Subnet.Empty() && !t.Gateway.Empty() && !t.RouteTable.Empty()
}

func (t NetworkTopology) hasAnyIdentifier() bool {
	return !t.VCN.Empty() || !t.Subnet.Empty() || !t.Gateway.Empty() || !t.RouteTable.Empty()
}

// regionBaseName derives a short resource base name from a region identifier
// by dropping the realm prefix and the trailing ordinal, so that
// "ap-singapore-1" becomes "singapore".
func regionBaseName(region string) string {
	parts := strings.Split(region, "-")
	if len(parts) <= 2 {
		return region
	}
	return strings.Join(parts[1:len(parts)-1], "-")
}
