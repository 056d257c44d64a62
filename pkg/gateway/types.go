// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package gateway is a capability-shaped client over the OCI control plane.
// Every failure it returns wraps a *ProviderError classified at this boundary.
package gateway

import (
	"time"

	"github.com/oracle/oci-go-sdk/v65/core"
)

// ResourceKind identifies a provider resource type.
type ResourceKind string

const (
	KindVCN             ResourceKind = "vcn"
	KindSubnet          ResourceKind = "subnet"
	KindInternetGateway ResourceKind = "internet-gateway"
	KindRouteTable      ResourceKind = "route-table"
	KindNSG             ResourceKind = "network-security-group"
	KindSecurityList    ResourceKind = "security-list"
	KindImage           ResourceKind = "image"
	KindInstance        ResourceKind = "instance"
)

// ResourceRef is an opaque reference to a provider-owned resource.
type ResourceRef struct {
	Kind        ResourceKind
	ID          string
	DisplayName string
}

// Empty reports whether the reference does not denote a resource.
func (r ResourceRef) Empty() bool {
	return r.ID == ""
}

// VcnInfo describes a VCN together with the attributes needed to derive
// dependent resources.
type VcnInfo struct {
	Ref                 ResourceRef
	IPv6CidrBlocks      []string
	DefaultRouteTableID string
}

// Image describes a bootable image.
type Image struct {
	Ref                    ResourceRef
	OperatingSystemVersion string
	TimeCreated            time.Time
}

// SecurityList carries a security list's current rule sets.
type SecurityList struct {
	ID           string
	DisplayName  string
	IngressRules []core.IngressSecurityRule
	EgressRules  []core.EgressSecurityRule
}

// LaunchSpec is the full sizing and placement request for one launch attempt.
type LaunchSpec struct {
	DisplayName         string
	AvailabilityDomain  string
	Shape               string
	OCPUs               int
	MemoryGBs           int
	ImageID             string
	SubnetID            string
	NSGID               string
	BootVolumeSizeGBs   int64
	BootVolumeVPUsPerGB int64
	SSHAuthorizedKeys   string
}

// InstanceSummary is the subset of instance attributes the inventory report needs.
type InstanceSummary struct {
	ID                 string
	DisplayName        string
	AvailabilityDomain string
}

// Vnic carries the addressing attributes of a virtual NIC.
type Vnic struct {
	ID            string
	PublicIP      string
	PrivateIP     string
	IPv6Addresses []string
}
