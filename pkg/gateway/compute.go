// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"
)

// LaunchInstance submits one launch attempt and returns the new instance's ID.
// Launch is asynchronous; callers poll GetInstanceState until RUNNING.
func (g *OCI) LaunchInstance(ctx context.Context, spec LaunchSpec) (string, error) {
	svc, err := g.clients.GetComputeClient()
	if err != nil {
		return "", fmt.Errorf("failed to get Compute client: %w", err)
	}

	launchDetails := core.LaunchInstanceDetails{
		CompartmentId:      common.String(g.compartmentID),
		AvailabilityDomain: common.String(spec.AvailabilityDomain),
		Shape:              common.String(spec.Shape),
		DisplayName:        common.String(spec.DisplayName),
		SourceDetails: core.InstanceSourceViaImageDetails{
			ImageId:             common.String(spec.ImageID),
			BootVolumeSizeInGBs: common.Int64(spec.BootVolumeSizeGBs),
			BootVolumeVpusPerGB: common.Int64(spec.BootVolumeVPUsPerGB),
		},
		CreateVnicDetails: &core.CreateVnicDetails{
			SubnetId:       common.String(spec.SubnetID),
			AssignPublicIp: common.Bool(true),
		},
		Metadata: map[string]string{
			"ssh_authorized_keys": spec.SSHAuthorizedKeys,
		},
	}
	if spec.NSGID != "" {
		launchDetails.CreateVnicDetails.NsgIds = []string{spec.NSGID}
	}
	if spec.OCPUs > 0 {
		launchDetails.ShapeConfig = &core.LaunchInstanceShapeConfigDetails{
			Ocpus:       common.Float32(float32(spec.OCPUs)),
			MemoryInGBs: common.Float32(float32(spec.MemoryGBs)),
		}
	}

	resp, err := svc.LaunchInstance(ctx, core.LaunchInstanceRequest{
		LaunchInstanceDetails: launchDetails,
	})
	if err != nil {
		return "", fmt.Errorf("failed to launch instance: %w", Classify(err))
	}
	return *resp.Id, nil
}

// GetInstanceState returns the lifecycle state of an instance.
func (g *OCI) GetInstanceState(ctx context.Context, instanceID string) (core.InstanceLifecycleStateEnum, error) {
	svc, err := g.clients.GetComputeClient()
	if err != nil {
		return "", fmt.Errorf("failed to get Compute client: %w", err)
	}

	resp, err := svc.GetInstance(ctx, core.GetInstanceRequest{
		InstanceId: common.String(instanceID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get instance %s: %w", instanceID, Classify(err))
	}
	return resp.LifecycleState, nil
}

// ListInstances returns every non-terminated instance in the compartment.
func (g *OCI) ListInstances(ctx context.Context) ([]InstanceSummary, error) {
	svc, err := g.clients.GetComputeClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get Compute client: %w", err)
	}

	var instances []InstanceSummary
	var page *string
	for {
		resp, err := svc.ListInstances(ctx, core.ListInstancesRequest{
			CompartmentId: common.String(g.compartmentID),
			Page:          page,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list instances: %w", Classify(err))
		}
		for _, inst := range resp.Items {
			if inst.LifecycleState == core.InstanceLifecycleStateTerminated {
				continue
			}
			instances = append(instances, InstanceSummary{
				ID:                 derefString(inst.Id),
				DisplayName:        derefString(inst.DisplayName),
				AvailabilityDomain: derefString(inst.AvailabilityDomain),
			})
		}
		if resp.OpcNextPage == nil {
			break
		}
		page = resp.OpcNextPage
	}
	return instances, nil
}

// ListVnicAttachments returns the VNIC IDs attached to an instance.
func (g *OCI) ListVnicAttachments(ctx context.Context, instanceID string) ([]string, error) {
	svc, err := g.clients.GetComputeClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get Compute client: %w", err)
	}

	resp, err := svc.ListVnicAttachments(ctx, core.ListVnicAttachmentsRequest{
		CompartmentId: common.String(g.compartmentID),
		InstanceId:    common.String(instanceID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list VNIC attachments of %s: %w", instanceID, Classify(err))
	}

	var vnicIDs []string
	for _, attachment := range resp.Items {
		if attachment.VnicId != nil {
			vnicIDs = append(vnicIDs, *attachment.VnicId)
		}
	}
	return vnicIDs, nil
}

// GetVnic returns the addressing attributes of a VNIC.
func (g *OCI) GetVnic(ctx context.Context, vnicID string) (Vnic, error) {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return Vnic{}, fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	resp, err := vnet.GetVnic(ctx, core.GetVnicRequest{
		VnicId: common.String(vnicID),
	})
	if err != nil {
		return Vnic{}, fmt.Errorf("failed to get VNIC %s: %w", vnicID, Classify(err))
	}
	return Vnic{
		ID:            derefString(resp.Id),
		PublicIP:      derefString(resp.PublicIp),
		PrivateIP:     derefString(resp.PrivateIp),
		IPv6Addresses: resp.Ipv6Addresses,
	}, nil
}

// AssignIpv6 allocates an IPv6 address on a VNIC. Fails when the subnet
// carries no IPv6 block.
func (g *OCI) AssignIpv6(ctx context.Context, vnicID string) (string, error) {
	vnet, err := g.clients.GetVirtualNetworkClient()
	if err != nil {
		return "", fmt.Errorf("failed to get VirtualNetwork client: %w", err)
	}

	resp, err := vnet.CreateIpv6(ctx, core.CreateIpv6Request{
		CreateIpv6Details: core.CreateIpv6Details{
			VnicId: common.String(vnicID),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to assign IPv6 to VNIC %s: %w", vnicID, Classify(err))
	}
	return derefString(resp.IpAddress), nil
}

// ListImages returns every image of an operating system in the compartment,
// following pagination.
func (g *OCI) ListImages(ctx context.Context, operatingSystem string) ([]Image, error) {
	svc, err := g.clients.GetComputeClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get Compute client: %w", err)
	}

	var images []Image
	var page *string
	for {
		resp, err := svc.ListImages(ctx, core.ListImagesRequest{
			CompartmentId:   common.String(g.compartmentID),
			OperatingSystem: common.String(operatingSystem),
			Page:            page,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list images: %w", Classify(err))
		}
		for _, img := range resp.Items {
			image := Image{
				Ref:                    refFromSDK(KindImage, img.Id, img.DisplayName),
				OperatingSystemVersion: derefString(img.OperatingSystemVersion),
			}
			if img.TimeCreated != nil {
				image.TimeCreated = img.TimeCreated.Time
			}
			images = append(images, image)
		}
		if resp.OpcNextPage == nil {
			break
		}
		page = resp.OpcNextPage
	}
	return images, nil
}

// ListBootVolumeAttachments returns the boot volume IDs attached to an instance
// in one availability domain.
func (g *OCI) ListBootVolumeAttachments(ctx context.Context, availabilityDomain, instanceID string) ([]string, error) {
	svc, err := g.clients.GetComputeClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get Compute client: %w", err)
	}

	resp, err := svc.ListBootVolumeAttachments(ctx, core.ListBootVolumeAttachmentsRequest{
		AvailabilityDomain: common.String(availabilityDomain),
		CompartmentId:      common.String(g.compartmentID),
		InstanceId:         common.String(instanceID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list boot volume attachments of %s: %w", instanceID, Classify(err))
	}

	var volumeIDs []string
	for _, attachment := range resp.Items {
		if attachment.BootVolumeId != nil {
			volumeIDs = append(volumeIDs, *attachment.BootVolumeId)
		}
	}
	return volumeIDs, nil
}

// GetBootVolumeSize returns a boot volume's size in gigabytes.
func (g *OCI) GetBootVolumeSize(ctx context.Context, bootVolumeID string) (int64, error) {
	svc, err := g.clients.GetBlockstorageClient()
	if err != nil {
		return 0, fmt.Errorf("failed to get Blockstorage client: %w", err)
	}

	resp, err := svc.GetBootVolume(ctx, core.GetBootVolumeRequest{
		BootVolumeId: common.String(bootVolumeID),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get boot volume %s: %w", bootVolumeID, Classify(err))
	}
	if resp.SizeInGBs == nil {
		return 0, nil
	}
	return *resp.SizeInGBs, nil
}

// subnetIpv6Block derives the subnet's /64 block from the VCN's first IPv6
// prefix. OCI hands VCNs a /56; the subnet takes the first /64 of it.
func subnetIpv6Block(vcnBlocks []string) (string, bool) {
	if len(vcnBlocks) == 0 {
		return "", false
	}
	prefix, _, found := strings.Cut(vcnBlocks[0], "/")
	if !found || prefix == "" {
		return "", false
	}
	return prefix + "/64", true
}
