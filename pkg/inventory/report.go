// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package inventory produces a read-only report of the compartment's
// instances and their network attributes. It never mutates anything.
package inventory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/kuke31/oci/pkg/gateway"
)

// API is the slice of the provider gateway the report depends on.
type API interface {
	ListInstances(ctx context.Context) ([]gateway.InstanceSummary, error)
	ListVnicAttachments(ctx context.Context, instanceID string) ([]string, error)
	GetVnic(ctx context.Context, vnicID string) (gateway.Vnic, error)
	ListBootVolumeAttachments(ctx context.Context, availabilityDomain, instanceID string) ([]string, error)
	GetBootVolumeSize(ctx context.Context, bootVolumeID string) (int64, error)
}

// Row is one instance in the report.
type Row struct {
	DisplayName string
	PublicIP    string
	PrivateIP   string
	IPv6        string
	BootSizeGBs int64
}

// Collect gathers one row per non-terminated instance. Lookup failures on a
// single instance's attributes leave those columns blank rather than failing
// the whole report.
func Collect(ctx context.Context, api API, log zerolog.Logger) ([]Row, error) {
	instances, err := api.ListInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	rows := make([]Row, 0, len(instances))
	for _, inst := range instances {
		row := Row{DisplayName: inst.DisplayName}

		if vnicIDs, err := api.ListVnicAttachments(ctx, inst.ID); err != nil {
			log.Warn().Err(err).Str("instance", inst.ID).Msg("failed to list VNIC attachments")
		} else if len(vnicIDs) > 0 {
			if vnic, err := api.GetVnic(ctx, vnicIDs[0]); err != nil {
				log.Warn().Err(err).Str("instance", inst.ID).Msg("failed to read VNIC")
			} else {
				row.PublicIP = vnic.PublicIP
				row.PrivateIP = vnic.PrivateIP
				if len(vnic.IPv6Addresses) > 0 {
					row.IPv6 = strings.Join(vnic.IPv6Addresses, ",")
				}
			}
		}

		if volumeIDs, err := api.ListBootVolumeAttachments(ctx, inst.AvailabilityDomain, inst.ID); err != nil {
			log.Warn().Err(err).Str("instance", inst.ID).Msg("failed to list boot volume attachments")
		} else if len(volumeIDs) > 0 {
			if size, err := api.GetBootVolumeSize(ctx, volumeIDs[0]); err != nil {
				log.Warn().Err(err).Str("instance", inst.ID).Msg("failed to read boot volume size")
			} else {
				row.BootSizeGBs = size
			}
		}

		rows = append(rows, row)
	}
	return rows, nil
}

// Render writes the rows as an aligned text table.
func Render(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPUBLIC IP\tPRIVATE IP\tIPV6\tBOOT (GB)")
	for _, row := range rows {
		boot := "-"
		if row.BootSizeGBs > 0 {
			boot = fmt.Sprintf("%d", row.BootSizeGBs)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			orDash(row.DisplayName), orDash(row.PublicIP), orDash(row.PrivateIP), orDash(row.IPv6), boot)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
