// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuke31/oci/pkg/acquire"
	"github.com/kuke31/oci/pkg/client"
	"github.com/kuke31/oci/pkg/config"
	"github.com/kuke31/oci/pkg/gateway"
	"github.com/kuke31/oci/pkg/image"
	"github.com/kuke31/oci/pkg/log"
	"github.com/kuke31/oci/pkg/notify"
	"github.com/kuke31/oci/pkg/security"
	"github.com/kuke31/oci/pkg/store"
	"github.com/kuke31/oci/pkg/topology"
)

var huntCmd = &cobra.Command{
	Use:   "hunt",
	Short: "Ensure the network topology, then loop launch attempts until capacity appears",
	RunE:  runHunt,
}

func runHunt(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	log.Init(log.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, region, err := buildGateway(cfg)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.StateFile)
	if err != nil {
		return err
	}

	reconciler := topology.NewReconciler(api, st, region, log.WithComponent("topology"))
	topo, err := reconciler.Ensure(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure network topology: %w", err)
	}

	topo, err = fillPlacement(ctx, api, st, topo)
	if err != nil {
		return err
	}

	nsgID, err := selectNSG(ctx, api, st, cfg, topo)
	if err != nil {
		return err
	}

	if cfg.ConfigureSecurityLists {
		configurator := security.NewConfigurator(api, st, log.WithComponent("security"))
		if err := configurator.Configure(ctx, topo); err != nil {
			log.Logger.Warn().Err(err).Msg("security posture configuration failed")
		}
	}

	img, err := image.NewResolver(api, st, log.WithComponent("image")).Resolve(ctx, cfg.Arch)
	if err != nil {
		return err
	}

	sshKey, err := os.ReadFile(cfg.SSHPublicKeyFile)
	if err != nil {
		return fmt.Errorf("failed to read SSH public key: %w", err)
	}

	policy, err := acquire.ParsePolicy(cfg.Interval)
	if err != nil {
		return err
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.DingTalk.Webhook != "" {
		notifier = notify.NewDingTalk(cfg.DingTalk.Webhook, cfg.DingTalk.Secret, log.WithComponent("notify"))
	}

	spec := gateway.LaunchSpec{
		AvailabilityDomain:  topo.AvailabilityDomain,
		Shape:               cfg.Shape().Name,
		ImageID:             img.Ref.ID,
		SubnetID:            topo.Subnet.ID,
		NSGID:               nsgID,
		BootVolumeSizeGBs:   cfg.BootVolumeGBs,
		BootVolumeVPUsPerGB: cfg.BootVolumeVPUs,
		SSHAuthorizedKeys:   strings.TrimSpace(string(sshKey)),
	}
	// Only flexible shapes take an explicit sizing; fixed shapes reject one.
	if strings.HasSuffix(spec.Shape, ".Flex") {
		spec.OCPUs, spec.MemoryGBs = cfg.Sizing()
	}

	engine := acquire.NewEngine(api, policy, notifier, log.WithComponent("acquire"))
	outcome := engine.Run(ctx, spec)

	switch outcome.Kind {
	case acquire.OutcomeSuccess:
		log.Logger.Info().Str("instance", outcome.Instance.ID).Msg("instance acquired")
		return nil
	case acquire.OutcomeInterrupted:
		log.Logger.Info().Msg("interrupted")
		return nil
	default:
		return fmt.Errorf("acquisition stopped: %s: %s", outcome.FatalReason, outcome.Detail)
	}
}

// buildGateway resolves authentication and returns the provider gateway plus
// the effective region.
func buildGateway(cfg *config.Config) (*gateway.OCI, string, error) {
	provider, err := cfg.Auth.ConfigurationProvider()
	if err != nil {
		return nil, "", fmt.Errorf("failed to build configuration provider: %w", err)
	}

	region := cfg.Auth.Region
	if region == "" {
		region, err = provider.Region()
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve region: %w", err)
		}
	}

	compartmentID := cfg.CompartmentID
	if compartmentID == "" {
		compartmentID, err = provider.TenancyOCID()
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve tenancy: %w", err)
		}
	}

	return gateway.New(client.NewClients(provider), compartmentID), region, nil
}

// fillPlacement fills availability domain and subnet left empty by a partial
// adoption. A topology without a subnet cannot host a launch at all.
func fillPlacement(ctx context.Context, api *gateway.OCI, st store.Store, topo topology.NetworkTopology) (topology.NetworkTopology, error) {
	if topo.AvailabilityDomain == "" {
		domains, err := api.ListAvailabilityDomains(ctx)
		if err != nil {
			return topo, err
		}
		if len(domains) == 0 {
			return topo, fmt.Errorf("no availability domain found")
		}
		topo.AvailabilityDomain = domains[0]
		st.Set(store.KeyAvailabilityDomain, domains[0])
	}

	if topo.Subnet.Empty() {
		subnets, err := api.ListSubnets(ctx, topo.VCN.ID)
		if err != nil {
			return topo, err
		}
		if len(subnets) == 0 {
			return topo, fmt.Errorf("VCN %s has no subnet to launch into", topo.VCN.ID)
		}
		topo.Subnet = subnets[0]
		st.Set(store.KeySubnetID, subnets[0].ID)
	}
	return topo, st.Flush()
}

// nsgAPI is the slice of the provider gateway NSG selection depends on.
type nsgAPI interface {
	ListNetworkSecurityGroups(ctx context.Context, vcnID string) ([]gateway.ResourceRef, error)
	CreateNetworkSecurityGroup(ctx context.Context, vcnID, displayName string) (gateway.ResourceRef, error)
	AddSSHIngressRules(ctx context.Context, nsgID string) error
}

// selectNSG picks the network security group for launched instances: the
// configured one, then the first NSG the VCN already has, then a freshly
// created one with the standard SSH ingress posture, named with the current
// epoch-millisecond timestamp like every NSG this tool creates.
func selectNSG(ctx context.Context, api nsgAPI, st store.Store, cfg *config.Config, topo topology.NetworkTopology) (string, error) {
	if cfg.NSGID != "" {
		st.Set(store.KeyNsgID, cfg.NSGID)
		return cfg.NSGID, st.Flush()
	}
	if !topo.NSG.Empty() {
		return topo.NSG.ID, nil
	}

	nsgs, err := api.ListNetworkSecurityGroups(ctx, topo.VCN.ID)
	if err != nil {
		return "", err
	}
	if len(nsgs) > 0 {
		st.Set(store.KeyNsgID, nsgs[0].ID)
		return nsgs[0].ID, st.Flush()
	}

	nsg, err := api.CreateNetworkSecurityGroup(ctx, topo.VCN.ID, strconv.FormatInt(time.Now().UnixMilli(), 10))
	if err != nil {
		return "", err
	}
	if err := api.AddSSHIngressRules(ctx, nsg.ID); err != nil {
		return "", err
	}
	log.Logger.Info().Str("nsg", nsg.ID).Msg("created default network security group")
	st.Set(store.KeyNsgID, nsg.ID)
	return nsg.ID, st.Flush()
}
