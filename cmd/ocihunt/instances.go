// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kuke31/oci/pkg/config"
	"github.com/kuke31/oci/pkg/inventory"
	"github.com/kuke31/oci/pkg/log"
)

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "List existing instances and their network attributes",
	RunE:  runInstances,
}

func runInstances(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	log.Init(log.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, _, err := buildGateway(cfg)
	if err != nil {
		return err
	}

	rows, err := inventory.Collect(ctx, api, log.WithComponent("inventory"))
	if err != nil {
		return err
	}
	return inventory.Render(os.Stdout, rows)
}
