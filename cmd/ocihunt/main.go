// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ocihunt",
	Short: "Acquire scarce OCI compute capacity",
	Long: `ocihunt repeatedly attempts to launch an OCI compute instance until
capacity appears, backing off with a jittered interval between attempts.

Before the first attempt it ensures the prerequisite network topology
(VCN, subnet, internet gateway, route table, NSG) exists, reusing what
the compartment already has and creating only what is missing.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("ocihunt version %s (%s)\n", Version, Commit))
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "path to the configuration file")
	rootCmd.AddCommand(huntCmd)
	rootCmd.AddCommand(instancesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
