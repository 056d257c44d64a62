// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/oracle/oci-go-sdk/v65/common"
	"gopkg.in/yaml.v3"
)

// Auth selects how the OCI ConfigurationProvider is built. All fields are
// optional; empty values fall back to the SDK's default config file lookup.
type Auth struct {
	Region         string `yaml:"region"`
	Profile        string `yaml:"profile"`
	ConfigFilePath string `yaml:"config_file_path"`
}

// ConfigurationProvider creates an OCI ConfigurationProvider from the auth settings
func (a *Auth) ConfigurationProvider() (common.ConfigurationProvider, error) {
	if a.ConfigFilePath == "" && a.Profile == "" {
		return common.DefaultConfigProvider(), nil
	}

	if a.ConfigFilePath != "" && a.Profile == "" {
		return common.ConfigurationProviderFromFile(a.ConfigFilePath, "")
	}

	if a.ConfigFilePath == "" {
		return common.CustomProfileConfigProvider("", a.Profile), nil
	}

	return common.ConfigurationProviderFromFileWithProfile(a.ConfigFilePath, a.Profile, "")
}

// DingTalk holds webhook credentials for the notification sink.
type DingTalk struct {
	Webhook string `yaml:"webhook"`
	Secret  string `yaml:"secret"`
}

// Config is the static tool configuration. Dynamic resource identifiers live
// in the topology store, never here.
type Config struct {
	Auth          Auth   `yaml:"auth"`
	CompartmentID string `yaml:"compartment_id"`

	Arch           string `yaml:"arch" validate:"oneof=arm amd"`
	OCPUs          int    `yaml:"ocpus" validate:"min=0"`
	MemoryGBs      int    `yaml:"memory_gbs" validate:"min=0"`
	BootVolumeGBs  int64  `yaml:"boot_volume_gbs" validate:"min=50,max=200"`
	BootVolumeVPUs int64  `yaml:"boot_volume_vpus" validate:"min=10,max=120"`

	// Interval is "N" or "N-M" seconds between attempts, N >= 10.
	Interval string `yaml:"interval" validate:"required"`

	SSHPublicKeyFile       string `yaml:"ssh_public_key_file" validate:"required"`
	StateFile              string `yaml:"state_file" validate:"required"`
	NSGID                  string `yaml:"nsg_id"`
	ConfigureSecurityLists bool   `yaml:"configure_security_lists"`

	DingTalk DingTalk `yaml:"dingtalk"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Shape describes a launchable instance shape and its sizing bounds.
type Shape struct {
	Name             string
	MinOCPUs         int
	MaxOCPUs         int
	MinMemoryGBs     int
	MaxMemoryGBs     int
	DefaultOCPUs     int
	DefaultMemoryGBs int
}

var shapes = map[string]Shape{
	"arm": {
		Name:             "VM.Standard.A1.Flex",
		MinOCPUs:         1,
		MaxOCPUs:         4,
		MinMemoryGBs:     1,
		MaxMemoryGBs:     24,
		DefaultOCPUs:     1,
		DefaultMemoryGBs: 6,
	},
	"amd": {
		Name:             "VM.Standard.E2.1.Micro",
		MinOCPUs:         1,
		MaxOCPUs:         1,
		MinMemoryGBs:     1,
		MaxMemoryGBs:     1,
		DefaultOCPUs:     1,
		DefaultMemoryGBs: 1,
	},
}

// ShapeFor returns the shape catalog entry for an architecture.
func ShapeFor(arch string) (Shape, bool) {
	s, ok := shapes[arch]
	return s, ok
}

// Shape returns the catalog entry for the configured architecture.
func (c *Config) Shape() Shape {
	return shapes[c.Arch]
}

// Sizing returns the requested OCPU count and memory clamped to the shape's
// bounds, substituting shape defaults for unset values.
func (c *Config) Sizing() (ocpus, memoryGBs int) {
	s := c.Shape()
	ocpus = c.OCPUs
	if ocpus == 0 {
		ocpus = s.DefaultOCPUs
	}
	memoryGBs = c.MemoryGBs
	if memoryGBs == 0 {
		memoryGBs = s.DefaultMemoryGBs
	}
	return clamp(ocpus, s.MinOCPUs, s.MaxOCPUs), clamp(memoryGBs, s.MinMemoryGBs, s.MaxMemoryGBs)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Load reads, defaults, and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Arch == "" {
		c.Arch = "arm"
	}
	if c.BootVolumeGBs == 0 {
		c.BootVolumeGBs = 50
	}
	if c.BootVolumeVPUs == 0 {
		c.BootVolumeVPUs = 120
	}
	if c.Interval == "" {
		c.Interval = "60"
	}
	if c.StateFile == "" {
		c.StateFile = "hunter.state"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
