// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package client

import (
	"sync"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"
	"github.com/oracle/oci-go-sdk/v65/identity"
)

// Clients manages OCI service clients with lazy initialization
type Clients struct {
	provider common.ConfigurationProvider

	mu             sync.Mutex
	compute        *core.ComputeClient
	virtualNetwork *core.VirtualNetworkClient
	blockstorage   *core.BlockstorageClient
	identity       *identity.IdentityClient
}

// NewClients creates a new Clients instance with the given configuration provider
func NewClients(provider common.ConfigurationProvider) *Clients {
	return &Clients{provider: provider}
}

// GetComputeClient returns a cached or newly created ComputeClient
func (c *Clients) GetComputeClient() (*core.ComputeClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.compute == nil {
		client, err := core.NewComputeClientWithConfigurationProvider(c.provider)
		if err != nil {
			return nil, err
		}
		c.compute = &client
	}
	return c.compute, nil
}

// GetVirtualNetworkClient returns a cached or newly created VirtualNetworkClient
func (c *Clients) GetVirtualNetworkClient() (*core.VirtualNetworkClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.virtualNetwork == nil {
		client, err := core.NewVirtualNetworkClientWithConfigurationProvider(c.provider)
		if err != nil {
			return nil, err
		}
		c.virtualNetwork = &client
	}
	return c.virtualNetwork, nil
}

// GetBlockstorageClient returns a cached or newly created BlockstorageClient
func (c *Clients) GetBlockstorageClient() (*core.BlockstorageClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.blockstorage == nil {
		client, err := core.NewBlockstorageClientWithConfigurationProvider(c.provider)
		if err != nil {
			return nil, err
		}
		c.blockstorage = &client
	}
	return c.blockstorage, nil
}

// GetIdentityClient returns a cached or newly created IdentityClient
func (c *Clients) GetIdentityClient() (*identity.IdentityClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity == nil {
		client, err := identity.NewIdentityClientWithConfigurationProvider(c.provider)
		if err != nil {
			return nil, err
		}
		c.identity = &client
	}
	return c.identity, nil
}

// GetConfigurationProvider returns the underlying OCI ConfigurationProvider
func (c *Clients) GetConfigurationProvider() common.ConfigurationProvider {
	return c.provider
}
