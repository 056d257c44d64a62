// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package store persists resolved resource identifiers between runs.
//
// The store is a flat key/value record: a missing key means "unresolved",
// never "resolved to empty". Writers must not store empty values.
package store

// Well-known store keys.
const (
	KeyVcnID                  = "vcn_id"
	KeyVcnName                = "vcn_name"
	KeySubnetID               = "subnet_id"
	KeyInternetGatewayID      = "internet_gateway_id"
	KeyRouteTableID           = "route_table_id"
	KeyNsgID                  = "nsg_id"
	KeyAvailabilityDomain     = "availability_domain"
	KeySecurityListConfigured = "security_list_configured"
)

// ImageKey returns the store key caching the image OCID for an architecture.
func ImageKey(arch string) string {
	return arch + "_image"
}

// ImageNameKey returns the store key caching the image OS version for an architecture.
func ImageNameKey(arch string) string {
	return arch + "_name"
}

// Store is a durable flat key/value record of resolved identifiers.
type Store interface {
	// Get returns the stored value, or "" when the key is unresolved.
	Get(key string) string
	// Set records a non-empty value. Empty values are ignored so that a
	// write can never turn a resolved key back into an unresolved one.
	Set(key, value string)
	// Delete removes a key entirely.
	Delete(key string)
	// Flush persists pending changes.
	Flush() error
}
