// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package image resolves the boot image for an architecture, caching the
// result so repeated runs skip the image catalog listing.
package image

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kuke31/oci/pkg/gateway"
	"github.com/kuke31/oci/pkg/store"
)

const (
	operatingSystem   = "Canonical Ubuntu"
	displayNameFilter = "Canonical-Ubuntu-22.04-Minimal"
	armVersionMarker  = "aarch64"
)

// API is the slice of the provider gateway the resolver depends on.
type API interface {
	ListImages(ctx context.Context, operatingSystem string) ([]gateway.Image, error)
}

// Resolver picks the newest minimal Ubuntu image matching an architecture.
type Resolver struct {
	api   API
	store store.Store
	log   zerolog.Logger
}

// NewResolver returns a resolver caching into st.
func NewResolver(api API, st store.Store, log zerolog.Logger) *Resolver {
	return &Resolver{api: api, store: st, log: log}
}

// Resolve returns the image for arch ("arm" or "amd"), preferring the cached
// identifier and otherwise scanning the image catalog for the newest match.
func (r *Resolver) Resolve(ctx context.Context, arch string) (gateway.Image, error) {
	if cached := r.store.Get(store.ImageKey(arch)); cached != "" {
		r.log.Debug().Str("arch", arch).Str("image", cached).Msg("using cached image")
		return gateway.Image{
			Ref:                    gateway.ResourceRef{Kind: gateway.KindImage, ID: cached},
			OperatingSystemVersion: r.store.Get(store.ImageNameKey(arch)),
		}, nil
	}

	images, err := r.api.ListImages(ctx, operatingSystem)
	if err != nil {
		return gateway.Image{}, fmt.Errorf("failed to list %s images: %w", operatingSystem, err)
	}

	best, found := newestMatch(images, arch)
	if !found {
		return gateway.Image{}, fmt.Errorf("no %s image found for architecture %s", displayNameFilter, arch)
	}
	r.log.Info().Str("arch", arch).Str("image", best.Ref.DisplayName).Msg("resolved boot image")

	r.store.Set(store.ImageKey(arch), best.Ref.ID)
	r.store.Set(store.ImageNameKey(arch), best.OperatingSystemVersion)
	if err := r.store.Flush(); err != nil {
		return gateway.Image{}, fmt.Errorf("failed to persist resolved image: %w", err)
	}
	return best, nil
}

// newestMatch filters the catalog down to minimal Ubuntu builds of the wanted
// architecture and picks the most recently created one.
func newestMatch(images []gateway.Image, arch string) (gateway.Image, bool) {
	var best gateway.Image
	var found bool
	for _, img := range images {
		if !strings.Contains(img.Ref.DisplayName, displayNameFilter) {
			continue
		}
		isArm := strings.Contains(img.OperatingSystemVersion, armVersionMarker)
		if (arch == "arm") != isArm {
			continue
		}
		if !found || img.TimeCreated.After(best.TimeCreated) {
			best = img
			found = true
		}
	}
	return best, found
}
