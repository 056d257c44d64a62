// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package security

import (
	"context"
	"errors"
	"testing"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuke31/oci/pkg/gateway"
	"github.com/kuke31/oci/pkg/store"
	"github.com/kuke31/oci/pkg/topology"
)

type memStore struct {
	data map[string]string
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (s *memStore) Get(key string) string { return s.data[key] }
func (s *memStore) Set(key, value string) {
	if value != "" {
		s.data[key] = value
	}
}
func (s *memStore) Delete(key string) { delete(s.data, key) }
func (s *memStore) Flush() error      { return nil }

type fakeAPI struct {
	lists []gateway.SecurityList

	listCalls      int
	ingressWrites  map[string][]core.IngressSecurityRule
	egressWrites   map[string][]core.EgressSecurityRule
	failIngressFor string
}

func newFakeAPI(lists ...gateway.SecurityList) *fakeAPI {
	return &fakeAPI{
		lists:         lists,
		ingressWrites: map[string][]core.IngressSecurityRule{},
		egressWrites:  map[string][]core.EgressSecurityRule{},
	}
}

func (f *fakeAPI) ListSecurityLists(_ context.Context, _ string) ([]gateway.SecurityList, error) {
	f.listCalls++
	return f.lists, nil
}

func (f *fakeAPI) ReplaceIngressRules(_ context.Context, id string, rules []core.IngressSecurityRule) error {
	if id == f.failIngressFor {
		return errors.New("conflict")
	}
	f.ingressWrites[id] = rules
	return nil
}

func (f *fakeAPI) ReplaceEgressRules(_ context.Context, id string, rules []core.EgressSecurityRule) error {
	f.egressWrites[id] = rules
	return nil
}

func testTopology() topology.NetworkTopology {
	return topology.NetworkTopology{
		VCN: gateway.ResourceRef{Kind: gateway.KindVCN, ID: "vcn-1"},
	}
}

func foreignIngress() []core.IngressSecurityRule {
	return []core.IngressSecurityRule{{
		Source:   common.String("0.0.0.0/0"),
		Protocol: common.String("6"),
	}}
}

func TestConfigure_MarkerGuardSkipsAllCalls(t *testing.T) {
	api := newFakeAPI(gateway.SecurityList{ID: "sl-1", IngressRules: foreignIngress()})
	st := newMemStore()
	st.Set(store.KeySecurityListConfigured, "vcn-1")

	c := NewConfigurator(api, st, zerolog.Nop())
	require.NoError(t, c.Configure(context.Background(), testTopology()))
	assert.Zero(t, api.listCalls)
	assert.Empty(t, api.ingressWrites)
}

func TestConfigure_ClearsForeignIngressAndAddsEgress(t *testing.T) {
	api := newFakeAPI(gateway.SecurityList{ID: "sl-1", IngressRules: foreignIngress()})
	st := newMemStore()

	c := NewConfigurator(api, st, zerolog.Nop())
	require.NoError(t, c.Configure(context.Background(), testTopology()))

	assert.Empty(t, api.ingressWrites["sl-1"])
	assert.Contains(t, api.ingressWrites, "sl-1")

	egress := api.egressWrites["sl-1"]
	require.Len(t, egress, 2)
	assert.Equal(t, "0.0.0.0/0", *egress[0].Destination)
	assert.Equal(t, "::/0", *egress[1].Destination)
	assert.Equal(t, "all", *egress[0].Protocol)

	assert.Equal(t, "vcn-1", st.Get(store.KeySecurityListConfigured))
}

func TestConfigure_PreservesExistingEgress(t *testing.T) {
	existing := core.EgressSecurityRule{
		Destination: common.String("0.0.0.0/0"),
		Protocol:    common.String("all"),
	}
	api := newFakeAPI(gateway.SecurityList{ID: "sl-1", EgressRules: []core.EgressSecurityRule{existing}})
	st := newMemStore()

	c := NewConfigurator(api, st, zerolog.Nop())
	require.NoError(t, c.Configure(context.Background(), testTopology()))

	egress := api.egressWrites["sl-1"]
	require.Len(t, egress, 2)
	assert.Equal(t, "0.0.0.0/0", *egress[0].Destination)
	assert.Equal(t, "::/0", *egress[1].Destination)
}

func TestConfigure_AlreadyNormalizedListNeedsNoWrites(t *testing.T) {
	api := newFakeAPI(gateway.SecurityList{
		ID: "sl-1",
		EgressRules: []core.EgressSecurityRule{
			anyEgressRule("0.0.0.0/0"),
			anyEgressRule("::/0"),
		},
	})
	st := newMemStore()

	c := NewConfigurator(api, st, zerolog.Nop())
	require.NoError(t, c.Configure(context.Background(), testTopology()))

	assert.Empty(t, api.ingressWrites)
	assert.Empty(t, api.egressWrites)
	assert.Equal(t, "vcn-1", st.Get(store.KeySecurityListConfigured), "marker still written")
}

func TestConfigure_OneFailingListDoesNotAbortOthers(t *testing.T) {
	api := newFakeAPI(
		gateway.SecurityList{ID: "sl-bad", IngressRules: foreignIngress()},
		gateway.SecurityList{ID: "sl-good", IngressRules: foreignIngress()},
	)
	api.failIngressFor = "sl-bad"
	st := newMemStore()

	c := NewConfigurator(api, st, zerolog.Nop())
	require.NoError(t, c.Configure(context.Background(), testTopology()))

	assert.Contains(t, api.ingressWrites, "sl-good")
	assert.Equal(t, "vcn-1", st.Get(store.KeySecurityListConfigured))
}
