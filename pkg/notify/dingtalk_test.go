// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDingTalk(t *testing.T, secret string, handler http.HandlerFunc) *DingTalk {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	d := NewDingTalk(srv.URL+"/robot/send?access_token=tok", secret, zerolog.Nop())
	d.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return d
}

func TestDingTalk_MarkdownDelivery(t *testing.T) {
	var got map[string]any
	d := newTestDingTalk(t, "SECabc", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	})

	ok := d.Notify(context.Background(), "instance acquired", "### running", KindMarkdown)
	assert.True(t, ok)
	assert.Equal(t, "markdown", got["msgtype"])
	md := got["markdown"].(map[string]any)
	assert.Equal(t, "instance acquired", md["title"])
	assert.Equal(t, "### running", md["text"])
}

func TestDingTalk_SignedRequestCarriesTimestampAndSignature(t *testing.T) {
	var query map[string][]string
	d := newTestDingTalk(t, "SECabc", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	})

	assert.True(t, d.Notify(context.Background(), "t", "b", KindText))
	assert.Equal(t, "1700000000000", query["timestamp"][0])
	assert.NotEmpty(t, query["sign"][0])
}

func TestDingTalk_RejectionIsReportedFalse(t *testing.T) {
	d := newTestDingTalk(t, "SECabc", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":310000,"errmsg":"sign not match"}`))
	})
	assert.False(t, d.Notify(context.Background(), "t", "b", KindText))
}

func TestDingTalk_TransportFailureIsReportedFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	d := NewDingTalk(srv.URL, "SECabc", zerolog.Nop())
	assert.False(t, d.Notify(context.Background(), "t", "b", KindText))
}

func TestDingTalk_MissingCredentialsSkipDelivery(t *testing.T) {
	var requests int
	handler := func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}

	d := newTestDingTalk(t, "", handler)
	assert.False(t, d.Notify(context.Background(), "t", "b", KindText))

	noWebhook := NewDingTalk("", "SECabc", zerolog.Nop())
	assert.False(t, noWebhook.Notify(context.Background(), "t", "b", KindText))

	assert.Zero(t, requests, "no network call without full credentials")
}

func TestNop(t *testing.T) {
	assert.False(t, Nop{}.Notify(context.Background(), "t", "b", KindText))
}
