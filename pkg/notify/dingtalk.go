// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// DingTalk posts notifications to a DingTalk group robot webhook, signing
// each request when a secret is configured.
type DingTalk struct {
	webhook string
	secret  string
	client  *http.Client
	log     zerolog.Logger

	// now is swapped in tests to pin the signature timestamp.
	now func() time.Time
}

var _ Notifier = (*DingTalk)(nil)

// NewDingTalk returns a notifier for the given webhook URL and signing
// secret. A notifier missing either credential silently drops every message.
func NewDingTalk(webhook, secret string, log zerolog.Logger) *DingTalk {
	return &DingTalk{
		webhook: webhook,
		secret:  secret,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
		now:     time.Now,
	}
}

type dingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Notify posts one message. Always best-effort: any failure is logged and
// reported as false. Incomplete credentials short-circuit without a network
// call.
func (d *DingTalk) Notify(ctx context.Context, title, body string, kind MessageKind) bool {
	if d.webhook == "" || d.secret == "" {
		d.log.Debug().Msg("notification skipped, webhook or secret not configured")
		return false
	}

	payload, err := buildPayload(title, body, kind)
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to build notification payload")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.signedURL(), bytes.NewReader(payload))
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to build notification request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to deliver notification")
		return false
	}
	defer resp.Body.Close()

	var result dingTalkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		d.log.Warn().Err(err).Msg("failed to decode notification response")
		return false
	}
	if result.ErrCode != 0 {
		d.log.Warn().Int("errcode", result.ErrCode).Str("errmsg", result.ErrMsg).Msg("notification rejected")
		return false
	}
	return true
}

// signedURL appends the timestamp and HMAC-SHA256 signature DingTalk expects
// on every robot request.
func (d *DingTalk) signedURL() string {
	timestamp := d.now().UnixMilli()
	mac := hmac.New(sha256.New, []byte(d.secret))
	fmt.Fprintf(mac, "%d\n%s", timestamp, d.secret)
	sign := url.QueryEscape(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	return fmt.Sprintf("%s&timestamp=%d&sign=%s", d.webhook, timestamp, sign)
}

func buildPayload(title, body string, kind MessageKind) ([]byte, error) {
	switch kind {
	case KindMarkdown:
		return json.Marshal(map[string]any{
			"msgtype": "markdown",
			"markdown": map[string]string{
				"title": title,
				"text":  body,
			},
		})
	default:
		return json.Marshal(map[string]any{
			"msgtype": "text",
			"text": map[string]string{
				"content": title + "\n" + body,
			},
		})
	}
}
