// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package notify delivers best-effort operator notifications. Delivery
// failures are logged and swallowed, never propagated.
package notify

import "context"

// MessageKind selects the rendering of a notification body.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindMarkdown MessageKind = "markdown"
)

// Notifier sends one notification. The return value reports delivery, for
// logging only; callers must not branch on it.
type Notifier interface {
	Notify(ctx context.Context, title, body string, kind MessageKind) bool
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(context.Context, string, string, MessageKind) bool { return false }
