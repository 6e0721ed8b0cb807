// Package events defines the counter event topics and payloads and the
// publishers/subscribers that carry them over NATS.
package events

import (
	"context"

	"github.com/alfredjeanlab/suicounter/internal/model"
)

// Event topic constants
const (
	TopicPanelMounted = "counter.panel.mounted"
	TopicPanelEvicted = "counter.panel.evicted"

	// One topic per notification kind, so subscribers can filter with
	// "counter.op.*" or pick just failures.
	TopicOpSucceeded = "counter.op.succeeded"
	TopicOpWarned    = "counter.op.warned"
	TopicOpFailed    = "counter.op.failed"

	TopicWalletConnected    = "counter.wallet.connected"
	TopicWalletDisconnected = "counter.wallet.disconnected"

	// TopicAll matches every counter topic (NATS wildcard).
	TopicAll = "counter.>"
)

// TopicForNotification returns the operation topic for a notification kind.
func TopicForNotification(kind model.NotificationKind) string {
	switch kind {
	case model.KindSuccess:
		return TopicOpSucceeded
	case model.KindWarning:
		return TopicOpWarned
	}
	return TopicOpFailed
}

// Event types

type PanelMounted struct {
	PanelID string        `json:"panel_id"`
	Network model.Network `json:"network"`
	Counter model.Counter `json:"counter"`
}

type PanelEvicted struct {
	PanelID string `json:"panel_id"`
}

// OperationCompleted is emitted once per operation invocation, whatever the
// outcome. Counter is the state after the invocation.
type OperationCompleted struct {
	PanelID      string             `json:"panel_id"`
	Network      model.Network      `json:"network"`
	Address      string             `json:"address,omitempty"`
	Counter      model.Counter      `json:"counter"`
	Notification model.Notification `json:"notification"`
	DurationMS   int64              `json:"duration_ms"`
}

type WalletConnected struct {
	SessionID string `json:"session_id"`
	Address   string `json:"address"`
}

type WalletDisconnected struct {
	SessionID string `json:"session_id"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
