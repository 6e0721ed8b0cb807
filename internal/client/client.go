// Package client provides a transport-agnostic interface for the counter
// service and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/model"
	"github.com/alfredjeanlab/suicounter/internal/panel"
)

// CounterClient is the interface the counter CLI commands use to talk to
// the server.
type CounterClient interface {
	// Panels
	MountPanel(ctx context.Context, network model.Network) (*panel.Snapshot, error)
	GetPanel(ctx context.Context, id string) (*panel.Snapshot, error)
	ListPanels(ctx context.Context) ([]panel.Snapshot, error)
	RunOperation(ctx context.Context, panelID string, op model.Operation) (*OperationResult, error)

	// Wallet
	ConnectWallet(ctx context.Context) (*model.WalletSession, error)
	GetWallet(ctx context.Context) (*model.WalletSession, error)
	DisconnectWallet(ctx context.Context) error

	// Networks
	ListNetworks(ctx context.Context) (*NetworksResponse, error)

	// Events
	GetEvents(ctx context.Context, req *GetEventsRequest) ([]*model.Event, error)
	StreamEvents(ctx context.Context, req *StreamRequest, fn func(StreamEvent) error) error

	// Health
	Health(ctx context.Context) (*HealthResponse, error)

	// Lifecycle
	Close() error
}

// OperationResult is the response from RunOperation.
type OperationResult struct {
	Panel        panel.Snapshot     `json:"panel"`
	Notification model.Notification `json:"notification"`
}

// NetworkEntry pairs a network with the package id panels mount with.
type NetworkEntry struct {
	Network   model.Network `json:"network"`
	PackageID string        `json:"package_id"`
}

// NetworksResponse is the response from ListNetworks.
type NetworksResponse struct {
	Networks []NetworkEntry `json:"networks"`
	Default  model.Network  `json:"default"`
}

// GetEventsRequest holds parameters for reading a panel's journal.
type GetEventsRequest struct {
	PanelID string
	Topic   string
	Since   time.Time
	Limit   int
}

// StreamRequest selects events on the live stream. Empty fields match all.
type StreamRequest struct {
	Topics      []string
	PanelID     string
	LastEventID string
}

// StreamEvent is one server-sent event.
type StreamEvent struct {
	ID    string
	Topic string
	Data  []byte
}

// HealthResponse is the response from Health.
type HealthResponse struct {
	Status     string `json:"status"`
	Panels     int    `json:"panels"`
	SSEClients int    `json:"sse_clients"`
}
