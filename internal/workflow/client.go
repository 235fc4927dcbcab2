// Package workflow holds the client for the external workflow engine.
// The engine is consumed only through its health and identity contract;
// workflow execution itself is driven elsewhere.
package workflow

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/gantryio/gantry/internal/config"
)

// Client is a thin wrapper over the engine's gRPC endpoint.
type Client struct {
	conn      *grpc.ClientConn
	health    healthpb.HealthClient
	target    string
	namespace string
	taskQueue string
}

// Dial creates a client for the configured engine endpoint. The connection
// is established lazily; reachability is verified by HealthCheck.
func Dial(cfg config.Workflow) (*Client, error) {
	conn, err := grpc.NewClient(cfg.Target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial workflow engine %s: %w", cfg.Target, err)
	}
	return NewFromConn(conn, cfg), nil
}

// NewFromConn wraps an existing connection.
func NewFromConn(conn *grpc.ClientConn, cfg config.Workflow) *Client {
	return &Client{
		conn:      conn,
		health:    healthpb.NewHealthClient(conn),
		target:    cfg.Target,
		namespace: cfg.Namespace,
		taskQueue: cfg.TaskQueue,
	}
}

// HealthCheck queries the standard gRPC health service and fails unless the
// engine reports SERVING.
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("workflow engine health check: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("workflow engine health check: status %s", resp.GetStatus())
	}
	return nil
}

// Target returns the engine endpoint address.
func (c *Client) Target() string { return c.target }

// Namespace returns the configured engine namespace.
func (c *Client) Namespace() string { return c.namespace }

// TaskQueue returns the queue this service submits work to.
func (c *Client) TaskQueue() string { return c.taskQueue }

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
