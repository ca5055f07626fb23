package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"investor-matching/internal/common/errors"
	"investor-matching/internal/common/retry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe gRPC client.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	Retry                  retry.Policy
}

// NewClient connects to the gateway and checks the topology, retrying transient failures.
func NewClient(ctx context.Context, config *ClientConfig) (*Client, error) {
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = 10 * time.Second
	}
	if config.Retry.MaxTries == 0 {
		config.Retry = retry.DefaultPolicy()
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: config}
	if err := retry.Run(ctx, config.Retry, c.HealthCheck); err != nil {
		zeebeClient.Close()
		return nil, err
	}
	return c, nil
}

// Zeebe returns the raw client for opening job workers.
func (c *Client) Zeebe() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck sends a topology request to the broker.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return mapZeebeError(err, "topology")
	}
	return nil
}

// mapZeebeError converts gateway errors into the shared taxonomy. Only connectivity problems become
// dependency errors, which retry.Run retries.
func mapZeebeError(err error, operation string) error {
	lower := strings.ToLower(err.Error())
	wrapped := fmt.Errorf("zeebe %s: %w", operation, err)

	switch {
	case isRetryableZeebeError(lower):
		return errors.NewDependencyError("zeebe", wrapped)
	case strings.Contains(lower, "not found"):
		return errors.NewNotFoundError("zeebe", wrapped.Error())
	case strings.Contains(lower, "permission denied"), strings.Contains(lower, "unauthenticated"):
		return errors.NewAuthenticationError(wrapped.Error())
	default:
		return wrapped
	}
}

func isRetryableZeebeError(msg string) bool {
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
