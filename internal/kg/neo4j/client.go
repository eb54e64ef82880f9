package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/helpdesk-assist/backend/pkg/logger"
)

// Client probes the graph store holding the ticket/CI relationship graph.
// The driver connects lazily, so construction succeeds even while the
// store is down and the health monitor reports it unavailable instead.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewClient(uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	logger.Info("Neo4j probe initialized", zap.String("uri", uri))

	return &Client{
		driver:   driver,
		database: database,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to probe graph store: %w", err)
	}
	return nil
}
