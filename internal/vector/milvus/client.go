package milvus

import (
	"context"
	"fmt"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"go.uber.org/zap"

	"github.com/helpdesk-assist/backend/pkg/logger"
)

// Client is a thin availability probe for the vector store. Retrieval
// itself happens behind the external retrieval+generation service; this
// service only needs to know whether the store is reachable.
type Client struct {
	endpoint       string
	collectionName string

	mu   sync.Mutex
	conn client.Client
}

func NewClient(endpoint, collectionName string) *Client {
	logger.Info("Milvus probe initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		endpoint:       endpoint,
		collectionName: collectionName,
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Ping dials lazily and checks that the collection metadata is readable.
// A failed probe drops the connection so the next probe redials.
func (c *Client) Ping(ctx context.Context) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}

	if _, err := conn.HasCollection(ctx, c.collectionName); err != nil {
		c.drop()
		return fmt.Errorf("failed to probe vector store: %w", err)
	}

	return nil
}

func (c *Client) connect(ctx context.Context) (client.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	conn, err := client.NewGrpcClient(ctx, c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	c.conn = conn
	return conn, nil
}

func (c *Client) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
