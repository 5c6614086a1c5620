package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/knothq/mailgraph/internal/util"
)

// Client wraps a Neo4j driver together with the target database name. It is
// created at process start, injected where needed, and released with Close.
type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
}

// NewClientParams configures a Client. URI is required; User defaults to
// "neo4j" and Database to the server default when empty.
type NewClientParams struct {
	URI      string
	User     string
	Password string
	Database string

	ConnectTimeout time.Duration
}

// NewClient connects to Neo4j and verifies connectivity before returning.
func NewClient(ctx context.Context, params NewClientParams) (*Client, error) {
	if params.URI == "" {
		return nil, fmt.Errorf("neo4j: URI required")
	}

	user := params.User
	if user == "" {
		user = "neo4j"
	}
	timeout := params.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	auth := neo4j.BasicAuth(user, params.Password, "")
	driver, err := neo4j.NewDriverWithContext(params.URI, auth, func(cfg *neo4j.Config) {
		cfg.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	return &Client{
		Driver:   driver,
		Database: params.Database,
	}, nil
}

// NewClientFromEnv connects using the NEO4J_* environment variables.
func NewClientFromEnv(ctx context.Context) (*Client, error) {
	return NewClient(ctx, NewClientParams{
		URI:      util.GetEnvString("NEO4J_URI", "neo4j://localhost:7687"),
		User:     util.GetEnvString("NEO4J_USERNAME", "neo4j"),
		Password: util.GetEnv("NEO4J_PASSWORD"),
		Database: util.GetEnv("NEO4J_DATABASE"),

		ConnectTimeout: time.Duration(util.GetEnvNumeric("NEO4J_TIMEOUT_SECONDS", 10)) * time.Second,
	})
}

// Close releases the driver. Safe to call on a nil client.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
