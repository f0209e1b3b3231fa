// Package neo4j provides the graph store adapter backed by Neo4j.
//
// Every operation is routed through a retry wrapper that verifies
// the connection before each attempt, backs off exponentially on
// transient failures and re-establishes the connection between
// attempts. Non-transient errors propagate immediately.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
	"github.com/lorekeep/lorekeep-cli/internal/logger"
)

// Default retry configuration.
const (
	DefaultMaxRetryAttempts = 3
	DefaultRetryBaseDelay   = time.Second
)

// Config holds connection settings for the graph database.
type Config struct {
	// URI is the bolt/neo4j connection URI.
	URI string

	// Username is the database username.
	Username string

	// Password is the database password.
	Password string

	// Database is the target database name, empty for the default.
	Database string

	// MaxRetryAttempts bounds tries of a transient-failing operation.
	// An exhausted operation performs MaxRetryAttempts tries with
	// MaxRetryAttempts-1 backoff waits between them.
	MaxRetryAttempts int

	// RetryBaseDelay is the base of the exponential backoff. The wait
	// after failed attempt n (zero-based) is RetryBaseDelay * 2^n.
	RetryBaseDelay time.Duration
}

// Client wraps a Neo4j driver with transient-failure retry and
// automatic reconnection.
type Client struct {
	cfg Config

	mu     sync.RWMutex
	driver neo4j.DriverWithContext

	// Seams below default to the real driver calls and are replaced
	// in tests.
	dial        func(ctx context.Context) (neo4j.DriverWithContext, error)
	verify      func(ctx context.Context) error
	sleep       func(ctx context.Context, d time.Duration) error
	isTransient func(err error) bool
}

// Connect establishes the initial connection. A failure here is
// fatal and not retried, it means the system could never start
// rather than started and then degraded.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	c := newClient(cfg)

	logger.Info("Connecting to Neo4j at %s as %s (password %s)",
		cfg.URI, cfg.Username, maskSecret(cfg.Password))

	driver, err := c.dial(ctx)
	if err != nil {
		return nil, errors.Join(domain.ErrGraphUnavailable, err)
	}
	c.driver = driver

	if err := c.verify(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, errors.Join(domain.ErrGraphUnavailable, err)
	}
	return c, nil
}

func newClient(cfg Config) *Client {
	if cfg.MaxRetryAttempts <= 0 {
		cfg.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}

	c := &Client{cfg: cfg}
	c.dial = func(ctx context.Context) (neo4j.DriverWithContext, error) {
		return neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	}
	c.verify = func(ctx context.Context) error {
		c.mu.RLock()
		driver := c.driver
		c.mu.RUnlock()
		if driver == nil {
			return domain.ErrGraphUnavailable
		}
		return driver.VerifyConnectivity(ctx)
	}
	c.sleep = sleepContext
	c.isTransient = isTransientError
	return c
}

// invoke runs op with retry. It verifies the connection before every
// attempt, reconnecting when the check fails. A transient failure
// waits RetryBaseDelay * 2^attempt, reconnects and retries; after
// MaxRetryAttempts tries the last transient error is returned
// unchanged. Non-transient errors return immediately.
func (c *Client) invoke(ctx context.Context, name string, op func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetryAttempts; attempt++ {
		if err := c.verify(ctx); err != nil {
			logger.Warn("%s: connection check failed, reconnecting: %v", name, err)
			if rerr := c.reconnect(ctx); rerr != nil {
				logger.Warn("%s: reconnect failed: %v", name, rerr)
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if !c.isTransient(err) {
			return err
		}
		lastErr = err

		if attempt == c.cfg.MaxRetryAttempts-1 {
			break
		}

		delay := c.cfg.RetryBaseDelay * (1 << attempt)
		logger.Warn("%s failed (attempt %d/%d), retrying in %s: %v",
			name, attempt+1, c.cfg.MaxRetryAttempts, delay, err)
		if serr := c.sleep(ctx, delay); serr != nil {
			return serr
		}
		if rerr := c.reconnect(ctx); rerr != nil {
			logger.Warn("%s: reconnect failed: %v", name, rerr)
		}
	}
	return lastErr
}

// reconnect tears down the current driver and dials a fresh one.
func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.driver != nil {
		_ = c.driver.Close(ctx)
		c.driver = nil
	}

	driver, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.driver = driver
	return nil
}

// session opens a session against the current driver. The driver can
// be nil when a reconnect failed to dial, so callers get an error
// instead of a panic.
func (c *Client) session(ctx context.Context, mode neo4j.AccessMode) (neo4j.SessionWithContext, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.driver == nil {
		return nil, fmt.Errorf("open session: %w", domain.ErrGraphUnavailable)
	}
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.cfg.Database,
	}), nil
}

// Ping verifies connectivity to the graph database.
func (c *Client) Ping(ctx context.Context) error {
	return c.verify(ctx)
}

// Close releases the connection.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.driver == nil {
		return nil
	}
	err := c.driver.Close(ctx)
	c.driver = nil
	return err
}

// isTransientError reports whether err is worth retrying: a dropped
// connection, an expired session or a server-side transient failure.
func isTransientError(err error) bool {
	if neo4j.IsConnectivityError(err) {
		return true
	}
	var neoErr *db.Neo4jError
	if errors.As(err, &neoErr) {
		return neoErr.IsRetriable()
	}
	return false
}

// sleepContext waits for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// maskSecret hides a credential for log output, keeping the first
// and last two characters of longer values.
func maskSecret(secret string) string {
	if len(secret) <= 4 {
		return "***"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}
