// Package mongostore implements the event and joined-event repositories on
// MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/social-events/internal/config"
	"github.com/Togather-Foundation/social-events/internal/domain/events"
	"github.com/Togather-Foundation/social-events/internal/domain/joined"
	"github.com/Togather-Foundation/social-events/internal/metrics"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultConnectTimeout = 10 * time.Second

// Client owns the driver connection pool and hands out repositories bound
// to the configured database.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	events *EventRepository
	joined *JoinedRepository
}

// Connect opens the pool and pings the deployment. It fails when the store
// is unreachable within the configured connect timeout.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*Client, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)

	opts := options.Client().
		ApplyURI(cfg.ConnectionURI()).
		SetServerAPIOptions(serverAPI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
		opts.SetPoolMonitor(metrics.PoolMonitor(uint64(cfg.MaxPoolSize)))
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := ping(pingCtx, client); err != nil {
		disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelDisconnect()
		_ = client.Disconnect(disconnectCtx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return newClient(client, cfg), nil
}

func newClient(client *mongo.Client, cfg config.DatabaseConfig) *Client {
	db := client.Database(cfg.Name)
	return &Client{
		client: client,
		db:     db,
		events: NewEventRepository(db.Collection(cfg.EventsCollection)),
		joined: NewJoinedRepository(db.Collection(cfg.JoinedCollection)),
	}
}

func (c *Client) Events() events.Repository { return c.events }

func (c *Client) Joined() joined.Repository { return c.joined }

// Ping runs the admin ping command.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("mongo client is not connected")
	}
	return ping(ctx, c.client)
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}

func ping(ctx context.Context, client *mongo.Client) (err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("admin", "ping", start, err) }()

	return client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}
