package client

import (
	"context"
	"slotbook/pkg/db/mongo"
	"slotbook/pkg/db/postgres"
	"slotbook/pkg/logger"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Client struct {
	Mongo    *mongodriver.Client
	Postgres postgres.PgxIface
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(mongoURI).
		SetRegistry(mongo.NewRegistry())

	client, err := mongodriver.Connect(ctx, opts)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB", "error", err)
	}

	log.Info("Successfully connected to MongoDB")
	c.Mongo = client
}

func (c *Client) SetPostgres(log *logger.Logger, dsn string, maxConns int, connTimeout time.Duration) {
	db, err := postgres.Open(context.Background(), dsn, maxConns, connTimeout)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", "error", err)
	}

	log.Info("Successfully connected to PostgreSQL", "max_conns", maxConns)
	c.Postgres = db
}

// GracefulShutdown closes every connection that was opened.
func (c *Client) GracefulShutdown(log *logger.Logger) {
	if c.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Error("Error disconnecting from MongoDB", "error", err)
		} else {
			log.Info("Disconnected from MongoDB")
		}
	}
	if c.Postgres != nil {
		c.Postgres.Close()
		log.Info("Closed PostgreSQL pool")
	}
}
