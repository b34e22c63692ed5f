package testutil

import (
	"context"
	"os"
	migrations "slotbook/internal/migrations/mongo"
	"slotbook/pkg/client"
	"slotbook/pkg/config"
	mongotx "slotbook/pkg/db/mongo"
	"slotbook/pkg/logger"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ConnectionTimeout = 10 * time.Second
	OperationTimeout  = 5 * time.Second
)

// MongoHelper gives a test its own migrated database on the server named by
// MONGO_URI. Tests using it are skipped when the variable is unset.
type MongoHelper struct {
	Client   *mongo.Client
	Database *mongo.Database
	DBName   string
}

// NewMongoHelper connects, runs the collection migrations and drops the
// database again when the test ends.
func NewMongoHelper(t *testing.T) *MongoHelper {
	t.Helper()

	mongoURI := os.Getenv(config.EnvMongoURI)
	if mongoURI == "" {
		t.Skipf("%s not set", config.EnvMongoURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetRegistry(mongotx.NewRegistry()))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	dbName := "slotbook_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	m := &MongoHelper{
		Client:   mongoClient,
		Database: mongoClient.Database(dbName),
		DBName:   dbName,
	}
	t.Cleanup(func() { m.close(t) })

	if err := migrations.RunMigration(ctx, m.Database, logger.Discard()); err != nil {
		t.Fatalf("failed to migrate %s: %v", dbName, err)
	}
	return m
}

func (m *MongoHelper) close(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), OperationTimeout)
	defer cancel()

	if err := m.Database.Drop(ctx); err != nil {
		t.Logf("warning: failed to drop %s: %v", m.DBName, err)
	}
	if err := m.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}

// Config returns what the mongo repositories read from the service config.
func (m *MongoHelper) Config() *config.Config {
	return &config.Config{
		Log:                  logger.Discard(),
		Client:               &client.Client{Mongo: m.Client},
		MongoDatabaseName:    m.DBName,
		ReadTimeout:          OperationTimeout,
		WriteTimeout:         OperationTimeout,
		BookingDayLockExpiry: config.DefaultBookingDayLockExpiry,
	}
}

// RequireTransactions skips the test on a standalone server, which cannot run
// multi-document transactions.
func (m *MongoHelper) RequireTransactions(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), OperationTimeout)
	defer cancel()

	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := m.Client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		t.Fatalf("failed to run hello: %v", err)
	}
	if hello.SetName == "" && hello.Msg != "isdbgrid" {
		t.Skip("MongoDB is standalone; transactions need a replica set")
	}
}

// CountDocuments returns the number of documents in collection matching filter.
func (m *MongoHelper) CountDocuments(t *testing.T, collection string, filter bson.M) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), OperationTimeout)
	defer cancel()

	count, err := m.Database.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		t.Fatalf("failed to count documents in %s: %v", collection, err)
	}
	return count
}

// Insert writes documents straight into collection, bypassing repositories.
func (m *MongoHelper) Insert(t *testing.T, collection string, docs ...any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), OperationTimeout)
	defer cancel()

	if _, err := m.Database.Collection(collection).InsertMany(ctx, docs); err != nil {
		t.Fatalf("failed to insert into %s: %v", collection, err)
	}
}
