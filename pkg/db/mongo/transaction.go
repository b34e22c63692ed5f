package mongo

import (
	"context"
	"errors"
	"fmt"
	apperrors "slotbook/pkg/errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// TransactionFunc receives a context bound to the session; repositories must
// pass it through unchanged so their operations join the transaction.
type TransactionFunc func(ctx context.Context) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
	}
}

// ExecuteTransaction runs fn exactly once. A transient failure is not retried;
// write conflicts surface as ErrWriteConflict so callers can report a conflict.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	return mongo.WithSession(ctx, session, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(txnOpts); err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if err := fn(sc); err != nil {
			_ = sc.AbortTransaction(context.WithoutCancel(sc))
			return classify(err)
		}

		if err := sc.CommitTransaction(sc); err != nil {
			_ = sc.AbortTransaction(context.WithoutCancel(sc))
			return classify(err)
		}
		return nil
	})
}

func classify(err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	if IsWriteConflict(err) {
		return fmt.Errorf("%w: %v", ErrWriteConflict, err)
	}
	return fmt.Errorf("transaction failed: %w", err)
}

// InTransaction reports whether ctx already carries a session.
func InTransaction(ctx context.Context) bool {
	return mongo.SessionFromContext(ctx) != nil
}

var ErrWriteConflict = errors.New("write conflict")

// WithTimeout bounds ctx by timeout unless it is bound to a session, whose
// context must flow through unchanged to keep transaction semantics.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
