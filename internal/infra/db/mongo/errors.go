package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"wanderlust/internal/domain/shared/failure"
)

// translate maps driver errors onto the failure kinds. notFound replaces
// mongo.ErrNoDocuments and duplicate replaces duplicate-key errors when set.
func translate(op string, err error, notFound, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments) && notFound != nil:
		return notFound
	case mongo.IsDuplicateKeyError(err) && duplicate != nil:
		return duplicate
	case mongo.IsTimeout(err), mongo.IsNetworkError(err),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, mongo.ErrClientDisconnected):
		return failure.Storage("mongo: "+op, err)
	default:
		return fmt.Errorf("mongo: %s: %w", op, err)
	}
}
