package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

const writeConflictCode = 112

// IsWriteConflict reports whether err comes from two transactions touching the
// same document, either as code 112 or the TransientTransactionError label.
func IsWriteConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrWriteConflict) {
		return true
	}

	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		if serverErr.HasErrorCode(writeConflictCode) || serverErr.HasErrorLabel("TransientTransactionError") {
			return true
		}
	}
	return false
}

func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
