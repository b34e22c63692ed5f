package errors

import "errors"

var (
	ErrCategoryNotFound = errors.New("category not found")

	ErrServiceNotFound = errors.New("service not found")

	ErrInvalidID = errors.New("invalid catalog ID format")

	ErrDuplicateCategory = errors.New("category already exists")
)
