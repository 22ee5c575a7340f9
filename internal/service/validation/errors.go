package validation

import (
	"errors"
	"fmt"
)

// Sentinel errors for the validation service layer.
var (
	ErrBatchTooLarge = errors.New("batch too large")
)

// BatchTooLargeError names the cap a bulk request exceeded.
type BatchTooLargeError struct {
	Cap       int
	Requested int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("batch of %d addresses exceeds the limit of %d per request", e.Requested, e.Cap)
}

func (e *BatchTooLargeError) Unwrap() error { return ErrBatchTooLarge }
