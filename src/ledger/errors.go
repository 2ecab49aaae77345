package ledger

import "errors"

var (
	// Survey number has no block on the ledger
	ErrNotFound = errors.New("survey is not on the ledger")

	// Another writer modified the block between read and write.
	// Retryable from a fresh read.
	ErrConflict = errors.New("concurrent ledger write conflict")

	// A store call exceeded its deadline. Transient, callers retry
	// with backoff and never treat it as success.
	ErrStoreTimeout = errors.New("ledger store timed out")
)
