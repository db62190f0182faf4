package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMediaURL is returned when the extraction capability succeeds but the
// result carries no directly fetchable URL.
var ErrNoMediaURL = errors.New("no resolvable media URL")

// ExtractionError wraps any failure of a platform's extraction capability.
type ExtractionError struct {
	Platform Platform
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction: %v", e.Platform, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TransferError reports a non-success transport status while fetching media.
type TransferError struct {
	Status int
	URL    string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed with status %d", e.Status)
}

// IsTooLarge reports whether a delivery error is the messaging surface
// rejecting an oversized payload. Telegram signals this as HTTP 413
// "Request Entity Too Large"; oversize is detected here rather than at fetch
// time, so the link-only fallback can take over.
func IsTooLarge(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Request Entity Too Large") || strings.Contains(msg, "413")
}
