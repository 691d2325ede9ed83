package util

import "github.com/google/uuid"

// NewID returns a random UUIDv4 string used to correlate the log lines of one run.
func NewID() string {
	return uuid.NewString()
}
