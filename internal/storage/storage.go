// Package storage manages the local output directory of generated videos
// and optional publishing of finished videos to S3.
package storage

import (
	"context"
	"errors"
)

// ErrS3NotConfigured is returned when publishing is attempted
// without S3 configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// Publisher uploads a finished video and returns its public URL.
type Publisher interface {
	// Publish uploads the file at path under key.
	// Returns ErrS3NotConfigured if no remote storage is configured.
	Publish(ctx context.Context, key, path string) (url string, err error)
}
