// Package storage keeps uploaded payment proofs in object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/mpp365/backend/internal/infrastructure/config"
)

// ErrEmptyKey is returned for operations on a blank object key
var ErrEmptyKey = errors.New("storage key is required")

// ObjectStore is the subset of object storage the application needs
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// PresignGet returns a time-limited download URL for key.
	PresignGet(ctx context.Context, key string) (string, time.Time, error)
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by cfg.Driver
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (ObjectStore, error) {
	switch cfg.Driver {
	case "s3":
		s, err := NewS3Store(ctx, cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "stub", "":
		logger.Warn("Using in-memory proof storage; uploads are lost on restart")
		return NewMemoryStore("", cfg.PresignExpiry), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
