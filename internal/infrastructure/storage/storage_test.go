package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mpp365/backend/internal/infrastructure/config"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("https://files.test", time.Minute)

	t.Run("put and presign", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "payment-proofs/t1/r1.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf"))

		obj, ok := store.Get("payment-proofs/t1/r1.pdf")
		require.True(t, ok)
		assert.Equal(t, "application/pdf", obj.ContentType)
		assert.Equal(t, "%PDF-1.4", string(obj.Data))

		u, exp, err := store.PresignGet(ctx, "payment-proofs/t1/r1.pdf")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(u, "https://files.test/payment-proofs%2Ft1%2Fr1.pdf?expires="))
		assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)
	})

	t.Run("size mismatch", func(t *testing.T) {
		err := store.Put(ctx, "k", strings.NewReader("abc"), 10, "text/plain")
		assert.Error(t, err)
	})

	t.Run("empty key", func(t *testing.T) {
		assert.ErrorIs(t, store.Put(ctx, "", strings.NewReader(""), 0, ""), ErrEmptyKey)
		_, _, err := store.PresignGet(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyKey)
		assert.ErrorIs(t, store.Delete(ctx, ""), ErrEmptyKey)
	})

	t.Run("delete then presign fails", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "gone", strings.NewReader("x"), 1, "text/plain"))
		require.NoError(t, store.Delete(ctx, "gone"))
		_, _, err := store.PresignGet(ctx, "gone")
		assert.Error(t, err)
	})
}

func TestNewS3Store(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config", func(t *testing.T) {
		_, err := NewS3Store(ctx, nil)
		assert.ErrorContains(t, err, "configuration is required")
	})

	t.Run("missing bucket", func(t *testing.T) {
		_, err := NewS3Store(ctx, &config.StorageConfig{Region: "us-east-1"})
		assert.ErrorContains(t, err, "bucket is required")
	})

	t.Run("half credentials", func(t *testing.T) {
		_, err := NewS3Store(ctx, &config.StorageConfig{Bucket: "b", Region: "us-east-1", AccessKeyID: "id"})
		assert.ErrorContains(t, err, "set together")
	})

	t.Run("presign works offline", func(t *testing.T) {
		s, err := NewS3Store(ctx, &config.StorageConfig{
			Bucket:          "proofs",
			Region:          "us-east-1",
			Endpoint:        "http://localhost:9000",
			AccessKeyID:     "minio",
			SecretAccessKey: "minio-secret",
			UsePathStyle:    true,
		}, WithPresignExpiry(5*time.Minute), WithLogger(zap.NewNop()))
		require.NoError(t, err)
		assert.Equal(t, "proofs", s.Bucket())

		u, exp, err := s.PresignGet(ctx, "payment-proofs/a/b.png")
		require.NoError(t, err)
		assert.Contains(t, u, "http://localhost:9000/proofs/payment-proofs/a/b.png")
		assert.Contains(t, u, "X-Amz-Expires=300")
		assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

		_, _, err = s.PresignGet(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyKey)
	})
}

func TestNew(t *testing.T) {
	t.Run("stub driver", func(t *testing.T) {
		s, err := New(context.Background(), &config.StorageConfig{Driver: "stub"}, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, s)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := New(context.Background(), &config.StorageConfig{Driver: "ftp"}, zap.NewNop())
		assert.Error(t, err)
	})
}
