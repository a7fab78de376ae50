package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/upb/entitybus/repositories"
	"go.uber.org/zap"
)

var blobLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "entitybus_blob_store_duration_seconds",
	Help:    "Latency of blob store operations",
	Buckets: prometheus.DefBuckets,
}, []string{"operation"})

// BlobStore implements repositories.BlobStore on Redis strings.
// Content lives under "<bucket>:<key>".
type BlobStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewBlobStore creates a blob store. A zero ttl stores content without expiry.
func NewBlobStore(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *BlobStore {
	return &BlobStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func blobKey(bucket, key string) string {
	return bucket + ":" + key
}

// PutContent stores content under (bucket, key)
func (s *BlobStore) PutContent(ctx context.Context, bucket, key, content string) error {
	start := time.Now()
	defer func() {
		blobLatency.WithLabelValues("put").Observe(time.Since(start).Seconds())
	}()

	if err := s.client.Set(ctx, blobKey(bucket, key), content, s.ttl).Err(); err != nil {
		s.logger.Warn("blob put failed",
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("%w: put %s: %v", repositories.ErrBlobUnavailable, blobKey(bucket, key), err)
	}
	return nil
}

// GetContent loads content stored under (bucket, key)
func (s *BlobStore) GetContent(ctx context.Context, bucket, key string) (string, bool, error) {
	start := time.Now()
	defer func() {
		blobLatency.WithLabelValues("get").Observe(time.Since(start).Seconds())
	}()

	content, err := s.client.Get(ctx, blobKey(bucket, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s: %v", repositories.ErrBlobUnavailable, blobKey(bucket, key), err)
	}
	return content, true, nil
}
