//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"
)

type BlobStoreSuite struct {
	suite.Suite
	container *tcredis.RedisContainer
	client    *redis.Client
	store     *BlobStore
}

func TestBlobStoreSuite(t *testing.T) {
	suite.Run(t, new(BlobStoreSuite))
}

func (s *BlobStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.container = container

	addr, err := container.ConnectionString(ctx)
	s.Require().NoError(err)

	opts, err := redis.ParseURL(addr)
	s.Require().NoError(err)
	s.client = redis.NewClient(opts)
	s.Require().NoError(s.client.Ping(ctx).Err())

	s.store = NewBlobStore(s.client, time.Minute, zap.NewNop())
}

func (s *BlobStoreSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	s.NoError(testcontainers.TerminateContainer(s.container))
}

func (s *BlobStoreSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(context.Background()).Err())
}

func (s *BlobStoreSuite) TestPutThenGetReturnsSameBytes() {
	ctx := context.Background()
	content := `{"status":"OK","payload":[{"id":"1","name":"ünïcode"}]}`

	s.Require().NoError(s.store.PutContent(ctx, "responses", "response-1", content))

	got, found, err := s.store.GetContent(ctx, "responses", "response-1")
	s.Require().NoError(err)
	s.True(found)
	s.Equal(content, got)

	ttl, err := s.client.TTL(ctx, "responses:response-1").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *BlobStoreSuite) TestMissingKey() {
	_, found, err := s.store.GetContent(context.Background(), "signatures", "absent")
	s.Require().NoError(err)
	s.False(found)
}

func (s *BlobStoreSuite) TestBucketsAreIsolated() {
	ctx := context.Background()
	s.Require().NoError(s.store.PutContent(ctx, "a", "k", "1"))

	_, found, err := s.store.GetContent(ctx, "b", "k")
	s.Require().NoError(err)
	s.False(found)
}
