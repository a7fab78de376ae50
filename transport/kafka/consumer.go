package kafka

import (
	"context"
	"errors"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/upb/entitybus/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Client is the subset of *kgo.Client used by Consumer
type Client interface {
	PollFetches(ctx context.Context) kgo.Fetches
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	CommitUncommittedOffsets(ctx context.Context) error
	Close()
}

// NewClient creates a franz-go client. With topics it joins the configured
// consumer group; without, it only produces.
func NewClient(cfg config.KafkaConfig, topics ...string) (*kgo.Client, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
	}
	if len(topics) > 0 {
		opts = append(opts,
			kgo.ConsumerGroup(cfg.GroupID),
			kgo.ConsumeTopics(topics...),
			kgo.DisableAutoCommit(),
		)
	}
	return kgo.NewClient(opts...)
}

// Consumer polls request topics, dispatches records through a Router and
// produces one reply per handled record. Partitions of a batch are handled
// concurrently; records within a partition keep their order.
type Consumer struct {
	client      Client
	router      *Router
	replySuffix string
	workers     int
	logger      *zap.Logger
}

// NewConsumer creates a consumer
func NewConsumer(client Client, router *Router, cfg config.KafkaConfig, logger *zap.Logger) *Consumer {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		client:      client,
		router:      router,
		replySuffix: cfg.ReplySuffix,
		workers:     workers,
		logger:      logger,
	}
}

// Run polls until ctx is cancelled or the client is closed. Offsets are
// committed after every batch has been handled and answered.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started", zap.Strings("topics", c.router.Topics()))
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			c.logger.Info("consumer stopped: client closed")
			return nil
		}
		if ctx.Err() != nil {
			c.logger.Info("consumer stopped", zap.Error(ctx.Err()))
			return nil
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("fetch error",
				zap.String("topic", topic),
				zap.Int32("partition", partition),
				zap.Error(err))
		})

		var g errgroup.Group
		g.SetLimit(c.workers)
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			if len(p.Records) == 0 {
				return
			}
			g.Go(func() error {
				for _, r := range p.Records {
					c.handle(ctx, r)
				}
				return nil
			})
		})
		_ = g.Wait()

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit offsets", zap.Error(err))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, r *kgo.Record) {
	msg := FromRecord(r)
	env, ok := c.router.Handle(ctx, msg)
	if !ok {
		return
	}

	// A lost reply is not redelivered: the request has already been applied
	// and running a create twice would insert two rows.
	reply := ToRecord(ReplyTopic(msg, c.replySuffix), r.Key, env)
	if err := c.client.ProduceSync(ctx, reply).FirstErr(); err != nil {
		c.logger.Error("failed to produce reply",
			zap.String("topic", reply.Topic),
			zap.String("status", env.Status.String()),
			zap.Error(err))
	}
}
