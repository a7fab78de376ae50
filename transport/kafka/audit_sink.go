package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/upb/entitybus/models"
)

// Producer is the subset of *kgo.Client used by AuditSink
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// AuditSink publishes audit events as JSON to one topic
type AuditSink struct {
	producer Producer
	topic    string
}

// NewAuditSink creates a sink writing to topic
func NewAuditSink(producer Producer, topic string) *AuditSink {
	return &AuditSink{producer: producer, topic: topic}
}

// Publish writes event keyed by its partition key
func (s *AuditSink) Publish(ctx context.Context, event *models.AuditEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.PartitionKey()),
		Value: body,
		Headers: []kgo.RecordHeader{
			{Key: "X-Audit-Category", Value: []byte(event.Category)},
		},
	}
	if err := s.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish audit event: %w", err)
	}
	return nil
}
