// Package kafka connects the dispatch layer to Kafka topics
package kafka

import (
	"maps"
	"slices"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/upb/entitybus/handlers"
	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/services/overflow"
)

// FromRecord converts a consumed record. Later duplicate headers win.
func FromRecord(r *kgo.Record) *handlers.Message {
	msg := &handlers.Message{
		Topic:   r.Topic,
		Key:     r.Key,
		Value:   r.Value,
		Headers: make(map[string]string, len(r.Headers)),
	}
	for _, h := range r.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// ToRecord converts an envelope into a reply record. Headers are sorted
// by name so replies are deterministic.
func ToRecord(topic string, key []byte, env overflow.Envelope) *kgo.Record {
	rec := &kgo.Record{Topic: topic, Key: key, Value: env.Value}
	for _, k := range slices.Sorted(maps.Keys(env.Headers)) {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(env.Headers[k])})
	}
	rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: HeaderStatus, Value: []byte(env.Status.String())})
	return rec
}

// HeaderStatus carries the response status so callers can route on it
// without decoding the body
const HeaderStatus = "X-Status"

// ReplyTopic is the topic named by the X-Reply-Topic header, or the
// request topic with suffix appended.
func ReplyTopic(msg *handlers.Message, suffix string) string {
	if t := strings.TrimSpace(msg.Header(models.HeaderReplyTopic)); t != "" {
		return t
	}
	return msg.Topic + suffix
}
