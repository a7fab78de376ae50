package kafka

import (
	"context"
	"slices"
	"sync"

	"github.com/upb/entitybus/handlers"
	"github.com/upb/entitybus/services/overflow"
	"go.uber.org/zap"
)

// Router dispatches messages to the handler registered for their topic
type Router struct {
	mu       sync.RWMutex
	handlers map[string]handlers.DispatchFunc
	logger   *zap.Logger
}

// NewRouter creates an empty router
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		handlers: make(map[string]handlers.DispatchFunc),
		logger:   logger,
	}
}

// Register adds a handler for a specific topic, replacing any previous one
func (r *Router) Register(topic string, fn handlers.DispatchFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[topic] = fn
}

// Mount registers every operation of listener under the topic named by topicFor
func (r *Router) Mount(listener handlers.EntityListener, topicFor func(entity, op string) string) {
	for op, fn := range listener.Routes() {
		r.Register(topicFor(listener.Entity(), op), fn)
	}
}

// Topics returns the registered topics in sorted order
func (r *Router) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	topics := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		topics = append(topics, t)
	}
	slices.Sort(topics)
	return topics
}

// Handle routes msg. It reports false when no handler is registered for the
// topic; such messages are skipped and committed so they are not redelivered.
func (r *Router) Handle(ctx context.Context, msg *handlers.Message) (overflow.Envelope, bool) {
	r.mu.RLock()
	fn, ok := r.handlers[msg.Topic]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn("no handler for topic, skipping message",
			zap.String("topic", msg.Topic),
			zap.String("key", string(msg.Key)))
		return overflow.Envelope{}, false
	}
	return fn(ctx, msg), true
}
