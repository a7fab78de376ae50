package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/upb/entitybus/models"
	"go.uber.org/zap"
)

// ErrBufferFull is returned when an event is dropped because the buffer is full
var ErrBufferFull = errors.New("audit event buffer full")

// Sink delivers audit events to their destination
type Sink interface {
	Publish(ctx context.Context, event *models.AuditEvent) error
}

// Emitter accepts audit events without blocking the caller
type Emitter interface {
	Emit(event *models.AuditEvent) error
}

// Service dispatches audit events to a sink in the background
type Service struct {
	sink           Sink
	logger         *zap.Logger
	eventChan      chan *models.AuditEvent
	workerCount    int
	bufferSize     int
	publishTimeout time.Duration
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
	started        bool
	dropped        int64
	mu             sync.Mutex
}

// Config holds configuration for the Service
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // One worker keeps events in emission order
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 1,
	}
}

// NewService creates a new audit Service
func NewService(sink Sink, logger *zap.Logger, config Config) *Service {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		sink:           sink,
		logger:         logger,
		eventChan:      make(chan *models.AuditEvent, config.BufferSize),
		workerCount:    config.WorkerCount,
		bufferSize:     config.BufferSize,
		publishTimeout: 5 * time.Second,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start starts the background workers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop stops accepting events and waits for pending ones to be published
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.started = false
	close(s.eventChan)
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Emit queues an event (non-blocking). When the buffer is full the event
// is dropped and logged.
func (s *Service) Emit(event *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return fmt.Errorf("audit service not started")
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.dropped++
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Action)),
			zap.String("step", string(event.Step)),
			zap.String("correlation_id", event.SourceInfo.CorrelationID))
		return ErrBufferFull
	}
}

// worker publishes events from the channel
func (s *Service) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.publish(event); err != nil {
			s.logger.Error("failed to publish audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("event_id", event.ID.String()),
				zap.String("action", string(event.Action)),
				zap.String("step", string(event.Step)))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

func (s *Service) publish(event *models.AuditEvent) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.publishTimeout)
	defer cancel()

	if err := s.sink.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish audit event: %w", err)
	}
	return nil
}

// GetStats returns statistics about the audit service
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started,
		Dropped:       s.dropped,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
	Dropped       int64
}

// LogSink writes events to the application log. Used when no bus is configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink that logs every event at info level
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit")}
}

// Publish implements Sink
func (l *LogSink) Publish(_ context.Context, e *models.AuditEvent) error {
	l.logger.Info("audit event",
		zap.String("event_id", e.ID.String()),
		zap.String("category", string(e.Category)),
		zap.String("method", e.MethodName),
		zap.String("table", e.TableName),
		zap.String("action", string(e.Action)),
		zap.String("step", string(e.Step)),
		zap.String("entity_id", e.EntityID),
		zap.Strings("fields", e.Fields),
		zap.String("user_id", e.UserInfo.UserID),
		zap.String("correlation_id", e.SourceInfo.CorrelationID),
		zap.Time("timestamp", e.Timestamp))
	return nil
}
