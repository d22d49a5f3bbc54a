package outbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/eventbus"
)

// ProcessorConfig holds configuration for the outbox processor.
type ProcessorConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
	RetentionDays    int
}

// DefaultProcessorConfig returns the defaults used by the worker.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:     500 * time.Millisecond,
		BatchSize:        100,
		MaxRetries:       5,
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  time.Minute,
		RetentionDays:    7,
	}
}

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeDead
)

// Processor relays outbox messages to the broker.
type Processor struct {
	repo      Repository
	publisher eventbus.Publisher
	config    ProcessorConfig
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup

	statsMu sync.Mutex
	stats   Stats
}

// NewProcessor creates a new outbox processor.
func NewProcessor(repo Repository, publisher eventbus.Publisher, config ProcessorConfig, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		repo:      repo,
		publisher: publisher,
		config:    config,
		logger:    logger.With("component", "outbox"),
		now:       time.Now,
	}
}

// Start launches the polling loop. Calling Start twice is a no-op.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	p.running = true
	p.stop = make(chan struct{})

	p.wg.Add(1)
	go p.loop(ctx, p.stop)

	p.logger.Info("outbox processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize,
		"max_retries", p.config.MaxRetries,
	)
	return nil
}

// Stop waits for the in-flight batch to finish.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("outbox processor stopped")
}

// IsRunning reports whether the polling loop is active.
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) loop(ctx context.Context, stop <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if _, err := p.ProcessOnce(ctx); err != nil {
				p.logger.Error("outbox batch failed", "error", err)
			}
		}
	}
}

// ProcessOnce publishes one batch and returns how many messages were sent.
func (p *Processor) ProcessOnce(ctx context.Context) (int, error) {
	messages, err := p.repo.GetUnpublished(ctx, p.config.BatchSize)
	if err != nil {
		p.recordError(err)
		return 0, err
	}
	p.recordBatch(messages)

	published := 0
	for _, msg := range messages {
		if p.handle(ctx, msg) == outcomePublished {
			published++
		}
	}
	return published, nil
}

func (p *Processor) handle(ctx context.Context, msg *Message) outcome {
	meta := msg.EventMetadata()
	log := p.logger.With(
		"id", msg.ID,
		"event_id", msg.EventID,
		"routing_key", msg.RoutingKey,
		"correlation_id", meta.CorrelationID,
		"user_id", meta.UserID,
	)

	pubErr := p.publisher.Publish(ctx, msg.RoutingKey, msg.Payload)
	if pubErr == nil {
		if err := p.repo.MarkPublished(ctx, msg.ID); err != nil {
			log.Error("failed to mark message published", "error", err)
			return outcomeRetry
		}
		p.recordPublished()
		return outcomePublished
	}

	log.Warn("publish failed", "retry_count", msg.RetryCount, "error", pubErr)

	if p.exhausted(msg) {
		p.recordDead(pubErr)
		if err := p.repo.MarkDead(ctx, msg.ID, pubErr.Error()); err != nil {
			log.Error("failed to dead-letter message", "error", err)
		}
		return outcomeDead
	}

	p.recordFailed(pubErr)
	next := p.now().Add(p.backoff(msg.RetryCount + 1))
	if err := p.repo.MarkFailed(ctx, msg.ID, pubErr.Error(), next); err != nil {
		log.Error("failed to record publish failure", "error", err)
	}
	return outcomeRetry
}

func (p *Processor) exhausted(msg *Message) bool {
	if p.config.MaxRetries <= 0 {
		return true
	}
	return !msg.CanRetry(p.config.MaxRetries - 1)
}

// backoff doubles from the base for every attempt, capped at the max.
func (p *Processor) backoff(attempt int) time.Duration {
	base := p.config.RetryBackoffBase
	if base <= 0 {
		base = time.Second
	}
	limit := p.config.RetryBackoffMax
	if limit <= 0 {
		limit = time.Minute
	}

	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

// Cleanup removes published messages past the retention window.
func (p *Processor) Cleanup(ctx context.Context) (int64, error) {
	days := p.config.RetentionDays
	if days <= 0 {
		days = 7
	}
	n, err := p.repo.DeleteOld(ctx, days)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.logger.Info("outbox cleanup", "deleted", n, "retention_days", days)
	}
	return n, nil
}

// Stats summarises processor activity since start.
type Stats struct {
	IsRunning       bool
	PublishedCount  uint64
	FailedCount     uint64
	DeadCount       uint64
	LagSeconds      float64
	LastError       string
	LastErrorAt     *time.Time
	LastProcessedAt *time.Time
}

// GetStats returns a copy of the current statistics.
func (p *Processor) GetStats() Stats {
	running := p.IsRunning()

	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	s := p.stats
	s.IsRunning = running
	return s
}

func (p *Processor) recordPublished() {
	p.statsMu.Lock()
	p.stats.PublishedCount++
	p.statsMu.Unlock()
}

func (p *Processor) recordFailed(err error) {
	p.statsMu.Lock()
	p.stats.FailedCount++
	p.setLastError(err)
	p.statsMu.Unlock()
}

func (p *Processor) recordDead(err error) {
	p.statsMu.Lock()
	p.stats.DeadCount++
	p.setLastError(err)
	p.statsMu.Unlock()
}

func (p *Processor) recordError(err error) {
	p.statsMu.Lock()
	p.setLastError(err)
	p.statsMu.Unlock()
}

// setLastError requires statsMu to be held.
func (p *Processor) setLastError(err error) {
	now := p.now()
	p.stats.LastError = err.Error()
	p.stats.LastErrorAt = &now
}

func (p *Processor) recordBatch(messages []*Message) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	now := p.now()
	p.stats.LastProcessedAt = &now
	p.stats.LagSeconds = 0
	for _, msg := range messages {
		if lag := now.Sub(msg.CreatedAt).Seconds(); lag > p.stats.LagSeconds {
			p.stats.LagSeconds = lag
		}
	}
}
