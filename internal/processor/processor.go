// Package processor owns the background worker that drains the purchase
// intent queue. The queue itself is the purchase_intents table; the worker
// discovers events with waiting intents on a periodic tick and pushes each
// intent through the allocator in arrival order.
package processor

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tylerhoskins/ticketing-platform/internal/models"
	"github.com/tylerhoskins/ticketing-platform/internal/repository"
	"github.com/tylerhoskins/ticketing-platform/internal/service"
	"github.com/tylerhoskins/ticketing-platform/pkg/rabbitmq"
)

type Config struct {
	TickPeriod       time.Duration
	BatchSize        int
	IntentExpiry     time.Duration
	PerIntentTimeout time.Duration
	MaxAttempts      int
	SweeperPeriod    time.Duration
}

func DefaultConfig() Config {
	return Config{
		TickPeriod:       2 * time.Second,
		BatchSize:        5,
		IntentExpiry:     30 * time.Minute,
		PerIntentTimeout: 30 * time.Second,
		MaxAttempts:      3,
		SweeperPeriod:    5 * time.Minute,
	}
}

// Health is the processor's observable state.
type Health struct {
	IsRunning               bool       `json:"is_running"`
	LastProcessedAt         *time.Time `json:"last_processed_at,omitempty"`
	TotalProcessed          int64      `json:"total_processed"`
	TotalFailed             int64      `json:"total_failed"`
	AverageProcessingTimeMS float64    `json:"average_processing_time_ms"`
}

// IntentLifecycleMessage is published on the ticketing exchange whenever the
// processor moves a claimed intent to a terminal state. Bulk expiry by the
// sweeper, startup recovery of stale processing intents, and buyer
// cancellation publish no message.
type IntentLifecycleMessage struct {
	IntentID string              `json:"intent_id"`
	EventID  string              `json:"event_id"`
	Status   models.IntentStatus `json:"status"`
	Quantity int                 `json:"quantity"`
	Reason   string              `json:"reason,omitempty"`
}

type Processor struct {
	cfg       Config
	intents   repository.IntentRepository
	allocator service.Allocator
	publisher *rabbitmq.Publisher

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// backoff is the delay before retry n; overridable in tests.
	backoff func(attempt int) time.Duration

	mu              sync.Mutex
	lastProcessedAt time.Time
	totalProcessed  int64
	totalFailed     int64
	completedCount  int64
	processingMSSum int64
}

func New(cfg Config, intents repository.IntentRepository, allocator service.Allocator, publisher *rabbitmq.Publisher) *Processor {
	return &Processor{
		cfg:       cfg,
		intents:   intents,
		allocator: allocator,
		publisher: publisher,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		},
	}
}

// Start reconciles intents orphaned by a prior crash, then launches the tick
// loop and the expiry sweeper. Calling Start on a running processor is a no-op.
func (p *Processor) Start() {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	p.stopCh = make(chan struct{})

	if n, err := p.intents.FailStaleProcessing(
		context.Background(),
		time.Now().Add(-p.cfg.PerIntentTimeout),
		"worker restarted during processing",
	); err != nil {
		log.Printf("[Processor] stale recovery failed: %v", err)
	} else if n > 0 {
		log.Printf("[Processor] failed %d stale processing intents on startup", n)
	}

	p.wg.Add(2)
	go p.tickLoop()
	go p.sweepLoop()
	log.Printf("[Processor] started (tick=%s batch=%d)", p.cfg.TickPeriod, p.cfg.BatchSize)
}

// Stop halts both loops and waits for in-flight work to finish.
func (p *Processor) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.stopCh)
	p.wg.Wait()
	log.Printf("[Processor] stopped")
}

func (p *Processor) tickLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.TickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.Tick(context.Background())
		}
	}
}

func (p *Processor) sweepLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.SweeperPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.Sweep(context.Background())
		}
	}
}

// Tick runs one drain cycle: discover events with waiting intents, then drain
// a bounded batch per event. Events drain concurrently; within one event the
// batch is processed sequentially in arrival order, which is what makes the
// fairness invariant hold deterministically.
func (p *Processor) Tick(ctx context.Context) {
	eventIDs, err := p.intents.EventsWithWaiting(ctx)
	if err != nil {
		log.Printf("[Processor] discover events: %v", err)
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(eventIDs))
	for _, eventID := range eventIDs {
		go func(eventID string) {
			defer wg.Done()
			p.drainEvent(ctx, eventID)
		}(eventID)
	}
	wg.Wait()
}

func (p *Processor) drainEvent(ctx context.Context, eventID string) {
	batch, err := p.intents.NextWaitingForEvent(ctx, eventID, p.cfg.BatchSize)
	if err != nil {
		log.Printf("[Processor] load batch for event %s: %v", eventID, err)
		return
	}
	for i := range batch {
		p.processIntent(ctx, &batch[i])
	}
}

// processIntent claims one intent and drives it to a terminal state. The
// claim is the only guard against double processing, so everything after it
// must leave the intent terminal, even on panic.
func (p *Processor) processIntent(ctx context.Context, intent *models.PurchaseIntent) {
	claimed, err := p.intents.Claim(ctx, intent.ID)
	if err != nil {
		log.Printf("[Processor] claim %s: %v", intent.ID, err)
		return
	}
	if !claimed {
		// Another worker, a cancellation, or the sweeper got there first.
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Processor] panic processing %s: %v", intent.ID, r)
			p.finish(ctx, intent, models.StatusFailed, "internal error", 0)
		}
	}()

	if age := time.Since(time.UnixMicro(intent.Arrival)); age > p.cfg.IntentExpiry {
		p.finish(ctx, intent, models.StatusExpired, "expired in queue", 0)
		return
	}

	start := time.Now()
	var result service.AllocationResult
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.PerIntentTimeout)
		result = p.allocator.Allocate(attemptCtx, intent)
		cancel()

		if result.Code == service.AllocationOK || !result.Code.Retryable() {
			break
		}
		if attempt < p.cfg.MaxAttempts {
			log.Printf("[Processor] retrying %s after %s (attempt %d): %v", intent.ID, result.Code, attempt, result.Err)
			select {
			case <-time.After(p.backoff(attempt)):
			case <-ctx.Done():
				p.finish(ctx, intent, models.StatusFailed, service.AllocationTimeout.String(), 0)
				return
			}
		}
	}

	elapsed := time.Since(start)
	if result.Code == service.AllocationOK {
		p.finish(ctx, intent, models.StatusCompleted, "", elapsed)
		return
	}
	p.finish(ctx, intent, models.StatusFailed, result.Code.String(), 0)
}

// finish records the terminal transition, the health counters, and the
// lifecycle message.
func (p *Processor) finish(ctx context.Context, intent *models.PurchaseIntent, status models.IntentStatus, reason string, elapsed time.Duration) {
	if err := p.intents.SetTerminal(ctx, intent.ID, status, reason); err != nil {
		log.Printf("[Processor] set %s to %s: %v", intent.ID, status, err)
		return
	}

	p.mu.Lock()
	p.lastProcessedAt = time.Now()
	p.totalProcessed++
	switch status {
	case models.StatusCompleted:
		p.completedCount++
		p.processingMSSum += elapsed.Milliseconds()
	case models.StatusFailed:
		p.totalFailed++
	}
	p.mu.Unlock()

	if p.publisher != nil {
		_ = p.publisher.Publish("intent."+string(status), IntentLifecycleMessage{
			IntentID: intent.ID,
			EventID:  intent.EventID,
			Status:   status,
			Quantity: intent.Quantity,
			Reason:   reason,
		})
	}
}

// Sweep bulk-expires waiting intents older than the expiry window.
func (p *Processor) Sweep(ctx context.Context) {
	cutoff := service.ArrivalCutoff(time.Now(), p.cfg.IntentExpiry)
	n, err := p.intents.ExpireWaitingOlderThan(ctx, cutoff, "expired in queue")
	if err != nil {
		log.Printf("[Processor] sweep: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[Processor] expired %d stale waiting intents", n)
	}
}

func (p *Processor) Health() Health {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := Health{
		IsRunning:      p.running.Load(),
		TotalProcessed: p.totalProcessed,
		TotalFailed:    p.totalFailed,
	}
	if !p.lastProcessedAt.IsZero() {
		t := p.lastProcessedAt
		h.LastProcessedAt = &t
	}
	if p.completedCount > 0 {
		h.AverageProcessingTimeMS = float64(p.processingMSSum) / float64(p.completedCount)
	}
	return h
}
