package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/sheets"
	"contas/internal/storage"
)

type SyncProcessorConfig struct {
	// PollInterval is the idle wait between drains.
	PollInterval time.Duration
	// BatchSize caps the items claimed per drain.
	BatchSize int
	// MaxRetries is the attempt count after which an item is parked as failed.
	MaxRetries int
	// CleanupInterval and CleanupAge control pruning of completed items.
	CleanupInterval time.Duration
	CleanupAge      time.Duration

	Logger *log.Logger
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:    10 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		CleanupInterval: time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

type syncHandler func(ctx context.Context, item storage.SyncItem) error

// SyncProcessor replays the database sync queue onto the sheet mirror. Every
// write to the repository enqueues an item in the same transaction, so the
// queue catches changes whose AMQP message was lost or never published.
type SyncProcessor struct {
	repo     *storage.Repository
	mirror   sheets.PayableMirror
	config   SyncProcessorConfig
	log      *log.Logger
	handlers map[string]syncHandler
	now      func() time.Time

	// wake is buffered so Trigger never blocks.
	wake chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSyncProcessor(repo *storage.Repository, mirror sheets.PayableMirror, config SyncProcessorConfig) *SyncProcessor {
	logger := config.Logger
	if logger == nil {
		logger = log.Nop()
	}
	p := &SyncProcessor{
		repo:   repo,
		mirror: mirror,
		config: config,
		log:    logger,
		now:    time.Now,
		wake:   make(chan struct{}, 1),
	}
	p.handlers = map[string]syncHandler{
		storage.OpUpsert: p.mirrorUpsert,
		storage.OpDelete: p.mirrorDelete,
	}
	return p
}

// Start launches the drain loop in the background. It fails when the loop is
// already running or no repository is attached.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return errors.New("sync processor is already running")
	}
	if p.repo == nil {
		return errors.New("sync processor has no storage")
	}

	// Items a crashed run left claimed would otherwise never be retried.
	if err := p.repo.ResetStaleProcessing(ctx); err != nil {
		p.log.WarnContext(ctx, "Failed to reset stale processing items", log.FieldError, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(loopCtx, p.done)

	p.log.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop cancels the loop and waits for the batch in flight, or for ctx.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		p.log.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	p.log.InfoContext(ctx, "Sync processor stopped")
	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Trigger asks the running loop to drain now instead of at the next poll.
func (p *SyncProcessor) Trigger() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *SyncProcessor) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	poll := time.NewTicker(p.config.PollInterval)
	defer poll.Stop()
	prune := time.NewTicker(p.config.CleanupInterval)
	defer prune.Stop()

	p.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			p.drain(ctx)
		case <-p.wake:
			p.drain(ctx)
		case <-prune.C:
			p.prune(ctx)
		}
	}
}

// drain keeps claiming batches while full batches come back.
func (p *SyncProcessor) drain(ctx context.Context) {
	for ctx.Err() == nil {
		claimed, _ := p.process(ctx)
		if claimed < p.config.BatchSize {
			return
		}
	}
}

// ProcessBatch claims one batch and mirrors it, returning how many items
// reached the mirror.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	_, mirrored := p.process(ctx)
	return mirrored
}

func (p *SyncProcessor) process(ctx context.Context) (claimed, mirrored int) {
	items, err := p.repo.DequeueSyncBatch(ctx, p.config.BatchSize)
	if err != nil {
		p.log.ErrorContext(ctx, "Failed to dequeue sync batch", log.FieldError, err)
		return 0, 0
	}
	if len(items) > 0 {
		p.log.DebugContext(ctx, "Processing sync batch", "count", len(items))
	}

	for _, item := range items {
		if ctx.Err() != nil {
			// Left in processing; the next Start resets it.
			break
		}
		if err := p.apply(ctx, item); err != nil {
			p.recordFailure(ctx, item, err)
			continue
		}
		if err := p.repo.MarkSyncCompleted(ctx, item.ID); err != nil {
			p.log.ErrorContext(ctx, "Failed to mark sync complete", "id", item.ID, log.FieldError, err)
		}
		mirrored++
	}
	return len(items), mirrored
}

func (p *SyncProcessor) apply(ctx context.Context, item storage.SyncItem) error {
	handle, ok := p.handlers[item.Operation]
	if !ok {
		return fmt.Errorf("unknown operation: %s", item.Operation)
	}
	if p.mirror == nil {
		return nil
	}
	return handle(ctx, item)
}

func (p *SyncProcessor) mirrorUpsert(ctx context.Context, item storage.SyncItem) error {
	payable, err := p.repo.GetPayable(ctx, item.PayableID)
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		// Deleted since; the queued delete removes the row.
		return nil
	}
	if err != nil {
		return fmt.Errorf("get payable %d: %w", item.PayableID, err)
	}
	if err := p.mirror.UpsertRow(ctx, payable); err != nil {
		return fmt.Errorf("mirror upsert: %w", err)
	}
	p.log.InfoContext(ctx, "Mirrored payable", log.FieldPayableID, item.PayableID)
	return nil
}

func (p *SyncProcessor) mirrorDelete(ctx context.Context, item storage.SyncItem) error {
	if err := p.mirror.DeleteRow(ctx, item.PayableID); err != nil {
		return fmt.Errorf("mirror delete: %w", err)
	}
	p.log.InfoContext(ctx, "Removed payable from mirror", log.FieldPayableID, item.PayableID)
	return nil
}

func (p *SyncProcessor) recordFailure(ctx context.Context, item storage.SyncItem, cause error) {
	attempt := item.Attempts + 1
	logger := p.log.With("id", item.ID, "operation", item.Operation, "attempt", attempt)

	if err := p.repo.MarkSyncFailed(ctx, item.ID, cause, p.config.MaxRetries); err != nil {
		logger.ErrorContext(ctx, "Failed to record sync failure", log.FieldError, err)
		return
	}
	if attempt >= p.config.MaxRetries {
		logger.ErrorContext(ctx, "Sync item parked after max retries",
			log.FieldPayableID, item.PayableID, log.FieldError, cause)
		return
	}
	logger.WarnContext(ctx, "Sync processing failed, will retry", log.FieldError, cause)
}

func (p *SyncProcessor) prune(ctx context.Context) {
	n, err := p.repo.CleanupCompleted(ctx, p.now().Add(-p.config.CleanupAge))
	if err != nil {
		p.log.ErrorContext(ctx, "Failed to prune completed syncs", log.FieldError, err)
		return
	}
	if n > 0 {
		p.log.DebugContext(ctx, "Pruned completed syncs", "count", n)
	}
}

func (p *SyncProcessor) Stats(ctx context.Context) (storage.SyncStats, error) {
	return p.repo.SyncQueueStats(ctx)
}

// RetryFailed returns parked items to the queue.
func (p *SyncProcessor) RetryFailed(ctx context.Context) (int64, error) {
	n, err := p.repo.RetryFailed(ctx)
	if err == nil && n > 0 {
		p.Trigger()
	}
	return n, err
}
