package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/sheets"
)

// PayableSource reads the authoritative copy of a payable.
type PayableSource interface {
	GetPayable(ctx context.Context, id int64) (core.Payable, error)
}

// QueueDrainer processes one batch of the database sync queue.
type QueueDrainer interface {
	ProcessBatch(ctx context.Context) int
}

// SyncWorker mirrors payable changes announced over AMQP into the sheet
// mirror. The database stays the source of truth: messages only carry ids.
type SyncWorker struct {
	source  PayableSource
	mirror  sheets.PayableMirror
	drainer QueueDrainer
}

func NewSyncWorker(source PayableSource, mirror sheets.PayableMirror, drainer QueueDrainer) *SyncWorker {
	return &SyncWorker{
		source:  source,
		mirror:  mirror,
		drainer: drainer,
	}
}

// HandleChange processes a single payable change message from AMQP.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.PayableChangeMessage) error {
	switch msg.Kind {
	case amqp.ChangeDelete:
		return w.handleDelete(ctx, msg)
	case amqp.ChangeUpsert, "":
		return w.handleUpsert(ctx, msg)
	default:
		return fmt.Errorf("unknown change kind %q", msg.Kind)
	}
}

func (w *SyncWorker) handleUpsert(ctx context.Context, msg *amqp.PayableChangeMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	payable, err := w.source.GetPayable(ctx, msg.ID)
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		// Deleted after the message was sent; its delete message follows.
		slog.InfoContext(ctx, "Payable no longer exists, skipping sync", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get payable from storage: %w", err)
	}

	if payable.UpdatedAt.UnixMilli() < msg.Version {
		slog.WarnContext(ctx, "Stored payable is older than the message",
			"id", msg.ID,
			"stored_version", payable.UpdatedAt.UnixMilli(),
			"message_version", msg.Version)
	}

	if err := w.mirror.UpsertRow(ctx, payable); err != nil {
		return fmt.Errorf("mirror payable: %w", err)
	}

	slog.InfoContext(ctx, "Successfully mirrored payable",
		"id", msg.ID,
		"description", payable.Description,
		"due_date", payable.DueDate,
		"amount", payable.Amount)
	return nil
}

func (w *SyncWorker) handleDelete(ctx context.Context, msg *amqp.PayableChangeMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	if err := w.mirror.DeleteRow(ctx, msg.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to delete payable from mirror",
			"id", msg.ID,
			"error", err,
			"timestamp", msg.Timestamp)
		return fmt.Errorf("delete payable from mirror: %w", err)
	}

	slog.InfoContext(ctx, "Successfully removed payable from mirror",
		"id", msg.ID,
		"timestamp", msg.Timestamp)
	return nil
}

// StartupSyncCheck drains whatever the database queue still holds at worker
// startup. It recovers from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	if w.drainer == nil {
		slog.InfoContext(ctx, "No sync queue configured, skipping startup check")
		return nil
	}

	total := 0
	for ctx.Err() == nil {
		n := w.drainer.ProcessBatch(ctx)
		if n == 0 {
			break
		}
		total += n
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("startup sync interrupted: %w", err)
	}

	if total == 0 {
		slog.InfoContext(ctx, "No pending payables found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", total)
	return nil
}
