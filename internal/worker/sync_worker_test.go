package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/amqp"
	"contas/internal/core"
)

type fakeSource struct {
	payables map[int64]core.Payable
	err      error
}

func (s *fakeSource) GetPayable(_ context.Context, id int64) (core.Payable, error) {
	if s.err != nil {
		return core.Payable{}, s.err
	}
	p, ok := s.payables[id]
	if !ok {
		return core.Payable{}, &core.NotFoundError{Kind: "payable", Key: "x"}
	}
	return p, nil
}

type fakeMirror struct {
	rows    map[int64]core.Payable
	deletes []int64
	err     error
}

func (m *fakeMirror) UpsertRow(_ context.Context, p core.Payable) error {
	if m.err != nil {
		return m.err
	}
	m.rows[p.ID] = p
	return nil
}

func (m *fakeMirror) DeleteRow(_ context.Context, id int64) error {
	if m.err != nil {
		return m.err
	}
	m.deletes = append(m.deletes, id)
	delete(m.rows, id)
	return nil
}

type fakeDrainer struct {
	batches []int
	calls   int
}

func (d *fakeDrainer) ProcessBatch(context.Context) int {
	d.calls++
	if len(d.batches) == 0 {
		return 0
	}
	n := d.batches[0]
	d.batches = d.batches[1:]
	return n
}

func workerPayable(id int64) core.Payable {
	ts := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	return core.Payable{
		ID: id, Description: "Aluguel", GroupName: "ESTRUTURA", SubgroupName: "Aluguel",
		DueDate: "2024-05-10", Amount: 2500, ExpenseType: core.ExpenseFixed,
		CreatedAt: ts, UpdatedAt: ts,
	}
}

func TestSyncWorker_HandleChange(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert mirrors the stored record", func(t *testing.T) {
		p := workerPayable(10)
		source := &fakeSource{payables: map[int64]core.Payable{10: p}}
		mirror := &fakeMirror{rows: map[int64]core.Payable{}}
		w := NewSyncWorker(source, mirror, nil)

		msg := amqp.NewPayableSyncMessage(10, p.UpdatedAt.UnixMilli())
		require.NoError(t, w.HandleChange(ctx, msg))
		assert.Equal(t, p, mirror.rows[10])
	})

	t.Run("empty kind is treated as upsert", func(t *testing.T) {
		p := workerPayable(11)
		source := &fakeSource{payables: map[int64]core.Payable{11: p}}
		mirror := &fakeMirror{rows: map[int64]core.Payable{}}
		w := NewSyncWorker(source, mirror, nil)

		require.NoError(t, w.HandleChange(ctx, &amqp.PayableChangeMessage{ID: 11}))
		assert.Contains(t, mirror.rows, int64(11))
	})

	t.Run("upsert of a vanished record succeeds without mirroring", func(t *testing.T) {
		source := &fakeSource{payables: map[int64]core.Payable{}}
		mirror := &fakeMirror{rows: map[int64]core.Payable{}}
		w := NewSyncWorker(source, mirror, nil)

		require.NoError(t, w.HandleChange(ctx, amqp.NewPayableSyncMessage(99, 1)))
		assert.Empty(t, mirror.rows)
	})

	t.Run("storage errors are returned for requeue", func(t *testing.T) {
		source := &fakeSource{err: errors.New("database is locked")}
		mirror := &fakeMirror{rows: map[int64]core.Payable{}}
		w := NewSyncWorker(source, mirror, nil)

		err := w.HandleChange(ctx, amqp.NewPayableSyncMessage(1, 1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database is locked")
	})

	t.Run("mirror errors are returned", func(t *testing.T) {
		source := &fakeSource{payables: map[int64]core.Payable{1: workerPayable(1)}}
		mirror := &fakeMirror{rows: map[int64]core.Payable{}, err: errors.New("quota exceeded")}
		w := NewSyncWorker(source, mirror, nil)

		assert.Error(t, w.HandleChange(ctx, amqp.NewPayableSyncMessage(1, 1)))
		assert.Error(t, w.HandleChange(ctx, amqp.NewPayableDeleteMessage(1)))
	})

	t.Run("delete removes the row", func(t *testing.T) {
		mirror := &fakeMirror{rows: map[int64]core.Payable{5: workerPayable(5)}}
		w := NewSyncWorker(&fakeSource{}, mirror, nil)

		require.NoError(t, w.HandleChange(ctx, amqp.NewPayableDeleteMessage(5)))
		assert.Equal(t, []int64{5}, mirror.deletes)
		assert.Empty(t, mirror.rows)
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		w := NewSyncWorker(&fakeSource{}, &fakeMirror{rows: map[int64]core.Payable{}}, nil)
		assert.Error(t, w.HandleChange(ctx, &amqp.PayableChangeMessage{Kind: "rename", ID: 1}))
	})
}

func TestSyncWorker_StartupSyncCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("drains until a batch comes back empty", func(t *testing.T) {
		drainer := &fakeDrainer{batches: []int{10, 10, 3}}
		w := NewSyncWorker(&fakeSource{}, &fakeMirror{}, drainer)

		require.NoError(t, w.StartupSyncCheck(ctx))
		assert.Equal(t, 4, drainer.calls)
	})

	t.Run("without a queue it does nothing", func(t *testing.T) {
		w := NewSyncWorker(&fakeSource{}, &fakeMirror{}, nil)
		assert.NoError(t, w.StartupSyncCheck(ctx))
	})

	t.Run("cancelled context stops the drain", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		drainer := &fakeDrainer{batches: []int{10}}
		w := NewSyncWorker(&fakeSource{}, &fakeMirror{}, drainer)

		assert.ErrorIs(t, w.StartupSyncCheck(cctx), context.Canceled)
		assert.Zero(t, drainer.calls)
	})
}
