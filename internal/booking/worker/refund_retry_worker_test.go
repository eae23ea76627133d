package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type mockRefundProcessor struct {
	ProcessDueFunc func(ctx context.Context) (int, int, error)
}

func (m *mockRefundProcessor) ProcessDue(ctx context.Context) (int, int, error) {
	return m.ProcessDueFunc(ctx)
}

func TestRefundRetryWorker_ProcessesOnEachTick(t *testing.T) {
	var calls atomic.Int32
	processor := &mockRefundProcessor{
		ProcessDueFunc: func(ctx context.Context) (int, int, error) {
			calls.Add(1)
			return 1, 0, nil
		},
	}

	w := NewRefundRetryWorker(processor, zap.NewNop(), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestRefundRetryWorker_KeepsRunningAfterError(t *testing.T) {
	var calls atomic.Int32
	processor := &mockRefundProcessor{
		ProcessDueFunc: func(ctx context.Context) (int, int, error) {
			calls.Add(1)
			return 0, 0, errors.New("db down")
		},
	}

	w := NewRefundRetryWorker(processor, zap.NewNop(), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}
