package engine

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_DeliversThroughPayload(t *testing.T) {
	var done atomic.Int32
	p := newWorkerPool(context.Background(), 3, 8, func(_ context.Context, out chan int) {
		done.Add(1)
		out <- 1
	})

	chans := make([]chan int, 8)
	for i := range chans {
		chans[i] = make(chan int, 1)
		require.NoError(t, p.SubmitWait(context.Background(), chans[i]))
	}
	p.Drain()

	assert.Equal(t, int32(8), done.Load())
	for _, c := range chans {
		assert.Equal(t, 1, <-c)
	}
}

func TestWorkerPool_SubmitFull(t *testing.T) {
	p := newWorkerPool(context.Background(), 0, 1, func(context.Context, int) {})
	assert.True(t, p.Submit(1))
	assert.False(t, p.Submit(2))
	assert.Equal(t, 1, p.QueueLen())
	assert.Equal(t, 1, p.QueueCap())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.SubmitWait(ctx, 3), context.Canceled)
}
