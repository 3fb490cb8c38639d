package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct{ name string }

func (e testEvent) Name() string { return e.name }

func TestBus_PublishCallsSubscribers(t *testing.T) {
	bus := New(zap.NewNop())

	var calls int32
	bus.Subscribe("chain.saved", func(ctx context.Context, event Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	bus.Subscribe("chain.saved", func(ctx context.Context, event Event) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("ошибка слушателя не должна ломать остальных")
	})
	bus.Subscribe("other", func(ctx context.Context, event Event) error {
		t.Error("слушатель другого события не должен вызываться")
		return nil
	})

	bus.Publish(context.Background(), testEvent{name: "chain.saved"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Wait(ctx))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestBus_WaitRespectsContext(t *testing.T) {
	bus := New(zap.NewNop())
	release := make(chan struct{})
	bus.Subscribe("slow", func(ctx context.Context, event Event) error {
		<-release
		return nil
	})
	bus.Publish(context.Background(), testEvent{name: "slow"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Wait(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, bus.Wait(context.Background()))
}
