package eventbus

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriorityOrdering(t *testing.T) {
	b := New(0)
	var order []string
	var mu sync.Mutex
	record := func(name string) Handler {
		return func(Event) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	b.On("thing.happened", record("low"), 10, "test")
	b.On("thing.happened", record("high"), 100, "test")
	b.On("thing.happened", record("mid"), 50, "test")

	_, err := b.Emit("thing.happened", nil, "test")
	require.NoError(t, err)
	require.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestPriorityTiesPreserveInsertionOrder(t *testing.T) {
	b := New(0)
	var order []string
	b.On("e", func(Event) { order = append(order, "first") }, 10, "test")
	b.On("e", func(Event) { order = append(order, "second") }, 10, "test")

	_, err := b.Emit("e", nil, "test")
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, order)
}

func TestRecursionGuardTerminates(t *testing.T) {
	b := New(0)
	calls := 0
	b.On("loop", func(Event) {
		calls++
		_, _ = b.Emit("loop", nil, "self")
	}, 0, "test")

	_, err := b.Emit("loop", nil, "test")
	require.NoError(t, err) // the outermost Emit itself succeeds
	require.LessOrEqual(t, calls, maxEmitDepth)
}

func TestRecursionGuardReturnsErrorPastLimit(t *testing.T) {
	b := New(0)
	var lastErr error
	var depth int
	b.On("loop", func(Event) {
		depth++
		if _, err := b.Emit("loop", nil, "self"); err != nil {
			lastErr = err
		}
	}, 0, "test")

	_, err := b.Emit("loop", nil, "test")
	require.NoError(t, err)
	require.ErrorIs(t, lastErr, ErrRecursionLimitExceeded)
}

func TestHandlerPanicIsIsolated(t *testing.T) {
	b := New(0)
	secondRan := false
	b.On("e", func(Event) { panic("boom") }, 10, "test")
	b.On("e", func(Event) { secondRan = true }, 5, "test")

	require.NotPanics(t, func() {
		_, err := b.Emit("e", nil, "test")
		require.NoError(t, err)
	})
	require.True(t, secondRan)
}

func TestOnceSubscriberFiresOnlyOnce(t *testing.T) {
	b := New(0)
	count := 0
	b.Once("e", func(Event) { count++ })

	_, _ = b.Emit("e", nil, "test")
	_, _ = b.Emit("e", nil, "test")
	require.Equal(t, 1, count)
	require.Equal(t, 0, b.SubscribersFor("e"))
}

func TestOffRemovesSubscriber(t *testing.T) {
	b := New(0)
	count := 0
	id := b.On("e", func(Event) { count++ }, 0, "test")

	require.True(t, b.Off(id))
	_, _ = b.Emit("e", nil, "test")
	require.Equal(t, 0, count)
}

func TestMuteSuppressesDispatch(t *testing.T) {
	b := New(0)
	count := 0
	b.On("e", func(Event) { count++ }, 0, "test")

	b.Mute("e")
	_, _ = b.Emit("e", nil, "test")
	require.Equal(t, 0, count)

	b.Unmute("e")
	_, _ = b.Emit("e", nil, "test")
	require.Equal(t, 1, count)
}

func TestEmitAsyncAwaitsHandler(t *testing.T) {
	b := New(0)
	done := false
	b.OnAsync("e", func(ctx context.Context, ev Event) error {
		done = true
		return nil
	}, 0, "test")

	_, err := b.EmitAsync(context.Background(), "e", nil, "test")
	require.NoError(t, err)
	require.True(t, done)
}

func TestEmitSkipsAsyncWithoutDispatcher(t *testing.T) {
	b := New(0)
	ran := false
	b.OnAsync("e", func(ctx context.Context, ev Event) error {
		ran = true
		return nil
	}, 0, "test")

	_, err := b.Emit("e", nil, "test")
	require.NoError(t, err)
	require.False(t, ran)
}

func TestEmitUsesConfiguredDispatcher(t *testing.T) {
	b := New(0)
	var wg sync.WaitGroup
	wg.Add(1)
	b.SetAsyncDispatcher(func(fn func()) { go fn() })
	b.OnAsync("e", func(ctx context.Context, ev Event) error {
		defer wg.Done()
		return nil
	}, 0, "test")

	_, err := b.Emit("e", nil, "test")
	require.NoError(t, err)
	wg.Wait()
}

func TestHistoryBounded(t *testing.T) {
	b := New(2)
	_, _ = b.Emit("a", nil, "test")
	_, _ = b.Emit("b", nil, "test")
	_, _ = b.Emit("c", nil, "test")

	history := b.History(10)
	require.Len(t, history, 2)
	require.Equal(t, "b", history[0].Type)
	require.Equal(t, "c", history[1].Type)
}

func TestStatsReflectsSubscribers(t *testing.T) {
	b := New(0)
	b.On("a", func(Event) {}, 0, "test")
	b.On("a", func(Event) {}, 0, "test")
	b.On("b", func(Event) {}, 0, "test")

	stats := b.Stats()
	require.Equal(t, 2, stats.EventTypes)
	require.Equal(t, 3, stats.TotalSubscribers)
}
