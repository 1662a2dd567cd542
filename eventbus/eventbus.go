// Package eventbus implements a dual-mode (synchronous/asynchronous)
// pub/sub bus with priority dispatch, once-subscribers, mute/unmute,
// bounded history, and a recursion-depth guard.
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/navigatorbuilds/elara-core/errors"
	"github.com/navigatorbuilds/elara-core/logger"
)

// ErrRecursionLimitExceeded is returned by Emit/EmitAsync when the bus's
// re-entrant dispatch depth would exceed maxEmitDepth.
var ErrRecursionLimitExceeded = errors.New("event bus recursion limit exceeded")

// maxEmitDepth is the safety valve against a handler re-emitting its own
// triggering event.
const maxEmitDepth = 3

// defaultHistorySize bounds the debugging event history.
const defaultHistorySize = 256

// Event is the value passed to every subscriber.
type Event struct {
	Type      string
	Data      map[string]interface{}
	Source    string
	Timestamp time.Time
}

// Handler is a synchronous subscriber, run inline on the emitting goroutine.
type Handler func(Event)

// AsyncHandler is an asynchronous subscriber. Sync Emit schedules it via
// the bus's async dispatcher (or logs a warning if none is configured);
// EmitAsync awaits it inline.
type AsyncHandler func(context.Context, Event) error

// SubscriptionID identifies a registered subscriber, returned from On/OnAsync/Once.
type SubscriptionID string

type subscription struct {
	id        SubscriptionID
	eventType string
	priority  int
	once      bool
	async     bool
	handler   Handler
	asyncFn   AsyncHandler
	source    string
	seq       uint64
}

// AsyncDispatcher hands an async handler invocation off to a scheduler or
// worker pool. If unset, Emit logs a warning and skips async handlers.
type AsyncDispatcher func(fn func())

// Bus is a thread-safe dual-mode event bus.
type Bus struct {
	mu          sync.Mutex
	subs        map[string][]*subscription
	muted       map[string]bool
	history     []Event
	historySize int
	depth       int32
	seqCounter  uint64
	dispatcher  AsyncDispatcher
}

// New constructs an empty bus. historySize <= 0 uses the default.
func New(historySize int) *Bus {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &Bus{
		subs:        make(map[string][]*subscription),
		muted:       make(map[string]bool),
		historySize: historySize,
	}
}

// SetAsyncDispatcher configures how async handlers are scheduled from a
// synchronous Emit. Typically wired to a worker pool's Submit.
func (b *Bus) SetAsyncDispatcher(d AsyncDispatcher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dispatcher = d
}

// On registers a synchronous handler.
func (b *Bus) On(eventType string, handler Handler, priority int, source string) SubscriptionID {
	return b.register(eventType, priority, source, false, handler, nil, false)
}

// OnAsync registers an asynchronous handler.
func (b *Bus) OnAsync(eventType string, handler AsyncHandler, priority int, source string) SubscriptionID {
	return b.register(eventType, priority, source, true, nil, handler, false)
}

// Once registers a synchronous handler delivered at most once.
func (b *Bus) Once(eventType string, handler Handler) SubscriptionID {
	return b.register(eventType, 0, "", false, handler, nil, true)
}

func (b *Bus) register(eventType string, priority int, source string, async bool, handler Handler, asyncFn AsyncHandler, once bool) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seqCounter++
	sub := &subscription{
		id:        SubscriptionID(uuid.NewString()),
		eventType: eventType,
		priority:  priority,
		once:      once,
		async:     async,
		handler:   handler,
		asyncFn:   asyncFn,
		source:    source,
		seq:       b.seqCounter,
	}
	b.subs[eventType] = append(b.subs[eventType], sub)
	return sub.id
}

// Off removes a subscription by id. Returns false if it was not found.
func (b *Bus) Off(id SubscriptionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subs {
		for i, s := range subs {
			if s.id == id {
				b.subs[eventType] = append(subs[:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Mute suppresses dispatch for eventType until Unmute is called.
func (b *Bus) Mute(eventType string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.muted[eventType] = true
}

// Unmute re-enables dispatch for eventType.
func (b *Bus) Unmute(eventType string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.muted, eventType)
}

// orderedSubscribers returns eventType's subscribers sorted by priority
// descending, ties broken by registration order.
func (b *Bus) orderedSubscribers(eventType string) []*subscription {
	src := b.subs[eventType]
	ordered := make([]*subscription, len(src))
	copy(ordered, src)
	for i := 1; i < len(ordered); i++ {
		j := i
		for j > 0 && less(ordered[j], ordered[j-1]) {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
			j--
		}
	}
	return ordered
}

func less(a, b *subscription) bool {
	if a.priority != b.priority {
		return a.priority > b.priority // higher priority first
	}
	return a.seq < b.seq // ties preserve insertion order
}

// Emit synchronously dispatches sync handlers in priority order; async
// handlers are scheduled via the configured AsyncDispatcher, or skipped
// with a logged warning if none is set.
func (b *Bus) Emit(eventType string, data map[string]interface{}, source string) (Event, error) {
	event := Event{Type: eventType, Data: data, Source: source, Timestamp: time.Now()}

	if ok, err := b.enterEmit(eventType, event); !ok {
		return event, err
	}
	defer atomic.AddInt32(&b.depth, -1)

	b.mu.Lock()
	if b.muted[eventType] {
		b.mu.Unlock()
		return event, nil
	}
	ordered := b.orderedSubscribers(eventType)
	dispatcher := b.dispatcher
	b.mu.Unlock()

	var onceIDs []SubscriptionID
	for _, sub := range ordered {
		if sub.async {
			if dispatcher != nil {
				asyncFn, ev := sub.asyncFn, event
				dispatcher(func() {
					b.runAsync(context.Background(), asyncFn, ev)
				})
			} else if logger.Logger != nil {
				logger.Logger.Warnw("async subscriber registered but no dispatcher configured; skipping",
					"event_type", eventType, "source", sub.source)
			}
			continue
		}
		b.runSync(sub, event)
		if sub.once {
			onceIDs = append(onceIDs, sub.id)
		}
	}

	for _, id := range onceIDs {
		b.Off(id)
	}

	b.recordHistory(event)
	return event, nil
}

// EmitAsync dispatches sync handlers inline (as Emit does) and awaits
// async handlers before returning.
func (b *Bus) EmitAsync(ctx context.Context, eventType string, data map[string]interface{}, source string) (Event, error) {
	event := Event{Type: eventType, Data: data, Source: source, Timestamp: time.Now()}

	if ok, err := b.enterEmit(eventType, event); !ok {
		return event, err
	}
	defer atomic.AddInt32(&b.depth, -1)

	b.mu.Lock()
	if b.muted[eventType] {
		b.mu.Unlock()
		return event, nil
	}
	ordered := b.orderedSubscribers(eventType)
	b.mu.Unlock()

	var onceIDs []SubscriptionID
	for _, sub := range ordered {
		if sub.async {
			b.runAsync(ctx, sub.asyncFn, event)
			continue
		}
		b.runSync(sub, event)
		if sub.once {
			onceIDs = append(onceIDs, sub.id)
		}
	}

	for _, id := range onceIDs {
		b.Off(id)
	}

	b.recordHistory(event)
	return event, nil
}

func (b *Bus) enterEmit(eventType string, event Event) (bool, error) {
	depth := atomic.AddInt32(&b.depth, 1)
	if depth > maxEmitDepth {
		atomic.AddInt32(&b.depth, -1)
		if logger.Logger != nil {
			logger.Logger.Warnw("event bus recursion guard tripped", "event_type", eventType)
		}
		return false, ErrRecursionLimitExceeded
	}
	return true, nil
}

// runSync invokes a sync handler with panic recovery, so one failing
// subscriber never prevents the remaining subscribers from running.
func (b *Bus) runSync(sub *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil && logger.Logger != nil {
			logger.Logger.Errorw("event bus subscriber panicked",
				"event_type", event.Type, "source", sub.source, "panic", r)
		}
	}()
	sub.handler(event)
}

func (b *Bus) runAsync(ctx context.Context, fn AsyncHandler, event Event) {
	defer func() {
		if r := recover(); r != nil && logger.Logger != nil {
			logger.Logger.Errorw("event bus async subscriber panicked",
				"event_type", event.Type, "panic", r)
		}
	}()
	if err := fn(ctx, event); err != nil && logger.Logger != nil {
		logger.Logger.Errorw("event bus async subscriber failed",
			"event_type", event.Type, "error", err)
	}
}

func (b *Bus) recordHistory(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, event)
	if len(b.history) > b.historySize {
		b.history = b.history[len(b.history)-b.historySize:]
	}
}

// History returns up to the last n recorded events, most recent last.
func (b *Bus) History(n int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || n > len(b.history) {
		n = len(b.history)
	}
	out := make([]Event, n)
	copy(out, b.history[len(b.history)-n:])
	return out
}

// SubscribersFor returns the number of subscribers registered for eventType.
func (b *Bus) SubscribersFor(eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[eventType])
}

// Stats summarizes bus activity.
type Stats struct {
	EventTypes      int `json:"event_types"`
	TotalSubscribers int `json:"total_subscribers"`
	HistorySize     int `json:"history_size"`
}

// Stats returns a snapshot of the bus's current subscriber and history state.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, subs := range b.subs {
		total += len(subs)
	}
	return Stats{
		EventTypes:       len(b.subs),
		TotalSubscribers: total,
		HistorySize:      len(b.history),
	}
}
