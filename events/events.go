// Package events is the in-process channel between bridge flows and the
// reconciler. Delivery is best-effort: a subscriber that is not listening,
// or whose buffer is full, misses the event.
package events

import (
	"sync"
	"time"

	"gowicpbridge/logger"
)

type Kind string

const (
	KindMintCompleted Kind = "mint-completed"
	KindBurnSubmitted Kind = "burn-submitted"
)

type Event interface {
	Kind() Kind
}

// MintCompleted fires once a mint transaction executed on Sui.
type MintCompleted struct {
	ObjectID        string
	Digest          string
	Amount          uint64
	TokenType       string
	LinkedDepositID *uint64
	Ts              time.Time
}

func (MintCompleted) Kind() Kind { return KindMintCompleted }

// BurnSubmitted fires once a burn transaction executed on Sui.
type BurnSubmitted struct {
	ObjectID        string
	Digest          string
	Amount          uint64
	LinkedDepositID *uint64
	Ts              time.Time
}

func (BurnSubmitted) Kind() Kind { return KindBurnSubmitted }

// SubscriptionBufferSize is the default buffer of a subscription channel.
var SubscriptionBufferSize = 16

type Bus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscription receives events published after it was created.
type Subscription struct {
	bus  *Bus
	ch   chan Event
	once sync.Once
}

// Subscribe registers a subscriber with a buffer of size buffer
// (SubscriptionBufferSize when <= 0).
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = SubscriptionBufferSize
	}
	sub := &Subscription{bus: b, ch: make(chan Event, buffer)}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish hands ev to every subscriber without blocking and returns how many
// received it.
func (b *Bus) Publish(ev Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
			delivered++
		default:
			logger.Warn("event dropped, subscriber buffer full", "kind", ev.Kind())
		}
	}
	return delivered
}

// C returns the event channel. It is closed by Unsubscribe.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		close(s.ch)
		s.bus.mu.Unlock()
	})
}
