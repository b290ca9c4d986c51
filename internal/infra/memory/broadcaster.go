package memory

import (
	"context"
	"sync"

	"campus-quiz-service/internal/domain"
)

// Broadcaster is an in-process notification sink that fans events out to
// per-quiz subscribers. It backs the websocket stats feed when no Redis is
// configured.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.Event]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]map[chan domain.Event]struct{}),
	}
}

// Publish delivers the event to every subscriber of its quiz. Slow consumers
// have their oldest pending event dropped rather than blocking the publisher.
func (b *Broadcaster) Publish(_ context.Context, event domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers[event.QuizID] {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
	return nil
}

// Subscribe returns a channel of events for one quiz. The caller must invoke
// the returned cancel function to avoid leaks.
func (b *Broadcaster) Subscribe(quizID string) (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 8)

	b.mu.Lock()
	if b.subscribers[quizID] == nil {
		b.subscribers[quizID] = make(map[chan domain.Event]struct{})
	}
	b.subscribers[quizID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if subs, ok := b.subscribers[quizID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(b.subscribers, quizID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}
