// Package notify provides a coalescing change signal.
//
// Subscribers receive at most one pending signal. Notifications that arrive
// while a signal is still pending are folded into it, so a slow subscriber
// reloads once and sees the latest state.
package notify

import "sync"

// Notifier fans a change signal out to subscribers.
type Notifier struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// New creates a notifier with no subscribers.
func New() *Notifier {
	return &Notifier{subs: make(map[chan struct{}]struct{})}
}

// Subscribe returns a signal channel and a function that cancels the
// subscription. The channel is never closed.
func (n *Notifier) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, ch)
			n.mu.Unlock()
		})
	}
}

// Notify signals every subscriber without blocking.
func (n *Notifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
			// already pending
		}
	}
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
