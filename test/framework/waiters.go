package framework

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/paddock/pkg/events"
)

// Waiter provides utilities for waiting on conditions with timeouts
type Waiter struct {
	timeout  time.Duration
	interval time.Duration
}

// NewWaiter creates a new Waiter with the given timeout and polling interval
func NewWaiter(timeout, interval time.Duration) *Waiter {
	return &Waiter{
		timeout:  timeout,
		interval: interval,
	}
}

// DefaultWaiter returns a waiter tuned for in-process fakes (5s timeout,
// 20ms interval)
func DefaultWaiter() *Waiter {
	return NewWaiter(5*time.Second, 20*time.Millisecond)
}

// WaitFor waits for a condition to become true
func (w *Waiter) WaitFor(ctx context.Context, condition func() bool, description string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Check immediately
	if condition() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for: %s (timeout: %v)", description, w.timeout)
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}

// NextEvent receives one event from a subscription, or fails after the
// waiter's timeout
func (w *Waiter) NextEvent(sub events.Subscriber) (*events.Event, error) {
	select {
	case event, ok := <-sub:
		if !ok {
			return nil, fmt.Errorf("subscription closed while waiting for an event")
		}
		return event, nil
	case <-time.After(w.timeout):
		return nil, fmt.Errorf("timeout waiting for an event (timeout: %v)", w.timeout)
	}
}

// NextEventOfType discards events until one of the wanted type arrives
func (w *Waiter) NextEventOfType(sub events.Subscriber, eventType events.EventType) (*events.Event, error) {
	deadline := time.After(w.timeout)
	for {
		select {
		case event, ok := <-sub:
			if !ok {
				return nil, fmt.Errorf("subscription closed while waiting for %s", eventType)
			}
			if event.Type == eventType {
				return event, nil
			}
		case <-deadline:
			return nil, fmt.Errorf("timeout waiting for a %s event (timeout: %v)", eventType, w.timeout)
		}
	}
}
