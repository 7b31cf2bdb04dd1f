// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package carousel

import "sync"

// Key is a navigation key name as reported by the client.
type Key string

// Navigation keys.
const (
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
)

// Keyboard is a source of key events.
type Keyboard interface {
	// Subscribe registers fn and returns a function that deregisters it.
	Subscribe(fn func(Key)) (unsubscribe func())
}

// KeyBus is an in-process Keyboard. Published keys are delivered
// synchronously to every current subscriber.
type KeyBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(Key)
}

// NewKeyBus creates an empty KeyBus.
func NewKeyBus() *KeyBus {
	return &KeyBus{handlers: make(map[int]func(Key))}
}

// Subscribe implements Keyboard. The returned function is idempotent.
func (b *KeyBus) Subscribe(fn func(Key)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers k to all subscribers and returns how many received it.
func (b *KeyBus) Publish(k Key) int {
	b.mu.RLock()
	handlers := make([]func(Key), 0, len(b.handlers))
	for _, fn := range b.handlers {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(k)
	}
	return len(handlers)
}

// Len returns the number of current subscribers.
func (b *KeyBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
