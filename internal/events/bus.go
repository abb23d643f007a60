// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events is a small typed publish/subscribe bus used for
// cross-component refresh signals (for example "the file list changed").
package events

import "sync"

// Topic names a kind of event.
type Topic string

const (
	TopicFilesUpdated   Topic = "files.updated"
	TopicFoldersUpdated Topic = "folders.updated"
	TopicThreadsUpdated Topic = "threads.updated"
	TopicSessionChanged Topic = "session.changed"
)

// Event is one published signal. Data is optional topic-specific payload.
type Event struct {
	Topic Topic
	Data  interface{}
}

// subscriberBuffer bounds each subscriber's backlog. Refresh signals are
// idempotent, so a full buffer drops the newest event.
const subscriberBuffer = 8

// Bus fans events out to subscribers. The zero value is not usable; call New.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic]map[int]chan Event
	nextID int
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Topic]map[int]chan Event)}
}

// Subscribe returns a channel receiving topic's events and a cancel func
// that unsubscribes and closes the channel. cancel is idempotent.
func (b *Bus) Subscribe(topic Topic) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan Event)
	}
	b.subs[topic][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], id)
			close(ch)
		})
	}
}

// Publish delivers e to every subscriber of e.Topic without blocking.
// Order across subscribers is unspecified.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[e.Topic] {
		select {
		case ch <- e:
		default:
		}
	}
}

// Signal publishes a payload-free event.
func (b *Bus) Signal(topic Topic) {
	b.Publish(Event{Topic: topic})
}
