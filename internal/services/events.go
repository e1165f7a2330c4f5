package services

import (
	"sync"

	"comentum/internal/models"
)

type EventType string

const (
	EventCommentCreated      EventType = "comment.created"
	EventReactionChanged     EventType = "reaction.changed"
	EventFlagInstanceAdded   EventType = "flag.instance.added"
	EventFlagInstanceRemoved EventType = "flag.instance.removed"
)

// Event carries the comment the mutation applied to and, where relevant,
// the acting user id.
type Event struct {
	Type    EventType
	Comment *models.Comment
	UserID  uint
}

// Bus is a small in-process event bus. Publishing dispatches synchronously
// in subscription order; handlers that need to be asynchronous enqueue work
// themselves (the mailer already runs on its own workers).
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]func(Event)
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[EventType][]func(Event))}
}

func (b *Bus) Subscribe(t EventType, fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], fn)
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := b.handlers[e.Type]
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(e)
	}
}
