// Package types holds the shared conversation data model for the widget.
package types

import (
	"time"
)

// Author identifies who produced a transcript message.
type Author string

const (
	AuthorAgent   Author = "agent"
	AuthorVisitor Author = "visitor"
)

// Channel identifies which conversation channel carried a message.
type Channel string

const (
	ChannelVoice Channel = "voice"
	ChannelText  Channel = "text"
)

// RoomContext is the ambient named location the visitor currently occupies
// inside the tour, as reported by the host page.
type RoomContext struct {
	Name             string   `json:"name"`
	AreaSquareMeters *float64 `json:"area_square_meters,omitempty"`
}

// Clone returns a deep copy of the room context.
func (r *RoomContext) Clone() *RoomContext {
	if r == nil {
		return nil
	}
	out := &RoomContext{Name: r.Name}
	if r.AreaSquareMeters != nil {
		area := *r.AreaSquareMeters
		out.AreaSquareMeters = &area
	}
	return out
}

// Message is a single transcript entry. Messages are immutable once
// appended; transcript order is append order.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    Author    `json:"author"`
	Channel   Channel   `json:"channel"`
	Timestamp time.Time `json:"timestamp"`

	// RoomContext is the ambient room snapshot captured at append time.
	// Later room changes never alter it.
	RoomContext *RoomContext `json:"room_context,omitempty"`
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	out.RoomContext = m.RoomContext.Clone()
	return out
}

// LeadDraft holds contact details while the lead form is open. It is
// transient: discarded on submit or cancel.
type LeadDraft struct {
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}
