// Package chat keeps the room's chat log, unread counter and typing indicators.
package chat

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
)

// Channel is an append-only message log. Arrival order is the canonical order: messages are never
// reordered by timestamp, since the clocks of the senders cannot be trusted.
type Channel struct {
	self     string
	now      func() time.Time
	messages []domain.ChatMessage
	open     bool
	unread   int
	typing   map[string]struct{}
}

func NewChannel(self string, now func() time.Time) *Channel {
	if now == nil {
		now = time.Now
	}

	return &Channel{
		self:   self,
		now:    now,
		typing: make(map[string]struct{}),
	}
}

// Add appends msg, stamping its timestamp and ID when absent.
// The unread counter grows only while the panel is closed and the sender is someone else.
func (c *Channel) Add(msg domain.ChatMessage) domain.ChatMessage {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = c.now()
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	c.messages = append(c.messages, msg)

	if !c.open && msg.UserID != c.self {
		c.unread++
	}

	return msg
}

// SetOpen opens or closes the chat panel. Opening it marks everything read.
func (c *Channel) SetOpen(open bool) {
	c.open = open
	if open {
		c.unread = 0
	}
}

func (c *Channel) MarkRead() {
	c.unread = 0
}

// SetTyping adds or removes userID from the typing set. It reports whether the set changed.
func (c *Channel) SetTyping(userID string, typing bool) bool {
	_, ok := c.typing[userID]
	if typing == ok {
		return false
	}

	if typing {
		c.typing[userID] = struct{}{}
	} else {
		delete(c.typing, userID)
	}
	return true
}

// RemoveUser drops the typing indicator of a user who left. Their messages stay in the log.
func (c *Channel) RemoveUser(userID string) {
	delete(c.typing, userID)
}

func (c *Channel) Messages() []domain.ChatMessage {
	return append([]domain.ChatMessage(nil), c.messages...)
}

func (c *Channel) IsOpen() bool { return c.open }

func (c *Channel) Unread() int { return c.unread }

// Typing returns the users currently typing, sorted.
func (c *Channel) Typing() []string {
	ids := make([]string, 0, len(c.typing))
	for id := range c.typing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
