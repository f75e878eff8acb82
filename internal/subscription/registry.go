package subscription

import (
	"log/slog"
	"sort"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/protocol"
)

// Sender is the live transport. The registry only talks to it while it is connected.
type Sender interface {
	IsConnected() bool
	Send(msg protocol.Outbound) error
}

// Registry is the authoritative set of topics this client wants pushed.
// It is independent of the connection: it keeps its state while disconnected and the connection
// replays it in full after every (re)connect.
type Registry struct {
	sender    Sender
	topics    map[string]struct{}
	confirmed map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		topics:    make(map[string]struct{}),
		confirmed: make(map[string]struct{}),
	}
}

// Attach sets the transport used to announce changes.
func (r *Registry) Attach(s Sender) {
	r.sender = s
}

// Subscribe adds topics to the set and returns the ones that were not already present.
// Only those are announced, and only if connected.
func (r *Registry) Subscribe(topics ...string) []string {
	var added []string
	for _, t := range topics {
		if t == "" {
			continue
		}
		if _, ok := r.topics[t]; ok {
			continue
		}
		r.topics[t] = struct{}{}
		added = append(added, t)
	}

	if len(added) > 0 {
		r.announce(protocol.Subscribe{Metrics: added})
	}

	return added
}

// Unsubscribe removes topics from the set and returns the ones that were present.
func (r *Registry) Unsubscribe(topics ...string) []string {
	var removed []string
	for _, t := range topics {
		if _, ok := r.topics[t]; !ok {
			continue
		}
		delete(r.topics, t)
		delete(r.confirmed, t)
		removed = append(removed, t)
	}

	if len(removed) > 0 {
		r.announce(protocol.Unsubscribe{Metrics: removed})
	}

	return removed
}

func (r *Registry) announce(msg protocol.Outbound) {
	if r.sender == nil || !r.sender.IsConnected() {
		return
	}

	if err := r.sender.Send(msg); err != nil {
		slog.Warn("subscription: announce failed", "type", msg.Type(), "error", err)
	}
}

// Topics returns the registered topics in sorted order.
func (r *Registry) Topics() []string {
	return sorted(r.topics)
}

// Has reports whether topic is registered.
func (r *Registry) Has(topic string) bool {
	_, ok := r.topics[topic]
	return ok
}

// Confirm records a server confirmation. Topics no longer registered are ignored.
func (r *Registry) Confirm(topics ...string) {
	for _, t := range topics {
		if _, ok := r.topics[t]; ok {
			r.confirmed[t] = struct{}{}
		}
	}
}

// Confirmed returns the registered topics the server has confirmed since the last reconnect.
func (r *Registry) Confirmed() []string {
	return sorted(r.confirmed)
}

// Replay returns the message re-announcing the whole set, or nil when the set is empty.
// Confirmations are reset because the new connection has to confirm again.
func (r *Registry) Replay() protocol.Outbound {
	clear(r.confirmed)

	if len(r.topics) == 0 {
		return nil
	}

	return protocol.Subscribe{Metrics: r.Topics()}
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
