// Package presence tracks who is in a room and what they are looking at.
package presence

import (
	"sort"
	"time"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
)

// Tracker holds presence records, cursors and shared highlights of one room.
// Presence and cursors are stamped separately so each can have its own staleness policy.
type Tracker struct {
	now        func() time.Time
	presence   map[string]domain.PresenceRecord
	cursors    map[string]domain.Cursor
	highlights map[string]domain.Highlight
}

func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}

	return &Tracker{
		now:        now,
		presence:   make(map[string]domain.PresenceRecord),
		cursors:    make(map[string]domain.Cursor),
		highlights: make(map[string]domain.Highlight),
	}
}

// UpdatePresence merges the non-nil fields of patch into the user's record and stamps LastSeen.
// A user seen for the first time starts offline unless the patch says otherwise.
func (t *Tracker) UpdatePresence(userID string, patch domain.PresencePatch) domain.PresenceRecord {
	r, ok := t.presence[userID]
	if !ok {
		r = domain.PresenceRecord{UserID: userID, Status: domain.PresenceOffline}
	}

	if patch.Status != nil {
		r.Status = *patch.Status
	}
	if patch.CurrentView != nil {
		r.CurrentView = *patch.CurrentView
	}
	r.LastSeen = t.now()

	t.presence[userID] = r
	return r
}

func (t *Tracker) UpdateCursor(userID string, pos domain.Position) domain.Cursor {
	c := domain.Cursor{UserID: userID, Position: pos, UpdatedAt: t.now()}
	t.cursors[userID] = c
	return c
}

// Remove deletes every presence and cursor entry of a user.
func (t *Tracker) Remove(userID string) {
	delete(t.presence, userID)
	delete(t.cursors, userID)
}

// Retain removes the entries of every user not in ids.
func (t *Tracker) Retain(ids map[string]struct{}) {
	for id := range t.presence {
		if _, ok := ids[id]; !ok {
			t.Remove(id)
		}
	}
	for id := range t.cursors {
		if _, ok := ids[id]; !ok {
			t.Remove(id)
		}
	}
}

// AddHighlight stores h. It returns false when a highlight with the same ID already exists.
func (t *Tracker) AddHighlight(h domain.Highlight) bool {
	if _, ok := t.highlights[h.ID]; ok {
		return false
	}
	t.highlights[h.ID] = h
	return true
}

// RemoveHighlight returns false when there was nothing to remove.
func (t *Tracker) RemoveHighlight(id string) bool {
	if _, ok := t.highlights[id]; !ok {
		return false
	}
	delete(t.highlights, id)
	return true
}

// Status returns offline for users without a record.
func (t *Tracker) Status(userID string) domain.PresenceStatus {
	if r, ok := t.presence[userID]; ok {
		return r.Status
	}
	return domain.PresenceOffline
}

func (t *Tracker) Presence(userID string) (domain.PresenceRecord, bool) {
	r, ok := t.presence[userID]
	return r, ok
}

func (t *Tracker) Cursor(userID string) (domain.Cursor, bool) {
	c, ok := t.cursors[userID]
	return c, ok
}

// Online lists the users whose status is online, sorted by ID.
func (t *Tracker) Online() []string {
	var ids []string
	for id, r := range t.presence {
		if r.Status == domain.PresenceOnline {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Stale lists the users not seen for longer than maxAge, sorted by ID.
func (t *Tracker) Stale(maxAge time.Duration) []string {
	cutoff := t.now().Add(-maxAge)

	var ids []string
	for id, r := range t.presence {
		if r.LastSeen.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ExpireStale marks the users not seen for longer than maxAge offline and drops their cursors.
// It returns the users whose status changed. LastSeen is left as it was.
func (t *Tracker) ExpireStale(maxAge time.Duration) []string {
	var expired []string
	for _, id := range t.Stale(maxAge) {
		delete(t.cursors, id)

		r := t.presence[id]
		if r.Status == domain.PresenceOffline {
			continue
		}
		r.Status = domain.PresenceOffline
		t.presence[id] = r
		expired = append(expired, id)
	}
	return expired
}

func (t *Tracker) Records() []domain.PresenceRecord {
	rs := make([]domain.PresenceRecord, 0, len(t.presence))
	for _, r := range t.presence {
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].UserID < rs[j].UserID })
	return rs
}

func (t *Tracker) Cursors() []domain.Cursor {
	cs := make([]domain.Cursor, 0, len(t.cursors))
	for _, c := range t.cursors {
		cs = append(cs, c)
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].UserID < cs[j].UserID })
	return cs
}

func (t *Tracker) Highlights() []domain.Highlight {
	hs := make([]domain.Highlight, 0, len(t.highlights))
	for _, h := range t.highlights {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i].ID < hs[j].ID })
	return hs
}
