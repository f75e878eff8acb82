// Package roomstate keeps the room metadata and the participant roster.
package roomstate

import (
	"sort"
	"time"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/errors"
)

// Store owns the Session and its roster. The session status only changes through server events.
type Store struct {
	session      domain.Session
	loaded       bool
	participants map[string]domain.Participant
	// order keeps the roster in join order.
	order    []string
	allReady bool
}

func NewStore(roomID string) *Store {
	return &Store{
		session:      domain.Session{RoomID: roomID, Status: domain.StatusIdle},
		participants: make(map[string]domain.Participant),
	}
}

// Load replaces the session and the roster with a server snapshot.
// It reports whether the room became all ready.
func (s *Store) Load(d domain.RoomDetails) (allReady bool, err error) {
	if d.Session.Status == "" {
		d.Session.Status = s.session.Status
	}
	if !d.Session.Status.Valid() {
		return false, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("roomstate: invalid status %q", d.Session.Status))
	}
	if d.Session.RoomID == "" {
		d.Session.RoomID = s.session.RoomID
	}

	s.session = d.Session
	s.loaded = true

	clear(s.participants)
	s.order = s.order[:0]
	for _, p := range d.Participants {
		if _, ok := s.participants[p.ID]; !ok {
			s.order = append(s.order, p.ID)
		}
		s.participants[p.ID] = p
	}

	return s.checkAllReady(), nil
}

// SetStatus applies a server status change.
func (s *Store) SetStatus(status domain.SessionStatus, start *time.Time) error {
	if !status.Valid() {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("roomstate: invalid status %q", status))
	}

	s.session.Status = status
	if start != nil {
		s.session.SessionStartTime = start
	}
	return nil
}

// AddParticipant adds or replaces p. added is false when p was already in the roster.
func (s *Store) AddParticipant(p domain.Participant) (added, allReady bool) {
	_, exists := s.participants[p.ID]
	if !exists {
		s.order = append(s.order, p.ID)
	}
	s.participants[p.ID] = p
	return !exists, s.checkAllReady()
}

// RemoveParticipant reports whether the participant was in the roster, and whether
// the removal made the remaining room all ready.
func (s *Store) RemoveParticipant(id string) (removed, allReady bool) {
	if _, ok := s.participants[id]; !ok {
		return false, false
	}

	delete(s.participants, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	return true, s.checkAllReady()
}

// SetReady changes the readiness of a participant and reports whether the room became all ready.
func (s *Store) SetReady(id string, ready bool) (allReady bool, err error) {
	p, ok := s.participants[id]
	if !ok {
		return false, errors.New(errors.CodeNotFound,
			errors.WithMessagef("roomstate: participant %s not in room %s", id, s.session.RoomID))
	}

	p.IsReady = ready
	s.participants[id] = p
	return s.checkAllReady(), nil
}

// checkAllReady reports true only on the transition into the all ready state.
func (s *Store) checkAllReady() bool {
	now := len(s.participants) > 0
	for _, p := range s.participants {
		if !p.IsReady {
			now = false
			break
		}
	}

	became := now && !s.allReady
	s.allReady = now
	return became
}

func (s *Store) Session() domain.Session { return s.session }

// Loaded reports whether a server snapshot has been applied.
func (s *Store) Loaded() bool { return s.loaded }

func (s *Store) IsParticipant(id string) bool {
	_, ok := s.participants[id]
	return ok
}

func (s *Store) Participant(id string) (domain.Participant, bool) {
	p, ok := s.participants[id]
	return p, ok
}

// Participants returns the roster in join order.
func (s *Store) Participants() []domain.Participant {
	ps := make([]domain.Participant, 0, len(s.order))
	for _, id := range s.order {
		ps = append(ps, s.participants[id])
	}
	return ps
}

// ParticipantIDs returns the roster as a set.
func (s *Store) ParticipantIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.participants))
	for id := range s.participants {
		ids[id] = struct{}{}
	}
	return ids
}

// ReadyParticipants is derived from the roster, so it never holds someone who is not in the room.
func (s *Store) ReadyParticipants() []string {
	var ids []string
	for _, id := range s.order {
		if s.participants[id].IsReady {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) AllReady() bool { return s.allReady }

func (s *Store) Details() domain.RoomDetails {
	return domain.RoomDetails{Session: s.session, Participants: s.Participants()}
}
