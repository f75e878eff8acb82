package roomstate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/errors"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/roomstate"
)

func TestStore_Load(t *testing.T) {
	s := roomstate.NewStore("r1")
	assert.Equal(t, domain.StatusIdle, s.Session().Status)
	assert.False(t, s.Loaded())

	became, err := s.Load(domain.RoomDetails{
		Session: domain.Session{Name: "Algebra", Status: domain.StatusLobby, MaxParticipants: 4},
		Participants: []domain.Participant{
			{ID: "alice", IsReady: true},
			{ID: "bob"},
		},
	})
	require.NoError(t, err)
	assert.False(t, became)
	assert.True(t, s.Loaded())
	assert.Equal(t, "r1", s.Session().RoomID, "room ID should be kept when the snapshot omits it")
	assert.Equal(t, domain.StatusLobby, s.Session().Status)
	assert.Equal(t, []string{"alice"}, s.ReadyParticipants())

	_, err = s.Load(domain.RoomDetails{Session: domain.Session{Status: "paused"}})
	assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
	assert.Equal(t, domain.StatusLobby, s.Session().Status, "invalid snapshot should not be applied")
}

func TestStore_SetStatus(t *testing.T) {
	s := roomstate.NewStore("r1")
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.SetStatus(domain.StatusActive, &start))
	assert.Equal(t, domain.StatusActive, s.Session().Status)
	assert.Equal(t, &start, s.Session().SessionStartTime)

	require.NoError(t, s.SetStatus(domain.StatusEnded, nil))
	assert.Equal(t, &start, s.Session().SessionStartTime, "start time should be kept")

	err := s.SetStatus("unknown", nil)
	assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
	assert.Equal(t, domain.StatusEnded, s.Session().Status)
}

func TestStore_Roster(t *testing.T) {
	s := roomstate.NewStore("r1")

	added, _ := s.AddParticipant(domain.Participant{ID: "alice"})
	assert.True(t, added)
	added, _ = s.AddParticipant(domain.Participant{ID: "bob"})
	assert.True(t, added)
	added, _ = s.AddParticipant(domain.Participant{ID: "alice", DisplayName: "Alice"})
	assert.False(t, added)

	ps := s.Participants()
	require.Len(t, ps, 2)
	assert.Equal(t, "alice", ps[0].ID)
	assert.Equal(t, "Alice", ps[0].DisplayName)

	removed, _ := s.RemoveParticipant("alice")
	assert.True(t, removed)
	removed, _ = s.RemoveParticipant("alice")
	assert.False(t, removed)

	assert.False(t, s.IsParticipant("alice"))
	assert.Equal(t, map[string]struct{}{"bob": {}}, s.ParticipantIDs())

	_, err := s.SetReady("alice", true)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestStore_AllReadyTransition(t *testing.T) {
	type step struct {
		do       func(s *roomstate.Store) bool
		allReady bool
		became   bool
	}

	tests := map[string]struct {
		steps []step
	}{
		"fires once when the last participant gets ready": {
			steps: []step{
				{do: func(s *roomstate.Store) bool { b, _ := s.SetReady("alice", true); return b }},
				{do: func(s *roomstate.Store) bool { b, _ := s.SetReady("bob", true); return b }, allReady: true, became: true},
				{do: func(s *roomstate.Store) bool { b, _ := s.SetReady("bob", true); return b }, allReady: true},
			},
		},
		"fires again after readiness was lost": {
			steps: []step{
				{do: func(s *roomstate.Store) bool { b, _ := s.SetReady("alice", true); return b }},
				{do: func(s *roomstate.Store) bool { b, _ := s.SetReady("bob", true); return b }, allReady: true, became: true},
				{do: func(s *roomstate.Store) bool { b, _ := s.SetReady("bob", false); return b }},
				{do: func(s *roomstate.Store) bool { b, _ := s.SetReady("bob", true); return b }, allReady: true, became: true},
			},
		},
		"removing the only unready participant makes the room ready": {
			steps: []step{
				{do: func(s *roomstate.Store) bool { b, _ := s.SetReady("alice", true); return b }},
				{do: func(s *roomstate.Store) bool { _, b := s.RemoveParticipant("bob"); return b }, allReady: true, became: true},
			},
		},
		"a new unready participant breaks readiness": {
			steps: []step{
				{do: func(s *roomstate.Store) bool { b, _ := s.SetReady("alice", true); return b }},
				{do: func(s *roomstate.Store) bool { b, _ := s.SetReady("bob", true); return b }, allReady: true, became: true},
				{do: func(s *roomstate.Store) bool { _, b := s.AddParticipant(domain.Participant{ID: "carol"}); return b }},
			},
		},
		"a ready participant joining an empty room makes it ready": {
			steps: []step{
				{do: func(s *roomstate.Store) bool { _, b := s.RemoveParticipant("alice"); return b }},
				{do: func(s *roomstate.Store) bool { _, b := s.RemoveParticipant("bob"); return b }},
				{do: func(s *roomstate.Store) bool {
					_, b := s.AddParticipant(domain.Participant{ID: "carol", IsReady: true})
					return b
				}, allReady: true, became: true},
			},
		},
		"an empty room is never ready": {
			steps: []step{
				{do: func(s *roomstate.Store) bool { _, b := s.RemoveParticipant("alice"); return b }},
				{do: func(s *roomstate.Store) bool { _, b := s.RemoveParticipant("bob"); return b }},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := roomstate.NewStore("r1")
			s.AddParticipant(domain.Participant{ID: "alice"})
			s.AddParticipant(domain.Participant{ID: "bob"})

			for i, st := range tt.steps {
				became := st.do(s)
				assert.Equal(t, st.became, became, "step %d: transition", i)
				assert.Equal(t, st.allReady, s.AllReady(), "step %d: all ready", i)

				for _, id := range s.ReadyParticipants() {
					assert.True(t, s.IsParticipant(id), "ready participants must be in the roster")
				}
			}
		})
	}
}
