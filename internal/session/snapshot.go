package session

import (
	"context"
	"encoding/json"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/dashboard"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/quiz"
)

// Snapshot is a read-only copy of the whole session state.
type Snapshot struct {
	Connection domain.ConnectionState `json:"connection"`
	Confirmed  []string               `json:"confirmedTopics"`

	Session           domain.Session       `json:"session"`
	Participants      []domain.Participant `json:"participants"`
	ReadyParticipants []string             `json:"readyParticipants"`
	AllReady          bool                 `json:"allReady"`

	Presence   []domain.PresenceRecord `json:"presence"`
	Cursors    []domain.Cursor         `json:"cursors"`
	Highlights []domain.Highlight      `json:"highlights"`
	Online     []string                `json:"online"`

	Chat ChatSnapshot `json:"chat"`
	Quiz QuizSnapshot `json:"quiz"`

	Leaderboard        *domain.Leaderboard `json:"leaderboard,omitempty"`
	LeaderboardLoading bool                `json:"leaderboardLoading"`
	LeaderboardError   string              `json:"leaderboardError,omitempty"`

	Whiteboard WhiteboardSnapshot `json:"whiteboard"`
	Dashboard  dashboard.Snapshot `json:"dashboard"`
}

type ChatSnapshot struct {
	Messages []domain.ChatMessage `json:"messages"`
	Open     bool                 `json:"open"`
	Unread   int                  `json:"unread"`
	Typing   []string             `json:"typing"`
}

type QuizSnapshot struct {
	Round     domain.QuizRound `json:"round"`
	Tally     []quiz.VoteCount `json:"tally"`
	CanSubmit bool             `json:"canSubmit"`
}

type WhiteboardSnapshot struct {
	Drawings []domain.DrawOp            `json:"drawings"`
	Content  map[string]json.RawMessage `json:"content"`
	Version  uint64                     `json:"version"`
}

// Snapshot copies the state on the loop, so it is consistent across components.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.lp.Do(ctx, func() {
		snap = Snapshot{
			Connection:        s.conn.State(),
			Confirmed:         s.subs.Confirmed(),
			Session:           s.room.Session(),
			Participants:      s.room.Participants(),
			ReadyParticipants: s.room.ReadyParticipants(),
			AllReady:          s.room.AllReady(),
			Presence:          s.presence.Records(),
			Cursors:           s.presence.Cursors(),
			Highlights:        s.presence.Highlights(),
			Online:            s.presence.Online(),
			Chat: ChatSnapshot{
				Messages: s.chat.Messages(),
				Open:     s.chat.IsOpen(),
				Unread:   s.chat.Unread(),
				Typing:   s.chat.Typing(),
			},
			Quiz: QuizSnapshot{
				Round:     s.quiz.Round(),
				Tally:     s.quiz.Tally(),
				CanSubmit: s.quiz.CanSubmit(),
			},
			LeaderboardLoading: s.board.Loading(),
			Whiteboard: WhiteboardSnapshot{
				Drawings: s.wb.Drawings(),
				Content:  s.wb.Content(),
				Version:  s.wb.Version(),
			},
			Dashboard: s.feed.Snapshot(),
		}

		if l, ok := s.board.Leaderboard(); ok {
			snap.Leaderboard = &l
		}
		if err := s.board.Err(); err != nil {
			snap.LeaderboardError = err.Error()
		}
	})
	return snap, err
}
