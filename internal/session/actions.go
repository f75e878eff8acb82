package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/errors"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/leaderboard"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/protocol"
)

// Subscribe registers topics and returns the ones that were new. They are announced to the
// server right away when connected, and on the next connect otherwise.
func (s *Session) Subscribe(ctx context.Context, topics ...string) ([]string, error) {
	var added []string
	err := s.lp.Do(ctx, func() { added = s.subs.Subscribe(topics...) })
	return added, err
}

func (s *Session) Unsubscribe(ctx context.Context, topics ...string) ([]string, error) {
	var removed []string
	err := s.lp.Do(ctx, func() { removed = s.subs.Unsubscribe(topics...) })
	return removed, err
}

// SendChat sends a chat message. The message shows up in the log when the server relays it back.
func (s *Session) SendChat(ctx context.Context, text string) error {
	if text == "" {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("session: empty chat message"))
	}
	return s.send(ctx, protocol.SendChat{Text: text})
}

func (s *Session) SetChatOpen(ctx context.Context, open bool) error {
	return s.lp.Do(ctx, func() { s.chat.SetOpen(open) })
}

func (s *Session) MarkChatRead(ctx context.Context) error {
	return s.lp.Do(ctx, s.chat.MarkRead)
}

func (s *Session) SetTyping(ctx context.Context, typing bool) error {
	return s.send(ctx, protocol.SetTyping{IsTyping: typing})
}

// MoveCursor sends the cursor position and shows it locally once sent.
func (s *Session) MoveCursor(ctx context.Context, pos domain.Position) error {
	return s.do(ctx, func() error {
		if err := s.conn.Send(protocol.MoveCursor{Position: pos}); err != nil {
			return err
		}
		s.presence.UpdateCursor(s.self, pos)
		return nil
	})
}

// UpdatePresence sends a presence patch and applies it locally once sent.
func (s *Session) UpdatePresence(ctx context.Context, patch domain.PresencePatch) error {
	return s.do(ctx, func() error {
		if err := s.conn.Send(protocol.UpdatePresence{PresencePatch: patch}); err != nil {
			return err
		}
		s.presence.UpdatePresence(s.self, patch)
		return nil
	})
}

func (s *Session) AddHighlight(ctx context.Context, h domain.Highlight) error {
	if h.ID == "" {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("session: highlight without ID"))
	}
	if h.UserID == "" {
		h.UserID = s.self
	}

	return s.do(ctx, func() error {
		if err := s.conn.Send(protocol.AddHighlight{Highlight: h}); err != nil {
			return err
		}
		s.presence.AddHighlight(h)
		return nil
	})
}

func (s *Session) RemoveHighlight(ctx context.Context, id string) error {
	return s.do(ctx, func() error {
		if err := s.conn.Send(protocol.RemoveHighlight{ID: id}); err != nil {
			return err
		}
		s.presence.RemoveHighlight(id)
		return nil
	})
}

// AddDrawing sends a draw operation. The log is only appended when the server relays it, so
// every client renders the same order.
func (s *Session) AddDrawing(ctx context.Context, op domain.DrawOp) error {
	if op.UserID == "" {
		op.UserID = s.self
	}
	return s.send(ctx, protocol.AddDrawing{DrawOp: op})
}

func (s *Session) ClearDrawings(ctx context.Context) error {
	return s.send(ctx, protocol.ClearDrawings{})
}

func (s *Session) ReplaceContent(ctx context.Context, content map[string]json.RawMessage) error {
	return s.send(ctx, protocol.ReplaceContent{Content: content})
}

func (s *Session) PatchContent(ctx context.Context, patch map[string]json.RawMessage) error {
	return s.send(ctx, protocol.PatchContent{Patch: patch})
}

// SubmitTeamAnswer sends this participant's team answer and records it once sent.
func (s *Session) SubmitTeamAnswer(ctx context.Context, answer string) error {
	return s.do(ctx, func() error {
		q, err := s.activeTeamQuestion()
		if err != nil {
			return err
		}
		if err := s.conn.Send(protocol.SubmitTeamAnswer{QuestionID: q.QuestionID, Answer: answer}); err != nil {
			return err
		}
		return s.quiz.SubmitTeamAnswer(q.QuestionID, s.self, answer)
	})
}

// VoteForAnswer sends this participant's vote and moves it locally once sent.
func (s *Session) VoteForAnswer(ctx context.Context, answer string) error {
	return s.do(ctx, func() error {
		q, err := s.activeTeamQuestion()
		if err != nil {
			return err
		}
		if err := s.conn.Send(protocol.CastVote{QuestionID: q.QuestionID, Answer: answer}); err != nil {
			return err
		}
		return s.quiz.VoteForAnswer(q.QuestionID, s.self, answer)
	})
}

func (s *Session) activeTeamQuestion() (domain.Question, error) {
	q, ok := s.quiz.Question()
	if !ok || !s.quiz.CanSubmit() || s.quiz.Mode() != domain.QuizModeTeam {
		return domain.Question{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("session: no active team question"))
	}
	return q, nil
}

// SubmitAnswer sends an answer for grading. Scores change only with the graded result; a rejected
// submission changes nothing and the question stays open.
func (s *Session) SubmitAnswer(ctx context.Context, answer string) (*domain.AnswerResult, error) {
	var sub domain.AnswerSubmission
	err := s.do(ctx, func() error {
		var err error
		sub, err = s.quiz.NewSubmission(s.roomID, answer, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	res, err := s.backend.SubmitAnswer(ctx, sub)
	if err != nil {
		slog.WarnContext(ctx, "session: answer rejected", "room", s.roomID, "question", sub.QuestionID, "error", err)
		return nil, err
	}

	err = s.lp.Do(ctx, func() {
		s.quiz.ApplyResult(sub, *res)

		score := res.TeamScore
		if sub.Mode == domain.QuizModeCompetitive {
			score = res.TotalScore
		}
		s.publish(domain.EventScoreUpdated{
			RoomID:        s.roomID,
			ParticipantID: s.self,
			Mode:          sub.Mode,
			Score:         score,
		})
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// FetchLeaderboard replaces the ranking with the one for filter. When the fetch fails the
// previous ranking stays on display and the error is returned.
func (s *Session) FetchLeaderboard(ctx context.Context, filter domain.LeaderboardFilter) (domain.Leaderboard, error) {
	var t leaderboard.Ticket
	if err := s.do(ctx, func() error {
		var err error
		t, err = s.board.Begin(filter)
		return err
	}); err != nil {
		return domain.Leaderboard{}, err
	}

	page, err := s.backend.FetchLeaderboard(ctx, s.roomID, t.Filter)

	var l domain.Leaderboard
	lerr := s.lp.Do(ctx, func() {
		if err != nil {
			s.board.Fail(ctx, t, err)
		} else {
			s.board.Apply(ctx, t, *page)
		}
		l, _ = s.board.Leaderboard()
	})
	if err != nil {
		return l, err
	}

	return l, lerr
}

// RefreshRoom reloads the room from the REST collaborator.
func (s *Session) RefreshRoom(ctx context.Context) error {
	d, err := s.backend.FetchRoomDetails(ctx, s.roomID)
	if err != nil {
		return err
	}
	return s.LoadRoom(ctx, *d)
}

// LoadRoom applies a room snapshot obtained from the REST collaborator.
func (s *Session) LoadRoom(ctx context.Context, d domain.RoomDetails) error {
	if d.Session.RoomID != "" && d.Session.RoomID != s.roomID {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("session: details of room %s loaded into %s", d.Session.RoomID, s.roomID))
	}

	return s.lp.Do(ctx, func() { s.loadRoom(&protocol.RoomState{RoomDetails: d}) })
}

// SetReady updates this participant's readiness and applies the server's answer.
func (s *Session) SetReady(ctx context.Context, ready bool) error {
	p, err := s.backend.UpdateReadyStatus(ctx, s.roomID, s.self, ready)
	if err != nil {
		return err
	}

	return s.do(ctx, func() error {
		became, err := s.room.SetReady(s.self, p.IsReady)
		if err != nil {
			return fmt.Errorf("apply ready status: %w", err)
		}
		s.publishAllReady(became)
		return nil
	})
}

// StartSession asks the server to start the room and applies the status it returns.
func (s *Session) StartSession(ctx context.Context) error {
	ss, err := s.backend.StartSession(ctx, s.roomID)
	if err != nil {
		return err
	}

	return s.do(ctx, func() error {
		if err := s.room.SetStatus(ss.Status, ss.SessionStartTime); err != nil {
			return err
		}
		s.publish(domain.EventRoomUpdated{Session: s.room.Session()})
		return nil
	})
}

// send writes msg on the loop. While disconnected it fails with CodeFailedPrecondition and
// nothing is queued.
func (s *Session) send(ctx context.Context, msg protocol.Outbound) error {
	return s.do(ctx, func() error { return s.conn.Send(msg) })
}
