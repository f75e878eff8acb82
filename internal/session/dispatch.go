package session

import (
	"context"
	"log/slog"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/errors"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/protocol"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/telemetry"
)

const (
	dropMalformed      = "malformed"
	dropUnknownType    = "unknown_type"
	dropNonParticipant = "non_participant"
	dropRejected       = "rejected"
)

// handleFrame runs on the loop for every inbound frame, in socket order.
// Bad frames are logged and dropped; the session carries on.
func (s *Session) handleFrame(frame []byte) {
	msg, err := protocol.Decode(frame)
	if err != nil {
		reason := dropMalformed
		if errors.Is(err, errors.CodeUnimplemented) {
			reason = dropUnknownType
		}
		telemetry.FramesDropped.WithLabelValues(reason).Inc()
		slog.Warn("session: frame dropped", "room", s.roomID, "reason", reason, "error", err)
		return
	}

	telemetry.FramesReceived.WithLabelValues(msg.Type()).Inc()
	s.dispatch(msg)
}

func (s *Session) dispatch(msg protocol.Inbound) {
	switch m := msg.(type) {
	case *protocol.Pong:
		s.conn.HandlePong()
	case *protocol.SubscriptionConfirmed:
		s.subs.Confirm(m.Metrics...)

	case *protocol.MetricUpdate:
		s.feed.SetMetric(m.Metric)
	case *protocol.AgentStatus:
		s.feed.SetAgentStatus(m.AgentStatus)
	case *protocol.ErrorLog:
		s.feed.AddError(m.LogEntry)
	case *protocol.SystemAlert:
		s.feed.AddAlert(m.Alert)
		s.publish(domain.EventSystemAlertReceived{RoomID: s.roomID, Alert: m.Alert})
	case *protocol.ContentSubmission:
		s.feed.AddSubmission(m.ContentSubmission)
	case *protocol.UserActivity:
		s.feed.AddActivity(m.UserActivity)

	case *protocol.RoomState:
		s.loadRoom(m)
	case *protocol.SessionStatus:
		if s.rejected(msg, s.room.SetStatus(m.Status, m.SessionStartTime)) {
			return
		}
		s.publish(domain.EventRoomUpdated{Session: s.room.Session()})
	case *protocol.ParticipantJoined:
		added, ready := s.room.AddParticipant(m.Participant)
		if added {
			s.publish(domain.EventParticipantJoined{RoomID: s.roomID, Participant: m.Participant})
		}
		s.publishAllReady(ready)
	case *protocol.ParticipantLeft:
		s.removeParticipant(m.UserID)
	case *protocol.ReadyChanged:
		ready, err := s.room.SetReady(m.UserID, m.IsReady)
		if s.rejected(msg, err) {
			return
		}
		s.publishAllReady(ready)

	case *protocol.PresenceUpdate:
		if !s.fromParticipant(msg, m.UserID) {
			return
		}
		s.presence.UpdatePresence(m.UserID, m.PresencePatch)
	case *protocol.CursorMove:
		if !s.fromParticipant(msg, m.UserID) {
			return
		}
		s.presence.UpdateCursor(m.UserID, m.Position)
	case *protocol.HighlightAdded:
		s.presence.AddHighlight(m.Highlight)
	case *protocol.HighlightRemoved:
		s.presence.RemoveHighlight(m.ID)

	case *protocol.ChatMessage:
		added := s.chat.Add(m.ChatMessage)
		s.publish(domain.EventChatMessageAdded{RoomID: s.roomID, Message: added, UnreadCount: s.chat.Unread()})
	case *protocol.Typing:
		if !s.fromParticipant(msg, m.UserID) {
			return
		}
		s.chat.SetTyping(m.UserID, m.IsTyping)

	case *protocol.QuestionSet:
		if s.rejected(msg, s.quiz.SetCurrentQuestion(m.Question, m.Mode)) {
			return
		}
		s.publish(domain.EventQuestionSet{RoomID: s.roomID, Question: m.Question, Mode: s.quiz.Mode()})
	case *protocol.TeamAnswer:
		s.rejected(msg, s.quiz.SubmitTeamAnswer(m.QuestionID, m.UserID, m.Answer))
	case *protocol.VoteCast:
		s.rejected(msg, s.quiz.VoteForAnswer(m.QuestionID, m.UserID, m.Answer))
	case *protocol.ConsensusReached:
		if s.rejected(msg, s.quiz.ApplyConsensus(m.QuestionID, m.Answer)) {
			return
		}
		q, _ := s.quiz.Question()
		s.publish(domain.EventConsensusReached{RoomID: s.roomID, QuestionID: q.QuestionID, Answer: m.Answer})

	case *protocol.LeaderboardUpdate:
		s.board.ApplyPush(context.Background(), m.LeaderboardPage)

	case *protocol.DrawingAdded:
		s.wb.AddDrawing(m.DrawOp)
	case *protocol.DrawingsCleared:
		s.wb.ClearDrawings()
		s.publish(domain.EventWhiteboardCleared{RoomID: s.roomID})
	case *protocol.ContentReplaced:
		v := s.wb.ReplaceContent(m.Content)
		s.publish(domain.EventWhiteboardResync{RoomID: s.roomID, Version: v})
	case *protocol.ContentPatched:
		v := s.wb.PatchContent(m.Patch)
		s.publish(domain.EventWhiteboardResync{RoomID: s.roomID, Version: v})

	default:
		slog.Warn("session: no handler for message", "room", s.roomID, "type", msg.Type())
	}
}

// loadRoom applies a full room snapshot and prunes every per-user entry of users no longer in it.
func (s *Session) loadRoom(m *protocol.RoomState) {
	before := s.room.ParticipantIDs()

	ready, err := s.room.Load(m.RoomDetails)
	if s.rejected(m, err) {
		return
	}

	ids := s.room.ParticipantIDs()
	s.presence.Retain(ids)
	for _, id := range s.chat.Typing() {
		if _, ok := ids[id]; !ok {
			s.chat.RemoveUser(id)
		}
	}
	for id := range before {
		if _, ok := ids[id]; !ok {
			s.quiz.RemoveParticipant(id)
		}
	}

	s.publish(domain.EventRoomUpdated{Session: s.room.Session()})
	s.publishAllReady(ready)
}

// removeParticipant drops the participant from the roster and every component holding
// per-user state, so no presence, cursor or typing entry outlives the participant.
func (s *Session) removeParticipant(id string) {
	removed, ready := s.room.RemoveParticipant(id)
	s.presence.Remove(id)
	s.chat.RemoveUser(id)
	s.quiz.RemoveParticipant(id)

	if removed {
		s.publish(domain.EventParticipantLeft{RoomID: s.roomID, UserID: id})
	}
	s.publishAllReady(ready)
}

func (s *Session) publishAllReady(became bool) {
	if !became {
		return
	}
	s.publish(domain.EventAllReady{RoomID: s.roomID, Participants: s.room.ReadyParticipants()})
}

// fromParticipant reports whether per-user state may be kept for userID. Until the roster is
// loaded every user is accepted; loading the roster prunes the others.
func (s *Session) fromParticipant(msg protocol.Inbound, userID string) bool {
	if !s.room.Loaded() || s.room.IsParticipant(userID) {
		return true
	}

	telemetry.FramesDropped.WithLabelValues(dropNonParticipant).Inc()
	slog.Debug("session: message from non participant dropped", "room", s.roomID, "type", msg.Type(), "user", userID)
	return false
}

// rejected logs err, if any, as a message the session could not apply.
func (s *Session) rejected(msg protocol.Inbound, err error) bool {
	if err == nil {
		return false
	}

	telemetry.FramesDropped.WithLabelValues(dropRejected).Inc()
	slog.Warn("session: message not applied", "room", s.roomID, "type", msg.Type(), "error", err)
	return true
}
