// Package protocol defines the messages exchanged with the collaboration server.
//
// Every frame is a JSON envelope with a "type" discriminant. Inbound and Outbound are closed sets:
// only types declared in this package implement them.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
)

const (
	TypeMetricUpdate          = "metric_update"
	TypeAgentStatus           = "agent_status"
	TypeErrorLog              = "error_log"
	TypeSystemAlert           = "system_alert"
	TypeContentSubmission     = "content_submission"
	TypeUserActivity          = "user_activity"
	TypeSubscriptionConfirmed = "subscription_confirmed"
	TypePong                  = "pong"

	TypeRoomState         = "room_state"
	TypeSessionStatus     = "session_status"
	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"
	TypeReadyChanged      = "ready_changed"
	TypePresenceUpdate    = "presence_update"
	TypeCursorMove        = "cursor_move"
	TypeHighlightAdded    = "highlight_added"
	TypeHighlightRemoved  = "highlight_removed"
	TypeChatMessage       = "chat_message"
	TypeTyping            = "typing"
	TypeQuestionSet       = "question_set"
	TypeTeamAnswer        = "team_answer"
	TypeVoteCast          = "vote_cast"
	TypeConsensusReached  = "consensus_reached"
	TypeLeaderboardUpdate = "leaderboard_update"
	TypeDrawingAdded      = "drawing_added"
	TypeDrawingsCleared   = "drawings_cleared"
	TypeContentReplaced   = "content_replaced"
	TypeContentPatched    = "content_patched"

	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
)

// Envelope is the wire form of every frame.
type Envelope struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Metrics []string        `json:"metrics,omitempty"`
}

// Inbound is a message received from the server.
type Inbound interface {
	Type() string
	inbound()
}

// Outbound is a message sent to the server.
type Outbound interface {
	Type() string
	outbound()
}

type (
	MetricUpdate      struct{ domain.Metric }
	AgentStatus       struct{ domain.AgentStatus }
	ErrorLog          struct{ domain.LogEntry }
	SystemAlert       struct{ domain.Alert }
	ContentSubmission struct{ domain.ContentSubmission }
	UserActivity      struct{ domain.UserActivity }

	SubscriptionConfirmed struct {
		Metrics []string `json:"metrics"`
	}

	Pong struct{}

	RoomState struct{ domain.RoomDetails }

	SessionStatus struct {
		Status           domain.SessionStatus `json:"status"`
		SessionStartTime *time.Time           `json:"sessionStartTime,omitempty"`
	}

	ParticipantJoined struct{ domain.Participant }

	ParticipantLeft struct {
		UserID string `json:"userId"`
	}

	ReadyChanged struct {
		UserID  string `json:"userId"`
		IsReady bool   `json:"isReady"`
	}

	PresenceUpdate struct {
		UserID string `json:"userId"`
		domain.PresencePatch
	}

	CursorMove struct {
		UserID   string          `json:"userId"`
		Position domain.Position `json:"position"`
	}

	HighlightAdded struct{ domain.Highlight }

	HighlightRemoved struct {
		ID string `json:"id"`
	}

	ChatMessage struct{ domain.ChatMessage }

	Typing struct {
		UserID   string `json:"userId"`
		IsTyping bool   `json:"isTyping"`
	}

	QuestionSet struct {
		Question domain.Question `json:"question"`
		Mode     domain.QuizMode `json:"mode"`
	}

	TeamAnswer struct {
		QuestionID string `json:"questionId"`
		UserID     string `json:"userId"`
		Answer     string `json:"answer"`
	}

	VoteCast struct {
		QuestionID string `json:"questionId"`
		UserID     string `json:"userId"`
		Answer     string `json:"answer"`
	}

	ConsensusReached struct {
		QuestionID string `json:"questionId"`
		Answer     string `json:"answer"`
	}

	LeaderboardUpdate struct{ domain.LeaderboardPage }

	DrawingAdded struct{ domain.DrawOp }

	DrawingsCleared struct{}

	ContentReplaced struct {
		Content map[string]json.RawMessage `json:"content"`
	}

	ContentPatched struct {
		Patch map[string]json.RawMessage `json:"patch"`
	}
)

func (MetricUpdate) Type() string          { return TypeMetricUpdate }
func (AgentStatus) Type() string           { return TypeAgentStatus }
func (ErrorLog) Type() string              { return TypeErrorLog }
func (SystemAlert) Type() string           { return TypeSystemAlert }
func (ContentSubmission) Type() string     { return TypeContentSubmission }
func (UserActivity) Type() string          { return TypeUserActivity }
func (SubscriptionConfirmed) Type() string { return TypeSubscriptionConfirmed }
func (Pong) Type() string                  { return TypePong }
func (RoomState) Type() string             { return TypeRoomState }
func (SessionStatus) Type() string         { return TypeSessionStatus }
func (ParticipantJoined) Type() string     { return TypeParticipantJoined }
func (ParticipantLeft) Type() string       { return TypeParticipantLeft }
func (ReadyChanged) Type() string          { return TypeReadyChanged }
func (PresenceUpdate) Type() string        { return TypePresenceUpdate }
func (CursorMove) Type() string            { return TypeCursorMove }
func (HighlightAdded) Type() string        { return TypeHighlightAdded }
func (HighlightRemoved) Type() string      { return TypeHighlightRemoved }
func (ChatMessage) Type() string           { return TypeChatMessage }
func (Typing) Type() string                { return TypeTyping }
func (QuestionSet) Type() string           { return TypeQuestionSet }
func (TeamAnswer) Type() string            { return TypeTeamAnswer }
func (VoteCast) Type() string              { return TypeVoteCast }
func (ConsensusReached) Type() string      { return TypeConsensusReached }
func (LeaderboardUpdate) Type() string     { return TypeLeaderboardUpdate }
func (DrawingAdded) Type() string          { return TypeDrawingAdded }
func (DrawingsCleared) Type() string       { return TypeDrawingsCleared }
func (ContentReplaced) Type() string       { return TypeContentReplaced }
func (ContentPatched) Type() string        { return TypeContentPatched }

func (*MetricUpdate) inbound()          {}
func (*AgentStatus) inbound()           {}
func (*ErrorLog) inbound()              {}
func (*SystemAlert) inbound()           {}
func (*ContentSubmission) inbound()     {}
func (*UserActivity) inbound()          {}
func (*SubscriptionConfirmed) inbound() {}
func (*Pong) inbound()                  {}
func (*RoomState) inbound()             {}
func (*SessionStatus) inbound()         {}
func (*ParticipantJoined) inbound()     {}
func (*ParticipantLeft) inbound()       {}
func (*ReadyChanged) inbound()          {}
func (*PresenceUpdate) inbound()        {}
func (*CursorMove) inbound()            {}
func (*HighlightAdded) inbound()        {}
func (*HighlightRemoved) inbound()      {}
func (*ChatMessage) inbound()           {}
func (*Typing) inbound()                {}
func (*QuestionSet) inbound()           {}
func (*TeamAnswer) inbound()            {}
func (*VoteCast) inbound()              {}
func (*ConsensusReached) inbound()      {}
func (*LeaderboardUpdate) inbound()     {}
func (*DrawingAdded) inbound()          {}
func (*DrawingsCleared) inbound()       {}
func (*ContentReplaced) inbound()       {}
func (*ContentPatched) inbound()        {}

// Outbound messages. Room actions reuse the inbound type names because the server relays them
// to every participant of the room.
type (
	Subscribe struct {
		Metrics []string
	}

	Unsubscribe struct {
		Metrics []string
	}

	Ping struct{}

	SendChat struct {
		Text string `json:"text"`
	}

	SetTyping struct {
		IsTyping bool `json:"isTyping"`
	}

	MoveCursor struct {
		Position domain.Position `json:"position"`
	}

	UpdatePresence struct {
		domain.PresencePatch
	}

	SubmitTeamAnswer struct {
		QuestionID string `json:"questionId"`
		Answer     string `json:"answer"`
	}

	CastVote struct {
		QuestionID string `json:"questionId"`
		Answer     string `json:"answer"`
	}

	AddHighlight struct{ domain.Highlight }

	RemoveHighlight struct {
		ID string `json:"id"`
	}

	AddDrawing struct{ domain.DrawOp }

	ClearDrawings struct{}

	ReplaceContent struct {
		Content map[string]json.RawMessage `json:"content"`
	}

	PatchContent struct {
		Patch map[string]json.RawMessage `json:"patch"`
	}
)

func (Subscribe) Type() string        { return TypeSubscribe }
func (Unsubscribe) Type() string      { return TypeUnsubscribe }
func (Ping) Type() string             { return TypePing }
func (SendChat) Type() string         { return TypeChatMessage }
func (SetTyping) Type() string        { return TypeTyping }
func (MoveCursor) Type() string       { return TypeCursorMove }
func (UpdatePresence) Type() string   { return TypePresenceUpdate }
func (SubmitTeamAnswer) Type() string { return TypeTeamAnswer }
func (CastVote) Type() string         { return TypeVoteCast }
func (AddHighlight) Type() string     { return TypeHighlightAdded }
func (RemoveHighlight) Type() string  { return TypeHighlightRemoved }
func (AddDrawing) Type() string       { return TypeDrawingAdded }
func (ClearDrawings) Type() string    { return TypeDrawingsCleared }
func (ReplaceContent) Type() string   { return TypeContentReplaced }
func (PatchContent) Type() string     { return TypeContentPatched }

func (Subscribe) outbound()        {}
func (Unsubscribe) outbound()      {}
func (Ping) outbound()             {}
func (SendChat) outbound()         {}
func (SetTyping) outbound()        {}
func (MoveCursor) outbound()       {}
func (UpdatePresence) outbound()   {}
func (SubmitTeamAnswer) outbound() {}
func (CastVote) outbound()         {}
func (AddHighlight) outbound()     {}
func (RemoveHighlight) outbound()  {}
func (AddDrawing) outbound()       {}
func (ClearDrawings) outbound()    {}
func (ReplaceContent) outbound()   {}
func (PatchContent) outbound()     {}
