package domain

import "github.com/shopspring/decimal"

const (
	EventNameConnectionChanged   = "connection.changed"
	EventNameRoomUpdated         = "room.updated"
	EventNameAllReady            = "room.all_ready"
	EventNameParticipantJoined   = "participant.joined"
	EventNameParticipantLeft     = "participant.left"
	EventNameChatMessageAdded    = "chat.message_added"
	EventNameQuestionSet         = "quiz.question_set"
	EventNameConsensusReached    = "quiz.consensus_reached"
	EventNameScoreUpdated        = "quiz.score_updated"
	EventNameLeaderboardUpdated  = "leaderboard.updated"
	EventNameWhiteboardResync    = "whiteboard.resync"
	EventNameWhiteboardCleared   = "whiteboard.cleared"
	EventNameSystemAlertReceived = "dashboard.system_alert"
)

// RoomEvent is an event that belongs to one room.
type RoomEvent interface {
	Name() string
	Room() string
}

// EventNames lists every event a session publishes.
var EventNames = []string{
	EventNameConnectionChanged,
	EventNameRoomUpdated,
	EventNameAllReady,
	EventNameParticipantJoined,
	EventNameParticipantLeft,
	EventNameChatMessageAdded,
	EventNameQuestionSet,
	EventNameConsensusReached,
	EventNameScoreUpdated,
	EventNameLeaderboardUpdated,
	EventNameWhiteboardResync,
	EventNameWhiteboardCleared,
	EventNameSystemAlertReceived,
}

type EventConnectionChanged struct {
	RoomID string          `json:"roomId"`
	State  ConnectionState `json:"state"`
}

func (EventConnectionChanged) Name() string { return EventNameConnectionChanged }
func (e EventConnectionChanged) Room() string { return e.RoomID }

type EventRoomUpdated struct {
	Session Session `json:"session"`
}

func (EventRoomUpdated) Name() string { return EventNameRoomUpdated }
func (e EventRoomUpdated) Room() string { return e.Session.RoomID }

type EventAllReady struct {
	RoomID       string   `json:"roomId"`
	Participants []string `json:"participants"`
}

func (EventAllReady) Name() string { return EventNameAllReady }
func (e EventAllReady) Room() string { return e.RoomID }

type EventParticipantJoined struct {
	RoomID      string      `json:"roomId"`
	Participant Participant `json:"participant"`
}

func (EventParticipantJoined) Name() string { return EventNameParticipantJoined }
func (e EventParticipantJoined) Room() string { return e.RoomID }

type EventParticipantLeft struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

func (EventParticipantLeft) Name() string { return EventNameParticipantLeft }
func (e EventParticipantLeft) Room() string { return e.RoomID }

type EventChatMessageAdded struct {
	RoomID      string      `json:"roomId"`
	Message     ChatMessage `json:"message"`
	UnreadCount int         `json:"unreadCount"`
}

func (EventChatMessageAdded) Name() string { return EventNameChatMessageAdded }
func (e EventChatMessageAdded) Room() string { return e.RoomID }

type EventQuestionSet struct {
	RoomID   string   `json:"roomId"`
	Question Question `json:"question"`
	Mode     QuizMode `json:"mode"`
}

func (EventQuestionSet) Name() string { return EventNameQuestionSet }
func (e EventQuestionSet) Room() string { return e.RoomID }

type EventConsensusReached struct {
	RoomID     string `json:"roomId"`
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

func (EventConsensusReached) Name() string { return EventNameConsensusReached }
func (e EventConsensusReached) Room() string { return e.RoomID }

type EventScoreUpdated struct {
	RoomID        string          `json:"roomId"`
	ParticipantID string          `json:"participantId"`
	Mode          QuizMode        `json:"mode"`
	Score         decimal.Decimal `json:"score"`
}

func (EventScoreUpdated) Name() string { return EventNameScoreUpdated }
func (e EventScoreUpdated) Room() string { return e.RoomID }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard `json:"leaderboard"`
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }
func (e EventLeaderboardUpdated) Room() string { return e.Leaderboard.RoomID }

type EventWhiteboardResync struct {
	RoomID  string `json:"roomId"`
	Version uint64 `json:"version"`
}

func (EventWhiteboardResync) Name() string { return EventNameWhiteboardResync }
func (e EventWhiteboardResync) Room() string { return e.RoomID }

type EventWhiteboardCleared struct {
	RoomID string `json:"roomId"`
}

func (EventWhiteboardCleared) Name() string { return EventNameWhiteboardCleared }
func (e EventWhiteboardCleared) Room() string { return e.RoomID }

type EventSystemAlertReceived struct {
	RoomID string `json:"roomId"`
	Alert  Alert  `json:"alert"`
}

func (EventSystemAlertReceived) Name() string { return EventNameSystemAlertReceived }
func (e EventSystemAlertReceived) Room() string { return e.RoomID }
