package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type SessionStatus string

const (
	StatusIdle   SessionStatus = "idle"
	StatusLobby  SessionStatus = "lobby"
	StatusActive SessionStatus = "active"
	StatusEnded  SessionStatus = "ended"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusLobby, StatusActive, StatusEnded:
		return true
	}
	return false
}

type Privacy string

const (
	PrivacyPublic  Privacy = "public"
	PrivacyPrivate Privacy = "private"
)

// Session represents a study room as seen by this client.
// Its status only changes when the server says so.
type Session struct {
	RoomID           string        `json:"roomId"`
	Name             string        `json:"name"`
	Topic            string        `json:"topic"`
	Privacy          Privacy       `json:"privacy"`
	MaxParticipants  int           `json:"maxParticipants"`
	HostID           string        `json:"hostId"`
	Status           SessionStatus `json:"status"`
	SessionStartTime *time.Time    `json:"sessionStartTime,omitempty"`
}

type Participant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	IsReady     bool      `json:"isReady"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// RoomDetails is the full room snapshot returned by the room endpoints and the room_state frame.
type RoomDetails struct {
	Session      Session       `json:"session"`
	Participants []Participant `json:"participants"`
}

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceBusy    PresenceStatus = "busy"
	PresenceOffline PresenceStatus = "offline"
)

type PresenceRecord struct {
	UserID      string         `json:"userId"`
	Status      PresenceStatus `json:"status"`
	LastSeen    time.Time      `json:"lastSeen"`
	CurrentView string         `json:"currentView,omitempty"`
}

// PresencePatch holds the presence fields to merge; nil fields are left untouched.
type PresencePatch struct {
	Status      *PresenceStatus `json:"status,omitempty"`
	CurrentView *string         `json:"currentView,omitempty"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Cursor struct {
	UserID    string    `json:"userId"`
	Position  Position  `json:"position"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Highlight struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Anchor string `json:"anchor"`
	Text   string `json:"text,omitempty"`
	Color  string `json:"color,omitempty"`
}

type ChatMessage struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName,omitempty"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
}

type QuizMode string

const (
	QuizModeTeam        QuizMode = "team"
	QuizModeCompetitive QuizMode = "competitive"
)

func (m QuizMode) Valid() bool {
	return m == QuizModeTeam || m == QuizModeCompetitive
}

type Question struct {
	QuestionID   string   `json:"questionId"`
	QuestionText string   `json:"questionText"`
	Options      []Option `json:"options,omitempty"`
}

type Option struct {
	OptionID   string `json:"optionId"`
	OptionText string `json:"optionText"`
}

type QuizState string

const (
	QuizNoQuestion     QuizState = "no_question"
	QuizQuestionActive QuizState = "question_active"
	QuizResolved       QuizState = "resolved"
)

// QuizRound is the state of the current collaborative quiz question.
type QuizRound struct {
	State            QuizState                  `json:"state"`
	Question         *Question                  `json:"question,omitempty"`
	Mode             QuizMode                   `json:"mode"`
	TeamAnswers      map[string]string          `json:"teamAnswers"`
	TeamVotes        map[string][]string        `json:"teamVotes"`
	ConsensusAnswer  string                     `json:"consensusAnswer,omitempty"`
	IndividualScores map[string]decimal.Decimal `json:"individualScores"`
	TeamScore        decimal.Decimal            `json:"teamScore"`
}

// AnswerSubmission is sent to the grading collaborator.
type AnswerSubmission struct {
	RoomID        string    `json:"roomId"`
	ParticipantID string    `json:"participantId"`
	QuestionID    string    `json:"questionId"`
	Answer        string    `json:"answer"`
	Mode          QuizMode  `json:"mode"`
	SubmitTime    time.Time `json:"submitTime"`
}

// AnswerResult is the authoritative grading of a submission.
type AnswerResult struct {
	Correct    bool            `json:"correct"`
	Score      decimal.Decimal `json:"score"`
	TotalScore decimal.Decimal `json:"totalScore"`
	TeamScore  decimal.Decimal `json:"teamScore"`
}

type LeaderboardFilter string

const (
	FilterAll   LeaderboardFilter = "all"
	FilterToday LeaderboardFilter = "today"
	FilterWeek  LeaderboardFilter = "week"
	FilterMonth LeaderboardFilter = "month"
)

func (f LeaderboardFilter) Valid() bool {
	switch f {
	case FilterAll, FilterToday, FilterWeek, FilterMonth:
		return true
	}
	return false
}

type LeaderboardEntry struct {
	UserID      string          `json:"userId"`
	DisplayName string          `json:"displayName,omitempty"`
	Score       decimal.Decimal `json:"score"`
	Rank        int             `json:"rank"`
}

type MyPosition struct {
	Rank       int             `json:"rank"`
	Score      decimal.Decimal `json:"score"`
	Percentile float64         `json:"percentile"`
}

// LeaderboardPage is a ranking as delivered by the server, in server order.
type LeaderboardPage struct {
	Filter            LeaderboardFilter  `json:"filter"`
	Entries           []LeaderboardEntry `json:"entries"`
	MyPosition        *MyPosition        `json:"myPosition,omitempty"`
	TotalParticipants int                `json:"totalParticipants"`
}

// Leaderboard represents the display-ready ranking of a room.
// The list is sorted by score in descending order.
type Leaderboard struct {
	RoomID            string             `json:"roomId"`
	Filter            LeaderboardFilter  `json:"filter"`
	Entries           []LeaderboardEntry `json:"entries"`
	MyPosition        *MyPosition        `json:"myPosition,omitempty"`
	TotalParticipants int                `json:"totalParticipants"`
	FetchedAt         time.Time          `json:"fetchedAt"`
}

type DrawOp struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Tool      string          `json:"tool"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type ConnectionState struct {
	IsConnected       bool     `json:"isConnected"`
	Error             string   `json:"error,omitempty"`
	ReconnectAttempts int      `json:"reconnectAttempts"`
	SubscribedTopics  []string `json:"subscribedTopics"`
}

type Metric struct {
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

type AgentStatus struct {
	AgentID   string    `json:"agentId"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type LogEntry struct {
	Level     string    `json:"level"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type Alert struct {
	ID        string    `json:"id"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type ContentSubmission struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type UserActivity struct {
	UserID    string    `json:"userId"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}
