package protocol

import (
	"encoding/json"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/errors"
)

var inboundTypes = map[string]func() Inbound{
	TypeMetricUpdate:          func() Inbound { return &MetricUpdate{} },
	TypeAgentStatus:           func() Inbound { return &AgentStatus{} },
	TypeErrorLog:              func() Inbound { return &ErrorLog{} },
	TypeSystemAlert:           func() Inbound { return &SystemAlert{} },
	TypeContentSubmission:     func() Inbound { return &ContentSubmission{} },
	TypeUserActivity:          func() Inbound { return &UserActivity{} },
	TypeSubscriptionConfirmed: func() Inbound { return &SubscriptionConfirmed{} },
	TypePong:                  func() Inbound { return &Pong{} },
	TypeRoomState:             func() Inbound { return &RoomState{} },
	TypeSessionStatus:         func() Inbound { return &SessionStatus{} },
	TypeParticipantJoined:     func() Inbound { return &ParticipantJoined{} },
	TypeParticipantLeft:       func() Inbound { return &ParticipantLeft{} },
	TypeReadyChanged:          func() Inbound { return &ReadyChanged{} },
	TypePresenceUpdate:        func() Inbound { return &PresenceUpdate{} },
	TypeCursorMove:            func() Inbound { return &CursorMove{} },
	TypeHighlightAdded:        func() Inbound { return &HighlightAdded{} },
	TypeHighlightRemoved:      func() Inbound { return &HighlightRemoved{} },
	TypeChatMessage:           func() Inbound { return &ChatMessage{} },
	TypeTyping:                func() Inbound { return &Typing{} },
	TypeQuestionSet:           func() Inbound { return &QuestionSet{} },
	TypeTeamAnswer:            func() Inbound { return &TeamAnswer{} },
	TypeVoteCast:              func() Inbound { return &VoteCast{} },
	TypeConsensusReached:      func() Inbound { return &ConsensusReached{} },
	TypeLeaderboardUpdate:     func() Inbound { return &LeaderboardUpdate{} },
	TypeDrawingAdded:          func() Inbound { return &DrawingAdded{} },
	TypeDrawingsCleared:       func() Inbound { return &DrawingsCleared{} },
	TypeContentReplaced:       func() Inbound { return &ContentReplaced{} },
	TypeContentPatched:        func() Inbound { return &ContentPatched{} },
}

// Decode parses a frame into its typed message. Malformed frames fail with CodeInvalidArgument,
// frames of an unknown type with CodeUnimplemented.
func Decode(frame []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("protocol: malformed frame"),
			errors.WithCause(err))
	}

	if env.Type == "" {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("protocol: frame has no type"))
	}

	newMsg, ok := inboundTypes[env.Type]
	if !ok {
		return nil, errors.New(errors.CodeUnimplemented, errors.WithMessagef("protocol: unknown message type %q", env.Type))
	}

	msg := newMsg()

	// subscription_confirmed carries its topics next to the type, like subscribe does.
	if c, ok := msg.(*SubscriptionConfirmed); ok && len(env.Data) == 0 {
		c.Metrics = env.Metrics
		return c, nil
	}

	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, msg); err != nil {
			return nil, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("protocol: malformed %s payload", env.Type),
				errors.WithCause(err))
		}
	}

	return msg, nil
}

// Encode serializes an outbound message into its envelope.
func Encode(msg Outbound) ([]byte, error) {
	env := Envelope{Type: msg.Type()}

	switch m := msg.(type) {
	case Subscribe:
		env.Metrics = m.Metrics
	case Unsubscribe:
		env.Metrics = m.Metrics
	case Ping, ClearDrawings:
	default:
		data, err := json.Marshal(m)
		if err != nil {
			return nil, errors.New(errors.CodeInternal,
				errors.WithMessagef("protocol: marshal %s", msg.Type()),
				errors.WithCause(err))
		}
		env.Data = data
	}

	return json.Marshal(env)
}
