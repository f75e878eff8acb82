// Package session ties the room components together behind one handle per room.
//
// Every Session owns a loop goroutine. Socket frames, timers and user actions all run on it, so
// the components it owns are plain state machines without locks. Blocking calls to the REST
// collaborator run on the caller's goroutine and only their results are applied on the loop.
package session

import (
	"context"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/chat"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/connection"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/dashboard"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/event"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/leaderboard"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/loop"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/presence"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/quiz"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/roomstate"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/subscription"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/telemetry"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/whiteboard"
)

const defaultNamespace = "rooms"

// Backend is the REST collaborator of a room.
type Backend interface {
	FetchRoomDetails(ctx context.Context, roomID string) (*domain.RoomDetails, error)
	FetchLeaderboard(ctx context.Context, roomID string, filter domain.LeaderboardFilter) (*domain.LeaderboardPage, error)
	SubmitAnswer(ctx context.Context, sub domain.AnswerSubmission) (*domain.AnswerResult, error)
	UpdateReadyStatus(ctx context.Context, roomID, participantID string, ready bool) (*domain.Participant, error)
	StartSession(ctx context.Context, roomID string) (*domain.Session, error)
}

type Config struct {
	RoomID string
	// Self is the participant ID of this client.
	Self    string
	Backend Backend
	// Connection is the template of the room socket. Its Namespace is joined with the room ID;
	// the callbacks are set by the session.
	Connection connection.Config
	// Topics are subscribed when the session is created.
	Topics    []string
	FeedLimit int
	// PresenceTimeout marks participants offline once they have not been seen for that long.
	// Zero disables it.
	PresenceTimeout time.Duration
	Now             func() time.Time
}

type Session struct {
	roomID  string
	self    string
	backend Backend
	now     func() time.Time

	lp *loop.Loop
	eb *event.Bus

	conn     *connection.Manager
	subs     *subscription.Registry
	room     *roomstate.Store
	presence *presence.Tracker
	chat     *chat.Channel
	quiz     *quiz.Coordinator
	board    *leaderboard.Service
	wb       *whiteboard.Sync
	feed     *dashboard.Feed

	done      chan struct{}
	closeOnce sync.Once
}

// New creates the session and starts its loop. It does not connect; call Connect.
func New(c Config) *Session {
	now := c.Now
	if now == nil {
		now = time.Now
	}

	s := &Session{
		roomID:   c.RoomID,
		self:     c.Self,
		backend:  c.Backend,
		now:      now,
		lp:       loop.New(),
		eb:       event.NewBus(),
		subs:     subscription.NewRegistry(),
		room:     roomstate.NewStore(c.RoomID),
		presence: presence.NewTracker(now),
		chat:     chat.NewChannel(c.Self, now),
		quiz:     quiz.NewCoordinator(c.Self),
		wb:       whiteboard.NewSync(now),
		feed:     dashboard.NewFeed(c.FeedLimit),
		done:     make(chan struct{}),
	}

	s.board = leaderboard.NewService(leaderboard.Config{
		RoomID:   c.RoomID,
		Self:     c.Self,
		EventBus: s.eb,
		Now:      now,
	})

	cc := c.Connection
	ns := cc.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	cc.Namespace = path.Join(ns, c.RoomID)
	cc.Post = s.lp.Post
	cc.Replayer = s.subs
	cc.OnFrame = s.handleFrame
	cc.OnStateChange = func(st domain.ConnectionState) {
		s.publish(domain.EventConnectionChanged{RoomID: s.roomID, State: st})
	}

	s.conn = connection.NewManager(cc)
	s.subs.Attach(s.conn)
	s.subs.Subscribe(c.Topics...)

	go s.lp.Run()
	if c.PresenceTimeout > 0 {
		go s.expirePresence(c.PresenceTimeout)
	}
	telemetry.ActiveSessions.Inc()

	return s
}

func (s *Session) RoomID() string { return s.roomID }

// Events returns the observer bus of the session. Subscribers receive events in publish order.
func (s *Session) Events() *event.Bus { return s.eb }

// Connect opens the room socket. It is a no-op while the socket is open.
func (s *Session) Connect(ctx context.Context) error {
	return s.lp.Do(ctx, s.conn.Connect)
}

// Disconnect closes the socket without reconnecting. The session stays usable.
func (s *Session) Disconnect(ctx context.Context) error {
	return s.lp.Do(ctx, s.conn.Disconnect)
}

// Close disconnects, stops the loop and waits for observers to drain. It is safe to call twice.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.lp.Do(ctx, s.conn.Disconnect)
		s.lp.Stop()
		s.eb.Stop()
		telemetry.ActiveSessions.Dec()

		slog.InfoContext(ctx, "session: closed", "room", s.roomID)
	})
	return err
}

// expirePresence sweeps the presence records every half timeout until the session is closed.
func (s *Session) expirePresence(timeout time.Duration) {
	t := time.NewTicker(timeout / 2)
	defer t.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-t.C:
		}

		ok := s.lp.Post(func() {
			if ids := s.presence.ExpireStale(timeout); len(ids) > 0 {
				slog.Debug("session: presence expired", "room", s.roomID, "users", ids)
			}
		})
		if !ok {
			return
		}
	}
}

// do runs f on the loop and returns its error.
func (s *Session) do(ctx context.Context, f func() error) error {
	var err error
	if lerr := s.lp.Do(ctx, func() { err = f() }); lerr != nil {
		return lerr
	}
	return err
}

func (s *Session) publish(e event.Event) {
	s.eb.Publish(context.Background(), e)
}
