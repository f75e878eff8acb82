package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/api"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/connection"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/errors"
)

// RoomBackend is the REST collaborator including the room membership endpoints.
type RoomBackend interface {
	Backend
	CreateRoom(ctx context.Context, req api.CreateRoomRequest) (*domain.RoomDetails, error)
	JoinRoom(ctx context.Context, roomID string) (*domain.RoomDetails, error)
	LeaveRoom(ctx context.Context, roomID string) error
}

type HubConfig struct {
	Self       string
	Backend    RoomBackend
	Connection connection.Config
	Topics     []string
	FeedLimit  int
	// PresenceTimeout is passed to every session.
	PresenceTimeout time.Duration
	Now             func() time.Time
	// OnOpen is called for every new session before it connects, e.g. to attach observers.
	OnOpen func(s *Session)
}

// Hub holds one Session per joined room.
type Hub struct {
	c HubConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewHub(c HubConfig) *Hub {
	return &Hub{
		c:        c,
		sessions: make(map[string]*Session),
	}
}

// Create creates a room on the server and opens a session for it.
func (h *Hub) Create(ctx context.Context, req api.CreateRoomRequest) (*Session, error) {
	d, err := h.c.Backend.CreateRoom(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.open(ctx, *d)
}

// Join joins a room and opens its session. Joining a room twice returns the open session.
func (h *Hub) Join(ctx context.Context, roomID string) (*Session, error) {
	if s, ok := h.Get(roomID); ok {
		return s, nil
	}

	d, err := h.c.Backend.JoinRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if d.Session.RoomID == "" {
		d.Session.RoomID = roomID
	}
	return h.open(ctx, *d)
}

func (h *Hub) open(ctx context.Context, d domain.RoomDetails) (*Session, error) {
	roomID := d.Session.RoomID
	if roomID == "" {
		return nil, errors.New(errors.CodeInternal, errors.WithMessagef("session: room details without room ID"))
	}

	h.mu.Lock()
	if s, ok := h.sessions[roomID]; ok {
		h.mu.Unlock()
		return s, nil
	}

	s := New(Config{
		RoomID:     roomID,
		Self:       h.c.Self,
		Backend:    h.c.Backend,
		Connection: h.c.Connection,
		Topics:     h.c.Topics,
		FeedLimit:  h.c.FeedLimit,
		Now:        h.c.Now,

		PresenceTimeout: h.c.PresenceTimeout,
	})
	h.sessions[roomID] = s
	h.mu.Unlock()

	if h.c.OnOpen != nil {
		h.c.OnOpen(s)
	}

	if err := s.LoadRoom(ctx, d); err != nil {
		h.drop(ctx, roomID, s)
		return nil, err
	}
	if err := s.Connect(ctx); err != nil {
		h.drop(ctx, roomID, s)
		return nil, err
	}

	slog.InfoContext(ctx, "session: opened", "room", roomID)
	return s, nil
}

// Leave leaves the room on the server and closes its session. The session is closed even when
// the server call fails.
func (h *Hub) Leave(ctx context.Context, roomID string) error {
	s, ok := h.Get(roomID)
	if !ok {
		return errors.New(errors.CodeNotFound, errors.WithMessagef("session: room %s not joined", roomID))
	}

	err := h.c.Backend.LeaveRoom(ctx, roomID)
	h.drop(ctx, roomID, s)
	return err
}

func (h *Hub) drop(ctx context.Context, roomID string, s *Session) {
	h.mu.Lock()
	if h.sessions[roomID] == s {
		delete(h.sessions, roomID)
	}
	h.mu.Unlock()

	if err := s.Close(ctx); err != nil {
		slog.WarnContext(ctx, "session: close failed", "room", roomID, "error", err)
	}
}

func (h *Hub) Get(roomID string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[roomID]
	return s, ok
}

// Rooms returns the IDs of the open sessions, sorted.
func (h *Hub) Rooms() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes every session without leaving the rooms.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()

	var eg errgroup.Group
	for _, s := range sessions {
		eg.Go(func() error {
			return s.Close(ctx)
		})
	}
	return eg.Wait()
}
