package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/api"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/connection"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/logger"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/session"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/telemetry"
)

type Config struct {
	// Self is the participant ID of this client.
	Self string
	// Rooms are joined on start.
	Rooms     []string
	Topics    []string
	FeedLimit int
	// PresenceTimeout marks silent participants offline. Zero disables it.
	PresenceTimeout time.Duration

	Log logger.Config

	HTTP struct {
		Port int32
	}

	Backend struct {
		BaseURL string
		Token   string
		Timeout time.Duration
	}

	Socket struct {
		Scheme               string
		Host                 string
		Namespace            string
		ReconnectDelay       time.Duration
		MaxReconnectAttempts int
		HeartbeatInterval    time.Duration
		PongTimeout          time.Duration
	}

	Redis struct {
		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}
}

func DefaultConfig() Config {
	var c Config
	c.Log = logger.DefaultConfig()
	c.PresenceTimeout = 2 * time.Minute
	c.HTTP.Port = 8090
	c.Backend.Timeout = 10 * time.Second
	c.Socket.Scheme = "wss"
	c.Socket.Namespace = "rooms"
	c.Socket.ReconnectDelay = connection.DefaultReconnectDelay
	c.Socket.MaxReconnectAttempts = connection.DefaultMaxReconnectAttempts
	c.Socket.HeartbeatInterval = connection.DefaultHeartbeatInterval
	c.Redis.Pubsub.Prefix = "studyroom"
	return c
}

func (c *Config) Validate() error {
	switch {
	case c.Self == "":
		return stderrors.New("self is required")
	case c.Backend.BaseURL == "":
		return stderrors.New("backend.baseURL is required")
	case c.Socket.Host == "":
		return stderrors.New("socket.host is required")
	}
	return nil
}

type Option func(s *Server)

// WithBackend replaces the REST client built from the config.
func WithBackend(b session.RoomBackend) Option {
	return func(s *Server) { s.backend = b }
}

type Server struct {
	c  Config
	id string

	infra struct {
		redis struct {
			pubsub redis.UniversalClient
		}
	}

	backend   session.RoomBackend
	publisher *api.Publisher
	hub       *session.Hub

	http *http.Server
}

func Init(c Config, opts ...Option) (*Server, error) {
	s := &Server{c: c, id: uuid.NewString()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if len(s.c.Redis.Pubsub.Addrs) == 0 {
		slog.Info("server: redis not configured, notifications disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Pubsub.Addrs,
		Password: s.c.Redis.Pubsub.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return fmt.Errorf("redis: pubsub: %w", err)
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: pubsub: %w", err)
	}

	s.infra.redis.pubsub = r
	return nil
}

func (s *Server) initService() {
	if s.backend == nil {
		token := s.c.Backend.Token
		s.backend = api.NewClient(api.Config{
			BaseURL: s.c.Backend.BaseURL,
			Token:   func() string { return token },
			Timeout: s.c.Backend.Timeout,
		})
	}

	if s.infra.redis.pubsub != nil {
		s.publisher = api.NewPublisher(api.PublisherConfig{
			Redis:  s.infra.redis.pubsub,
			Prefix: s.c.Redis.Pubsub.Prefix,
		})
	}

	token := s.c.Backend.Token
	s.hub = session.NewHub(session.HubConfig{
		Self:    s.c.Self,
		Backend: s.backend,
		Connection: connection.Config{
			Scheme:               s.c.Socket.Scheme,
			Host:                 s.c.Socket.Host,
			Namespace:            s.c.Socket.Namespace,
			Token:                func() string { return token },
			ReconnectDelay:       s.c.Socket.ReconnectDelay,
			MaxReconnectAttempts: s.c.Socket.MaxReconnectAttempts,
			HeartbeatInterval:    s.c.Socket.HeartbeatInterval,
			PongTimeout:          s.c.Socket.PongTimeout,
		},
		Topics:    s.c.Topics,
		FeedLimit: s.c.FeedLimit,

		PresenceTimeout: s.c.PresenceTimeout,
		OnOpen: func(ss *session.Session) {
			if s.publisher != nil {
				s.publisher.Attach(ss.Events())
			}
		},
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	newHandler(s.hub).register(e)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

// Handler returns the local HTTP API.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start joins the configured rooms and serves the local API until Shutdown.
func (s *Server) Start() {
	ctx := context.TODO()

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port), "instance", s.id)
		if err := s.http.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	for _, roomID := range s.c.Rooms {
		eg.Go(func() error {
			if _, err := s.hub.Join(ctx, roomID); err != nil {
				slog.ErrorContext(ctx, "server: join room failed", "room", roomID, "error", err)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	if err := s.hub.Close(ctx); err != nil {
		slog.ErrorContext(ctx, "server: close sessions failed", "error", err)
	}

	if s.infra.redis.pubsub != nil {
		if err := s.infra.redis.pubsub.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
