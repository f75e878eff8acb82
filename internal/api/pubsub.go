package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/event"
)

const maxConcurrent = 100

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type PublisherConfig struct {
	Redis  Redis
	Prefix string
}

type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Publisher forwards session events to Redis so that local UI processes can follow a room.
// Every event goes to <prefix>:room:<roomID>. Leaderboard and score updates are also sent to
// <prefix>:user:<userID> of every user they concern.
type Publisher struct {
	redis  Redis
	prefix string
}

func NewPublisher(c PublisherConfig) *Publisher {
	return &Publisher{
		redis:  c.Redis,
		prefix: c.Prefix,
	}
}

// Attach subscribes the publisher to every event of a session bus.
func (p *Publisher) Attach(eb *event.Bus) {
	eb.SubscribeMany(domain.EventNames, func(ctx context.Context, e event.Event) error {
		re, ok := e.(domain.RoomEvent)
		if !ok {
			return fmt.Errorf("pubsub: %s is not a room event", e.Name())
		}
		return p.Publish(ctx, re)
	})
}

func (p *Publisher) Publish(ctx context.Context, e domain.RoomEvent) error {
	if err := p.publishNotification(ctx, p.roomChannel(e.Room()), e.Name(), e); err != nil {
		return err
	}

	switch e := e.(type) {
	case domain.EventLeaderboardUpdated:
		return p.PublishLeaderboardUpdated(ctx, e)
	case domain.EventScoreUpdated:
		return p.publishNotification(ctx, p.userChannel(e.ParticipantID), e.Name(), e)
	}

	return nil
}

// PublishLeaderboardUpdated notifies every ranked user of the new leaderboard.
func (p *Publisher) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, entry := range e.Leaderboard.Entries {
		eg.Go(func() error {
			return p.publishNotification(ctx, p.userChannel(entry.UserID), e.Name(), e.Leaderboard)
		})
	}

	return eg.Wait()
}

func (p *Publisher) publishNotification(ctx context.Context, channel, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return p.redis.Publish(ctx, channel, b).Err()
}

func (p *Publisher) roomChannel(roomID string) string {
	return fmt.Sprintf("%s:room:%s", p.prefix, roomID)
}

func (p *Publisher) userChannel(user string) string {
	return fmt.Sprintf("%s:user:%s", p.prefix, user)
}
