//go:build integration_test

package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
)

const (
	addr   = "http://localhost:8090"
	prefix = "studyroom"
	room   = "demo-room"
)

// TestRoom drives a running coordinator through its local API and prints the notifications it
// publishes for the room.
func TestRoom(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	wg := new(sync.WaitGroup)

	// Prepare Redis subscriber
	followRoom(t, makeRedis(t), wg, room)

	call(t, ctx, http.MethodPost, fmt.Sprintf("/rooms/%s/join", room), nil)
	// the room socket opens in the background
	time.Sleep(time.Second)
	call(t, ctx, http.MethodPut, fmt.Sprintf("/rooms/%s/presence", room), map[string]any{"status": domain.PresenceOnline})

	// Send a few chat messages concurrently
	var eg errgroup.Group
	for i := 0; i < 3; i++ {
		eg.Go(func() error {
			text := fmt.Sprintf("hello %d (%s)", i, uuid.NewString())
			return send(ctx, http.MethodPost, fmt.Sprintf("/rooms/%s/chat", room), map[string]any{"text": text})
		})
	}
	require.NoError(t, eg.Wait())

	for _, f := range []domain.LeaderboardFilter{domain.FilterWeek, domain.FilterAll} {
		call(t, ctx, http.MethodGet, fmt.Sprintf("/rooms/%s/leaderboard?filter=%s", room, f), nil)
		time.Sleep(time.Second)
	}

	call(t, ctx, http.MethodPost, fmt.Sprintf("/rooms/%s/leave", room), nil)

	wg.Wait()
}

func call(t *testing.T, ctx context.Context, method, path string, body any) {
	t.Helper()
	require.NoError(t, send(ctx, method, path, body))
}

func send(ctx context.Context, method, path string, body any) error {
	var b bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&b).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, addr+path, &b)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return nil
}

func followRoom(t *testing.T, rc redis.UniversalClient, wg *sync.WaitGroup, roomID string) {
	wg.Add(1)
	sub := subscribeRedis(t, rc, fmt.Sprintf("%s:room:%s", prefix, roomID))
	go func() {
		defer wg.Done()

		for msg := range sub {
			var n struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				t.Logf("unmarshal notification: %v", err)
				continue
			}

			switch n.Event {
			case domain.EventNameLeaderboardUpdated:
				var e domain.EventLeaderboardUpdated
				if err := json.Unmarshal(n.Data, &e); err != nil {
					t.Logf("unmarshal leaderboard: %v", err)
					continue
				}

				t.Logf("%s leaderboard (%s):\n%s", roomID, e.Leaderboard.Filter, formatLeaderboard(e.Leaderboard))

			case domain.EventNameChatMessageAdded:
				var e domain.EventChatMessageAdded
				if err := json.Unmarshal(n.Data, &e); err != nil {
					t.Logf("unmarshal chat message: %v", err)
					continue
				}

				t.Logf("%s chat: %s: %s", roomID, e.Message.UserID, e.Message.Text)

			default:
				t.Logf("%s %s", roomID, n.Event)
			}
		}
	}()
}

func subscribeRedis(t *testing.T, rc redis.UniversalClient, pattern string) <-chan *redis.Message {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)

	sub := rc.PSubscribe(ctx, pattern)
	t.Cleanup(func() { sub.Close() })

	c := make(chan *redis.Message)
	go func() {
		defer close(c)

		for {
			msg, err := sub.ReceiveMessage(ctx)
			if err != nil {
				t.Log(err)
				return
			}

			c <- msg
		}
	}()

	return c
}

func makeRedis(t *testing.T) redis.UniversalClient {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{"localhost:6379"},
	})
	t.Cleanup(func() { r.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Ping(ctx).Err(); err != nil {
		t.Fatal(err)
	}

	return r
}

func formatLeaderboard(l domain.Leaderboard) string {
	var s string
	for _, e := range l.Entries {
		s += fmt.Sprintf("%d. %s: %s\n", e.Rank, e.UserID, e.Score)
	}
	return s
}
