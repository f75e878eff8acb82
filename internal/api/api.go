package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/errors"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

type Config struct {
	// BaseURL is the root of the room REST API, e.g. https://learn.example.com/api.
	BaseURL    string
	Token      func() string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to the room REST collaborator. Non-2xx responses are returned as *errors.Error
// with a code derived from the HTTP status; nothing is retried.
type Client struct {
	base  string
	token func() string
	http  *http.Client
}

func NewClient(c Config) *Client {
	cl := &Client{
		base:  strings.TrimRight(c.BaseURL, "/"),
		token: c.Token,
		http:  c.HTTPClient,
	}

	if cl.token == nil {
		cl.token = func() string { return "" }
	}
	if cl.http == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		cl.http = &http.Client{Timeout: timeout}
	}

	return cl
}

type CreateRoomRequest struct {
	Name            string         `json:"name"`
	Topic           string         `json:"topic"`
	Privacy         domain.Privacy `json:"privacy"`
	MaxParticipants int            `json:"maxParticipants"`
}

func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (*domain.RoomDetails, error) {
	var d domain.RoomDetails
	if err := c.do(ctx, http.MethodPost, "/rooms", req, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) JoinRoom(ctx context.Context, roomID string) (*domain.RoomDetails, error) {
	var d domain.RoomDetails
	if err := c.do(ctx, http.MethodPost, roomPath(roomID, "join"), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) LeaveRoom(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodPost, roomPath(roomID, "leave"), nil, nil)
}

func (c *Client) FetchRoomDetails(ctx context.Context, roomID string) (*domain.RoomDetails, error) {
	var d domain.RoomDetails
	if err := c.do(ctx, http.MethodGet, roomPath(roomID), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) FetchLeaderboard(ctx context.Context, roomID string, filter domain.LeaderboardFilter) (*domain.LeaderboardPage, error) {
	p := roomPath(roomID, "leaderboard") + "?" + url.Values{"filter": {string(filter)}}.Encode()

	var page domain.LeaderboardPage
	if err := c.do(ctx, http.MethodGet, p, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SubmitAnswer sends an answer for grading. The result is authoritative.
func (c *Client) SubmitAnswer(ctx context.Context, sub domain.AnswerSubmission) (*domain.AnswerResult, error) {
	var res domain.AnswerResult
	if err := c.do(ctx, http.MethodPost, roomPath(sub.RoomID, "answers"), sub, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) UpdateReadyStatus(ctx context.Context, roomID, participantID string, ready bool) (*domain.Participant, error) {
	body := struct {
		IsReady bool `json:"isReady"`
	}{IsReady: ready}

	var p domain.Participant
	if err := c.do(ctx, http.MethodPut, roomPath(roomID, "participants", participantID, "ready"), body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) StartSession(ctx context.Context, roomID string) (*domain.Session, error) {
	var s domain.Session
	if err := c.do(ctx, http.MethodPost, roomPath(roomID, "start"), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func roomPath(roomID string, parts ...string) string {
	p := "/rooms/" + url.PathEscape(roomID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// errorBody is the error shape of the collaborator.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("api: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.New(errors.CodeUnavailable,
			errors.WithMessagef("api: %s %s failed", method, path),
			errors.WithCause(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rejected(method, path, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.New(errors.CodeInternal,
			errors.WithMessagef("api: decode %s %s response", method, path),
			errors.WithCause(err))
	}

	return nil
}

func rejected(method, path string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := strings.TrimSpace(string(b))
	var eb errorBody
	if json.Unmarshal(b, &eb) == nil {
		switch {
		case eb.Message != "":
			msg = eb.Message
		case eb.Error != "":
			msg = eb.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	slog.Warn("api: request rejected", "method", method, "path", path, "status", resp.StatusCode, "message", msg)

	return errors.New(errors.FromHTTPStatus(resp.StatusCode),
		errors.WithMessagef("api: %s %s: %s", method, path, msg))
}
