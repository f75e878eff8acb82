package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/api"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/errors"
)

func TestClient_RoomEndpoints(t *testing.T) {
	c := makeClient(t)
	ctx := context.Background()

	d, err := c.CreateRoom(ctx, api.CreateRoomRequest{Name: "Algebra", MaxParticipants: 4})
	require.NoError(t, err)
	assert.Equal(t, "r1", d.Session.RoomID)
	assert.Equal(t, "Algebra", d.Session.Name)

	d, err = c.JoinRoom(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, d.Participants, 1)
	assert.Equal(t, "alice", d.Participants[0].ID)

	d, err = c.FetchRoomDetails(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLobby, d.Session.Status)

	require.NoError(t, c.LeaveRoom(ctx, "r1"))

	p, err := c.UpdateReadyStatus(ctx, "r1", "alice", true)
	require.NoError(t, err)
	assert.True(t, p.IsReady)

	s, err := c.StartSession(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, s.Status)
}

func TestClient_FetchLeaderboard(t *testing.T) {
	c := makeClient(t)

	page, err := c.FetchLeaderboard(context.Background(), "r1", domain.FilterWeek)
	require.NoError(t, err)
	assert.Equal(t, domain.FilterWeek, page.Filter)
	require.Len(t, page.Entries, 2)
	assert.True(t, decimal.RequireFromString("12.5").Equal(page.Entries[0].Score))
}

func TestClient_SubmitAnswer(t *testing.T) {
	tests := map[string]struct {
		answer string
		assert func(t *testing.T, res *domain.AnswerResult, err error)
	}{
		"graded": {
			answer: "B",
			assert: func(t *testing.T, res *domain.AnswerResult, err error) {
				require.NoError(t, err)
				assert.True(t, res.Correct)
				assert.True(t, decimal.RequireFromString("1.5").Equal(res.TotalScore))
			},
		},
		"rejected as invalid": {
			answer: "",
			assert: func(t *testing.T, res *domain.AnswerResult, err error) {
				assert.Nil(t, res)
				assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
				assert.Contains(t, errors.Convert(err).Message, "answer is required")
			},
		},
		"already submitted": {
			answer: "dup",
			assert: func(t *testing.T, res *domain.AnswerResult, err error) {
				assert.True(t, errors.Is(err, errors.CodeAlreadyExists))
			},
		},
		"server failure": {
			answer: "boom",
			assert: func(t *testing.T, res *domain.AnswerResult, err error) {
				assert.True(t, errors.Is(err, errors.CodeInternal))
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := makeClient(t)

			res, err := c.SubmitAnswer(context.Background(), domain.AnswerSubmission{
				RoomID:        "r1",
				ParticipantID: "alice",
				QuestionID:    "q1",
				Answer:        tt.answer,
				SubmitTime:    time.Now(),
			})

			tt.assert(t, res, err)
		})
	}
}

func TestClient_Unauthenticated(t *testing.T) {
	srv := httptest.NewServer(newBackend())
	t.Cleanup(srv.Close)

	c := api.NewClient(api.Config{BaseURL: srv.URL})

	_, err := c.FetchRoomDetails(context.Background(), "r1")
	assert.True(t, errors.Is(err, errors.CodeUnauthenticated))
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := api.NewClient(api.Config{BaseURL: url, Token: func() string { return "t" }})

	_, err := c.FetchRoomDetails(context.Background(), "r1")
	assert.True(t, errors.Is(err, errors.CodeUnavailable))
}

func makeClient(t *testing.T) *api.Client {
	t.Helper()

	srv := httptest.NewServer(newBackend())
	t.Cleanup(srv.Close)

	return api.NewClient(api.Config{
		BaseURL: srv.URL + "/",
		Token:   func() string { return "secret" },
	})
}

func newBackend() http.Handler {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.Use(func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer secret" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		c.Next()
	})

	details := domain.RoomDetails{
		Session: domain.Session{RoomID: "r1", Name: "Algebra", Status: domain.StatusLobby},
		Participants: []domain.Participant{
			{ID: "alice", DisplayName: "Alice"},
		},
	}

	r.POST("/rooms", func(c *gin.Context) {
		var req api.CreateRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		d := details
		d.Session.Name = req.Name
		c.JSON(http.StatusCreated, d)
	})
	r.POST("/rooms/:id/join", func(c *gin.Context) { c.JSON(http.StatusOK, details) })
	r.POST("/rooms/:id/leave", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/rooms/:id", func(c *gin.Context) { c.JSON(http.StatusOK, details) })

	r.GET("/rooms/:id/leaderboard", func(c *gin.Context) {
		c.JSON(http.StatusOK, domain.LeaderboardPage{
			Filter: domain.LeaderboardFilter(c.Query("filter")),
			Entries: []domain.LeaderboardEntry{
				{UserID: "alice", Score: decimal.RequireFromString("12.5")},
				{UserID: "bob", Score: decimal.RequireFromString("3")},
			},
			TotalParticipants: 2,
		})
	})

	r.POST("/rooms/:id/answers", func(c *gin.Context) {
		var sub domain.AnswerSubmission
		if err := c.ShouldBindJSON(&sub); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}

		switch sub.Answer {
		case "":
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "answer is required"})
		case "dup":
			c.JSON(http.StatusConflict, gin.H{"error": "already submitted"})
		case "boom":
			c.String(http.StatusInternalServerError, "internal error")
		default:
			c.JSON(http.StatusOK, domain.AnswerResult{
				Correct:    true,
				Score:      decimal.NewFromInt(1),
				TotalScore: decimal.RequireFromString("1.5"),
			})
		}
	})

	r.PUT("/rooms/:id/participants/:pid/ready", func(c *gin.Context) {
		var body struct {
			IsReady bool `json:"isReady"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, domain.Participant{ID: c.Param("pid"), IsReady: body.IsReady})
	})

	r.POST("/rooms/:id/start", func(c *gin.Context) {
		s := details.Session
		s.Status = domain.StatusActive
		c.JSON(http.StatusOK, s)
	})

	return r
}
