package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/api"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/errors"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/session"
)

const sessionKey = "session"

// handler exposes the sessions of the hub to local UI processes.
type handler struct {
	hub *session.Hub
}

func newHandler(hub *session.Hub) *handler {
	return &handler{hub: hub}
}

func (h *handler) register(r gin.IRouter) {
	rooms := r.Group("/rooms")
	rooms.GET("", h.listRooms)
	rooms.POST("", h.createRoom)
	rooms.POST("/:roomID/join", h.joinRoom)

	room := rooms.Group("/:roomID", h.session)
	room.GET("", h.snapshot)
	room.POST("/leave", h.leaveRoom)
	room.POST("/refresh", h.refreshRoom)
	room.POST("/connect", h.connect)
	room.POST("/disconnect", h.disconnect)
	room.PUT("/ready", h.setReady)
	room.POST("/start", h.startSession)

	room.POST("/subscriptions", h.subscribe)
	room.DELETE("/subscriptions/:topic", h.unsubscribe)

	room.POST("/chat", h.sendChat)
	room.PUT("/chat/open", h.setChatOpen)
	room.POST("/chat/read", h.markChatRead)
	room.PUT("/typing", h.setTyping)

	room.PUT("/cursor", h.moveCursor)
	room.PUT("/presence", h.updatePresence)
	room.POST("/highlights", h.addHighlight)
	room.DELETE("/highlights/:id", h.removeHighlight)

	room.POST("/quiz/team-answer", h.submitTeamAnswer)
	room.POST("/quiz/votes", h.vote)
	room.POST("/quiz/answers", h.submitAnswer)

	room.GET("/leaderboard", h.leaderboard)

	room.POST("/whiteboard/drawings", h.addDrawing)
	room.DELETE("/whiteboard/drawings", h.clearDrawings)
	room.PUT("/whiteboard/content", h.replaceContent)
	room.PATCH("/whiteboard/content", h.patchContent)
}

// session loads the session of :roomID into the context.
func (h *handler) session(c *gin.Context) {
	s, ok := h.hub.Get(c.Param("roomID"))
	if !ok {
		renderError(c, errors.New(errors.CodeNotFound, errors.WithMessagef("room %s not joined", c.Param("roomID"))))
		return
	}
	c.Set(sessionKey, s)
}

func sessionOf(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

func (h *handler) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.hub.Rooms()})
}

func (h *handler) createRoom(c *gin.Context) {
	var req api.CreateRoomRequest
	if !bind(c, &req) {
		return
	}

	s, err := h.hub.Create(c, req)
	if err != nil {
		renderError(c, err)
		return
	}
	h.renderSnapshot(c, s, http.StatusCreated)
}

func (h *handler) joinRoom(c *gin.Context) {
	s, err := h.hub.Join(c, c.Param("roomID"))
	if err != nil {
		renderError(c, err)
		return
	}
	h.renderSnapshot(c, s, http.StatusOK)
}

func (h *handler) leaveRoom(c *gin.Context) {
	reply(c, h.hub.Leave(c, c.Param("roomID")))
}

func (h *handler) snapshot(c *gin.Context) {
	h.renderSnapshot(c, sessionOf(c), http.StatusOK)
}

func (h *handler) renderSnapshot(c *gin.Context, s *session.Session, status int) {
	snap, err := s.Snapshot(c)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(status, snap)
}

func (h *handler) refreshRoom(c *gin.Context) {
	reply(c, sessionOf(c).RefreshRoom(c))
}

func (h *handler) connect(c *gin.Context) {
	reply(c, sessionOf(c).Connect(c))
}

func (h *handler) disconnect(c *gin.Context) {
	reply(c, sessionOf(c).Disconnect(c))
}

func (h *handler) setReady(c *gin.Context) {
	var req struct {
		IsReady bool `json:"isReady"`
	}
	if !bind(c, &req) {
		return
	}
	reply(c, sessionOf(c).SetReady(c, req.IsReady))
}

func (h *handler) startSession(c *gin.Context) {
	reply(c, sessionOf(c).StartSession(c))
}

func (h *handler) subscribe(c *gin.Context) {
	var req struct {
		Metrics []string `json:"metrics" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}

	added, err := sessionOf(c).Subscribe(c, req.Metrics...)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": nonNil(added)})
}

func (h *handler) unsubscribe(c *gin.Context) {
	removed, err := sessionOf(c).Unsubscribe(c, c.Param("topic"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": nonNil(removed)})
}

func (h *handler) sendChat(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if !bind(c, &req) {
		return
	}
	reply(c, sessionOf(c).SendChat(c, req.Text))
}

func (h *handler) setChatOpen(c *gin.Context) {
	var req struct {
		Open bool `json:"open"`
	}
	if !bind(c, &req) {
		return
	}
	reply(c, sessionOf(c).SetChatOpen(c, req.Open))
}

func (h *handler) markChatRead(c *gin.Context) {
	reply(c, sessionOf(c).MarkChatRead(c))
}

func (h *handler) setTyping(c *gin.Context) {
	var req struct {
		IsTyping bool `json:"isTyping"`
	}
	if !bind(c, &req) {
		return
	}
	reply(c, sessionOf(c).SetTyping(c, req.IsTyping))
}

func (h *handler) moveCursor(c *gin.Context) {
	var pos domain.Position
	if !bind(c, &pos) {
		return
	}
	reply(c, sessionOf(c).MoveCursor(c, pos))
}

func (h *handler) updatePresence(c *gin.Context) {
	var patch domain.PresencePatch
	if !bind(c, &patch) {
		return
	}
	reply(c, sessionOf(c).UpdatePresence(c, patch))
}

func (h *handler) addHighlight(c *gin.Context) {
	var hl domain.Highlight
	if !bind(c, &hl) {
		return
	}
	reply(c, sessionOf(c).AddHighlight(c, hl))
}

func (h *handler) removeHighlight(c *gin.Context) {
	reply(c, sessionOf(c).RemoveHighlight(c, c.Param("id")))
}

type answerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

func (h *handler) submitTeamAnswer(c *gin.Context) {
	var req answerRequest
	if !bind(c, &req) {
		return
	}
	reply(c, sessionOf(c).SubmitTeamAnswer(c, req.Answer))
}

func (h *handler) vote(c *gin.Context) {
	var req answerRequest
	if !bind(c, &req) {
		return
	}
	reply(c, sessionOf(c).VoteForAnswer(c, req.Answer))
}

func (h *handler) submitAnswer(c *gin.Context) {
	var req answerRequest
	if !bind(c, &req) {
		return
	}

	res, err := sessionOf(c).SubmitAnswer(c, req.Answer)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) leaderboard(c *gin.Context) {
	l, err := sessionOf(c).FetchLeaderboard(c, domain.LeaderboardFilter(c.Query("filter")))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *handler) addDrawing(c *gin.Context) {
	var op domain.DrawOp
	if !bind(c, &op) {
		return
	}
	reply(c, sessionOf(c).AddDrawing(c, op))
}

func (h *handler) clearDrawings(c *gin.Context) {
	reply(c, sessionOf(c).ClearDrawings(c))
}

func (h *handler) replaceContent(c *gin.Context) {
	var req struct {
		Content map[string]json.RawMessage `json:"content"`
	}
	if !bind(c, &req) {
		return
	}
	reply(c, sessionOf(c).ReplaceContent(c, req.Content))
}

func (h *handler) patchContent(c *gin.Context) {
	var req struct {
		Patch map[string]json.RawMessage `json:"patch"`
	}
	if !bind(c, &req) {
		return
	}
	reply(c, sessionOf(c).PatchContent(c, req.Patch))
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid request body"), errors.WithCause(err)))
		return false
	}
	return true
}

// reply renders err, or 204 when there is none.
func reply(c *gin.Context, err error) {
	if err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func renderError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.HTTPStatusCode() >= http.StatusInternalServerError {
		slog.ErrorContext(c, "server: request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
