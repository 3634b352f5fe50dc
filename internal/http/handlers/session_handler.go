// README: Conductor session handlers; every call acts as the authenticated conductor.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"busticket/internal/http/middleware"
	"busticket/internal/modules/session"
)

type SessionHandler struct {
	session *session.Service
}

func NewSessionHandler(svc *session.Service) *SessionHandler {
	return &SessionHandler{session: svc}
}

func (h *SessionHandler) Start(c *gin.Context) {
	var cmd session.StartCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.ConductorID = middleware.CallerUID(c)
	s, err := h.session.Start(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, s)
}

func (h *SessionHandler) Get(c *gin.Context) {
	s, err := h.session.Get(c.Request.Context(), middleware.CallerUID(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, s)
}

type directionReq struct {
	Direction string `json:"direction"`
}

func (h *SessionHandler) ChooseDirection(c *gin.Context) {
	var req directionReq
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.session.ChooseDirection(c.Request.Context(), middleware.CallerUID(c), c.Param("id"), req.Direction)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, s)
}

type advanceReq struct {
	Sections int `json:"sections"`
}

func (h *SessionHandler) Advance(c *gin.Context) {
	var req advanceReq
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.session.Advance(c.Request.Context(), middleware.CallerUID(c), c.Param("id"), req.Sections)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, s)
}

func (h *SessionHandler) Preview(c *gin.Context) {
	var req session.IssueCommand
	if !bindJSON(c, &req) {
		return
	}
	q, err := h.session.Preview(c.Request.Context(), middleware.CallerUID(c), c.Param("id"), req.ToSection, req.PassengerCount)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

func (h *SessionHandler) Issue(c *gin.Context) {
	var cmd session.IssueCommand
	if !bindJSON(c, &cmd) {
		return
	}
	t, s, err := h.session.Issue(c.Request.Context(), middleware.CallerUID(c), c.Param("id"), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, map[string]any{"ticket": t, "session": s})
}

func (h *SessionHandler) Close(c *gin.Context) {
	s, err := h.session.Close(c.Request.Context(), middleware.CallerUID(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, s)
}
