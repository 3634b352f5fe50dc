// README: Ticket handlers for issue/get/list/cancel.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"busticket/internal/http/middleware"
	"busticket/internal/modules/ticket"
	"busticket/internal/types"
)

type TicketHandler struct {
	ticket *ticket.Service
}

func NewTicketHandler(svc *ticket.Service) *TicketHandler {
	return &TicketHandler{ticket: svc}
}

// Issue issues a ticket as the calling conductor.
func (h *TicketHandler) Issue(c *gin.Context) {
	var cmd ticket.IssueCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.ConductorID = middleware.CallerUID(c)
	t, err := h.ticket.Issue(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, t)
}

// Mine is the caller's daily summary; ?date= defaults to today.
func (h *TicketHandler) Mine(c *gin.Context) {
	day, ok := queryDate(c, "date", h.ticket.Location())
	if !ok {
		return
	}
	if day.IsZero() {
		day = h.ticket.Today()
	}
	sum, err := h.ticket.ConductorDaily(c.Request.Context(), middleware.CallerUID(c), day)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sum)
}

func (h *TicketHandler) GetByNumber(c *gin.Context) {
	t, err := h.ticket.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !h.canView(c, t) {
		writeError(c, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(c, http.StatusOK, t)
}

func (h *TicketHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.ticket.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !h.canView(c, t) {
		writeError(c, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(c, http.StatusOK, t)
}

// canView lets conductors see only their own tickets.
func (h *TicketHandler) canView(c *gin.Context, t *ticket.Ticket) bool {
	return middleware.IsAdmin(c) || t.ConductorID == middleware.CallerUID(c)
}

// List filters by ?routeId=&conductorId=&status=&from=&to=&limit=. Dates are whole days.
func (h *TicketHandler) List(c *gin.Context) {
	loc := h.ticket.Location()
	from, ok := queryDate(c, "from", loc)
	if !ok {
		return
	}
	to, ok := queryDate(c, "to", loc)
	if !ok {
		return
	}
	f := ticket.Filter{
		ConductorID: c.Query("conductorId"),
		Status:      ticket.Status(c.Query("status")),
		From:        from,
	}
	if !to.IsZero() {
		_, f.To = h.ticket.DayBounds(to)
	}
	if raw := c.Query("routeId"); raw != "" {
		if !isValidID(raw) {
			writeError(c, http.StatusBadRequest, "invalid routeId")
			return
		}
		f.RouteID = types.ID(raw)
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}
	tickets, err := h.ticket.List(c.Request.Context(), f)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"tickets": tickets, "count": len(tickets)})
}

func (h *TicketHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.ticket.Cancel(c.Request.Context(), ticket.CancelCommand{
		TicketID: id,
		ActorID:  middleware.CallerUID(c),
		IsAdmin:  middleware.IsAdmin(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}
