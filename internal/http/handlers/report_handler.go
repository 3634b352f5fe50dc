// README: Revenue report handler.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"busticket/internal/modules/report"
	"busticket/internal/types"
)

type ReportHandler struct {
	report *report.Service
	loc    *time.Location
}

func NewReportHandler(svc *report.Service, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{report: svc, loc: loc}
}

// Revenue takes ?startDate=&endDate= (inclusive, YYYY-MM-DD) and an optional ?routeId=.
func (h *ReportHandler) Revenue(c *gin.Context) {
	from, ok := queryDate(c, "startDate", h.loc)
	if !ok {
		return
	}
	to, ok := queryDate(c, "endDate", h.loc)
	if !ok {
		return
	}
	f := report.Filter{From: from, To: to}
	if raw := c.Query("routeId"); raw != "" {
		if !isValidID(raw) {
			writeError(c, http.StatusBadRequest, "invalid routeId")
			return
		}
		f.RouteID = types.ID(raw)
	}
	rep, err := h.report.Revenue(c.Request.Context(), f)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rep)
}
