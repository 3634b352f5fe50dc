// README: Base handler utilities (JSON helpers, error mapping, path and query parsing).
package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"busticket/internal/modules/catalog"
	"busticket/internal/modules/fare"
	"busticket/internal/modules/journey"
	"busticket/internal/modules/report"
	"busticket/internal/modules/session"
	"busticket/internal/modules/ticket"
	"busticket/internal/types"
)

const dateLayout = "2006-01-02"

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID ensures IDs are UUIDs (matches types.NewID).
func isValidID(v string) bool {
	return types.ID(v).Valid()
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps module sentinels to HTTP statuses. Unknown errors are logged and
// hidden behind a generic 500.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, fare.ErrBadRequest),
		errors.Is(err, fare.ErrInvalidSectionOrder),
		errors.Is(err, fare.ErrNegativeSection),
		errors.Is(err, fare.ErrNonMonotonicFare),
		errors.Is(err, types.ErrUnknownCategory),
		errors.Is(err, journey.ErrBackwardTravel),
		errors.Is(err, journey.ErrNegativeSection),
		errors.Is(err, journey.ErrUnknownDirection),
		errors.Is(err, catalog.ErrBadRequest),
		errors.Is(err, ticket.ErrBadRequest),
		errors.Is(err, session.ErrBadRequest),
		errors.Is(err, report.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, fare.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, journey.ErrNotFound),
		errors.Is(err, ticket.ErrNotFound),
		errors.Is(err, session.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ticket.ErrForbidden),
		errors.Is(err, session.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, fare.ErrDuplicate),
		errors.Is(err, catalog.ErrDuplicate),
		errors.Is(err, ticket.ErrInvalidState),
		errors.Is(err, ticket.ErrDuplicateTicketNumber),
		errors.Is(err, session.ErrInvalidState),
		errors.Is(err, session.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		log.Printf("http: %s %s: %v", c.Request.Method, c.FullPath(), err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// bindJSON decodes the body into v and writes the 400 itself on failure.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

// pathID reads a UUID path parameter and writes the 400 itself when it is malformed.
func pathID(c *gin.Context, name string) (types.ID, bool) {
	v := c.Param(name)
	if !isValidID(v) {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return "", false
	}
	return types.ID(v), true
}

func pathInt(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return n, true
}

// queryCategory reads ?category=, defaulting to normal.
func queryCategory(c *gin.Context) (types.Category, bool) {
	return parseCategory(c, c.Query("category"))
}

func parseCategory(c *gin.Context, raw string) (types.Category, bool) {
	cat, err := types.ParseCategory(raw)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return "", false
	}
	return cat, true
}

// queryDate parses an optional yyyy-mm-dd query value in loc.
func queryDate(c *gin.Context, name string, loc *time.Location) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("invalid %s, want %s", name, "YYYY-MM-DD"))
		return time.Time{}, false
	}
	return t, true
}

// optionalCategory is like queryCategory but leaves an absent category empty (all categories).
func optionalCategory(c *gin.Context) (types.Category, bool) {
	if c.Query("category") == "" {
		return "", true
	}
	return queryCategory(c)
}
