// README: Fare handlers: quotes, matrix, section table and route-section administration.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"busticket/internal/modules/catalog"
	"busticket/internal/modules/fare"
	"busticket/internal/modules/journey"
	"busticket/internal/types"
)

// RouteStops lists a route's stops; *catalog.Service implements it.
type RouteStops interface {
	ListStops(ctx context.Context, routeID types.ID) ([]catalog.Stop, error)
}

type FareHandler struct {
	fare  *fare.Service
	stops RouteStops
}

func NewFareHandler(fareSvc *fare.Service, stops RouteStops) *FareHandler {
	return &FareHandler{fare: fareSvc, stops: stops}
}

type calculateReq struct {
	RouteID        string `json:"routeId"`
	FromSection    int    `json:"fromSection"`
	ToSection      int    `json:"toSection"`
	Category       string `json:"category"`
	Direction      string `json:"direction"`
	PassengerCount int    `json:"passengerCount"`
}

type calculateResp struct {
	fare.Estimate
	CalculatedFare types.Money `json:"calculatedFare"`
	PassengerCount int         `json:"passengerCount"`
}

// Calculate prices a journey. Section numbers are canonical unless a direction is given, in
// which case they are what the conductor sees for that direction.
func (h *FareHandler) Calculate(c *gin.Context) {
	var req calculateReq
	if !bindJSON(c, &req) {
		return
	}
	if !isValidID(req.RouteID) {
		writeError(c, http.StatusBadRequest, "invalid routeId")
		return
	}
	category, ok := parseCategory(c, req.Category)
	if !ok {
		return
	}
	if req.PassengerCount < 0 {
		writeError(c, http.StatusBadRequest, "passengerCount must not be negative")
		return
	}
	q := fare.Query{
		RouteID:     types.ID(req.RouteID),
		Category:    category,
		FromSection: req.FromSection,
		ToSection:   req.ToSection,
	}

	if req.Direction != "" {
		dir, err := journey.ParseDirection(req.Direction)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		stops, err := h.stops.ListStops(c.Request.Context(), q.RouteID)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		leg, err := journey.NewLayout(stops).Reconcile(dir, req.FromSection, req.ToSection)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		q.FromSection, q.ToSection = leg.CanonicalFrom, leg.CanonicalTo
	}

	est, err := h.fare.Calculate(c.Request.Context(), q)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	count := req.PassengerCount
	if count == 0 {
		count = 1
	}
	writeJSON(c, http.StatusOK, calculateResp{
		Estimate:       est,
		CalculatedFare: est.Fare.Times(count),
		PassengerCount: count,
	})
}

func (h *FareHandler) Matrix(c *gin.Context) {
	routeID, ok := pathID(c, "routeId")
	if !ok {
		return
	}
	category, ok := queryCategory(c)
	if !ok {
		return
	}
	m, err := h.fare.Matrix(c.Request.Context(), routeID, category)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, m)
}

// FareStructure is the conductor quick reference for one category.
func (h *FareHandler) FareStructure(c *gin.Context) {
	category, ok := queryCategory(c)
	if !ok {
		return
	}
	rows, err := h.fare.FareStructure(c.Request.Context(), category)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"category": category, "sections": rows})
}

func (h *FareHandler) ListSectionFares(c *gin.Context) {
	category, ok := optionalCategory(c)
	if !ok {
		return
	}
	rows, err := h.fare.ListSectionFares(c.Request.Context(), category)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"sections": rows})
}

func (h *FareHandler) CreateSectionFare(c *gin.Context) {
	var cmd fare.CreateSectionFareCommand
	if !bindJSON(c, &cmd) {
		return
	}
	sf, err := h.fare.CreateSectionFare(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, sf)
}

func (h *FareHandler) UpdateSectionFare(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var cmd fare.UpdateSectionFareCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.ID = id
	sf, err := h.fare.UpdateSectionFare(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sf)
}

func (h *FareHandler) DeleteSectionFare(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.fare.DeactivateSectionFare(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"id": id, "isActive": false})
}

// ListRouteSections returns one category when the path names it, otherwise all of them grouped.
func (h *FareHandler) ListRouteSections(c *gin.Context) {
	routeID, ok := pathID(c, "routeId")
	if !ok {
		return
	}
	if raw := c.Param("category"); raw != "" {
		category, ok := parseCategory(c, raw)
		if !ok {
			return
		}
		rows, err := h.fare.ListRouteSections(c.Request.Context(), routeID, category)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		writeJSON(c, http.StatusOK, map[string]any{"routeId": routeID, "category": category, "sections": rows})
		return
	}
	grouped, err := h.fare.GroupedRouteSections(c.Request.Context(), routeID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"routeId": routeID, "sections": grouped})
}

func (h *FareHandler) CreateRouteSection(c *gin.Context) {
	var cmd fare.CreateRouteSectionCommand
	if !bindJSON(c, &cmd) {
		return
	}
	rs, err := h.fare.CreateRouteSection(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, rs)
}

func (h *FareHandler) BulkCreateRouteSections(c *gin.Context) {
	var cmd fare.BulkRouteSectionCommand
	if !bindJSON(c, &cmd) {
		return
	}
	res, err := h.fare.BulkCreateRouteSections(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, res)
}

// AutoGenerate takes an optional ?multiplier= scaling the section table.
func (h *FareHandler) AutoGenerate(c *gin.Context) {
	routeID, ok := pathID(c, "routeId")
	if !ok {
		return
	}
	category, ok := parseCategory(c, c.Param("category"))
	if !ok {
		return
	}
	var multiplier float64
	if raw := c.Query("multiplier"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid multiplier")
			return
		}
		multiplier = v
	}
	res, err := h.fare.AutoGenerate(c.Request.Context(), fare.AutoGenerateCommand{
		RouteID:    routeID,
		Category:   category,
		Multiplier: multiplier,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, res)
}

func (h *FareHandler) UpdateRouteSection(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var cmd fare.UpdateRouteSectionCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.ID = id
	rs, err := h.fare.UpdateRouteSection(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rs)
}

func (h *FareHandler) DeleteRouteSection(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.fare.DeactivateRouteSection(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"id": id, "isActive": false})
}
