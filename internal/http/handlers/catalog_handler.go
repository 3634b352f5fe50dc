// README: Catalog handlers for routes, stops and buses.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"busticket/internal/http/middleware"
	"busticket/internal/modules/catalog"
	"busticket/internal/modules/journey"
	"busticket/internal/types"
)

type CatalogHandler struct {
	catalog *catalog.Service
}

func NewCatalogHandler(svc *catalog.Service) *CatalogHandler {
	return &CatalogHandler{catalog: svc}
}

func (h *CatalogHandler) ListRoutes(c *gin.Context) {
	activeOnly := c.Query("includeInactive") != "true"
	routes, err := h.catalog.ListRoutes(c.Request.Context(), activeOnly)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"routes": routes})
}

func (h *CatalogHandler) GetRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.catalog.GetRoute(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *CatalogHandler) CreateRoute(c *gin.Context) {
	var cmd catalog.CreateRouteCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.CreatedBy = middleware.CallerUID(c)
	r, err := h.catalog.CreateRoute(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

func (h *CatalogHandler) UpdateRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var cmd catalog.UpdateRouteCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.ID = id
	r, err := h.catalog.UpdateRoute(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *CatalogHandler) DeleteRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeactivateRoute(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"id": id, "isActive": false})
}

func (h *CatalogHandler) ListStops(c *gin.Context) {
	routeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	stops, err := h.catalog.ListStops(c.Request.Context(), routeID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"routeId": routeID, "stops": stops})
}

func (h *CatalogHandler) StopBySection(c *gin.Context) {
	routeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	section, ok := pathInt(c, "section")
	if !ok {
		return
	}
	st, err := h.catalog.StopBySection(c.Request.Context(), routeID, section)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}

type layoutResp struct {
	RouteID   types.ID                `json:"routeId"`
	Direction journey.Direction       `json:"direction"`
	Span      int                     `json:"span"`
	Origin    int                     `json:"origin"`
	Stops     []journey.DisplayedStop `json:"stops"`
}

// Layout shows the stops with the section numbers a conductor sees in the given direction.
func (h *CatalogHandler) Layout(c *gin.Context) {
	routeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	dir, err := journey.ParseDirection(c.Query("direction"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	stops, err := h.catalog.ListStops(c.Request.Context(), routeID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	l := journey.NewLayout(stops)
	writeJSON(c, http.StatusOK, layoutResp{
		RouteID:   routeID,
		Direction: dir,
		Span:      l.Span(),
		Origin:    l.Origin(dir),
		Stops:     l.Displayed(dir),
	})
}

func (h *CatalogHandler) CreateStop(c *gin.Context) {
	var cmd catalog.CreateStopCommand
	if !bindJSON(c, &cmd) {
		return
	}
	st, err := h.catalog.CreateStop(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, st)
}

func (h *CatalogHandler) UpdateStop(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var cmd catalog.UpdateStopCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.ID = id
	st, err := h.catalog.UpdateStop(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}

func (h *CatalogHandler) DeleteStop(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeactivateStop(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"id": id, "isActive": false})
}

func (h *CatalogHandler) ListBuses(c *gin.Context) {
	category, ok := optionalCategory(c)
	if !ok {
		return
	}
	var routeID types.ID
	if raw := c.Query("routeId"); raw != "" {
		if !isValidID(raw) {
			writeError(c, http.StatusBadRequest, "invalid routeId")
			return
		}
		routeID = types.ID(raw)
	}
	buses, err := h.catalog.ListBuses(c.Request.Context(), routeID, category)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"buses": buses})
}

func (h *CatalogHandler) BusesByRouteCategory(c *gin.Context) {
	routeID, ok := pathID(c, "routeId")
	if !ok {
		return
	}
	category, ok := parseCategory(c, c.Param("category"))
	if !ok {
		return
	}
	buses, err := h.catalog.ListBuses(c.Request.Context(), routeID, category)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"routeId": routeID, "category": category, "buses": buses})
}

func (h *CatalogHandler) GetBus(c *gin.Context) {
	number := strings.ToUpper(strings.TrimSpace(c.Param("number")))
	if number == "" {
		writeError(c, http.StatusBadRequest, "missing bus number")
		return
	}
	b, err := h.catalog.BusByNumber(c.Request.Context(), number)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

func (h *CatalogHandler) CreateBus(c *gin.Context) {
	var cmd catalog.CreateBusCommand
	if !bindJSON(c, &cmd) {
		return
	}
	b, err := h.catalog.CreateBus(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, b)
}

func (h *CatalogHandler) UpdateBus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var cmd catalog.UpdateBusCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.ID = id
	b, err := h.catalog.UpdateBus(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

func (h *CatalogHandler) DeleteBus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeactivateBus(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"id": id, "isActive": false})
}
