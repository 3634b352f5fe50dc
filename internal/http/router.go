// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"busticket/internal/http/handlers"
	"busticket/internal/http/middleware"
	"busticket/internal/infra"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	admin := middleware.RequireRole(infra.RoleAdmin)
	owner := middleware.RequireRole(infra.RoleAdmin, infra.RoleBusOwner)
	conductor := middleware.RequireRole(infra.RoleConductor)

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	fareHandler := handlers.NewFareHandler(deps.Fare, deps.Catalog)
	api.POST("/fares/calculate", fareHandler.Calculate)
	api.GET("/fares/matrix/:routeId", fareHandler.Matrix)
	api.GET("/fares/sections", fareHandler.FareStructure)

	api.GET("/sections", fareHandler.ListSectionFares)
	api.POST("/sections", owner, fareHandler.CreateSectionFare)
	api.PUT("/sections/:id", owner, fareHandler.UpdateSectionFare)
	api.DELETE("/sections/:id", owner, fareHandler.DeleteSectionFare)

	api.GET("/route-sections/route/:routeId", fareHandler.ListRouteSections)
	api.GET("/route-sections/route/:routeId/category/:category", fareHandler.ListRouteSections)
	api.POST("/route-sections", admin, fareHandler.CreateRouteSection)
	api.POST("/route-sections/bulk", admin, fareHandler.BulkCreateRouteSections)
	api.POST("/route-sections/auto-generate/:routeId/:category", admin, fareHandler.AutoGenerate)
	api.PUT("/route-sections/:id", admin, fareHandler.UpdateRouteSection)
	api.DELETE("/route-sections/:id", admin, fareHandler.DeleteRouteSection)

	catalogHandler := handlers.NewCatalogHandler(deps.Catalog)
	api.GET("/routes", catalogHandler.ListRoutes)
	api.POST("/routes", owner, catalogHandler.CreateRoute)
	api.GET("/routes/:id", catalogHandler.GetRoute)
	api.PUT("/routes/:id", owner, catalogHandler.UpdateRoute)
	api.DELETE("/routes/:id", owner, catalogHandler.DeleteRoute)
	api.GET("/routes/:id/stops", catalogHandler.ListStops)
	api.GET("/routes/:id/stops/section/:section", catalogHandler.StopBySection)
	api.GET("/routes/:id/layout", catalogHandler.Layout)

	api.POST("/stops", owner, catalogHandler.CreateStop)
	api.PUT("/stops/:id", owner, catalogHandler.UpdateStop)
	api.DELETE("/stops/:id", owner, catalogHandler.DeleteStop)

	api.GET("/buses", catalogHandler.ListBuses)
	api.POST("/buses", admin, catalogHandler.CreateBus)
	api.GET("/buses/route/:routeId/category/:category", catalogHandler.BusesByRouteCategory)
	api.GET("/buses/:number", catalogHandler.GetBus)
	api.PUT("/buses/:id", admin, catalogHandler.UpdateBus)
	api.DELETE("/buses/:id", admin, catalogHandler.DeleteBus)

	ticketHandler := handlers.NewTicketHandler(deps.Ticket)
	api.POST("/tickets", conductor, ticketHandler.Issue)
	api.GET("/tickets", admin, ticketHandler.List)
	api.GET("/tickets/mine", conductor, ticketHandler.Mine)
	api.GET("/tickets/number/:number", ticketHandler.GetByNumber)
	api.GET("/tickets/:id", ticketHandler.Get)
	api.PATCH("/tickets/:id/cancel", middleware.RequireRole(infra.RoleAdmin, infra.RoleConductor), ticketHandler.Cancel)

	sessionHandler := handlers.NewSessionHandler(deps.Session)
	sessions := api.Group("/sessions", conductor)
	sessions.POST("", sessionHandler.Start)
	sessions.GET("/:id", sessionHandler.Get)
	sessions.POST("/:id/direction", sessionHandler.ChooseDirection)
	sessions.POST("/:id/advance", sessionHandler.Advance)
	sessions.POST("/:id/preview", sessionHandler.Preview)
	sessions.POST("/:id/issue", sessionHandler.Issue)
	sessions.DELETE("/:id", sessionHandler.Close)

	reportHandler := handlers.NewReportHandler(deps.Report, deps.Location)
	api.GET("/reports/revenue", admin, reportHandler.Revenue)

	return r
}
