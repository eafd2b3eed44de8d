package api

import (
	"github.com/labstack/echo/v4"
)

// RegisterHandlers mounts the REST API on g. Mutating routes additionally
// pass through write.
func RegisterHandlers(g *echo.Group, s *Server, write ...echo.MiddlewareFunc) {
	g.GET("/phases", s.ListPhases)
	g.POST("/phases", s.CreatePhase, write...)
	g.GET("/rooms", s.ListRooms)
	g.POST("/rooms", s.CreateRoom, write...)
	g.GET("/stages", s.ListStages)
	g.POST("/stages", s.CreateStage, write...)
	g.GET("/productions", s.ListProductions)
	g.POST("/productions", s.CreateProduction, write...)
	g.GET("/productions/:id/timeline", s.GetTimeline)
	g.PUT("/productions/:id/flow", s.UpdateFlow, write...)
}
