package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"agro-dashboard/backend/pkg/models"
)

type phaseRequest struct {
	Name   string `json:"name"`
	Status *bool  `json:"status"`
}

type roomRequest struct {
	RoomNumber string `json:"room_number"`
	PhaseID    string `json:"phase_id"`
	Status     *bool  `json:"status"`
}

type stageRequest struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	MinDays  int    `json:"min_days"`
	MaxDays  int    `json:"max_days"`
	Position int    `json:"position"`
}

func statusOrDefault(s *bool) bool {
	return s == nil || *s
}

// ListPhases returns all phases
// (GET /api/v1/phases)
func (s *Server) ListPhases(c echo.Context) error {
	phases, err := s.Catalog.ListPhases(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, emptyIfNil(phases))
}

// CreatePhase creates a phase
// (POST /api/v1/phases)
func (s *Server) CreatePhase(c echo.Context) error {
	var body phaseRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	phase := &models.Phase{Name: body.Name, Status: statusOrDefault(body.Status)}
	if err := s.Catalog.CreatePhase(c.Request().Context(), phase); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, phase)
}

// ListRooms returns rooms, filtered by the optional phase_id query parameter
// (GET /api/v1/rooms)
func (s *Server) ListRooms(c echo.Context) error {
	rooms, err := s.Catalog.ListRooms(c.Request().Context(), c.QueryParam("phase_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, emptyIfNil(rooms))
}

// CreateRoom creates a room in an existing phase
// (POST /api/v1/rooms)
func (s *Server) CreateRoom(c echo.Context) error {
	var body roomRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	room := &models.Room{RoomNumber: body.RoomNumber, PhaseID: body.PhaseID, Status: statusOrDefault(body.Status)}
	if err := s.Catalog.CreateRoom(c.Request().Context(), room); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, room)
}

// ListStages returns the stage catalog in position order
// (GET /api/v1/stages)
func (s *Server) ListStages(c echo.Context) error {
	stages, err := s.Catalog.ListStages(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, emptyIfNil(stages))
}

// CreateStage adds a stage to the catalog
// (POST /api/v1/stages)
func (s *Server) CreateStage(c echo.Context) error {
	var body stageRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	stage := &models.Stage{
		Name:     body.Name,
		Code:     body.Code,
		MinDays:  body.MinDays,
		MaxDays:  body.MaxDays,
		Position: body.Position,
	}
	if err := s.Catalog.CreateStage(c.Request().Context(), stage); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, stage)
}

// emptyIfNil keeps list endpoints returning [] rather than null.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
