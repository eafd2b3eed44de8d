package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
	"github.com/oapi-codegen/runtime/types"

	"agro-dashboard/backend/internal/auth"
	"agro-dashboard/backend/internal/repository"
	"agro-dashboard/backend/internal/services"
	"agro-dashboard/backend/internal/timeline"
	"agro-dashboard/backend/pkg/models"
)

type createProductionRequest struct {
	Name        string     `json:"name"`
	PhaseID     string     `json:"phase_id"`
	RoomID      string     `json:"room_id"`
	StageID     string     `json:"stage_id"`
	Flow        string     `json:"flow"`
	StartDate   types.Date `json:"start_date"`
	SpecialCase bool       `json:"special_case"`
}

type updateFlowRequest struct {
	CurrentFlow string `json:"current_flow"`
	NewFlow     string `json:"new_flow"`
}

type timelineResponse struct {
	Request *models.ProductionRequest `json:"request"`
	Entries []*models.TimelineEntry   `json:"entries"`
}

func productionID(c echo.Context) (string, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", timeline.Errorf(timeline.CodeInvalidInput, "production id %q is not a UUID", id)
	}
	return id, nil
}

// ListProductions returns every production request
// (GET /api/v1/productions)
func (s *Server) ListProductions(c echo.Context) error {
	reqs, err := s.Timelines.ListRequests(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, emptyIfNil(reqs))
}

// CreateProduction saves a production request and generates its timeline
// (POST /api/v1/productions)
func (s *Server) CreateProduction(c echo.Context) error {
	var body createProductionRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	res, err := s.Timelines.CreateTimeline(c.Request().Context(), services.CreateTimelineInput{
		Name:        body.Name,
		PhaseID:     body.PhaseID,
		RoomID:      body.RoomID,
		StageID:     body.StageID,
		Flow:        body.Flow,
		StartDate:   body.StartDate.Time,
		SpecialCase: body.SpecialCase,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, timelineResponse{Request: res.Request, Entries: emptyIfNil(res.Entries)})
}

// GetTimeline returns the entries of a production, optionally limited to
// the from/to dates (inclusive)
// (GET /api/v1/productions/:id/timeline)
func (s *Server) GetTimeline(c echo.Context) error {
	id, err := productionID(c)
	if err != nil {
		return err
	}

	var from, to *types.Date
	if err := runtime.BindQueryParameter("form", true, false, "from", c.QueryParams(), &from); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid format for parameter from: "+err.Error())
	}
	if err := runtime.BindQueryParameter("form", true, false, "to", c.QueryParams(), &to); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid format for parameter to: "+err.Error())
	}

	var r repository.DateRange
	if from != nil {
		r.From = from.Time
	}
	if to != nil {
		r.To = to.Time
	}

	req, entries, err := s.Timelines.GetTimeline(c.Request().Context(), id, r)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, timelineResponse{Request: req, Entries: emptyIfNil(entries)})
}

// UpdateFlow moves a production from its current flow to a new one
// (PUT /api/v1/productions/:id/flow)
func (s *Server) UpdateFlow(c echo.Context) error {
	id, err := productionID(c)
	if err != nil {
		return err
	}
	var body updateFlowRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	ctx := c.Request().Context()
	res, err := s.Timelines.TransitionFlow(ctx, services.TransitionInput{
		RequestID:   id,
		CurrentFlow: body.CurrentFlow,
		NewFlow:     body.NewFlow,
	})
	if err != nil {
		return err
	}

	operator := "unknown"
	if op, ok := auth.OperatorFromContext(ctx); ok {
		operator = op.Email
	}
	s.Logger.Info("flow updated", "request_id", id, "from", res.UpdatedFrom, "to", res.UpdatedTo,
		"move_kind", res.MoveKind, "operator", operator)

	return c.JSON(http.StatusOK, res)
}
