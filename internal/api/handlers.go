// Package api contains the HTTP handlers for the production timeline service
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"agro-dashboard/backend/internal/repository"
	"agro-dashboard/backend/internal/services"
	"agro-dashboard/backend/internal/timeline"
	"agro-dashboard/backend/pkg/models"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "agro-dashboard"

// Logger is the logging surface used by the handlers.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// CatalogService manages the stage, phase and room catalog.
type CatalogService interface {
	CreatePhase(ctx context.Context, phase *models.Phase) error
	ListPhases(ctx context.Context) ([]*models.Phase, error)
	CreateRoom(ctx context.Context, room *models.Room) error
	ListRooms(ctx context.Context, phaseID string) ([]*models.Room, error)
	CreateStage(ctx context.Context, stage *models.Stage) error
	ListStages(ctx context.Context) ([]*models.Stage, error)
}

// TimelineService creates and mutates production timelines.
type TimelineService interface {
	CreateTimeline(ctx context.Context, in services.CreateTimelineInput) (*services.CreateTimelineResult, error)
	TransitionFlow(ctx context.Context, in services.TransitionInput) (*services.TransitionResult, error)
	GetTimeline(ctx context.Context, requestID string, r repository.DateRange) (*models.ProductionRequest, []*models.TimelineEntry, error)
	ListRequests(ctx context.Context) ([]*models.ProductionRequest, error)
}

// Pinger checks a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies for the API server.
type Server struct {
	Catalog   CatalogService
	Timelines TimelineService
	DB        Pinger
	Logger    Logger
	Version   string
}

// NewServer creates a new Server.
func NewServer(catalog CatalogService, timelines TimelineService, db Pinger, logger Logger, version string) *Server {
	return &Server{Catalog: catalog, Timelines: timelines, DB: db, Logger: logger, Version: version}
}

// HandleHealth reports service health, including database reachability.
// (GET /health)
func (s *Server) HandleHealth(c echo.Context) error {
	status := models.HealthStatus{
		Status:    "ok",
		Service:   ServiceName,
		Version:   s.Version,
		Timestamp: time.Now().UTC(),
		Checks:    map[string]string{"database": "ok"},
	}
	code := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := s.DB.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Checks["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
	Code     string `json:"code,omitempty"`
}

// statusFor maps timeline error codes to HTTP statuses.
var statusFor = map[timeline.ErrorCode]int{
	timeline.CodeMalformedFlowCode:           http.StatusBadRequest,
	timeline.CodeInvalidInput:                http.StatusBadRequest,
	timeline.CodeRequestNotFound:             http.StatusNotFound,
	timeline.CodeCurrentFlowNotFound:         http.StatusNotFound,
	timeline.CodeStageNotUpdatable:           http.StatusForbidden,
	timeline.CodeDuplicateRequestName:        http.StatusConflict,
	timeline.CodeBlockedTransition:           http.StatusConflict,
	timeline.CodeInvalidStageFlowCombination: http.StatusUnprocessableEntity,
	timeline.CodeUnknownCatalogReference:     http.StatusUnprocessableEntity,
	timeline.CodeFlowOutOfBounds:             http.StatusUnprocessableEntity,
	timeline.CodeCatalogIntegrity:            http.StatusInternalServerError,
}

func problemFor(err error) ProblemDetails {
	var te *timeline.Error
	var he *echo.HTTPError
	switch {
	case errors.As(err, &te):
		status, ok := statusFor[te.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		return ProblemDetails{Status: status, Detail: te.Message, Code: string(te.Code)}
	case errors.As(err, &he):
		return ProblemDetails{Status: he.Code, Detail: fmt.Sprint(he.Message)}
	case errors.Is(err, repository.ErrNotFound):
		return ProblemDetails{Status: http.StatusNotFound, Detail: err.Error()}
	case errors.Is(err, repository.ErrDuplicate):
		return ProblemDetails{Status: http.StatusConflict, Detail: err.Error()}
	default:
		return ProblemDetails{Status: http.StatusInternalServerError, Detail: "internal server error"}
	}
}

// HTTPErrorHandler writes every handler error as RFC 7807 Problem Details.
func (s *Server) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	problem := problemFor(err)
	problem.Type = "about:blank"
	problem.Title = http.StatusText(problem.Status)
	problem.Instance = c.Request().URL.Path

	if problem.Status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	}
	if err := writeProblem(c, problem); err != nil {
		s.Logger.Error("failed to write error response", "error", err)
	}
}

// writeProblem writes an RFC 7807 Problem Details JSON error response
func writeProblem(c echo.Context, problem ProblemDetails) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
	c.Response().WriteHeader(problem.Status)
	if c.Request().Method == http.MethodHead {
		return nil
	}
	return json.NewEncoder(c.Response()).Encode(problem)
}

// RequestLogger logs one line per request through logger.
func RequestLogger(logger Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				args = append(args, "error", v.Error)
			}
			if v.Status >= http.StatusInternalServerError {
				logger.Error("request", args...)
			} else {
				logger.Info("request", args...)
			}
			return nil
		},
	})
}
