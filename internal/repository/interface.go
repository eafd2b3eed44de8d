package repository

import (
	"context"
	"errors"
	"time"

	"agro-dashboard/backend/pkg/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("duplicate")
)

// DateRange restricts a timeline query. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// CatalogStore holds phases, rooms and stages.
type CatalogStore interface {
	CreatePhase(ctx context.Context, phase *models.Phase) error
	GetPhase(ctx context.Context, id string) (*models.Phase, error)
	ListPhases(ctx context.Context) ([]*models.Phase, error)

	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	// ListRooms returns all rooms, or only those of phaseID when non-empty.
	ListRooms(ctx context.Context, phaseID string) ([]*models.Room, error)

	CreateStage(ctx context.Context, stage *models.Stage) error
	GetStage(ctx context.Context, id string) (*models.Stage, error)
	// ListStages returns every stage ordered by position.
	ListStages(ctx context.Context) ([]*models.Stage, error)
}

// ProductionStore holds production requests and their timeline entries.
type ProductionStore interface {
	CreateRequest(ctx context.Context, req *models.ProductionRequest) error
	GetRequest(ctx context.Context, id string) (*models.ProductionRequest, error)
	GetRequestByName(ctx context.Context, name string) (*models.ProductionRequest, error)
	ListRequests(ctx context.Context) ([]*models.ProductionRequest, error)
	// LockRequest loads a request and holds it against concurrent
	// transitions until the enclosing transaction ends.
	LockRequest(ctx context.Context, id string) (*models.ProductionRequest, error)

	InsertResults(ctx context.Context, entries []*models.TimelineEntry) error
	// UpdateResultFlow rewrites the stage and flow of a single entry in
	// place (the anchor mutation of a transition).
	UpdateResultFlow(ctx context.Context, id, stageID, flow string) error
	// DeleteResultsFrom removes a request's entries dated after from, or on
	// and after from when inclusive is set.
	DeleteResultsFrom(ctx context.Context, requestID string, from time.Time, inclusive bool) (int64, error)
	// FindResultByCurrentFlow returns the latest-dated entry of the request
	// whose current flow equals flow.
	FindResultByCurrentFlow(ctx context.Context, requestID, flow string) (*models.TimelineEntry, error)
	// ListResults returns the request's entries sorted by start date.
	ListResults(ctx context.Context, requestID string, r DateRange) ([]*models.TimelineEntry, error)
}

// Repository is the full persistence surface used by the services.
type Repository interface {
	CatalogStore
	ProductionStore

	// WithinTx runs fn against a repository bound to one transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
	Ping(ctx context.Context) error
}
