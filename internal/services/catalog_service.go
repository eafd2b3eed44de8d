package services

import (
	"context"
	"errors"
	"strings"

	"agro-dashboard/backend/internal/repository"
	"agro-dashboard/backend/internal/timeline"
	"agro-dashboard/backend/pkg/models"
)

// CatalogService manages phases, rooms and stages.
type CatalogService struct {
	repo   repository.Repository
	logger Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(repo repository.Repository, logger Logger) *CatalogService {
	return &CatalogService{repo: repo, logger: logger}
}

// CreatePhase saves a new phase.
func (s *CatalogService) CreatePhase(ctx context.Context, phase *models.Phase) error {
	phase.Name = strings.TrimSpace(phase.Name)
	if phase.Name == "" {
		return timeline.Errorf(timeline.CodeInvalidInput, "phase name is required")
	}
	if err := s.repo.CreatePhase(ctx, phase); err != nil {
		return err
	}
	s.logger.Info("phase created", "phase_id", phase.ID, "name", phase.Name)
	return nil
}

// ListPhases returns all phases.
func (s *CatalogService) ListPhases(ctx context.Context) ([]*models.Phase, error) {
	return s.repo.ListPhases(ctx)
}

// CreateRoom saves a new room in an existing phase.
func (s *CatalogService) CreateRoom(ctx context.Context, room *models.Room) error {
	room.RoomNumber = strings.TrimSpace(room.RoomNumber)
	if room.RoomNumber == "" || blank(room.PhaseID) {
		return timeline.Errorf(timeline.CodeInvalidInput, "room_number and phase_id are required")
	}
	if _, err := s.repo.GetPhase(ctx, room.PhaseID); err != nil {
		return notFoundAs(err, timeline.CodeUnknownCatalogReference, "phase %s does not exist", room.PhaseID)
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return err
	}
	s.logger.Info("room created", "room_id", room.ID, "room_number", room.RoomNumber, "phase_id", room.PhaseID)
	return nil
}

// ListRooms returns rooms, optionally restricted to one phase.
func (s *CatalogService) ListRooms(ctx context.Context, phaseID string) ([]*models.Room, error) {
	return s.repo.ListRooms(ctx, phaseID)
}

// CreateStage validates a stage against the existing catalog and saves it.
func (s *CatalogService) CreateStage(ctx context.Context, stage *models.Stage) error {
	stage.Name = strings.TrimSpace(stage.Name)
	stage.Code = strings.ToUpper(strings.TrimSpace(stage.Code))
	if stage.Name == "" {
		return timeline.Errorf(timeline.CodeInvalidInput, "stage name is required")
	}
	if err := timeline.ValidateStage(*stage); err != nil {
		return asInvalidInput(err)
	}

	return s.repo.WithinTx(ctx, func(ctx context.Context, repo repository.Repository) error {
		existing, err := repo.ListStages(ctx)
		if err != nil {
			return err
		}
		stages := make([]models.Stage, 0, len(existing)+1)
		for _, st := range existing {
			stages = append(stages, *st)
		}
		candidate := *stage
		if candidate.ID == "" {
			candidate.ID = "new"
		}
		if _, err := timeline.NewCatalog(append(stages, candidate)); err != nil {
			return asInvalidInput(err)
		}

		if err := repo.CreateStage(ctx, stage); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return timeline.Errorf(timeline.CodeInvalidInput, "stage position %d is already taken", stage.Position)
			}
			return err
		}
		s.logger.Info("stage created", "stage_id", stage.ID, "name", stage.Name, "prefix", timeline.PrefixOf(*stage), "position", stage.Position)
		return nil
	})
}

// ListStages returns the stage catalog in position order.
func (s *CatalogService) ListStages(ctx context.Context) ([]*models.Stage, error) {
	return s.repo.ListStages(ctx)
}

// loadCatalog reads the stages once and builds the immutable snapshot used
// for a single operation.
func loadCatalog(ctx context.Context, repo repository.CatalogStore) (*timeline.Catalog, error) {
	stages, err := repo.ListStages(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]models.Stage, 0, len(stages))
	for _, st := range stages {
		values = append(values, *st)
	}
	return timeline.NewCatalog(values)
}
