package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"agro-dashboard/backend/internal/repository"
	"agro-dashboard/backend/internal/telemetry"
	"agro-dashboard/backend/internal/timeline"
	"agro-dashboard/backend/pkg/models"
)

// CreateTimelineInput describes a new production request.
type CreateTimelineInput struct {
	Name        string
	PhaseID     string
	RoomID      string
	StageID     string
	Flow        string
	StartDate   time.Time
	SpecialCase bool
}

// CreateTimelineResult is the saved request and its generated schedule.
type CreateTimelineResult struct {
	Request *models.ProductionRequest `json:"request"`
	Entries []*models.TimelineEntry   `json:"entries"`
}

// TransitionInput asks to move a request from its current flow to a new one.
type TransitionInput struct {
	RequestID   string
	CurrentFlow string
	NewFlow     string
}

// TransitionResult reports an applied transition.
type TransitionResult struct {
	RequestID   string          `json:"request_id"`
	UpdatedFrom string          `json:"updated_from"`
	UpdatedTo   string          `json:"updated_to"`
	MoveKind    models.MoveKind `json:"move_kind"`
	Inserted    int             `json:"inserted"`
	Deleted     int64           `json:"deleted"`
}

// TimelineService creates production timelines and applies flow transitions.
type TimelineService struct {
	repo      repository.Repository
	logger    Logger
	metrics   *telemetry.Metrics
	tracer    trace.Tracer
	updatable map[string]bool
}

// NewTimelineService creates a new TimelineService. Transitions are only
// accepted while the current entry belongs to one of updatableStages
// (matched by stage name, case-insensitively).
func NewTimelineService(repo repository.Repository, logger Logger, metrics *telemetry.Metrics, updatableStages []string) *TimelineService {
	updatable := make(map[string]bool, len(updatableStages))
	for _, name := range updatableStages {
		updatable[normalizeStageName(name)] = true
	}
	if metrics == nil {
		metrics = telemetry.NewNopMetrics()
	}
	return &TimelineService{
		repo:      repo,
		logger:    logger,
		metrics:   metrics,
		tracer:    telemetry.Tracer(),
		updatable: updatable,
	}
}

func normalizeStageName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CreateTimeline saves a production request together with its full
// day-by-day schedule. Nothing is written unless the schedule can be
// generated.
func (s *TimelineService) CreateTimeline(ctx context.Context, in CreateTimelineInput) (*CreateTimelineResult, error) {
	ctx, span := s.tracer.Start(ctx, "timeline.create")
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || blank(in.PhaseID) || blank(in.RoomID) || blank(in.StageID) || in.StartDate.IsZero() {
		return nil, s.fail(span, timeline.Errorf(timeline.CodeInvalidInput,
			"name, phase_id, room_id, stage_id, flow and start_date are required"))
	}
	flow, err := timeline.ParseFlowCode(in.Flow)
	if err != nil {
		return nil, s.fail(span, err)
	}

	req := &models.ProductionRequest{
		ID:          uuid.New().String(),
		Name:        in.Name,
		PhaseID:     in.PhaseID,
		RoomID:      in.RoomID,
		StageID:     in.StageID,
		Flow:        flow.String(),
		StartDate:   dateOnly(in.StartDate),
		SpecialCase: in.SpecialCase,
	}

	var entries []*models.TimelineEntry
	err = s.repo.WithinTx(ctx, func(ctx context.Context, repo repository.Repository) error {
		if _, err := repo.GetRequestByName(ctx, req.Name); err == nil {
			return timeline.Errorf(timeline.CodeDuplicateRequestName, "a production request named %q already exists", req.Name)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if err := checkReferences(ctx, repo, req); err != nil {
			return err
		}
		cat, err := loadCatalog(ctx, repo)
		if err != nil {
			return err
		}
		generated, err := timeline.Generate(*req, cat)
		if err != nil {
			return err
		}

		entries = make([]*models.TimelineEntry, 0, len(generated))
		for i := range generated {
			e := generated[i]
			e.ID = uuid.New().String()
			entries = append(entries, &e)
		}

		if err := repo.CreateRequest(ctx, req); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return timeline.Errorf(timeline.CodeDuplicateRequestName, "a production request named %q already exists", req.Name)
			}
			return err
		}
		return repo.InsertResults(ctx, entries)
	})
	if err != nil {
		return nil, s.fail(span, err)
	}

	s.metrics.TimelineCreated(ctx, len(entries))
	span.SetAttributes(attribute.String("request.id", req.ID), attribute.Int("timeline.entries", len(entries)))
	s.logger.Info("timeline created",
		"request_id", req.ID, "name", req.Name, "flow", req.Flow,
		"start_date", req.StartDate.Format(time.DateOnly), "entries", len(entries))

	return &CreateTimelineResult{Request: req, Entries: entries}, nil
}

func checkReferences(ctx context.Context, repo repository.CatalogStore, req *models.ProductionRequest) error {
	if _, err := repo.GetPhase(ctx, req.PhaseID); err != nil {
		return notFoundAs(err, timeline.CodeUnknownCatalogReference, "phase %s does not exist", req.PhaseID)
	}
	room, err := repo.GetRoom(ctx, req.RoomID)
	if err != nil {
		return notFoundAs(err, timeline.CodeUnknownCatalogReference, "room %s does not exist", req.RoomID)
	}
	if room.PhaseID != req.PhaseID {
		return timeline.Errorf(timeline.CodeUnknownCatalogReference, "room %s does not belong to phase %s", room.RoomNumber, req.PhaseID)
	}
	if _, err := repo.GetStage(ctx, req.StageID); err != nil {
		return notFoundAs(err, timeline.CodeUnknownCatalogReference, "stage %s does not exist", req.StageID)
	}
	return nil
}

// TransitionFlow moves a request from its current flow to a new one and
// rebuilds the rest of its schedule. The request row is locked for the
// duration, so transitions on one request are applied one at a time. Every
// check runs before the first write; a rejected move leaves the timeline
// untouched.
func (s *TimelineService) TransitionFlow(ctx context.Context, in TransitionInput) (*TransitionResult, error) {
	ctx, span := s.tracer.Start(ctx, "timeline.transition",
		trace.WithAttributes(attribute.String("request.id", in.RequestID)))
	defer span.End()
	start := time.Now()

	var kind models.MoveKind
	var result *TransitionResult
	err := s.transition(ctx, in, &kind, &result)

	outcome := "applied"
	if err != nil {
		outcome = "rejected"
		var te *timeline.Error
		if !errors.As(err, &te) {
			outcome = "failed"
		}
	}
	var inserted, deleted int64
	if result != nil {
		inserted, deleted = int64(result.Inserted), result.Deleted
	}
	s.metrics.Transition(ctx, string(kind), outcome, inserted, deleted, time.Since(start))
	span.SetAttributes(attribute.String("timeline.move_kind", string(kind)), attribute.String("timeline.outcome", outcome))

	if err != nil {
		s.logger.Warn("transition rejected",
			"request_id", in.RequestID, "current_flow", in.CurrentFlow, "new_flow", in.NewFlow, "error", err)
		return nil, s.fail(span, err)
	}
	s.logger.Info("transition applied",
		"request_id", result.RequestID, "from", result.UpdatedFrom, "to", result.UpdatedTo,
		"move_kind", result.MoveKind, "inserted", result.Inserted, "deleted", result.Deleted)
	return result, nil
}

func (s *TimelineService) transition(ctx context.Context, in TransitionInput, kind *models.MoveKind, out **TransitionResult) error {
	if blank(in.RequestID) {
		return timeline.Errorf(timeline.CodeInvalidInput, "request id is required")
	}
	from, err := timeline.ParseFlowCode(in.CurrentFlow)
	if err != nil {
		return err
	}
	to, err := timeline.ParseFlowCode(in.NewFlow)
	if err != nil {
		return err
	}

	return s.repo.WithinTx(ctx, func(ctx context.Context, repo repository.Repository) error {
		req, err := repo.LockRequest(ctx, in.RequestID)
		if err != nil {
			return notFoundAs(err, timeline.CodeRequestNotFound, "production request %s does not exist", in.RequestID)
		}

		current, err := repo.FindResultByCurrentFlow(ctx, req.ID, from.String())
		if err != nil {
			return notFoundAs(err, timeline.CodeCurrentFlowNotFound,
				"request %q has no timeline entry with current flow %s", req.Name, from)
		}

		cat, err := loadCatalog(ctx, repo)
		if err != nil {
			return err
		}
		stage, ok := cat.StageByID(current.StageID)
		if !ok {
			return timeline.Errorf(timeline.CodeUnknownCatalogReference,
				"entry %s references stage %s, which is not in the catalog", from, current.StageID)
		}
		if !s.updatable[normalizeStageName(stage.Name)] {
			return timeline.Errorf(timeline.CodeStageNotUpdatable,
				"flows in stage %q cannot be moved", stage.Name)
		}

		decision := timeline.Classify(cat, stage, from, to)
		*kind = decision.Kind
		plan, err := timeline.Rebuild(*req, *current, decision, cat)
		if err != nil {
			return err
		}

		if plan.Anchor != nil {
			if err := repo.UpdateResultFlow(ctx, plan.Anchor.EntryID, plan.Anchor.StageID, plan.Anchor.Flow); err != nil {
				return err
			}
		}
		deleted, err := repo.DeleteResultsFrom(ctx, req.ID, plan.DeleteFrom, plan.DeleteInclusive)
		if err != nil {
			return err
		}
		inserts := make([]*models.TimelineEntry, 0, len(plan.Inserts))
		for i := range plan.Inserts {
			e := plan.Inserts[i]
			e.ID = uuid.New().String()
			inserts = append(inserts, &e)
		}
		if err := repo.InsertResults(ctx, inserts); err != nil {
			return err
		}

		*out = &TransitionResult{
			RequestID:   req.ID,
			UpdatedFrom: from.String(),
			UpdatedTo:   to.String(),
			MoveKind:    plan.Kind,
			Inserted:    len(inserts),
			Deleted:     deleted,
		}
		return nil
	})
}

// GetTimeline returns the request's entries sorted by start date, limited
// to r when either bound is set.
func (s *TimelineService) GetTimeline(ctx context.Context, requestID string, r repository.DateRange) (*models.ProductionRequest, []*models.TimelineEntry, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, nil, notFoundAs(err, timeline.CodeRequestNotFound, "production request %s does not exist", requestID)
	}
	if !r.From.IsZero() {
		r.From = dateOnly(r.From)
	}
	if !r.To.IsZero() {
		r.To = dateOnly(r.To)
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return nil, nil, timeline.Errorf(timeline.CodeInvalidInput, "from %s is after to %s",
			r.From.Format(time.DateOnly), r.To.Format(time.DateOnly))
	}

	entries, err := s.repo.ListResults(ctx, req.ID, r)
	if err != nil {
		return nil, nil, err
	}
	if len(entries) == 0 && r.From.IsZero() && r.To.IsZero() {
		return nil, nil, timeline.Errorf(timeline.CodeRequestNotFound, "production request %q has no timeline", req.Name)
	}
	return req, entries, nil
}

// ListRequests returns all production requests.
func (s *TimelineService) ListRequests(ctx context.Context) ([]*models.ProductionRequest, error) {
	return s.repo.ListRequests(ctx)
}

func (s *TimelineService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
