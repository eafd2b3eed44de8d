package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"agro-dashboard/backend/pkg/models"
)

// querier is the subset of pgx shared by the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// PostgresStore is a PostgreSQL implementation of Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   querier
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, db: pool}
}

// WithinTx runs fn inside a database transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	if s.pool == nil {
		// already bound to a transaction
		return fn(ctx, s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &PostgresStore{db: tx})
	})
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// mapError translates driver errors into the package's sentinel errors.
func mapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", what, ErrDuplicate)
		case "23503", "22P02": // foreign_key_violation, invalid_text_representation
			return fmt.Errorf("%s: %s: %w", what, pgErr.Message, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func newID(id *string) error {
	if *id == "" {
		*id = uuid.New().String()
		return nil
	}
	if _, err := uuid.Parse(*id); err != nil {
		return fmt.Errorf("invalid id %q: %w", *id, err)
	}
	return nil
}

const phaseColumns = "id, name, status, created_at, updated_at"

// CreatePhase saves a new phase.
func (s *PostgresStore) CreatePhase(ctx context.Context, phase *models.Phase) error {
	if err := newID(&phase.ID); err != nil {
		return err
	}
	err := s.db.QueryRow(ctx,
		"INSERT INTO phases (id, name, status) VALUES ($1, $2, $3) RETURNING created_at, updated_at",
		phase.ID, phase.Name, phase.Status,
	).Scan(&phase.CreatedAt, &phase.UpdatedAt)
	return mapError(err, "create phase %q", phase.Name)
}

// GetPhase retrieves a phase by id.
func (s *PostgresStore) GetPhase(ctx context.Context, id string) (*models.Phase, error) {
	rows, _ := s.db.Query(ctx, "SELECT "+phaseColumns+" FROM phases WHERE id = $1", id)
	p, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[models.Phase])
	if err != nil {
		return nil, mapError(err, "phase %s", id)
	}
	return p, nil
}

// ListPhases returns all phases ordered by name.
func (s *PostgresStore) ListPhases(ctx context.Context) ([]*models.Phase, error) {
	rows, _ := s.db.Query(ctx, "SELECT "+phaseColumns+" FROM phases ORDER BY name")
	phases, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.Phase])
	if err != nil {
		return nil, mapError(err, "list phases")
	}
	return phases, nil
}

const roomColumns = "id, room_number, phase_id, status, created_at, updated_at"

// CreateRoom saves a new room.
func (s *PostgresStore) CreateRoom(ctx context.Context, room *models.Room) error {
	if err := newID(&room.ID); err != nil {
		return err
	}
	err := s.db.QueryRow(ctx,
		"INSERT INTO rooms (id, room_number, phase_id, status) VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at",
		room.ID, room.RoomNumber, room.PhaseID, room.Status,
	).Scan(&room.CreatedAt, &room.UpdatedAt)
	return mapError(err, "create room %q", room.RoomNumber)
}

// GetRoom retrieves a room by id.
func (s *PostgresStore) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	rows, _ := s.db.Query(ctx, "SELECT "+roomColumns+" FROM rooms WHERE id = $1", id)
	r, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[models.Room])
	if err != nil {
		return nil, mapError(err, "room %s", id)
	}
	return r, nil
}

// ListRooms returns rooms ordered by room number, optionally filtered by phase.
func (s *PostgresStore) ListRooms(ctx context.Context, phaseID string) ([]*models.Room, error) {
	var rows pgx.Rows
	if phaseID == "" {
		rows, _ = s.db.Query(ctx, "SELECT "+roomColumns+" FROM rooms ORDER BY room_number")
	} else {
		rows, _ = s.db.Query(ctx, "SELECT "+roomColumns+" FROM rooms WHERE phase_id = $1 ORDER BY room_number", phaseID)
	}
	rooms, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.Room])
	if err != nil {
		return nil, mapError(err, "list rooms")
	}
	return rooms, nil
}

const stageColumns = "id, name, code, min_days, max_days, position, created_at, updated_at"

// CreateStage saves a new stage.
func (s *PostgresStore) CreateStage(ctx context.Context, stage *models.Stage) error {
	if err := newID(&stage.ID); err != nil {
		return err
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO stages (id, name, code, min_days, max_days, position)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`,
		stage.ID, stage.Name, stage.Code, stage.MinDays, stage.MaxDays, stage.Position,
	).Scan(&stage.CreatedAt, &stage.UpdatedAt)
	return mapError(err, "create stage %q", stage.Name)
}

// GetStage retrieves a stage by id.
func (s *PostgresStore) GetStage(ctx context.Context, id string) (*models.Stage, error) {
	rows, _ := s.db.Query(ctx, "SELECT "+stageColumns+" FROM stages WHERE id = $1", id)
	st, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[models.Stage])
	if err != nil {
		return nil, mapError(err, "stage %s", id)
	}
	return st, nil
}

// ListStages returns every stage ordered by position.
func (s *PostgresStore) ListStages(ctx context.Context) ([]*models.Stage, error) {
	rows, _ := s.db.Query(ctx, "SELECT "+stageColumns+" FROM stages ORDER BY position")
	stages, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.Stage])
	if err != nil {
		return nil, mapError(err, "list stages")
	}
	return stages, nil
}

const requestColumns = "id, name, phase_id, room_id, stage_id, flow, start_date, special_case, created_at, updated_at"

// CreateRequest saves a new production request.
func (s *PostgresStore) CreateRequest(ctx context.Context, req *models.ProductionRequest) error {
	if err := newID(&req.ID); err != nil {
		return err
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO production_requests (id, name, phase_id, room_id, stage_id, flow, start_date, special_case)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at, updated_at`,
		req.ID, req.Name, req.PhaseID, req.RoomID, req.StageID, req.Flow, req.StartDate, req.SpecialCase,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	return mapError(err, "create production request %q", req.Name)
}

func (s *PostgresStore) getRequest(ctx context.Context, query, key string) (*models.ProductionRequest, error) {
	rows, _ := s.db.Query(ctx, query, key)
	r, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[models.ProductionRequest])
	if err != nil {
		return nil, mapError(err, "production request %s", key)
	}
	return r, nil
}

// GetRequest retrieves a production request by id.
func (s *PostgresStore) GetRequest(ctx context.Context, id string) (*models.ProductionRequest, error) {
	return s.getRequest(ctx, "SELECT "+requestColumns+" FROM production_requests WHERE id = $1", id)
}

// GetRequestByName retrieves a production request by its unique name.
func (s *PostgresStore) GetRequestByName(ctx context.Context, name string) (*models.ProductionRequest, error) {
	return s.getRequest(ctx, "SELECT "+requestColumns+" FROM production_requests WHERE name = $1", name)
}

// LockRequest loads a request with a row lock held until the transaction ends.
func (s *PostgresStore) LockRequest(ctx context.Context, id string) (*models.ProductionRequest, error) {
	return s.getRequest(ctx, "SELECT "+requestColumns+" FROM production_requests WHERE id = $1 FOR UPDATE", id)
}

// ListRequests returns all production requests, newest first.
func (s *PostgresStore) ListRequests(ctx context.Context) ([]*models.ProductionRequest, error) {
	rows, _ := s.db.Query(ctx, "SELECT "+requestColumns+" FROM production_requests ORDER BY created_at DESC, name")
	reqs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.ProductionRequest])
	if err != nil {
		return nil, mapError(err, "list production requests")
	}
	return reqs, nil
}

var resultColumns = []string{
	"id", "request_id", "name", "phase_id", "room_id", "stage_id",
	"flow", "current_flow", "start_date", "end_date", "date", "special_case",
	"created_at", "updated_at",
}

const resultSelect = `SELECT id, request_id, name, phase_id, room_id, stage_id, flow, current_flow,
	start_date, end_date, date, special_case, created_at, updated_at FROM production_results`

// InsertResults bulk-loads timeline entries with COPY.
func (s *PostgresStore) InsertResults(ctx context.Context, entries []*models.TimelineEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		if err := newID(&e.ID); err != nil {
			return err
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.UpdatedAt = now
		ids := make([]uuid.UUID, 0, 5)
		for _, raw := range []string{e.ID, e.RequestID, e.PhaseID, e.RoomID, e.StageID} {
			id, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("timeline entry %s: invalid id %q: %w", e.Flow, raw, ErrNotFound)
			}
			ids = append(ids, id)
		}
		rows = append(rows, []any{
			ids[0], ids[1], e.Name, ids[2], ids[3], ids[4],
			e.Flow, e.CurrentFlow, e.StartDate, e.EndDate, e.Date, e.SpecialCase,
			e.CreatedAt, e.UpdatedAt,
		})
	}
	_, err := s.db.CopyFrom(ctx, pgx.Identifier{"production_results"}, resultColumns, pgx.CopyFromRows(rows))
	return mapError(err, "insert %d timeline entries", len(entries))
}

// UpdateResultFlow rewrites the stage and flow of one entry.
func (s *PostgresStore) UpdateResultFlow(ctx context.Context, id, stageID, flow string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE production_results SET stage_id = $1, flow = $2, current_flow = $2, updated_at = now() WHERE id = $3",
		stageID, flow, id)
	if err != nil {
		return mapError(err, "update timeline entry %s", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("timeline entry %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteResultsFrom removes a request's entries dated after (or on) from.
func (s *PostgresStore) DeleteResultsFrom(ctx context.Context, requestID string, from time.Time, inclusive bool) (int64, error) {
	op := ">"
	if inclusive {
		op = ">="
	}
	tag, err := s.db.Exec(ctx, "DELETE FROM production_results WHERE request_id = $1 AND date "+op+" $2", requestID, from)
	if err != nil {
		return 0, mapError(err, "delete timeline of %s", requestID)
	}
	return tag.RowsAffected(), nil
}

// FindResultByCurrentFlow returns the latest-dated entry with the flow.
func (s *PostgresStore) FindResultByCurrentFlow(ctx context.Context, requestID, flow string) (*models.TimelineEntry, error) {
	rows, _ := s.db.Query(ctx,
		resultSelect+" WHERE request_id = $1 AND current_flow = $2 ORDER BY date DESC LIMIT 1",
		requestID, flow)
	e, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[models.TimelineEntry])
	if err != nil {
		return nil, mapError(err, "timeline entry %s of %s", flow, requestID)
	}
	return e, nil
}

// ListResults returns the request's entries sorted by start date.
func (s *PostgresStore) ListResults(ctx context.Context, requestID string, r DateRange) ([]*models.TimelineEntry, error) {
	query := resultSelect + " WHERE request_id = $1"
	args := []any{requestID}
	if !r.From.IsZero() {
		args = append(args, r.From)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if !r.To.IsZero() {
		args = append(args, r.To)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY start_date, created_at"

	rows, _ := s.db.Query(ctx, query, args...)
	entries, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.TimelineEntry])
	if err != nil {
		return nil, mapError(err, "timeline of %s", requestID)
	}
	return entries, nil
}

var _ Repository = (*PostgresStore)(nil)
