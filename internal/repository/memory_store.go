package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"agro-dashboard/backend/pkg/models"
)

type memoryState struct {
	phases   map[string]models.Phase
	rooms    map[string]models.Room
	stages   map[string]models.Stage
	requests map[string]models.ProductionRequest
	results  map[string]models.TimelineEntry
}

func newMemoryState() *memoryState {
	return &memoryState{
		phases:   map[string]models.Phase{},
		rooms:    map[string]models.Room{},
		stages:   map[string]models.Stage{},
		requests: map[string]models.ProductionRequest{},
		results:  map[string]models.TimelineEntry{},
	}
}

func (m *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range m.phases {
		c.phases[k] = v
	}
	for k, v := range m.rooms {
		c.rooms[k] = v
	}
	for k, v := range m.stages {
		c.stages[k] = v
	}
	for k, v := range m.requests {
		c.requests[k] = v
	}
	for k, v := range m.results {
		c.results[k] = v
	}
	return c
}

// MemoryStore is an in-process implementation of Repository. Transactions
// run against a copy of the state and are swapped in on commit; the store
// lock is held for the whole transaction so transitions are serialized.
type MemoryStore struct {
	mu    *sync.Mutex
	state *memoryState
	inTx  bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mu: &sync.Mutex{}, state: newMemoryState()}
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithinTx runs fn against a transactional copy of the store. fn must use
// the repository it is given; calling the outer store from inside fn
// deadlocks.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &MemoryStore{mu: s.mu, state: s.state.clone(), inTx: true}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func stamp(id *string, created, updated *time.Time) {
	if *id == "" {
		*id = uuid.New().String()
	}
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// CreatePhase saves a new phase.
func (s *MemoryStore) CreatePhase(ctx context.Context, phase *models.Phase) error {
	defer s.lock()()
	stamp(&phase.ID, &phase.CreatedAt, &phase.UpdatedAt)
	if _, ok := s.state.phases[phase.ID]; ok {
		return fmt.Errorf("phase %s: %w", phase.ID, ErrDuplicate)
	}
	s.state.phases[phase.ID] = *phase
	return nil
}

// GetPhase retrieves a phase by id.
func (s *MemoryStore) GetPhase(ctx context.Context, id string) (*models.Phase, error) {
	defer s.lock()()
	p, ok := s.state.phases[id]
	if !ok {
		return nil, fmt.Errorf("phase %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

// ListPhases returns all phases ordered by name.
func (s *MemoryStore) ListPhases(ctx context.Context) ([]*models.Phase, error) {
	defer s.lock()()
	out := make([]*models.Phase, 0, len(s.state.phases))
	for _, p := range s.state.phases {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateRoom saves a new room.
func (s *MemoryStore) CreateRoom(ctx context.Context, room *models.Room) error {
	defer s.lock()()
	stamp(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	if _, ok := s.state.rooms[room.ID]; ok {
		return fmt.Errorf("room %s: %w", room.ID, ErrDuplicate)
	}
	s.state.rooms[room.ID] = *room
	return nil
}

// GetRoom retrieves a room by id.
func (s *MemoryStore) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	defer s.lock()()
	r, ok := s.state.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	return &r, nil
}

// ListRooms returns rooms ordered by room number, optionally filtered by phase.
func (s *MemoryStore) ListRooms(ctx context.Context, phaseID string) ([]*models.Room, error) {
	defer s.lock()()
	out := make([]*models.Room, 0, len(s.state.rooms))
	for _, r := range s.state.rooms {
		if phaseID != "" && r.PhaseID != phaseID {
			continue
		}
		r := r
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomNumber < out[j].RoomNumber })
	return out, nil
}

// CreateStage saves a new stage. Positions are unique.
func (s *MemoryStore) CreateStage(ctx context.Context, stage *models.Stage) error {
	defer s.lock()()
	stamp(&stage.ID, &stage.CreatedAt, &stage.UpdatedAt)
	for _, existing := range s.state.stages {
		if existing.ID == stage.ID || existing.Position == stage.Position {
			return fmt.Errorf("stage position %d: %w", stage.Position, ErrDuplicate)
		}
	}
	s.state.stages[stage.ID] = *stage
	return nil
}

// GetStage retrieves a stage by id.
func (s *MemoryStore) GetStage(ctx context.Context, id string) (*models.Stage, error) {
	defer s.lock()()
	st, ok := s.state.stages[id]
	if !ok {
		return nil, fmt.Errorf("stage %s: %w", id, ErrNotFound)
	}
	return &st, nil
}

// ListStages returns every stage ordered by position.
func (s *MemoryStore) ListStages(ctx context.Context) ([]*models.Stage, error) {
	defer s.lock()()
	out := make([]*models.Stage, 0, len(s.state.stages))
	for _, st := range s.state.stages {
		st := st
		out = append(out, &st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// CreateRequest saves a new production request. Names are unique.
func (s *MemoryStore) CreateRequest(ctx context.Context, req *models.ProductionRequest) error {
	defer s.lock()()
	stamp(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	for _, existing := range s.state.requests {
		if existing.ID == req.ID || existing.Name == req.Name {
			return fmt.Errorf("production request %q: %w", req.Name, ErrDuplicate)
		}
	}
	s.state.requests[req.ID] = *req
	return nil
}

// GetRequest retrieves a production request by id.
func (s *MemoryStore) GetRequest(ctx context.Context, id string) (*models.ProductionRequest, error) {
	defer s.lock()()
	r, ok := s.state.requests[id]
	if !ok {
		return nil, fmt.Errorf("production request %s: %w", id, ErrNotFound)
	}
	return &r, nil
}

// GetRequestByName retrieves a production request by its unique name.
func (s *MemoryStore) GetRequestByName(ctx context.Context, name string) (*models.ProductionRequest, error) {
	defer s.lock()()
	for _, r := range s.state.requests {
		if r.Name == name {
			r := r
			return &r, nil
		}
	}
	return nil, fmt.Errorf("production request %q: %w", name, ErrNotFound)
}

// ListRequests returns all production requests, newest first.
func (s *MemoryStore) ListRequests(ctx context.Context) ([]*models.ProductionRequest, error) {
	defer s.lock()()
	out := make([]*models.ProductionRequest, 0, len(s.state.requests))
	for _, r := range s.state.requests {
		r := r
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// LockRequest loads a request. The transaction already holds the store
// lock, so no further locking is needed.
func (s *MemoryStore) LockRequest(ctx context.Context, id string) (*models.ProductionRequest, error) {
	return s.GetRequest(ctx, id)
}

// InsertResults saves timeline entries, assigning ids where missing.
func (s *MemoryStore) InsertResults(ctx context.Context, entries []*models.TimelineEntry) error {
	defer s.lock()()
	for _, e := range entries {
		stamp(&e.ID, &e.CreatedAt, &e.UpdatedAt)
		if _, ok := s.state.results[e.ID]; ok {
			return fmt.Errorf("timeline entry %s: %w", e.ID, ErrDuplicate)
		}
		s.state.results[e.ID] = *e
	}
	return nil
}

// UpdateResultFlow rewrites the stage and flow of one entry.
func (s *MemoryStore) UpdateResultFlow(ctx context.Context, id, stageID, flow string) error {
	defer s.lock()()
	e, ok := s.state.results[id]
	if !ok {
		return fmt.Errorf("timeline entry %s: %w", id, ErrNotFound)
	}
	e.StageID = stageID
	e.Flow = flow
	e.CurrentFlow = flow
	e.UpdatedAt = time.Now().UTC()
	s.state.results[id] = e
	return nil
}

// DeleteResultsFrom removes a request's entries dated after (or on) from.
func (s *MemoryStore) DeleteResultsFrom(ctx context.Context, requestID string, from time.Time, inclusive bool) (int64, error) {
	defer s.lock()()
	var n int64
	for id, e := range s.state.results {
		if e.RequestID != requestID {
			continue
		}
		if e.Date.After(from) || (inclusive && e.Date.Equal(from)) {
			delete(s.state.results, id)
			n++
		}
	}
	return n, nil
}

// FindResultByCurrentFlow returns the latest-dated entry with the flow.
func (s *MemoryStore) FindResultByCurrentFlow(ctx context.Context, requestID, flow string) (*models.TimelineEntry, error) {
	defer s.lock()()
	var found *models.TimelineEntry
	for _, e := range s.state.results {
		if e.RequestID != requestID || e.CurrentFlow != flow {
			continue
		}
		if found == nil || e.Date.After(found.Date) {
			e := e
			found = &e
		}
	}
	if found == nil {
		return nil, fmt.Errorf("timeline entry %s of %s: %w", flow, requestID, ErrNotFound)
	}
	return found, nil
}

// ListResults returns the request's entries sorted by start date.
func (s *MemoryStore) ListResults(ctx context.Context, requestID string, r DateRange) ([]*models.TimelineEntry, error) {
	defer s.lock()()
	var out []*models.TimelineEntry
	for _, e := range s.state.results {
		if e.RequestID != requestID {
			continue
		}
		if !r.From.IsZero() && e.Date.Before(r.From) {
			continue
		}
		if !r.To.IsZero() && e.Date.After(r.To) {
			continue
		}
		e := e
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

var _ Repository = (*MemoryStore)(nil)
