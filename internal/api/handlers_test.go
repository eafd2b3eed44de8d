package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agro-dashboard/backend/internal/logging"
	"agro-dashboard/backend/internal/repository"
	"agro-dashboard/backend/internal/services"
	"agro-dashboard/backend/internal/telemetry"
	"agro-dashboard/backend/internal/timeline"
	"agro-dashboard/backend/pkg/models"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testAPI struct {
	e     *echo.Echo
	srv   *Server
	phase *models.Phase
	room  *models.Room
	cr    *models.Stage
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewMemoryStore()
	logger := logging.NewNop()
	catalog := services.NewCatalogService(repo, logger)
	timelines := services.NewTimelineService(repo, logger, telemetry.NewNopMetrics(), []string{"Spawn Run", "Case Run", "Venting"})

	a := &testAPI{
		srv:   NewServer(catalog, timelines, stubPinger{}, logger, "test"),
		phase: &models.Phase{Name: "Phase 1", Status: true},
		cr:    &models.Stage{Name: "Case Run", Code: "CR", MinDays: 4, MaxDays: 6, Position: 1},
	}
	require.NoError(t, catalog.CreatePhase(ctx, a.phase))
	a.room = &models.Room{RoomNumber: "R-01", PhaseID: a.phase.ID, Status: true}
	require.NoError(t, catalog.CreateRoom(ctx, a.room))
	require.NoError(t, catalog.CreateStage(ctx, &models.Stage{Name: "Spawn Run", Code: "SR", MinDays: 3, MaxDays: 5, Position: 0}))
	require.NoError(t, catalog.CreateStage(ctx, a.cr))
	require.NoError(t, catalog.CreateStage(ctx, &models.Stage{Name: "Venting", MinDays: 2, MaxDays: 2, Position: 2}))

	a.e = echo.New()
	a.e.HTTPErrorHandler = a.srv.HTTPErrorHandler
	a.e.GET("/health", a.srv.HandleHealth)
	RegisterHandlers(a.e.Group("/api/v1"), a.srv)
	return a
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) createProduction(t *testing.T, name string) timelineResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/productions", `{
		"name": "`+name+`", "phase_id": "`+a.phase.ID+`", "room_id": "`+a.room.ID+`",
		"stage_id": "`+a.cr.ID+`", "flow": "CR0", "start_date": "2024-01-10"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out timelineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get(echo.HeaderContentType))
	var p ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestHandleHealth(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var status models.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "test", status.Version)

	a.srv.DB = stubPinger{err: errors.New("connection refused")}
	rec = a.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "connection refused", status.Checks["database"])
}

func TestCatalogHandlers(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/v1/phases", `{"name":"Phase 2"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var phase models.Phase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &phase))
	assert.NotEmpty(t, phase.ID)
	assert.True(t, phase.Status, "status defaults to active")

	rec = a.do(t, http.MethodPost, "/api/v1/rooms", `{"room_number":"R-02","phase_id":"`+phase.ID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/v1/rooms?phase_id="+phase.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rooms []models.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "R-02", rooms[0].RoomNumber)

	rec = a.do(t, http.MethodGet, "/api/v1/stages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stages []models.Stage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stages))
	require.Len(t, stages, 3)
	assert.Equal(t, "Spawn Run", stages[0].Name)

	t.Run("stage with conflicting position", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/stages", `{"name":"Pinning","min_days":1,"max_days":3,"position":1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(timeline.CodeInvalidInput), decodeProblem(t, rec).Code)
	})

	t.Run("room in unknown phase", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/rooms", `{"room_number":"R-9","phase_id":"5b0f3c1e-8f4e-4f7a-9d7e-2f0c1a6b9e10"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, string(timeline.CodeUnknownCatalogReference), decodeProblem(t, rec).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/phases", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		decodeProblem(t, rec)
	})
}

func TestProductionHandlers(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/v1/productions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	created := a.createProduction(t, "Batch 1")
	require.NotNil(t, created.Request)
	assert.Len(t, created.Entries, 9)
	assert.Equal(t, "SR0", created.Entries[0].Flow)
	assert.Equal(t, "V1", created.Entries[8].Flow)

	id := created.Request.ID
	rec = a.do(t, http.MethodGet, "/api/v1/productions/"+id+"/timeline?from=2024-01-10&to=2024-01-13", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var window timelineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &window))
	require.Len(t, window.Entries, 4)
	assert.Equal(t, "CR0", window.Entries[0].Flow)
	assert.Equal(t, "CR3", window.Entries[3].Flow)

	rec = a.do(t, http.MethodPut, "/api/v1/productions/"+id+"/flow", `{"current_flow":"CR3","new_flow":"V0"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var moved services.TransitionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &moved))
	assert.Equal(t, models.MoveForwardBoundary, moved.MoveKind)
	assert.Equal(t, "CR3", moved.UpdatedFrom)
	assert.Equal(t, "V0", moved.UpdatedTo)

	rec = a.do(t, http.MethodGet, "/api/v1/productions", "")
	var reqs []models.ProductionRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reqs))
	assert.Len(t, reqs, 1)
}

func TestProductionHandlers_Errors(t *testing.T) {
	a := newTestAPI(t)
	id := a.createProduction(t, "Batch 1").Request.ID
	missing := "5b0f3c1e-8f4e-4f7a-9d7e-2f0c1a6b9e10"

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   timeline.ErrorCode
	}{
		{"duplicate name", http.MethodPost, "/api/v1/productions",
			`{"name":"Batch 1","phase_id":"` + a.phase.ID + `","room_id":"` + a.room.ID + `","stage_id":"` + a.cr.ID + `","flow":"CR0","start_date":"2024-02-01"}`,
			http.StatusConflict, timeline.CodeDuplicateRequestName},
		{"flow of another stage", http.MethodPost, "/api/v1/productions",
			`{"name":"Batch 2","phase_id":"` + a.phase.ID + `","room_id":"` + a.room.ID + `","stage_id":"` + a.cr.ID + `","flow":"SR0","start_date":"2024-02-01"}`,
			http.StatusUnprocessableEntity, timeline.CodeInvalidStageFlowCombination},
		{"malformed flow", http.MethodPut, "/api/v1/productions/" + id + "/flow",
			`{"current_flow":"CR3","new_flow":"3CR"}`, http.StatusBadRequest, timeline.CodeMalformedFlowCode},
		{"skips a step", http.MethodPut, "/api/v1/productions/" + id + "/flow",
			`{"current_flow":"CR2","new_flow":"V1"}`, http.StatusConflict, timeline.CodeBlockedTransition},
		{"unknown current flow", http.MethodPut, "/api/v1/productions/" + id + "/flow",
			`{"current_flow":"CR9","new_flow":"CR10"}`, http.StatusNotFound, timeline.CodeCurrentFlowNotFound},
		{"unknown request", http.MethodPut, "/api/v1/productions/" + missing + "/flow",
			`{"current_flow":"CR1","new_flow":"CR2"}`, http.StatusNotFound, timeline.CodeRequestNotFound},
		{"non uuid id", http.MethodGet, "/api/v1/productions/abc/timeline", "",
			http.StatusBadRequest, timeline.CodeInvalidInput},
		{"missing timeline", http.MethodGet, "/api/v1/productions/" + missing + "/timeline", "",
			http.StatusNotFound, timeline.CodeRequestNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			p := decodeProblem(t, rec)
			assert.Equal(t, string(tt.code), p.Code)
			assert.Equal(t, tt.status, p.Status)
			assert.Equal(t, http.StatusText(tt.status), p.Title)
		})
	}

	t.Run("bad date parameter", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/v1/productions/"+id+"/timeline?from=yesterday", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		decodeProblem(t, rec)
	})
}

func TestProblemFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, problemFor(repository.ErrDuplicate).Status)
	assert.Equal(t, http.StatusNotFound, problemFor(repository.ErrNotFound).Status)
	p := problemFor(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, p.Status)
	assert.Equal(t, "internal server error", p.Detail)
	assert.Equal(t, http.StatusInternalServerError, problemFor(timeline.ErrCatalogIntegrity).Status)
}

func TestSpecHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	SpecHandler("https://issuer.example")(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://issuer.example/v1/authorize")
	assert.NotContains(t, rec.Body.String(), "{oidcIssuer}")
}
