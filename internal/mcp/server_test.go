package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agro-dashboard/backend/internal/logging"
	"agro-dashboard/backend/internal/repository"
	"agro-dashboard/backend/internal/services"
	"agro-dashboard/backend/internal/telemetry"
	"agro-dashboard/backend/pkg/models"
)

type fixture struct {
	srv   *Server
	phase *models.Phase
	room  *models.Room
	cr    *models.Stage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewMemoryStore()
	logger := logging.NewNop()
	catalog := services.NewCatalogService(repo, logger)
	timelines := services.NewTimelineService(repo, logger, telemetry.NewNopMetrics(), []string{"Spawn Run", "Case Run", "Venting"})

	f := &fixture{
		srv:   NewServer(timelines, catalog, "test"),
		phase: &models.Phase{Name: "Phase 1", Status: true},
		cr:    &models.Stage{Name: "Case Run", Code: "CR", MinDays: 4, MaxDays: 6, Position: 1},
	}
	require.NoError(t, catalog.CreatePhase(ctx, f.phase))
	f.room = &models.Room{RoomNumber: "R-01", PhaseID: f.phase.ID, Status: true}
	require.NoError(t, catalog.CreateRoom(ctx, f.room))
	require.NoError(t, catalog.CreateStage(ctx, &models.Stage{Name: "Spawn Run", Code: "SR", MinDays: 3, MaxDays: 5, Position: 0}))
	require.NoError(t, catalog.CreateStage(ctx, f.cr))
	require.NoError(t, catalog.CreateStage(ctx, &models.Stage{Name: "Venting", MinDays: 2, MaxDays: 2, Position: 2}))
	return f
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func (f *fixture) create(t *testing.T) services.CreateTimelineResult {
	t.Helper()
	res, err := f.srv.handleCreateTimeline(context.Background(), call(map[string]interface{}{
		"name": "Batch 1", "phase_id": f.phase.ID, "room_id": f.room.ID,
		"stage_id": f.cr.ID, "flow": "CR0", "start_date": "2024-01-10",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var created services.CreateTimelineResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &created))
	return created
}

func TestListStagesTool(t *testing.T) {
	f := newFixture(t)
	res, err := f.srv.handleListStages(context.Background(), call(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var stages []models.Stage
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &stages))
	require.Len(t, stages, 3)
	assert.Equal(t, "CR", stages[1].Code)
}

func TestCreateAndTransitionTools(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.create(t)
	require.Len(t, created.Entries, 9)
	id := created.Request.ID

	res, err := f.srv.handleTransitionFlow(ctx, call(map[string]interface{}{
		"request_id": id, "current_flow": "CR3", "new_flow": "V0",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	var moved services.TransitionResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &moved))
	assert.Equal(t, models.MoveForwardBoundary, moved.MoveKind)

	res, err = f.srv.handleGetTimeline(ctx, call(map[string]interface{}{
		"request_id": id, "from": "2024-01-13", "to": "2024-01-14",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	var window struct {
		Entries []models.TimelineEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &window))
	require.Len(t, window.Entries, 2)
	assert.Equal(t, "V0", window.Entries[0].Flow, "CR3 day becomes V0")
	assert.Equal(t, "V1", window.Entries[1].Flow)
}

func TestToolErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t).Request.ID

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]interface{}
		want    string
	}{
		{"missing flow", f.srv.handleCreateTimeline, map[string]interface{}{
			"name": "Batch 2", "phase_id": f.phase.ID, "room_id": f.room.ID, "stage_id": f.cr.ID, "start_date": "2024-01-10",
		}, "Missing required parameter: flow"},
		{"bad start date", f.srv.handleCreateTimeline, map[string]interface{}{
			"name": "Batch 2", "phase_id": f.phase.ID, "room_id": f.room.ID, "stage_id": f.cr.ID, "flow": "CR0", "start_date": "10/01/2024",
		}, "expected YYYY-MM-DD"},
		{"duplicate name", f.srv.handleCreateTimeline, map[string]interface{}{
			"name": "Batch 1", "phase_id": f.phase.ID, "room_id": f.room.ID, "stage_id": f.cr.ID, "flow": "CR0", "start_date": "2024-01-10",
		}, "DUPLICATE_REQUEST_NAME"},
		{"blocked transition", f.srv.handleTransitionFlow, map[string]interface{}{
			"request_id": id, "current_flow": "CR2", "new_flow": "V1",
		}, "BLOCKED_TRANSITION"},
		{"unknown request", f.srv.handleGetTimeline, map[string]interface{}{
			"request_id": "00000000-0000-0000-0000-000000000000",
		}, "REQUEST_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.handler(ctx, call(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.want)
		})
	}

	t.Run("arguments not an object", func(t *testing.T) {
		var req mcp.CallToolRequest
		req.Params.Arguments = []string{"x"}
		res, err := f.srv.handleTransitionFlow(ctx, req)
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}

func TestMountHTTPHandlers(t *testing.T) {
	f := newFixture(t)
	mux := http.NewServeMux()
	MountHTTPHandlers(mux, f.srv.GetMCPServer())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
