// Package mcp exposes the production timeline operations as MCP tools so
// assistants can plan and adjust cultivation cycles.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"agro-dashboard/backend/internal/repository"
	"agro-dashboard/backend/internal/services"
	"agro-dashboard/backend/pkg/models"
)

// Timelines is the subset of the timeline service used by the tools.
type Timelines interface {
	CreateTimeline(ctx context.Context, in services.CreateTimelineInput) (*services.CreateTimelineResult, error)
	TransitionFlow(ctx context.Context, in services.TransitionInput) (*services.TransitionResult, error)
	GetTimeline(ctx context.Context, requestID string, r repository.DateRange) (*models.ProductionRequest, []*models.TimelineEntry, error)
}

// Stages lists the stage catalog.
type Stages interface {
	ListStages(ctx context.Context) ([]*models.Stage, error)
}

type Server struct {
	mcpServer *server.MCPServer
	timelines Timelines
	stages    Stages
}

func NewServer(timelines Timelines, stages Stages, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Production Timelines",
			version,
			server.WithToolCapabilities(true),
		),
		timelines: timelines,
		stages:    stages,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_stages",
			mcp.WithDescription("List the cultivation stages in order with their flow prefix and day bounds"),
		),
		s.handleListStages,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"create_timeline",
			mcp.WithDescription("Create a production request and generate its day-by-day timeline"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Unique name of the production")),
			mcp.WithString("phase_id", mcp.Required(), mcp.Description("Phase the room belongs to")),
			mcp.WithString("room_id", mcp.Required(), mcp.Description("Room the production runs in")),
			mcp.WithString("stage_id", mcp.Required(), mcp.Description("Stage the production is in on the start date")),
			mcp.WithString("flow", mcp.Required(), mcp.Description("Flow code on the start date, e.g. CR0")),
			mcp.WithString("start_date", mcp.Required(), mcp.Description("Start date as YYYY-MM-DD")),
			mcp.WithBoolean("special_case", mcp.Description("Marks the production as a special case")),
		),
		s.handleCreateTimeline,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"transition_flow",
			mcp.WithDescription("Move a production from its current flow code to an adjacent one and rebuild the timeline"),
			mcp.WithString("request_id", mcp.Required(), mcp.Description("The ID of the production request")),
			mcp.WithString("current_flow", mcp.Required(), mcp.Description("Flow code the production is on")),
			mcp.WithString("new_flow", mcp.Required(), mcp.Description("Flow code to move to")),
		),
		s.handleTransitionFlow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_timeline",
			mcp.WithDescription("Get the timeline of a production, optionally limited to a date window"),
			mcp.WithString("request_id", mcp.Required(), mcp.Description("The ID of the production request")),
			mcp.WithString("from", mcp.Description("First date to include, YYYY-MM-DD")),
			mcp.WithString("to", mcp.Description("Last date to include, YYYY-MM-DD")),
		),
		s.handleGetTimeline,
	)
}

func (s *Server) handleListStages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stages, err := s.stages.ListStages(ctx)
	if err != nil {
		return toolError("list stages", err), nil
	}
	return jsonResult(stages), nil
}

func (s *Server) handleCreateTimeline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	var in services.CreateTimelineInput
	for key, dst := range map[string]*string{
		"name": &in.Name, "phase_id": &in.PhaseID, "room_id": &in.RoomID,
		"stage_id": &in.StageID, "flow": &in.Flow,
	} {
		v, ok := args[key].(string)
		if !ok || v == "" {
			return mcp.NewToolResultError("Missing required parameter: " + key), nil
		}
		*dst = v
	}
	start, res := dateArg(args, "start_date", true)
	if res != nil {
		return res, nil
	}
	in.StartDate = start
	in.SpecialCase, _ = args["special_case"].(bool)

	created, err := s.timelines.CreateTimeline(ctx, in)
	if err != nil {
		return toolError("create timeline", err), nil
	}
	return jsonResult(created), nil
}

func (s *Server) handleTransitionFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	var in services.TransitionInput
	for key, dst := range map[string]*string{
		"request_id": &in.RequestID, "current_flow": &in.CurrentFlow, "new_flow": &in.NewFlow,
	} {
		v, ok := args[key].(string)
		if !ok || v == "" {
			return mcp.NewToolResultError("Missing required parameter: " + key), nil
		}
		*dst = v
	}

	moved, err := s.timelines.TransitionFlow(ctx, in)
	if err != nil {
		return toolError("transition flow", err), nil
	}
	return jsonResult(moved), nil
}

func (s *Server) handleGetTimeline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	id, ok := args["request_id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("Missing required parameter: request_id"), nil
	}
	var r repository.DateRange
	var res *mcp.CallToolResult
	if r.From, res = dateArg(args, "from", false); res != nil {
		return res, nil
	}
	if r.To, res = dateArg(args, "to", false); res != nil {
		return res, nil
	}

	req, entries, err := s.timelines.GetTimeline(ctx, id, r)
	if err != nil {
		return toolError("get timeline", err), nil
	}
	if entries == nil {
		entries = []*models.TimelineEntry{}
	}
	return jsonResult(map[string]any{"request": req, "entries": entries}), nil
}

// dateArg reads a YYYY-MM-DD argument. The returned result is non-nil when
// the argument is missing or malformed.
func dateArg(args map[string]interface{}, key string, required bool) (time.Time, *mcp.CallToolResult) {
	v, _ := args[key].(string)
	if v == "" {
		if required {
			return time.Time{}, mcp.NewToolResultError("Missing required parameter: " + key)
		}
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, mcp.NewToolResultError(fmt.Sprintf("Invalid %s %q: expected YYYY-MM-DD", key, v))
	}
	return t, nil
}

// toolError reports a failure to the caller. Timeline errors already carry
// their code in the message.
func toolError(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(jsonBytes))
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// SSE transport on /mcp/sse with messages posted to /mcp/message
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
