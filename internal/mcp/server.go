// Package mcp exposes the task graph as MCP (Model Context Protocol) tools so
// coding assistants can read the layout and edit dependencies.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/taskgraph/internal/core"
	"github.com/valter-silva-au/taskgraph/internal/graph"
	"github.com/valter-silva-au/taskgraph/internal/observability"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// Services bundles what the tools call into. Alerts and Metrics may be nil
// when the event log is unavailable.
type Services struct {
	Tasks        core.TaskManager
	Dependencies core.DependencyManager
	Graph        core.GraphService
	Alerts       observability.AlertEngine
	Metrics      observability.MetricsCalculator
}

// Server wraps the taskgraph services and registers them as MCP tools.
type Server struct {
	server *gomcp.Server
	svc    Services
}

// NewServer creates an MCP server named "tg".
func NewServer(svc Services, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{svc: svc}
	s.server = gomcp.NewServer(&gomcp.Implementation{Name: "tg", Version: version}, nil)
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying server, for in-memory transports in tests.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---
//
// Outputs use plain strings and slices so schema inference stays simple.

type taskOutput struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Created  string `json:"created"`
	Updated  string `json:"updated"`
}

type getTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"the task identifier"`
}

type listTasksInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter by status (pending, in_progress, completed)"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type computeLayoutInput struct{}

type nodeOutput struct {
	TaskID string  `json:"task_id"`
	Level  int     `json:"level"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type edgeOutput struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Type       string `json:"type"`
	IsCritical bool   `json:"is_critical"`
}

type layoutOutput struct {
	Nodes          []nodeOutput `json:"nodes"`
	Edges          []edgeOutput `json:"edges"`
	CriticalPath   []string     `json:"critical_path"`
	CriticalLength int          `json:"critical_length"`
}

type canStartInput struct {
	TaskID string `json:"task_id" jsonschema:"the task to check"`
}

type canStartOutput struct {
	TaskID        string   `json:"task_id"`
	CanStart      bool     `json:"can_start"`
	UnmetBlockers []string `json:"unmet_blockers"`
}

type criticalPathInput struct{}

type criticalPathOutput struct {
	TaskIDs []string `json:"task_ids"`
	Length  int      `json:"length"`
}

type readyTasksInput struct{}

type addDependencyInput struct {
	TaskID          string `json:"task_id" jsonschema:"the dependent task"`
	DependsOnTaskID string `json:"depends_on_task_id" jsonschema:"the task that must come first"`
	Type            string `json:"type,omitempty" jsonschema:"blocking (default) or informational"`
}

type dependencyOutput struct {
	ID              string `json:"id"`
	TaskID          string `json:"task_id"`
	DependsOnTaskID string `json:"depends_on_task_id"`
	Type            string `json:"type"`
	Created         string `json:"created,omitempty"`
}

type removeDependencyInput struct {
	EdgeID string `json:"edge_id" jsonschema:"the dependency id, e.g. DEP-00001"`
}

type messageOutput struct {
	Message string `json:"message"`
}

type updateTaskStatusInput struct {
	TaskID string `json:"task_id" jsonschema:"the task identifier"`
	Status string `json:"status" jsonschema:"the new status (pending, in_progress, completed)"`
	Force  bool   `json:"force,omitempty" jsonschema:"skip the start guard"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string   `json:"id"`
	Condition   string   `json:"condition"`
	Severity    string   `json:"severity"`
	Message     string   `json:"message"`
	TaskIDs     []string `json:"task_ids,omitempty"`
	TriggeredAt string   `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window, e.g. 7d, 24h. Defaults to 7d."`
}

type metricsOutput struct {
	TasksCreated         int            `json:"tasks_created"`
	TasksCompleted       int            `json:"tasks_completed"`
	StatusTransitions    map[string]int `json:"status_transitions"`
	StartsBlocked        int            `json:"starts_blocked"`
	DependenciesAdded    int            `json:"dependencies_added"`
	DependenciesRemoved  int            `json:"dependencies_removed"`
	DependenciesRejected int            `json:"dependencies_rejected"`
	Recomputations       int            `json:"recomputations"`
	CyclesDetected       int            `json:"cycles_detected"`
	EventCount           int            `json:"event_count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks with an optional status filter.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get a single task by ID.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "compute_layout",
		Description: "Compute levels, positions and the critical path for the whole dependency graph. Fails with the offending tasks when the graph has a cycle.",
	}, s.handleComputeLayout)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "can_start",
		Description: "Report whether a task may start, i.e. every blocking dependency is completed, and list the unmet ones.",
	}, s.handleCanStart)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "critical_path",
		Description: "Return the longest chain of blocking dependencies.",
	}, s.handleCriticalPath)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "ready_tasks",
		Description: "List pending tasks whose blocking dependencies are all completed.",
	}, s.handleReadyTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "add_dependency",
		Description: "Record that task_id depends on depends_on_task_id. Rejected if either task is unknown or the edge would close a cycle.",
	}, s.handleAddDependency)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "remove_dependency",
		Description: "Remove a dependency edge by its ID.",
	}, s.handleRemoveDependency)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task_status",
		Description: "Change a task's status. Moving to in_progress is refused while blocking dependencies are incomplete unless force is set.",
	}, s.handleUpdateTaskStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate active alerts: graph deadlocks, refused starts and dependency churn.",
	}, s.handleGetAlerts)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Aggregate dependency and graph counters from the event log.",
	}, s.handleGetMetrics)
}

// --- Tool handlers ---

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	var tasks []models.Task
	var err error
	if input.Status != "" {
		status, perr := models.ParseTaskStatus(input.Status)
		if perr != nil {
			return errorResult(perr.Error()), listTasksOutput{}, nil
		}
		tasks, err = s.svc.Tasks.GetTasksByStatus(status)
	} else {
		tasks, err = s.svc.Tasks.GetAllTasks()
	}
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", err)), listTasksOutput{}, nil
	}

	out := listTasksOutput{Tasks: make([]taskOutput, len(tasks)), Count: len(tasks)}
	for i := range tasks {
		out.Tasks[i] = taskToOutput(&tasks[i])
	}
	return nil, out, nil
}

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input getTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}
	task, err := s.svc.Tasks.GetTask(input.TaskID)
	if err != nil {
		return errorResult(err.Error()), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleComputeLayout(_ context.Context, _ *gomcp.CallToolRequest, _ computeLayoutInput) (*gomcp.CallToolResult, layoutOutput, error) {
	layout, err := s.svc.Graph.ComputeLayout()
	if err != nil {
		return errorResult(graphErrorMessage(err)), emptyLayout(), nil
	}

	out := layoutOutput{
		Nodes:          make([]nodeOutput, len(layout.Nodes)),
		Edges:          make([]edgeOutput, len(layout.Edges)),
		CriticalPath:   nonNil(layout.CriticalPath.TaskIDs),
		CriticalLength: layout.CriticalPath.Length,
	}
	for i, n := range layout.Nodes {
		out.Nodes[i] = nodeOutput{TaskID: n.TaskID, Level: n.Level, X: n.X, Y: n.Y}
	}
	for i, e := range layout.Edges {
		out.Edges[i] = edgeOutput{From: e.From, To: e.To, Type: e.Type.String(), IsCritical: e.IsCritical}
	}
	return nil, out, nil
}

func (s *Server) handleCanStart(_ context.Context, _ *gomcp.CallToolRequest, input canStartInput) (*gomcp.CallToolResult, canStartOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), canStartOutput{UnmetBlockers: []string{}}, nil
	}
	g, err := s.svc.Graph.Build()
	if err != nil {
		return errorResult(err.Error()), canStartOutput{UnmetBlockers: []string{}}, nil
	}
	ok, err := g.CanStart(input.TaskID)
	if err != nil {
		return errorResult(graphErrorMessage(err)), canStartOutput{UnmetBlockers: []string{}}, nil
	}
	unmet, _ := g.UnmetBlockers(input.TaskID)
	return nil, canStartOutput{TaskID: input.TaskID, CanStart: ok, UnmetBlockers: nonNil(unmet)}, nil
}

func (s *Server) handleCriticalPath(_ context.Context, _ *gomcp.CallToolRequest, _ criticalPathInput) (*gomcp.CallToolResult, criticalPathOutput, error) {
	cp, err := s.svc.Graph.CriticalPath()
	if err != nil {
		return errorResult(graphErrorMessage(err)), criticalPathOutput{TaskIDs: []string{}}, nil
	}
	return nil, criticalPathOutput{TaskIDs: nonNil(cp.TaskIDs), Length: cp.Length}, nil
}

func (s *Server) handleReadyTasks(_ context.Context, _ *gomcp.CallToolRequest, _ readyTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	tasks, err := s.svc.Graph.Ready()
	if err != nil {
		return errorResult(err.Error()), listTasksOutput{Tasks: []taskOutput{}}, nil
	}
	out := listTasksOutput{Tasks: make([]taskOutput, len(tasks)), Count: len(tasks)}
	for i := range tasks {
		out.Tasks[i] = taskToOutput(&tasks[i])
	}
	return nil, out, nil
}

func (s *Server) handleAddDependency(_ context.Context, _ *gomcp.CallToolRequest, input addDependencyInput) (*gomcp.CallToolResult, dependencyOutput, error) {
	if input.TaskID == "" || input.DependsOnTaskID == "" {
		return errorResult("task_id and depends_on_task_id are required"), dependencyOutput{}, nil
	}
	typ := models.DependencyBlocking
	if input.Type != "" {
		parsed, err := models.ParseDependencyType(input.Type)
		if err != nil {
			return errorResult(err.Error()), dependencyOutput{}, nil
		}
		typ = parsed
	}

	edge, err := s.svc.Dependencies.AddDependency(input.TaskID, input.DependsOnTaskID, typ)
	if err != nil {
		return errorResult(graphErrorMessage(err)), dependencyOutput{}, nil
	}
	return nil, dependencyToOutput(edge), nil
}

func (s *Server) handleRemoveDependency(_ context.Context, _ *gomcp.CallToolRequest, input removeDependencyInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.EdgeID == "" {
		return errorResult("edge_id is required"), messageOutput{}, nil
	}
	if err := s.svc.Dependencies.RemoveDependency(input.EdgeID); err != nil {
		return errorResult(err.Error()), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("dependency %s removed", input.EdgeID)}, nil
}

func (s *Server) handleUpdateTaskStatus(_ context.Context, _ *gomcp.CallToolRequest, input updateTaskStatusInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.TaskID == "" || input.Status == "" {
		return errorResult("task_id and status are required"), messageOutput{}, nil
	}
	status, err := models.ParseTaskStatus(input.Status)
	if err != nil {
		return errorResult(err.Error()), messageOutput{}, nil
	}

	if input.Force {
		err = s.svc.Tasks.ForceTaskStatus(input.TaskID, status)
	} else {
		err = s.svc.Tasks.UpdateTaskStatus(input.TaskID, status)
	}
	if err != nil {
		return errorResult(graphErrorMessage(err)), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("task %s status updated to %s", input.TaskID, status)}, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.svc.Alerts == nil {
		return errorResult("alert engine not available"), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}
	alerts, err := s.svc.Alerts.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	out := getAlertsOutput{Alerts: make([]alertOutput, len(alerts)), Count: len(alerts)}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TaskIDs:     a.TaskIDs,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	empty := metricsOutput{StatusTransitions: map[string]int{}}
	if s.svc.Metrics == nil {
		return errorResult("metrics calculator not available"), empty, nil
	}
	window := input.Since
	if window == "" {
		window = "7d"
	}
	since, err := observability.ParseSince(window, time.Now().UTC())
	if err != nil {
		return errorResult(err.Error()), empty, nil
	}
	m, err := s.svc.Metrics.Calculate(since)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), empty, nil
	}
	return nil, metricsOutput{
		TasksCreated:         m.TasksCreated,
		TasksCompleted:       m.TasksCompleted,
		StatusTransitions:    m.StatusTransitions,
		StartsBlocked:        m.StartsBlocked,
		DependenciesAdded:    m.DependenciesAdded,
		DependenciesRemoved:  m.DependenciesRemoved,
		DependenciesRejected: m.DependenciesRejected,
		Recomputations:       m.Recomputations,
		CyclesDetected:       m.CyclesDetected,
		EventCount:           m.EventCount,
	}, nil
}

// --- Helpers ---

func taskToOutput(t *models.Task) taskOutput {
	return taskOutput{
		ID:       t.ID,
		Title:    t.Title,
		Status:   string(t.Status),
		Priority: string(t.Priority),
		Created:  t.Created.Format(time.RFC3339),
		Updated:  t.Updated.Format(time.RFC3339),
	}
}

func dependencyToOutput(e *models.DependencyEdge) dependencyOutput {
	out := dependencyOutput{
		ID:              e.ID,
		TaskID:          e.TaskID,
		DependsOnTaskID: e.DependsOnTaskID,
		Type:            e.Type.String(),
	}
	if !e.Created.IsZero() {
		out.Created = e.Created.Format(time.RFC3339)
	}
	return out
}

// graphErrorMessage prefixes deadlocks and refused starts so an assistant can
// tell them apart from I/O failures.
func graphErrorMessage(err error) string {
	var cycle *graph.CycleError
	var blocked *core.StartBlockedError
	switch {
	case errors.As(err, &cycle):
		return "deadlock: " + err.Error()
	case errors.As(err, &blocked):
		return "blocked: " + err.Error()
	default:
		return err.Error()
	}
}

func emptyLayout() layoutOutput {
	return layoutOutput{Nodes: []nodeOutput{}, Edges: []edgeOutput{}, CriticalPath: []string{}}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
