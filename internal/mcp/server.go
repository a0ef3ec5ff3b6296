// Package mcp implements the Model Context Protocol server for mnemo.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mnemo-graph/mnemo/internal/memory"
	"github.com/mnemo-graph/mnemo/internal/models"
	"github.com/mnemo-graph/mnemo/internal/store"
)

// defaultTraversalDepth is used by find_related_entities when the caller
// does not give a depth.
const defaultTraversalDepth = 2

// Server wraps an MCPServer with the mnemo domain service.
type Server struct {
	mcp    *mcpserver.MCPServer
	svc    *memory.Service
	logger *slog.Logger
}

// NewServer creates a new MCP server over the given domain service. If svc
// is nil, tool calls return an error response instead of panicking.
func NewServer(svc *memory.Service, logger *slog.Logger) *Server {
	s := &Server{svc: svc, logger: logger}

	mcpSrv := mcpserver.NewMCPServer(
		"mnemo",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildCreateEntitiesTool(), s.handleCreateEntities)
	mcpSrv.AddTool(buildGetEntityTool(), s.handleGetEntity)
	mcpSrv.AddTool(buildUpdateEntityTool(), s.handleUpdateEntity)
	mcpSrv.AddTool(buildDeleteEntitiesTool(), s.handleDeleteEntities)
	mcpSrv.AddTool(buildCreateRelationshipsTool(), s.handleCreateRelationships)
	mcpSrv.AddTool(buildUpdateRelationshipTool(), s.handleUpdateRelationship)
	mcpSrv.AddTool(buildDeleteRelationshipsTool(), s.handleDeleteRelationships)
	mcpSrv.AddTool(buildFindEntitiesByLabelsTool(), s.handleFindEntitiesByLabels)
	mcpSrv.AddTool(buildFindRelationshipsTool(), s.handleFindRelationships)
	mcpSrv.AddTool(buildSetObservationsTool(), s.handleSetObservations)
	mcpSrv.AddTool(buildAddObservationsTool(), s.handleAddObservations)
	mcpSrv.AddTool(buildRemoveObservationsTool(), s.handleRemoveObservations)
	mcpSrv.AddTool(buildRemoveAllObservationsTool(), s.handleRemoveAllObservations)
	mcpSrv.AddTool(buildFindRelatedEntitiesTool(), s.handleFindRelatedEntities)
	mcpSrv.AddTool(buildGetGraphMetaTool(), s.handleGetGraphMeta)
	mcpSrv.AddTool(buildCreateTasksTool(), s.handleCreateTasks)
	mcpSrv.AddTool(buildGetTaskTool(), s.handleGetTask)
	mcpSrv.AddTool(buildUpdateTaskTool(), s.handleUpdateTask)
	mcpSrv.AddTool(buildDeleteTaskTool(), s.handleDeleteTask)
	mcpSrv.AddTool(buildListTasksTool(), s.handleListTasks)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// Exported handlers, one per tool, for direct invocation without the
// mcp-go transport layer.

func (s *Server) HandleCreateEntities(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleCreateEntities(ctx, req)
}

func (s *Server) HandleGetEntity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleGetEntity(ctx, req)
}

func (s *Server) HandleUpdateEntity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleUpdateEntity(ctx, req)
}

func (s *Server) HandleDeleteEntities(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleDeleteEntities(ctx, req)
}

func (s *Server) HandleCreateRelationships(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleCreateRelationships(ctx, req)
}

func (s *Server) HandleUpdateRelationship(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleUpdateRelationship(ctx, req)
}

func (s *Server) HandleDeleteRelationships(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleDeleteRelationships(ctx, req)
}

func (s *Server) HandleFindEntitiesByLabels(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleFindEntitiesByLabels(ctx, req)
}

func (s *Server) HandleFindRelationships(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleFindRelationships(ctx, req)
}

func (s *Server) HandleSetObservations(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSetObservations(ctx, req)
}

func (s *Server) HandleAddObservations(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAddObservations(ctx, req)
}

func (s *Server) HandleRemoveObservations(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRemoveObservations(ctx, req)
}

func (s *Server) HandleRemoveAllObservations(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRemoveAllObservations(ctx, req)
}

func (s *Server) HandleFindRelatedEntities(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleFindRelatedEntities(ctx, req)
}

func (s *Server) HandleGetGraphMeta(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleGetGraphMeta(ctx, req)
}

func (s *Server) HandleCreateTasks(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleCreateTasks(ctx, req)
}

func (s *Server) HandleGetTask(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleGetTask(ctx, req)
}

func (s *Server) HandleUpdateTask(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleUpdateTask(ctx, req)
}

func (s *Server) HandleDeleteTask(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleDeleteTask(ctx, req)
}

func (s *Server) HandleListTasks(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleListTasks(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// toolError maps a domain error to a tool error response. Context
// cancellation is the only error that propagates to the transport.
func toolError(err error) (*mcpgo.CallToolResult, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	var ve *memory.ValidationError
	if errors.As(err, &ve) {
		return mcpgo.NewToolResultError(ve.Error()), nil
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return mcpgo.NewToolResultErrorf("not found: %s", err.Error()), nil
	case errors.Is(err, store.ErrConflict):
		return mcpgo.NewToolResultErrorf("conflict: %s", err.Error()), nil
	case errors.Is(err, store.ErrReference):
		return mcpgo.NewToolResultErrorf("missing reference: %s", err.Error()), nil
	case errors.Is(err, store.ErrUnavailable):
		return mcpgo.NewToolResultErrorf("store unavailable: %s", err.Error()), nil
	}
	return mcpgo.NewToolResultError(err.Error()), nil
}

// decodeArg re-marshals one argument from the raw request map into out,
// giving typed decoding for array and object parameters.
func decodeArg(req mcpgo.CallToolRequest, key string, out any) (bool, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return false, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func parseMatchMode(raw string) (store.LabelMatchMode, error) {
	switch raw {
	case "", "any":
		return store.MatchAny, nil
	case "all":
		return store.MatchAll, nil
	}
	return store.MatchAny, fmt.Errorf("invalid match mode %q: must be any or all", raw)
}

// entityInput is the wire shape of an entity in create_entities arguments.
// Properties arrive as raw JSON scalars and are narrowed to the closed
// value union before hitting the domain layer.
type entityInput struct {
	Name         string         `json:"name"`
	Labels       []string       `json:"labels,omitempty"`
	Observations []string       `json:"observations,omitempty"`
	Properties   map[string]any `json:"properties,omitempty"`
}

func (in entityInput) toEntity() (models.Entity, error) {
	props, err := models.PropertiesFromAny(in.Properties)
	if err != nil {
		return models.Entity{}, fmt.Errorf("entity %s: %w", in.Name, err)
	}
	return models.Entity{
		Name:         in.Name,
		Labels:       in.Labels,
		Observations: in.Observations,
		Properties:   props,
	}, nil
}

// relationshipInput is the wire shape of a relationship in
// create_relationships arguments.
type relationshipInput struct {
	From       string         `json:"from"`
	To         string         `json:"to"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

func (in relationshipInput) toRelationship() (models.Relationship, error) {
	props, err := models.PropertiesFromAny(in.Properties)
	if err != nil {
		return models.Relationship{}, fmt.Errorf("relationship %s-[%s]->%s: %w", in.From, in.Type, in.To, err)
	}
	return models.Relationship{From: in.From, To: in.To, Type: in.Type, Properties: props}, nil
}

// taskInput is the wire shape of a task in create_tasks arguments.
type taskInput struct {
	Name         string   `json:"name,omitempty"`
	Description  string   `json:"description"`
	Status       string   `json:"status,omitempty"`
	Priority     string   `json:"priority,omitempty"`
	TaskType     string   `json:"task_type,omitempty"`
	DueDate      string   `json:"due_date,omitempty"`
	Observations []string `json:"observations,omitempty"`
	DependsOn    []string `json:"depends_on,omitempty"`
}

func (in taskInput) toTaskInput() (memory.TaskInput, error) {
	out := memory.TaskInput{
		Name:         in.Name,
		Description:  in.Description,
		Status:       models.TaskStatus(in.Status),
		Priority:     models.TaskPriority(in.Priority),
		Type:         models.TaskType(in.TaskType),
		Observations: in.Observations,
		DependsOn:    in.DependsOn,
	}
	if in.DueDate != "" {
		due, err := time.Parse(time.RFC3339, in.DueDate)
		if err != nil {
			return memory.TaskInput{}, fmt.Errorf("task %s: due_date must be RFC 3339: %w", in.Name, err)
		}
		out.DueDate = &due
	}
	return out, nil
}

// --- tool definitions ---

func buildCreateEntitiesTool() mcpgo.Tool {
	return mcpgo.NewTool("create_entities",
		mcpgo.WithDescription("Create a batch of entities in the memory graph. The batch is atomic: any validation failure or name conflict creates nothing."),
		mcpgo.WithArray("entities",
			mcpgo.Required(),
			mcpgo.Description("Entities to create. Each has a unique name, optional labels, observations, and scalar properties."),
			mcpgo.Items(map[string]any{"type": "object"}),
		),
	)
}

func buildGetEntityTool() mcpgo.Tool {
	return mcpgo.NewTool("get_entity",
		mcpgo.WithDescription("Fetch one entity by name. Returns null when no entity with that name exists."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("The entity name, e.g. tech:language:rust"),
		),
	)
}

func buildUpdateEntityTool() mcpgo.Tool {
	return mcpgo.NewTool("update_entity",
		mcpgo.WithDescription("Patch an existing entity. Labels and observations, when given, replace the stored values wholesale; properties merge key-by-key."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("The entity to update"),
		),
		mcpgo.WithArray("labels",
			mcpgo.Description("Replacement label set. Must be non-empty when given."),
			mcpgo.Items(map[string]any{"type": "string"}),
		),
		mcpgo.WithArray("observations",
			mcpgo.Description("Replacement observation sequence"),
			mcpgo.Items(map[string]any{"type": "string"}),
		),
		mcpgo.WithObject("properties",
			mcpgo.Description("Scalar properties to set or overwrite"),
		),
		mcpgo.WithArray("remove_properties",
			mcpgo.Description("Property keys to remove"),
			mcpgo.Items(map[string]any{"type": "string"}),
		),
	)
}

func buildDeleteEntitiesTool() mcpgo.Tool {
	return mcpgo.NewTool("delete_entities",
		mcpgo.WithDescription("Delete entities by name along with their relationships. Absent names are skipped; returns how many were deleted."),
		mcpgo.WithArray("names",
			mcpgo.Required(),
			mcpgo.Description("Entity names to delete"),
			mcpgo.Items(map[string]any{"type": "string"}),
		),
	)
}

func buildCreateRelationshipsTool() mcpgo.Tool {
	return mcpgo.NewTool("create_relationships",
		mcpgo.WithDescription("Create directed, typed relationships between existing entities. Types must be snake_case; missing endpoints fail the batch."),
		mcpgo.WithArray("relationships",
			mcpgo.Required(),
			mcpgo.Description("Relationships to create, each with from, to, type, and optional scalar properties."),
			mcpgo.Items(map[string]any{"type": "object"}),
		),
	)
}

func buildUpdateRelationshipTool() mcpgo.Tool {
	return mcpgo.NewTool("update_relationship",
		mcpgo.WithDescription("Patch the properties of the relationships running between two entities with a given type. Endpoints and type identify the relationship and cannot be changed."),
		mcpgo.WithString("from",
			mcpgo.Required(),
			mcpgo.Description("Source entity name"),
		),
		mcpgo.WithString("to",
			mcpgo.Required(),
			mcpgo.Description("Target entity name"),
		),
		mcpgo.WithString("type",
			mcpgo.Required(),
			mcpgo.Description("Relationship type"),
		),
		mcpgo.WithObject("properties",
			mcpgo.Description("Scalar properties to set or overwrite"),
		),
		mcpgo.WithArray("remove_properties",
			mcpgo.Description("Property keys to remove"),
			mcpgo.Items(map[string]any{"type": "string"}),
		),
	)
}

func buildDeleteRelationshipsTool() mcpgo.Tool {
	return mcpgo.NewTool("delete_relationships",
		mcpgo.WithDescription("Delete relationships matching a selector. Empty selector fields act as wildcards; returns how many were deleted."),
		mcpgo.WithString("from",
			mcpgo.Description("Source entity name filter"),
		),
		mcpgo.WithString("to",
			mcpgo.Description("Target entity name filter"),
		),
		mcpgo.WithString("type",
			mcpgo.Description("Relationship type filter"),
		),
	)
}

func buildFindEntitiesByLabelsTool() mcpgo.Tool {
	return mcpgo.NewTool("find_entities_by_labels",
		mcpgo.WithDescription("Find entities carrying the given labels, matching any or all of them."),
		mcpgo.WithArray("labels",
			mcpgo.Required(),
			mcpgo.Description("Labels to match"),
			mcpgo.Items(map[string]any{"type": "string"}),
		),
		mcpgo.WithString("match",
			mcpgo.Description("Match mode: any (default) or all"),
		),
	)
}

func buildFindRelationshipsTool() mcpgo.Tool {
	return mcpgo.NewTool("find_relationships",
		mcpgo.WithDescription("Find relationships matching a selector. Empty selector fields act as wildcards."),
		mcpgo.WithString("from",
			mcpgo.Description("Source entity name filter"),
		),
		mcpgo.WithString("to",
			mcpgo.Description("Target entity name filter"),
		),
		mcpgo.WithString("type",
			mcpgo.Description("Relationship type filter"),
		),
	)
}

func buildSetObservationsTool() mcpgo.Tool {
	return mcpgo.NewTool("set_observations",
		mcpgo.WithDescription("Replace an entity's observations wholesale."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("The entity to update"),
		),
		mcpgo.WithArray("observations",
			mcpgo.Required(),
			mcpgo.Description("The new observation sequence"),
			mcpgo.Items(map[string]any{"type": "string"}),
		),
	)
}

func buildAddObservationsTool() mcpgo.Tool {
	return mcpgo.NewTool("add_observations",
		mcpgo.WithDescription("Append observations to an entity in order. Duplicates are kept."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("The entity to update"),
		),
		mcpgo.WithArray("observations",
			mcpgo.Required(),
			mcpgo.Description("Observations to append"),
			mcpgo.Items(map[string]any{"type": "string"}),
		),
	)
}

func buildRemoveObservationsTool() mcpgo.Tool {
	return mcpgo.NewTool("remove_observations",
		mcpgo.WithDescription("Remove all occurrences of the given observations from an entity. Absent values are ignored."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("The entity to update"),
		),
		mcpgo.WithArray("observations",
			mcpgo.Required(),
			mcpgo.Description("Observations to remove"),
			mcpgo.Items(map[string]any{"type": "string"}),
		),
	)
}

func buildRemoveAllObservationsTool() mcpgo.Tool {
	return mcpgo.NewTool("remove_all_observations",
		mcpgo.WithDescription("Clear all observations from an entity."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("The entity to clear"),
		),
	)
}

func buildFindRelatedEntitiesTool() mcpgo.Tool {
	return mcpgo.NewTool("find_related_entities",
		mcpgo.WithDescription("Walk outbound relationships from an entity up to a bounded depth and return the discovered subgraph. The starting entity is not included."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("The entity to start from"),
		),
		mcpgo.WithNumber("depth",
			mcpgo.Description(fmt.Sprintf("Traversal depth in hops, %d-%d (default: %d)", memory.MinTraversalDepth, memory.MaxTraversalDepth, defaultTraversalDepth)),
		),
		mcpgo.WithString("relationship_type",
			mcpgo.Description("Only follow relationships of this snake_case type"),
		),
	)
}

func buildGetGraphMetaTool() mcpgo.Tool {
	return mcpgo.NewTool("get_graph_meta",
		mcpgo.WithDescription("Return the subgraph reachable from the well-known graph root at maximum depth. Gives an overview of what the memory graph contains."),
		mcpgo.WithString("relationship_type",
			mcpgo.Description("Only follow relationships of this snake_case type"),
		),
	)
}

func buildCreateTasksTool() mcpgo.Tool {
	return mcpgo.NewTool("create_tasks",
		mcpgo.WithDescription("Create task entities. Each task is linked under the graph root and to its dependencies; dependencies must name another task in the batch or an existing entity."),
		mcpgo.WithArray("tasks",
			mcpgo.Required(),
			mcpgo.Description("Tasks to create, each with a description and optional name, status, priority, task_type, due_date, observations, and depends_on."),
			mcpgo.Items(map[string]any{"type": "object"}),
		),
	)
}

func buildGetTaskTool() mcpgo.Tool {
	return mcpgo.NewTool("get_task",
		mcpgo.WithDescription("Fetch one task by name, including its dependencies. Returns null when the name does not exist or is not a task."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("The task name"),
		),
	)
}

func buildUpdateTaskTool() mcpgo.Tool {
	return mcpgo.NewTool("update_task",
		mcpgo.WithDescription("Patch a task's description, status, priority, or due date. Only given fields change; updated_at is bumped."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("The task to update"),
		),
		mcpgo.WithString("description",
			mcpgo.Description("New description"),
		),
		mcpgo.WithString("status",
			mcpgo.Description("New status: todo, in_progress, blocked, done, or cancelled"),
		),
		mcpgo.WithString("priority",
			mcpgo.Description("New priority: low, medium, high, or critical"),
		),
		mcpgo.WithString("due_date",
			mcpgo.Description("New due date as an RFC 3339 timestamp"),
		),
	)
}

func buildDeleteTaskTool() mcpgo.Tool {
	return mcpgo.NewTool("delete_task",
		mcpgo.WithDescription("Delete a task and its relationships."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("The task to delete"),
		),
	)
}

func buildListTasksTool() mcpgo.Tool {
	return mcpgo.NewTool("list_tasks",
		mcpgo.WithDescription("List all tasks, optionally filtered by status."),
		mcpgo.WithString("status",
			mcpgo.Description("Only return tasks with this status"),
		),
	)
}

// --- tool handlers ---

func (s *Server) handleCreateEntities(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	var inputs []entityInput
	ok, err := decodeArg(req, "entities", &inputs)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	if !ok || len(inputs) == 0 {
		return mcpgo.NewToolResultError("entities is required and must not be empty"), nil
	}

	entities := make([]models.Entity, len(inputs))
	for i, in := range inputs {
		e, err := in.toEntity()
		if err != nil {
			return mcpgo.NewToolResultError(err.Error()), nil
		}
		entities[i] = e
	}

	created, err := s.svc.CreateEntities(ctx, entities)
	if err != nil {
		return toolError(err)
	}
	return toolResultJSON(map[string]any{"entities": created})
}

func (s *Server) handleGetEntity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	name := req.GetString("name", "")
	if strings.TrimSpace(name) == "" {
		return mcpgo.NewToolResultError("name is required and must not be empty"), nil
	}
	e, err := s.svc.GetEntity(ctx, name)
	if err != nil {
		return toolError(err)
	}
	return toolResultJSON(map[string]any{"entity": e})
}

func (s *Server) handleUpdateEntity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	name := req.GetString("name", "")
	if strings.TrimSpace(name) == "" {
		return mcpgo.NewToolResultError("name is required and must not be empty"), nil
	}

	var patch store.EntityPatch

	var labels []string
	if ok, err := decodeArg(req, "labels", &labels); err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	} else if ok {
		if labels == nil {
			labels = []string{}
		}
		patch.Labels = labels
	}

	var observations []string
	if ok, err := decodeArg(req, "observations", &observations); err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	} else if ok {
		if observations == nil {
			observations = []string{}
		}
		patch.Observations = observations
	}

	var rawProps map[string]any
	if ok, err := decodeArg(req, "properties", &rawProps); err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	} else if ok {
		props, err := models.PropertiesFromAny(rawProps)
		if err != nil {
			return mcpgo.NewToolResultError(err.Error()), nil
		}
		patch.Properties = props
	}

	if _, err := decodeArg(req, "remove_properties", &patch.RemoveProperties); err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	if patch.IsZero() {
		return mcpgo.NewToolResultError("patch is empty: give labels, observations, properties, or remove_properties"), nil
	}

	updated, err := s.svc.UpdateEntity(ctx, name, patch)
	if err != nil {
		return toolError(err)
	}
	return toolResultJSON(map[string]any{"entity": updated})
}

func (s *Server) handleDeleteEntities(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	var names []string
	ok, err := decodeArg(req, "names", &names)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	if !ok || len(names) == 0 {
		return mcpgo.NewToolResultError("names is required and must not be empty"), nil
	}
	count, err := s.svc.DeleteEntities(ctx, names)
	if err != nil {
		return toolError(err)
	}
	return toolResultJSON(map[string]any{"deleted": count})
}

func (s *Server) handleCreateRelationships(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	var inputs []relationshipInput
	ok, err := decodeArg(req, "relationships", &inputs)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	if !ok || len(inputs) == 0 {
		return mcpgo.NewToolResultError("relationships is required and must not be empty"), nil
	}

	rels := make([]models.Relationship, len(inputs))
	for i, in := range inputs {
		r, err := in.toRelationship()
		if err != nil {
			return mcpgo.NewToolResultError(err.Error()), nil
		}
		rels[i] = r
	}

	created, err := s.svc.CreateRelationships(ctx, rels)
	if err != nil {
		return toolError(err)
	}
	return toolResultJSON(map[string]any{"relationships": created})
}

func (s *Server) handleUpdateRelationship(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	from := req.GetString("from", "")
	to := req.GetString("to", "")
	relType := req.GetString("type", "")
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" || strings.TrimSpace(relType) == "" {
		return mcpgo.NewToolResultError("from, to, and type are required and must not be empty"), nil
	}

	var patch store.RelationshipPatch

	var rawProps map[string]any
	if ok, err := decodeArg(req, "properties", &rawProps); err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	} else if ok {
		props, err := models.PropertiesFromAny(rawProps)
		if err != nil {
			return mcpgo.NewToolResultError(err.Error()), nil
		}
		patch.Properties = props
	}

	if _, err := decodeArg(req, "remove_properties", &patch.RemoveProperties); err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	if patch.IsZero() {
		return mcpgo.NewToolResultError("patch is empty: give properties or remove_properties"), nil
	}

	updated, err := s.svc.UpdateRelationship(ctx, from, to, relType, patch)
	if err != nil {
		return toolError(err)
	}
	return toolResultJSON(map[string]any{"relationships": updated})
}

func (s *Server) handleDeleteRelationships(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	sel := store.RelationshipSelector{
		From: req.GetString("from", ""),
		To:   req.GetString("to", ""),
		Type: req.GetString("type", ""),
	}
	count, err := s.svc.DeleteRelationships(ctx, sel)
	if err != nil {
		return toolError(err)
	}
	return toolResultJSON(map[string]any{"deleted": count})
}

func (s *Server) handleFindEntitiesByLabels(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	var labels []string
	ok, err := decodeArg(req, "labels", &labels)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	if !ok || len(labels) == 0 {
		return mcpgo.NewToolResultError("labels is required and must not be empty"), nil
	}
	mode, err := parseMatchMode(req.GetString("match", ""))
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	entities, err := s.svc.FindEntitiesByLabels(ctx, labels, mode)
	if err != nil {
		return toolError(err)
	}
	return toolResultJSON(map[string]any{"entities": entities})
}

func (s *Server) handleFindRelationships(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	sel := store.RelationshipSelector{
		From: req.GetString("from", ""),
		To:   req.GetString("to", ""),
		Type: req.GetString("type", ""),
	}
	rels, err := s.svc.FindRelationships(ctx, sel)
	if err != nil {
		return toolError(err)
	}
	return toolResultJSON(map[string]any{"relationships": rels})
}

// observationEdit covers the three tools that take a name plus an
// observation list.
func (s *Server) observationEdit(ctx context.Context, req mcpgo.CallToolRequest, edit func(context.Context, string, []string) (*models.Entity, error)) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	name := req.GetString("name", "")
	if strings.TrimSpace(name) == "" {
		return mcpgo.NewToolResultError("name is required and must not be empty"), nil
	}
	var observations []string
	ok, err := decodeArg(req, "observations", &observations)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcpgo.NewToolResultError("observations is required"), nil
	}
	updated, err := edit(ctx, name, observations)
	if err != nil {
		return toolError(err)
	}
	return toolResultJSON(map[string]any{"entity": updated})
}

func (s *Server) handleSetObservations(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.observationEdit(ctx, req, func(ctx context.Context, name string, obs []string) (*models.Entity, error) {
		return s.svc.SetObservations(ctx, name, obs)
	})
}

func (s *Server) handleAddObservations(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.observationEdit(ctx, req, func(ctx context.Context, name string, obs []string) (*models.Entity, error) {
		return s.svc.AddObservations(ctx, name, obs)
	})
}

func (s *Server) handleRemoveObservations(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.observationEdit(ctx, req, func(ctx context.Context, name string, obs []string) (*models.Entity, error) {
		return s.svc.RemoveObservations(ctx, name, obs)
	})
}

func (s *Server) handleRemoveAllObservations(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	name := req.GetString("name", "")
	if strings.TrimSpace(name) == "" {
		return mcpgo.NewToolResultError("name is required and must not be empty"), nil
	}
	updated, err := s.svc.RemoveAllObservations(ctx, name)
	if err != nil {
		return toolError(err)
	}
	return toolResultJSON(map[string]any{"entity": updated})
}

func (s *Server) handleFindRelatedEntities(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	name := req.GetString("name", "")
	if strings.TrimSpace(name) == "" {
		return mcpgo.NewToolResultError("name is required and must not be empty"), nil
	}
	depth := req.GetInt("depth", defaultTraversalDepth)
	typeFilter := req.GetString("relationship_type", "")

	sub, err := s.svc.FindRelatedEntities(ctx, name, depth, typeFilter)
	if err != nil {
		return toolError(err)
	}
	s.logger.Debug("mcp: find_related_entities", "root", name, "depth", depth, "entities", len(sub.Entities))
	return toolResultJSON(sub)
}

func (s *Server) handleGetGraphMeta(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	typeFilter := req.GetString("relationship_type", "")
	sub, err := s.svc.GetGraphMeta(ctx, typeFilter)
	if err != nil {
		return toolError(err)
	}
	return toolResultJSON(sub)
}

func (s *Server) handleCreateTasks(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	var inputs []taskInput
	ok, err := decodeArg(req, "tasks", &inputs)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	if !ok || len(inputs) == 0 {
		return mcpgo.NewToolResultError("tasks is required and must not be empty"), nil
	}

	domainInputs := make([]memory.TaskInput, len(inputs))
	for i, in := range inputs {
		ti, err := in.toTaskInput()
		if err != nil {
			return mcpgo.NewToolResultError(err.Error()), nil
		}
		domainInputs[i] = ti
	}

	tasks, err := s.svc.CreateTasks(ctx, domainInputs)
	if err != nil {
		return toolError(err)
	}
	s.logger.Info("mcp: created tasks", "count", len(tasks))
	return toolResultJSON(map[string]any{"tasks": tasks})
}

func (s *Server) handleGetTask(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	name := req.GetString("name", "")
	if strings.TrimSpace(name) == "" {
		return mcpgo.NewToolResultError("name is required and must not be empty"), nil
	}
	task, err := s.svc.GetTask(ctx, name)
	if err != nil {
		return toolError(err)
	}
	return toolResultJSON(map[string]any{"task": task})
}

func (s *Server) handleUpdateTask(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	name := req.GetString("name", "")
	if strings.TrimSpace(name) == "" {
		return mcpgo.NewToolResultError("name is required and must not be empty"), nil
	}

	var patch memory.TaskPatch
	args := req.GetArguments()
	if _, ok := args["description"]; ok {
		d := req.GetString("description", "")
		patch.Description = &d
	}
	if raw := req.GetString("status", ""); raw != "" {
		st := models.TaskStatus(raw)
		patch.Status = &st
	}
	if raw := req.GetString("priority", ""); raw != "" {
		p := models.TaskPriority(raw)
		patch.Priority = &p
	}
	if raw := req.GetString("due_date", ""); raw != "" {
		due, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return mcpgo.NewToolResultErrorf("due_date must be RFC 3339: %s", err.Error()), nil
		}
		patch.DueDate = &due
	}

	task, err := s.svc.UpdateTask(ctx, name, patch)
	if err != nil {
		return toolError(err)
	}
	return toolResultJSON(map[string]any{"task": task})
}

func (s *Server) handleDeleteTask(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	name := req.GetString("name", "")
	if strings.TrimSpace(name) == "" {
		return mcpgo.NewToolResultError("name is required and must not be empty"), nil
	}
	if err := s.svc.DeleteTask(ctx, name); err != nil {
		return toolError(err)
	}
	return toolResultJSON(map[string]any{"deleted": true})
}

func (s *Server) handleListTasks(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}
	status := models.TaskStatus(req.GetString("status", ""))
	tasks, err := s.svc.ListTasks(ctx, status)
	if err != nil {
		return toolError(err)
	}
	return toolResultJSON(map[string]any{"tasks": tasks})
}
