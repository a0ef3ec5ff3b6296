package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/mnemo-graph/mnemo/internal/memory"
	"github.com/mnemo-graph/mnemo/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := memory.NewService(store.NewMemStore(), memory.DefaultConfig(), logger)
	return NewServer(svc, logger)
}

// makeReq builds a CallToolRequest the way the mcp-go transport would,
// with arguments as a decoded JSON object.
func makeReq(tool string, args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args
	return req
}

// resultText extracts the text payload from a tool result.
func resultText(t *testing.T, res *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := mcpgo.AsTextContent(res.Content[0])
	require.True(t, ok, "expected text content")
	return tc.Text
}

// decodeResult unmarshals a successful tool result into out.
func decodeResult(t *testing.T, res *mcpgo.CallToolResult, out any) {
	t.Helper()
	require.False(t, res.IsError, "unexpected tool error: %s", resultText(t, res))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), out))
}

func seedEntity(t *testing.T, srv *Server, name string, labels ...string) {
	t.Helper()
	anyLabels := make([]any, len(labels))
	for i, l := range labels {
		anyLabels[i] = l
	}
	res, err := srv.HandleCreateEntities(context.Background(), makeReq("create_entities", map[string]any{
		"entities": []any{map[string]any{"name": name, "labels": anyLabels}},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, "seed failed: %s", resultText(t, res))
}

func TestHandleCreateEntities_AndGetEntity(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	res, err := srv.HandleCreateEntities(ctx, makeReq("create_entities", map[string]any{
		"entities": []any{
			map[string]any{
				"name":         "tech:language:rust",
				"labels":       []any{"Technology", "Language"},
				"observations": []any{"memory safe"},
				"properties":   map[string]any{"version": "1.75", "year": float64(2015)},
			},
		},
	}))
	require.NoError(t, err)

	var created struct {
		Entities []struct {
			Name   string   `json:"name"`
			Labels []string `json:"labels"`
		} `json:"entities"`
	}
	decodeResult(t, res, &created)
	require.Len(t, created.Entities, 1)
	assert.Contains(t, created.Entities[0].Labels, "Memory", "default label is appended")

	res, err = srv.HandleGetEntity(ctx, makeReq("get_entity", map[string]any{"name": "tech:language:rust"}))
	require.NoError(t, err)

	var got struct {
		Entity *struct {
			Name         string         `json:"name"`
			Observations []string       `json:"observations"`
			Properties   map[string]any `json:"properties"`
		} `json:"entity"`
	}
	decodeResult(t, res, &got)
	require.NotNil(t, got.Entity)
	assert.Equal(t, []string{"memory safe"}, got.Entity.Observations)
	assert.Equal(t, "1.75", got.Entity.Properties["version"])
}

func TestHandleGetEntity_AbsentIsNull(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.HandleGetEntity(context.Background(), makeReq("get_entity", map[string]any{"name": "ghost"}))
	require.NoError(t, err)

	var got struct {
		Entity *json.RawMessage `json:"entity"`
	}
	decodeResult(t, res, &got)
	assert.Nil(t, got.Entity)
}

func TestHandleCreateEntities_MissingArgument(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.HandleCreateEntities(context.Background(), makeReq("create_entities", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleCreateEntities_ConflictIsToolError(t *testing.T) {
	srv := newTestServer(t)
	seedEntity(t, srv, "dup", "Memory")

	res, err := srv.HandleCreateEntities(context.Background(), makeReq("create_entities", map[string]any{
		"entities": []any{map[string]any{"name": "dup"}},
	}))
	require.NoError(t, err, "domain failures surface as tool errors, not transport errors")
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "conflict")
}

func TestHandleUpdateEntity(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	seedEntity(t, srv, "a", "Memory")

	res, err := srv.HandleUpdateEntity(ctx, makeReq("update_entity", map[string]any{
		"name":       "a",
		"labels":     []any{"Renamed"},
		"properties": map[string]any{"k": "v"},
	}))
	require.NoError(t, err)

	var got struct {
		Entity struct {
			Labels     []string       `json:"labels"`
			Properties map[string]any `json:"properties"`
		} `json:"entity"`
	}
	decodeResult(t, res, &got)
	assert.Equal(t, []string{"Renamed"}, got.Entity.Labels)
	assert.Equal(t, "v", got.Entity.Properties["k"])
}

func TestHandleUpdateEntity_EmptyPatchRejected(t *testing.T) {
	srv := newTestServer(t)
	seedEntity(t, srv, "a", "Memory")

	res, err := srv.HandleUpdateEntity(context.Background(), makeReq("update_entity", map[string]any{"name": "a"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleDeleteEntities(t *testing.T) {
	srv := newTestServer(t)
	seedEntity(t, srv, "a", "Memory")

	res, err := srv.HandleDeleteEntities(context.Background(), makeReq("delete_entities", map[string]any{
		"names": []any{"a", "ghost"},
	}))
	require.NoError(t, err)

	var got struct {
		Deleted int `json:"deleted"`
	}
	decodeResult(t, res, &got)
	assert.Equal(t, 1, got.Deleted)
}

func TestHandleRelationships_CreateFindDelete(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	seedEntity(t, srv, "a", "Memory")
	seedEntity(t, srv, "b", "Memory")

	res, err := srv.HandleCreateRelationships(ctx, makeReq("create_relationships", map[string]any{
		"relationships": []any{map[string]any{"from": "a", "to": "b", "type": "uses"}},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	res, err = srv.HandleFindRelationships(ctx, makeReq("find_relationships", map[string]any{"from": "a"}))
	require.NoError(t, err)
	var found struct {
		Relationships []struct {
			Type string `json:"type"`
		} `json:"relationships"`
	}
	decodeResult(t, res, &found)
	require.Len(t, found.Relationships, 1)
	assert.Equal(t, "uses", found.Relationships[0].Type)

	res, err = srv.HandleDeleteRelationships(ctx, makeReq("delete_relationships", map[string]any{"type": "uses"}))
	require.NoError(t, err)
	var deleted struct {
		Deleted int `json:"deleted"`
	}
	decodeResult(t, res, &deleted)
	assert.Equal(t, 1, deleted.Deleted)
}

func TestHandleUpdateRelationship(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	seedEntity(t, srv, "a", "Memory")
	seedEntity(t, srv, "b", "Memory")

	res, err := srv.HandleCreateRelationships(ctx, makeReq("create_relationships", map[string]any{
		"relationships": []any{map[string]any{
			"from": "a", "to": "b", "type": "uses",
			"properties": map[string]any{"since": "2023", "stale": true},
		}},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	res, err = srv.HandleUpdateRelationship(ctx, makeReq("update_relationship", map[string]any{
		"from": "a", "to": "b", "type": "uses",
		"properties":        map[string]any{"since": "2024"},
		"remove_properties": []any{"stale"},
	}))
	require.NoError(t, err)

	var got struct {
		Relationships []struct {
			Properties map[string]any `json:"properties"`
		} `json:"relationships"`
	}
	decodeResult(t, res, &got)
	require.Len(t, got.Relationships, 1)
	assert.Equal(t, "2024", got.Relationships[0].Properties["since"])
	assert.NotContains(t, got.Relationships[0].Properties, "stale")
}

func TestHandleUpdateRelationship_EmptyPatchRejected(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.HandleUpdateRelationship(context.Background(), makeReq("update_relationship", map[string]any{
		"from": "a", "to": "b", "type": "uses",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleUpdateRelationship_MissingEdgeIsToolError(t *testing.T) {
	srv := newTestServer(t)
	seedEntity(t, srv, "a", "Memory")
	seedEntity(t, srv, "b", "Memory")

	res, err := srv.HandleUpdateRelationship(context.Background(), makeReq("update_relationship", map[string]any{
		"from": "a", "to": "b", "type": "uses",
		"properties": map[string]any{"since": "2024"},
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "not found")
}

func TestHandleCreateRelationships_BadTypeIsToolError(t *testing.T) {
	srv := newTestServer(t)
	seedEntity(t, srv, "a", "Memory")
	seedEntity(t, srv, "b", "Memory")

	res, err := srv.HandleCreateRelationships(context.Background(), makeReq("create_relationships", map[string]any{
		"relationships": []any{map[string]any{"from": "a", "to": "b", "type": "DependsOn"}},
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "snake_case")
}

func TestHandleFindEntitiesByLabels(t *testing.T) {
	srv := newTestServer(t)
	seedEntity(t, srv, "a", "Technology", "Language")
	seedEntity(t, srv, "b", "Technology")

	res, err := srv.HandleFindEntitiesByLabels(context.Background(), makeReq("find_entities_by_labels", map[string]any{
		"labels": []any{"Technology", "Language"},
		"match":  "all",
	}))
	require.NoError(t, err)

	var got struct {
		Entities []struct {
			Name string `json:"name"`
		} `json:"entities"`
	}
	decodeResult(t, res, &got)
	require.Len(t, got.Entities, 1)
	assert.Equal(t, "a", got.Entities[0].Name)
}

func TestHandleObservationTools(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	seedEntity(t, srv, "e", "Memory")

	res, err := srv.HandleAddObservations(ctx, makeReq("add_observations", map[string]any{
		"name":         "e",
		"observations": []any{"fast", "fast"},
	}))
	require.NoError(t, err)

	var got struct {
		Entity struct {
			Observations []string `json:"observations"`
		} `json:"entity"`
	}
	decodeResult(t, res, &got)
	assert.Equal(t, []string{"fast", "fast"}, got.Entity.Observations)

	res, err = srv.HandleRemoveObservations(ctx, makeReq("remove_observations", map[string]any{
		"name":         "e",
		"observations": []any{"fast"},
	}))
	require.NoError(t, err)
	decodeResult(t, res, &got)
	assert.Empty(t, got.Entity.Observations, "remove drops every occurrence")

	res, err = srv.HandleSetObservations(ctx, makeReq("set_observations", map[string]any{
		"name":         "e",
		"observations": []any{"one", "two"},
	}))
	require.NoError(t, err)
	decodeResult(t, res, &got)
	assert.Equal(t, []string{"one", "two"}, got.Entity.Observations)

	res, err = srv.HandleRemoveAllObservations(ctx, makeReq("remove_all_observations", map[string]any{"name": "e"}))
	require.NoError(t, err)
	decodeResult(t, res, &got)
	assert.Empty(t, got.Entity.Observations)
}

func TestHandleFindRelatedEntities(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	seedEntity(t, srv, "a", "Memory")
	seedEntity(t, srv, "b", "Memory")
	seedEntity(t, srv, "c", "Memory")

	res, err := srv.HandleCreateRelationships(ctx, makeReq("create_relationships", map[string]any{
		"relationships": []any{
			map[string]any{"from": "a", "to": "b", "type": "uses"},
			map[string]any{"from": "b", "to": "c", "type": "uses"},
		},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	res, err = srv.HandleFindRelatedEntities(ctx, makeReq("find_related_entities", map[string]any{
		"name":  "a",
		"depth": float64(1),
	}))
	require.NoError(t, err)

	var sub struct {
		Entities []struct {
			Name string `json:"name"`
		} `json:"entities"`
	}
	decodeResult(t, res, &sub)
	require.Len(t, sub.Entities, 1)
	assert.Equal(t, "b", sub.Entities[0].Name)
}

func TestHandleFindRelatedEntities_BadDepth(t *testing.T) {
	srv := newTestServer(t)
	seedEntity(t, srv, "a", "Memory")

	res, err := srv.HandleFindRelatedEntities(context.Background(), makeReq("find_related_entities", map[string]any{
		"name":  "a",
		"depth": float64(9),
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleTasks_Lifecycle(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	res, err := srv.HandleCreateTasks(ctx, makeReq("create_tasks", map[string]any{
		"tasks": []any{map[string]any{"name": "task:one", "description": "ship it", "priority": "high"}},
	}))
	require.NoError(t, err)

	var created struct {
		Tasks []struct {
			Name       string `json:"name"`
			Properties struct {
				Status   string `json:"status"`
				Priority string `json:"priority"`
			} `json:"properties"`
		} `json:"tasks"`
	}
	decodeResult(t, res, &created)
	require.Len(t, created.Tasks, 1)
	assert.Equal(t, "todo", created.Tasks[0].Properties.Status)
	assert.Equal(t, "high", created.Tasks[0].Properties.Priority)

	res, err = srv.HandleUpdateTask(ctx, makeReq("update_task", map[string]any{
		"name":   "task:one",
		"status": "done",
	}))
	require.NoError(t, err)
	var updated struct {
		Task struct {
			Properties struct {
				Status string `json:"status"`
			} `json:"properties"`
		} `json:"task"`
	}
	decodeResult(t, res, &updated)
	assert.Equal(t, "done", updated.Task.Properties.Status)

	res, err = srv.HandleListTasks(ctx, makeReq("list_tasks", map[string]any{"status": "done"}))
	require.NoError(t, err)
	var listed struct {
		Tasks []struct {
			Name string `json:"name"`
		} `json:"tasks"`
	}
	decodeResult(t, res, &listed)
	require.Len(t, listed.Tasks, 1)

	res, err = srv.HandleDeleteTask(ctx, makeReq("delete_task", map[string]any{"name": "task:one"}))
	require.NoError(t, err)
	var deleted struct {
		Deleted bool `json:"deleted"`
	}
	decodeResult(t, res, &deleted)
	assert.True(t, deleted.Deleted)

	res, err = srv.HandleGetTask(ctx, makeReq("get_task", map[string]any{"name": "task:one"}))
	require.NoError(t, err)
	var got struct {
		Task *json.RawMessage `json:"task"`
	}
	decodeResult(t, res, &got)
	assert.Nil(t, got.Task)
}

func TestHandleCreateTasks_InvalidStatus(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.HandleCreateTasks(context.Background(), makeReq("create_tasks", map[string]any{
		"tasks": []any{map[string]any{"description": "d", "status": "started"}},
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "status")
}

func TestHandleGetGraphMeta(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	// Creating a task materializes the graph root and a contains edge.
	res, err := srv.HandleCreateTasks(ctx, makeReq("create_tasks", map[string]any{
		"tasks": []any{map[string]any{"name": "task:one", "description": "d"}},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	res, err = srv.HandleGetGraphMeta(ctx, makeReq("get_graph_meta", map[string]any{}))
	require.NoError(t, err)

	var sub struct {
		Entities []struct {
			Name string `json:"name"`
		} `json:"entities"`
	}
	decodeResult(t, res, &sub)
	require.Len(t, sub.Entities, 1)
	assert.Equal(t, "task:one", sub.Entities[0].Name)
}

func TestNilService_ReturnsToolError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(nil, logger)

	res, err := srv.HandleGetEntity(context.Background(), makeReq("get_entity", map[string]any{"name": "x"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
