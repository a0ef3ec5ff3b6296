package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-graph/mnemo/internal/models"
)

func TestFindRelatedEntities_DepthBounds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, models.Entity{Name: "root"})

	for _, depth := range []int{0, -1, 6, 100} {
		_, err := svc.FindRelatedEntities(ctx, "root", depth, "")
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve, "depth %d must be rejected", depth)
	}

	for depth := MinTraversalDepth; depth <= MaxTraversalDepth; depth++ {
		_, err := svc.FindRelatedEntities(ctx, "root", depth, "")
		assert.NoError(t, err, "depth %d is in range", depth)
	}
}

func TestFindRelatedEntities_RejectsBadFilter(t *testing.T) {
	svc, _ := newTestService(t)
	mustCreate(t, svc, models.Entity{Name: "root"})

	_, err := svc.FindRelatedEntities(context.Background(), "root", 2, "DependsOn")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = svc.FindRelatedEntities(context.Background(), "", 2, "")
	assert.ErrorAs(t, err, &ve)
}

func TestFindRelatedEntities_MissingRootIsEmptyResult(t *testing.T) {
	svc, _ := newTestService(t)

	sub, err := svc.FindRelatedEntities(context.Background(), "ghost", 3, "")
	require.NoError(t, err, "an absent root is an empty result, not an error")
	assert.NotNil(t, sub.Entities)
	assert.NotNil(t, sub.Relationships)
	assert.Empty(t, sub.Entities)
}

func TestFindRelatedEntities_FilteredWalk(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc,
		models.Entity{Name: "task:a"},
		models.Entity{Name: "task:b"},
		models.Entity{Name: "task:c"},
		models.Entity{Name: "doc:readme"},
	)
	_, err := svc.CreateRelationships(ctx, []models.Relationship{
		{From: "task:a", To: "task:b", Type: "depends_on"},
		{From: "task:b", To: "task:c", Type: "depends_on"},
		{From: "task:a", To: "doc:readme", Type: "documents"},
	})
	require.NoError(t, err)

	sub, err := svc.FindRelatedEntities(ctx, "task:a", 5, "depends_on")
	require.NoError(t, err)

	names := make([]string, len(sub.Entities))
	for i := range sub.Entities {
		names[i] = sub.Entities[i].Name
	}
	assert.ElementsMatch(t, []string{"task:b", "task:c"}, names)
	for _, r := range sub.Relationships {
		assert.Equal(t, "depends_on", r.Type)
	}
}

func TestGetGraphMeta_WalksFromConfiguredRoot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc,
		models.Entity{Name: models.GraphRoot, Labels: []string{"Technology", "Tool"}},
		models.Entity{Name: "proj:mnemo"},
		models.Entity{Name: "task:one"},
		models.Entity{Name: "task:two"},
	)
	_, err := svc.CreateRelationships(ctx, []models.Relationship{
		{From: models.GraphRoot, To: "proj:mnemo", Type: "contains"},
		{From: models.GraphRoot, To: "task:one", Type: "contains"},
		{From: "task:one", To: "task:two", Type: "depends_on"},
	})
	require.NoError(t, err)

	sub, err := svc.GetGraphMeta(ctx, "")
	require.NoError(t, err)
	assert.Len(t, sub.Entities, 3, "all descendants of the root, root excluded")
	for i := range sub.Entities {
		assert.NotEqual(t, models.GraphRoot, sub.Entities[i].Name)
	}
}

func TestGetGraphMeta_EmptyGraph(t *testing.T) {
	svc, _ := newTestService(t)

	sub, err := svc.GetGraphMeta(context.Background(), "")
	require.NoError(t, err, "a graph without the root sentinel is simply empty")
	assert.Empty(t, sub.Entities)
}
