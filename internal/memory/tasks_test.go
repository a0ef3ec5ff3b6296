package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-graph/mnemo/internal/models"
	"github.com/mnemo-graph/mnemo/internal/store"
)

func TestCreateTasks_DefaultsAndGeneratedName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tasks, err := svc.CreateTasks(ctx, []TaskInput{{Description: "write the importer"}})
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	task := tasks[0]
	assert.True(t, strings.HasPrefix(task.Name, "task:"), "nameless input gets a generated task:<uuid> name")
	assert.Equal(t, models.StatusTodo, task.Properties.Status)
	assert.Equal(t, models.PriorityMedium, task.Properties.Priority)
	assert.Equal(t, models.TaskTypeFeature, task.Properties.Type)
	assert.False(t, task.Properties.CreatedAt.IsZero())
	assert.NotNil(t, task.Observations, "omitted observations serialize as [], not null")
	assert.Empty(t, task.Observations)
}

func TestCreateTasks_LinksUnderGraphRoot(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	tasks, err := svc.CreateTasks(ctx, []TaskInput{{Name: "task:one", Description: "d"}})
	require.NoError(t, err)

	root, err := st.FindByName(ctx, models.GraphRoot)
	require.NoError(t, err)
	require.NotNil(t, root, "creating a task creates the graph root when missing")

	rels, err := st.FindRelationships(ctx, store.RelationshipSelector{
		From: models.GraphRoot,
		To:   tasks[0].Name,
		Type: models.RelContains,
	})
	require.NoError(t, err)
	assert.Len(t, rels, 1)
}

func TestCreateTasks_DependencyWithinBatch(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	tasks, err := svc.CreateTasks(ctx, []TaskInput{
		{Name: "task:base", Description: "base"},
		{Name: "task:next", Description: "next", DependsOn: []string{"task:base"}},
	})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	rels, err := st.FindRelationships(ctx, store.RelationshipSelector{
		From: "task:next", Type: models.RelDependsOn,
	})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "task:base", rels[0].To)
}

func TestCreateTasks_ValidationCollectsAllIssues(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTasks(ctx, []TaskInput{
		{Name: "task:bad", Description: "d", Status: "started", Priority: "urgent"},
		{Name: "task:self", Description: "d", DependsOn: []string{"task:self"}},
		{Name: "task:dangling", Description: "d", DependsOn: []string{"task:ghost"}},
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Issues, 4, "invalid status, invalid priority, self-dependency, missing dependency")

	// Nothing was written, not even the graph root.
	got, findErr := st.FindByName(ctx, "task:self")
	require.NoError(t, findErr)
	assert.Nil(t, got)
}

func TestGetTask(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTasks(ctx, []TaskInput{
		{Name: "task:one", Description: "d", Observations: []string{"note"}},
	})
	require.NoError(t, err)

	task, err := svc.GetTask(ctx, "task:one")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "d", task.Properties.Description)
	assert.Equal(t, []string{"note"}, task.Observations)

	absent, err := svc.GetTask(ctx, "task:nope")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestGetTask_NonTaskEntityIsAbsent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, models.Entity{Name: "plain:entity"})

	task, err := svc.GetTask(ctx, "plain:entity")
	require.NoError(t, err)
	assert.Nil(t, task, "an entity without the Task label is not a task")
}

func TestUpdateTask(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateTasks(ctx, []TaskInput{{Name: "task:one", Description: "d"}})
	require.NoError(t, err)
	before := created[0].Properties.UpdatedAt

	done := models.StatusDone
	task, err := svc.UpdateTask(ctx, "task:one", TaskPatch{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, task.Properties.Status)
	assert.Equal(t, "d", task.Properties.Description, "unpatched fields survive")
	// Stored timestamps have second resolution, so the bump can only be
	// asserted as monotonic.
	assert.False(t, task.Properties.UpdatedAt.Before(before), "updated_at never moves backwards")
}

func TestUpdateTask_RejectsInvalidStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTasks(ctx, []TaskInput{{Name: "task:one", Description: "d"}})
	require.NoError(t, err)

	bogus := models.TaskStatus("finished")
	_, err = svc.UpdateTask(ctx, "task:one", TaskPatch{Status: &bogus})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestUpdateTask_MissingTask(t *testing.T) {
	svc, _ := newTestService(t)
	done := models.StatusDone
	_, err := svc.UpdateTask(context.Background(), "task:ghost", TaskPatch{Status: &done})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteTask(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTasks(ctx, []TaskInput{{Name: "task:one", Description: "d"}})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(ctx, "task:one"))

	rels, err := st.FindRelationships(ctx, store.RelationshipSelector{To: "task:one"})
	require.NoError(t, err)
	assert.Empty(t, rels, "the contains edge goes with the task")

	assert.ErrorIs(t, svc.DeleteTask(ctx, "task:one"), store.ErrNotFound)
}

func TestListTasks_StatusFilter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTasks(ctx, []TaskInput{
		{Name: "task:a", Description: "a"},
		{Name: "task:b", Description: "b", Status: models.StatusDone},
		{Name: "task:c", Description: "c", Status: models.StatusDone},
	})
	require.NoError(t, err)

	all, err := svc.ListTasks(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	done, err := svc.ListTasks(ctx, models.StatusDone)
	require.NoError(t, err)
	assert.Len(t, done, 2)

	_, err = svc.ListTasks(ctx, models.TaskStatus("bogus"))
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}
