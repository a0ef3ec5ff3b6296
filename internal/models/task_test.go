package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskEnums(t *testing.T) {
	assert.True(t, StatusInProgress.IsValid())
	assert.True(t, StatusCancelled.IsValid())
	assert.False(t, TaskStatus("started").IsValid())

	assert.True(t, PriorityCritical.IsValid())
	assert.False(t, TaskPriority("urgent").IsValid())

	assert.True(t, TaskTypeBug.IsValid())
	assert.False(t, TaskType("task").IsValid())
}

func TestTaskProperties_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)

	tp := TaskProperties{
		Description: "fix the importer",
		Status:      StatusBlocked,
		Priority:    PriorityHigh,
		Type:        TaskTypeBug,
		CreatedAt:   now,
		UpdatedAt:   now,
		DueDate:     &due,
	}

	props := tp.ToProperties()
	assert.Equal(t, "blocked", props[TaskPropStatus].String())
	assert.Equal(t, now.Format(time.RFC3339), props[TaskPropCreatedAt].String())

	got := TaskPropertiesFrom(props)
	assert.Equal(t, tp.Description, got.Description)
	assert.Equal(t, tp.Status, got.Status)
	assert.Equal(t, tp.Priority, got.Priority)
	assert.Equal(t, tp.Type, got.Type)
	assert.True(t, tp.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))
}

func TestTaskPropertiesFrom_MalformedFallsBackToDefaults(t *testing.T) {
	got := TaskPropertiesFrom(map[string]Value{
		TaskPropStatus:    StringValue("nonsense"),
		TaskPropCreatedAt: StringValue("not a timestamp"),
	})
	assert.Equal(t, StatusTodo, got.Status)
	assert.True(t, got.CreatedAt.IsZero())
}

func TestTaskFromEntity(t *testing.T) {
	e := Entity{
		Name:         "task:one",
		Labels:       []string{TaskLabel, DefaultLabel},
		Observations: []string{"note"},
		Properties:   DefaultTaskProperties(time.Now().UTC()).ToProperties(),
	}
	rels := []Relationship{
		{From: "task:one", To: "task:two", Type: RelDependsOn},
		{From: GraphRoot, To: "task:one", Type: RelContains},
		{From: "task:one", To: "tech:language:go", Type: "uses"},
	}

	task, err := TaskFromEntity(e, rels)
	require.NoError(t, err)
	assert.Equal(t, []string{"task:two"}, task.DependsOn, "only outbound depends_on edges count")
	assert.Equal(t, []string{"note"}, task.Observations)
}

func TestTaskFromEntity_RejectsNonTask(t *testing.T) {
	e := Entity{Name: "x", Labels: []string{DefaultLabel}}
	_, err := TaskFromEntity(e, nil)
	assert.Error(t, err)
}
