package models

import (
	"fmt"
	"time"
)

// TaskStatus tracks where a task is in its lifecycle.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusBlocked    TaskStatus = "blocked"
	StatusDone       TaskStatus = "done"
	StatusCancelled  TaskStatus = "cancelled"
)

// ValidTaskStatuses is the closed set of recognized statuses.
var ValidTaskStatuses = []TaskStatus{
	StatusTodo,
	StatusInProgress,
	StatusBlocked,
	StatusDone,
	StatusCancelled,
}

// IsValid returns true if the status is recognized.
func (s TaskStatus) IsValid() bool {
	for _, v := range ValidTaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// TaskPriority ranks a task's urgency.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// ValidTaskPriorities is the closed set of recognized priorities.
var ValidTaskPriorities = []TaskPriority{
	PriorityLow,
	PriorityMedium,
	PriorityHigh,
	PriorityCritical,
}

// IsValid returns true if the priority is recognized.
func (p TaskPriority) IsValid() bool {
	for _, v := range ValidTaskPriorities {
		if p == v {
			return true
		}
	}
	return false
}

// TaskType classifies the kind of work a task represents.
type TaskType string

const (
	TaskTypeFeature     TaskType = "feature"
	TaskTypeBug         TaskType = "bug"
	TaskTypeChore       TaskType = "chore"
	TaskTypeImprovement TaskType = "improvement"
)

// ValidTaskTypes is the closed set of recognized task types.
var ValidTaskTypes = []TaskType{
	TaskTypeFeature,
	TaskTypeBug,
	TaskTypeChore,
	TaskTypeImprovement,
}

// IsValid returns true if the task type is recognized.
func (t TaskType) IsValid() bool {
	for _, v := range ValidTaskTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Reserved property keys on task entities.
const (
	TaskPropDescription = "description"
	TaskPropStatus      = "status"
	TaskPropPriority    = "priority"
	TaskPropType        = "task_type"
	TaskPropCreatedAt   = "created_at"
	TaskPropUpdatedAt   = "updated_at"
	TaskPropDueDate     = "due_date"
)

// TaskProperties is the typed view of a task entity's reserved properties.
type TaskProperties struct {
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	Type        TaskType     `json:"task_type"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
}

// DefaultTaskProperties returns the shape a freshly created task takes when
// fields are left unspecified.
func DefaultTaskProperties(now time.Time) TaskProperties {
	return TaskProperties{
		Status:    StatusTodo,
		Priority:  PriorityMedium,
		Type:      TaskTypeFeature,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ToProperties flattens the typed view into an entity property bag.
// Timestamps serialize as RFC 3339 strings.
func (tp TaskProperties) ToProperties() map[string]Value {
	props := map[string]Value{
		TaskPropDescription: StringValue(tp.Description),
		TaskPropStatus:      StringValue(string(tp.Status)),
		TaskPropPriority:    StringValue(string(tp.Priority)),
		TaskPropType:        StringValue(string(tp.Type)),
		TaskPropCreatedAt:   StringValue(tp.CreatedAt.UTC().Format(time.RFC3339)),
		TaskPropUpdatedAt:   StringValue(tp.UpdatedAt.UTC().Format(time.RFC3339)),
	}
	if tp.DueDate != nil {
		props[TaskPropDueDate] = StringValue(tp.DueDate.UTC().Format(time.RFC3339))
	}
	return props
}

// TaskPropertiesFrom reads the typed view back out of an entity property
// bag. Unknown or malformed reserved fields fall back to defaults rather
// than failing: stored graphs may predate the current shape.
func TaskPropertiesFrom(props map[string]Value) TaskProperties {
	tp := DefaultTaskProperties(time.Time{})
	if v, ok := props[TaskPropDescription]; ok {
		tp.Description = v.String()
	}
	if v, ok := props[TaskPropStatus]; ok {
		if st := TaskStatus(v.String()); st.IsValid() {
			tp.Status = st
		}
	}
	if v, ok := props[TaskPropPriority]; ok {
		if p := TaskPriority(v.String()); p.IsValid() {
			tp.Priority = p
		}
	}
	if v, ok := props[TaskPropType]; ok {
		if t := TaskType(v.String()); t.IsValid() {
			tp.Type = t
		}
	}
	if v, ok := props[TaskPropCreatedAt]; ok {
		if ts, err := time.Parse(time.RFC3339, v.String()); err == nil {
			tp.CreatedAt = ts
		}
	}
	if v, ok := props[TaskPropUpdatedAt]; ok {
		if ts, err := time.Parse(time.RFC3339, v.String()); err == nil {
			tp.UpdatedAt = ts
		}
	}
	if v, ok := props[TaskPropDueDate]; ok {
		if ts, err := time.Parse(time.RFC3339, v.String()); err == nil {
			tp.DueDate = &ts
		}
	}
	return tp
}

// Task pairs a task entity's name with its typed properties and
// observation notes.
type Task struct {
	Name         string         `json:"name"`
	Properties   TaskProperties `json:"properties"`
	Observations []string       `json:"observations"`
	DependsOn    []string       `json:"depends_on,omitempty"`
}

// TaskFromEntity builds the typed task view from a task-labeled entity.
// Dependency names are read from the entity's outbound depends_on edges in
// the supplied relationship list.
func TaskFromEntity(e Entity, rels []Relationship) (Task, error) {
	if !e.HasLabel(TaskLabel) {
		return Task{}, fmt.Errorf("entity %q does not carry the %s label", e.Name, TaskLabel)
	}
	task := Task{
		Name:         e.Name,
		Properties:   TaskPropertiesFrom(e.Properties),
		Observations: e.Observations,
	}
	for _, r := range rels {
		if r.From == e.Name && r.Type == RelDependsOn {
			task.DependsOn = append(task.DependsOn, r.To)
		}
	}
	return task, nil
}
