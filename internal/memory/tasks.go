package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-graph/mnemo/internal/metrics"
	"github.com/mnemo-graph/mnemo/internal/models"
	"github.com/mnemo-graph/mnemo/internal/store"
)

// TaskInput describes one task to create. A zero Name gets a generated
// task:<uuid> name. Zero-valued enum fields take the task defaults
// (todo / medium / feature).
type TaskInput struct {
	Name         string              `json:"name,omitempty"`
	Description  string              `json:"description"`
	Status       models.TaskStatus   `json:"status,omitempty"`
	Priority     models.TaskPriority `json:"priority,omitempty"`
	Type         models.TaskType     `json:"task_type,omitempty"`
	DueDate      *time.Time          `json:"due_date,omitempty"`
	Observations []string            `json:"observations,omitempty"`
	DependsOn    []string            `json:"depends_on,omitempty"`
}

// TaskPatch is a partial task update. Nil fields are left unchanged.
type TaskPatch struct {
	Description *string              `json:"description,omitempty"`
	Status      *models.TaskStatus   `json:"status,omitempty"`
	Priority    *models.TaskPriority `json:"priority,omitempty"`
	DueDate     *time.Time           `json:"due_date,omitempty"`
}

// CreateTasks validates and creates a batch of task entities, then links
// each one under the graph root with a contains edge and to its
// dependencies with depends_on edges. Dependencies must be the name of
// another task in the batch or an existing entity; a task may not depend
// on itself. All validation happens before any write.
func (s *Service) CreateTasks(ctx context.Context, inputs []TaskInput) ([]models.Task, error) {
	now := time.Now().UTC()

	named := make([]TaskInput, len(inputs))
	batchNames := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		if in.Name == "" {
			in.Name = "task:" + uuid.New().String()
		}
		named[i] = in
		batchNames[in.Name] = true
	}

	var issues []Issue
	for _, in := range named {
		if in.Status != "" && !in.Status.IsValid() {
			issues = append(issues, Issue{Subject: in.Name, Message: fmt.Sprintf("invalid status %q", in.Status)})
		}
		if in.Priority != "" && !in.Priority.IsValid() {
			issues = append(issues, Issue{Subject: in.Name, Message: fmt.Sprintf("invalid priority %q", in.Priority)})
		}
		if in.Type != "" && !in.Type.IsValid() {
			issues = append(issues, Issue{Subject: in.Name, Message: fmt.Sprintf("invalid task type %q", in.Type)})
		}
		for _, dep := range in.DependsOn {
			if dep == in.Name {
				issues = append(issues, Issue{Subject: in.Name, Message: "task cannot depend on itself"})
				continue
			}
			if batchNames[dep] {
				continue
			}
			existing, err := s.st.FindByName(ctx, dep)
			if err != nil {
				return nil, fmt.Errorf("checking dependency %s: %w", dep, err)
			}
			if existing == nil {
				issues = append(issues, Issue{Subject: in.Name, Message: fmt.Sprintf("dependency %q does not exist", dep)})
			}
		}
	}
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	entities := make([]models.Entity, len(named))
	tasks := make([]models.Task, len(named))
	for i, in := range named {
		props := models.DefaultTaskProperties(now)
		props.Description = in.Description
		if in.Status != "" {
			props.Status = in.Status
		}
		if in.Priority != "" {
			props.Priority = in.Priority
		}
		if in.Type != "" {
			props.Type = in.Type
		}
		props.DueDate = in.DueDate

		obs := in.Observations
		if obs == nil {
			obs = []string{}
		}
		entities[i] = models.Entity{
			Name:         in.Name,
			Labels:       []string{models.TaskLabel},
			Observations: obs,
			Properties:   props.ToProperties(),
		}
		tasks[i] = models.Task{
			Name:         in.Name,
			Properties:   props,
			Observations: obs,
			DependsOn:    in.DependsOn,
		}
	}

	if err := s.ensureGraphRoot(ctx); err != nil {
		return nil, err
	}
	if _, err := s.CreateEntities(ctx, entities); err != nil {
		return nil, err
	}

	var rels []models.Relationship
	for _, in := range named {
		rels = append(rels, models.Relationship{
			From: s.cfg.GraphRoot,
			To:   in.Name,
			Type: models.RelContains,
		})
		for _, dep := range in.DependsOn {
			rels = append(rels, models.Relationship{
				From: in.Name,
				To:   dep,
				Type: models.RelDependsOn,
			})
		}
	}
	if _, err := s.CreateRelationships(ctx, rels); err != nil {
		return nil, fmt.Errorf("linking tasks: %w", err)
	}

	metrics.TasksCreated.Add(int64(len(tasks)))
	return tasks, nil
}

// ensureGraphRoot creates the sentinel root entity if it is missing, so
// contains edges always have an anchor.
func (s *Service) ensureGraphRoot(ctx context.Context) error {
	root, err := s.st.FindByName(ctx, s.cfg.GraphRoot)
	if err != nil {
		return fmt.Errorf("reading graph root: %w", err)
	}
	if root != nil {
		return nil
	}
	_, err = s.CreateEntities(ctx, []models.Entity{{
		Name:         s.cfg.GraphRoot,
		Labels:       []string{"Technology", "Tool"},
		Observations: []string{},
	}})
	if err != nil {
		return fmt.Errorf("creating graph root: %w", err)
	}
	return nil
}

// GetTask returns the named task, or nil when no task entity with that
// name exists. An entity without the Task label is treated as absent.
func (s *Service) GetTask(ctx context.Context, name string) (*models.Task, error) {
	if name == "" {
		return nil, validationIssue("", "entity name must not be empty")
	}
	e, err := s.st.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", name, err)
	}
	if e == nil || !e.HasLabel(models.TaskLabel) {
		return nil, nil
	}
	deps, err := s.st.FindRelationships(ctx, store.RelationshipSelector{From: name, Type: models.RelDependsOn})
	if err != nil {
		return nil, fmt.Errorf("reading dependencies for %s: %w", name, err)
	}
	task, err := models.TaskFromEntity(*e, deps)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask patches a task's reserved properties. A status, when given,
// must be in the closed enumeration; updated_at is bumped on every
// successful patch. The task must exist.
func (s *Service) UpdateTask(ctx context.Context, name string, patch TaskPatch) (*models.Task, error) {
	if name == "" {
		return nil, validationIssue("", "entity name must not be empty")
	}
	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, validationIssue(name, "invalid status %q", *patch.Status)
	}
	if patch.Priority != nil && !patch.Priority.IsValid() {
		return nil, validationIssue(name, "invalid priority %q", *patch.Priority)
	}

	e, err := s.st.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reading task %s: %w", name, err)
	}
	if e == nil || !e.HasLabel(models.TaskLabel) {
		return nil, fmt.Errorf("updating task %s: %w", name, store.ErrNotFound)
	}

	props := map[string]models.Value{
		models.TaskPropUpdatedAt: models.StringValue(time.Now().UTC().Format(time.RFC3339)),
	}
	if patch.Description != nil {
		props[models.TaskPropDescription] = models.StringValue(*patch.Description)
	}
	if patch.Status != nil {
		props[models.TaskPropStatus] = models.StringValue(string(*patch.Status))
	}
	if patch.Priority != nil {
		props[models.TaskPropPriority] = models.StringValue(string(*patch.Priority))
	}
	if patch.DueDate != nil {
		props[models.TaskPropDueDate] = models.StringValue(patch.DueDate.UTC().Format(time.RFC3339))
	}

	updated, err := s.st.UpdateEntity(ctx, name, store.EntityPatch{Properties: props})
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", name, err)
	}
	metrics.TasksUpdated.Add(1)

	deps, err := s.st.FindRelationships(ctx, store.RelationshipSelector{From: name, Type: models.RelDependsOn})
	if err != nil {
		return nil, fmt.Errorf("reading dependencies for %s: %w", name, err)
	}
	task, err := models.TaskFromEntity(*updated, deps)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes the task entity along with its relationships
// (contains and depends_on edges go with the node). Deleting a name that
// is not a task fails with store.ErrNotFound.
func (s *Service) DeleteTask(ctx context.Context, name string) error {
	if name == "" {
		return validationIssue("", "entity name must not be empty")
	}
	e, err := s.st.FindByName(ctx, name)
	if err != nil {
		return fmt.Errorf("reading task %s: %w", name, err)
	}
	if e == nil || !e.HasLabel(models.TaskLabel) {
		return fmt.Errorf("deleting task %s: %w", name, store.ErrNotFound)
	}
	if _, err := s.st.DeleteEntities(ctx, []string{name}); err != nil {
		return fmt.Errorf("deleting task %s: %w", name, err)
	}
	metrics.TasksDeleted.Add(1)
	return nil
}

// ListTasks returns all task entities, optionally filtered by status.
func (s *Service) ListTasks(ctx context.Context, status models.TaskStatus) ([]models.Task, error) {
	if status != "" && !status.IsValid() {
		return nil, validationIssue("", "invalid status %q", status)
	}
	entities, err := s.st.FindByLabels(ctx, []string{models.TaskLabel}, store.MatchAll)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	tasks := make([]models.Task, 0, len(entities))
	for i := range entities {
		props := models.TaskPropertiesFrom(entities[i].Properties)
		if status != "" && props.Status != status {
			continue
		}
		deps, err := s.st.FindRelationships(ctx, store.RelationshipSelector{From: entities[i].Name, Type: models.RelDependsOn})
		if err != nil {
			return nil, fmt.Errorf("reading dependencies for %s: %w", entities[i].Name, err)
		}
		task, err := models.TaskFromEntity(entities[i], deps)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
