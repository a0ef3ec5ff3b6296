package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mnemo-graph/mnemo/internal/metrics"
	"github.com/mnemo-graph/mnemo/internal/models"
	"github.com/mnemo-graph/mnemo/internal/store"
)

// Config tunes the domain layer's defaults.
type Config struct {
	// DefaultLabel, when non-empty, is appended to every created entity
	// that does not already carry it. An input with no labels at all is
	// still valid in that case: it ends up with just the default label.
	DefaultLabel string

	// GraphRoot names the sentinel entity GetGraphMeta traverses from.
	GraphRoot string
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		DefaultLabel: models.DefaultLabel,
		GraphRoot:    models.GraphRoot,
	}
}

// Service is the domain operation façade. It validates input, invokes the
// store port, and shapes results and errors. It is stateless and safe for
// concurrent use.
type Service struct {
	st     store.Store
	cfg    Config
	logger *slog.Logger
}

// NewService creates a façade over the given store.
func NewService(st store.Store, cfg Config, logger *slog.Logger) *Service {
	if cfg.GraphRoot == "" {
		cfg.GraphRoot = models.GraphRoot
	}
	return &Service{st: st, cfg: cfg, logger: logger}
}

// CreateEntities validates the whole batch, then persists it atomically.
// Every invalid input is reported in one ValidationError and nothing is
// written; a name collision surfaces as store.ErrConflict.
func (s *Service) CreateEntities(ctx context.Context, entities []models.Entity) ([]models.Entity, error) {
	prepared := make([]models.Entity, 0, len(entities))
	seen := make(map[string]bool, len(entities))
	var issues []Issue
	for i := range entities {
		e := entities[i].Clone()
		if s.cfg.DefaultLabel != "" && !e.HasLabel(s.cfg.DefaultLabel) {
			e.Labels = append(e.Labels, s.cfg.DefaultLabel)
		}
		if e.Name == "" {
			issues = append(issues, Issue{Message: "entity name must not be empty"})
		} else if seen[e.Name] {
			issues = append(issues, Issue{Subject: e.Name, Message: "duplicate entity name in batch"})
		}
		seen[e.Name] = true
		if len(e.Labels) == 0 {
			issues = append(issues, Issue{Subject: e.Name, Message: "entity must have at least one label"})
		}
		if e.Observations == nil {
			e.Observations = []string{}
		}
		prepared = append(prepared, e)
	}
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	if err := s.st.CreateEntities(ctx, prepared); err != nil {
		return nil, fmt.Errorf("creating entities: %w", err)
	}
	metrics.EntitiesCreated.Add(int64(len(prepared)))
	s.logger.Info("created entities", "count", len(prepared))
	return prepared, nil
}

// GetEntity returns the named entity, or nil when it does not exist.
// Absence is an empty result, not an error.
func (s *Service) GetEntity(ctx context.Context, name string) (*models.Entity, error) {
	if name == "" {
		return nil, validationIssue("", "entity name must not be empty")
	}
	e, err := s.st.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("getting entity %s: %w", name, err)
	}
	return e, nil
}

// UpdateEntity applies a labels/properties patch to an existing entity.
// The entity must exist (store.ErrNotFound otherwise); a label patch must
// leave at least one label.
func (s *Service) UpdateEntity(ctx context.Context, name string, patch store.EntityPatch) (*models.Entity, error) {
	if name == "" {
		return nil, validationIssue("", "entity name must not be empty")
	}
	if patch.Labels != nil && len(patch.Labels) == 0 {
		return nil, validationIssue(name, "entity must have at least one label")
	}
	updated, err := s.st.UpdateEntity(ctx, name, patch)
	if err != nil {
		return nil, fmt.Errorf("updating entity %s: %w", name, err)
	}
	metrics.EntitiesUpdated.Add(1)
	return updated, nil
}

// DeleteEntities removes the named entities and their relationships,
// returning how many existed. Absent names are skipped silently.
func (s *Service) DeleteEntities(ctx context.Context, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	for _, n := range names {
		if n == "" {
			return 0, validationIssue("", "entity name must not be empty")
		}
	}
	count, err := s.st.DeleteEntities(ctx, names)
	if err != nil {
		return 0, fmt.Errorf("deleting entities: %w", err)
	}
	metrics.EntitiesDeleted.Add(int64(count))
	s.logger.Info("deleted entities", "requested", len(names), "deleted", count)
	return count, nil
}

// CreateRelationships validates the batch (non-empty snake_case type,
// non-empty endpoints), then persists it. Endpoint existence is enforced
// by the store and surfaces as store.ErrReference; parallel edges are not
// deduplicated.
func (s *Service) CreateRelationships(ctx context.Context, rels []models.Relationship) ([]models.Relationship, error) {
	var issues []Issue
	for i := range rels {
		r := &rels[i]
		if r.From == "" || r.To == "" {
			issues = append(issues, Issue{Subject: r.Type, Message: "relationship endpoints must not be empty"})
		}
		if r.Type == "" {
			issues = append(issues, Issue{Message: "relationship type must not be empty"})
		} else if !models.IsSnakeCase(r.Type) {
			issues = append(issues, Issue{Subject: r.Type, Message: "relationship type must be snake_case"})
		}
	}
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	created, err := s.st.CreateRelationships(ctx, rels)
	if err != nil {
		return nil, fmt.Errorf("creating relationships: %w", err)
	}
	metrics.RelationshipsCreated.Add(int64(len(created)))
	s.logger.Info("created relationships", "count", len(created))
	return created, nil
}

// UpdateRelationship patches the properties of every relationship running
// from->to with the given type. Endpoints and type identify the edges and
// cannot themselves be changed; an empty patch is rejected. Surfaces
// store.ErrNotFound when no matching relationship exists.
func (s *Service) UpdateRelationship(ctx context.Context, from, to, relType string, patch store.RelationshipPatch) ([]models.Relationship, error) {
	var issues []Issue
	if from == "" || to == "" {
		issues = append(issues, Issue{Subject: relType, Message: "relationship endpoints must not be empty"})
	}
	if relType == "" {
		issues = append(issues, Issue{Message: "relationship type must not be empty"})
	} else if !models.IsSnakeCase(relType) {
		issues = append(issues, Issue{Subject: relType, Message: "relationship type must be snake_case"})
	}
	if patch.IsZero() {
		issues = append(issues, Issue{Subject: relType, Message: "relationship patch must change something"})
	}
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	updated, err := s.st.UpdateRelationship(ctx, from, to, relType, patch)
	if err != nil {
		return nil, fmt.Errorf("updating relationship: %w", err)
	}
	metrics.RelationshipsUpdated.Add(int64(len(updated)))
	s.logger.Info("updated relationships", "from", from, "to", to, "type", relType, "count", len(updated))
	return updated, nil
}

// DeleteRelationships removes all relationships matching the selector and
// returns the count removed.
func (s *Service) DeleteRelationships(ctx context.Context, sel store.RelationshipSelector) (int, error) {
	count, err := s.st.DeleteRelationships(ctx, sel)
	if err != nil {
		return 0, fmt.Errorf("deleting relationships: %w", err)
	}
	metrics.RelationshipsDeleted.Add(int64(count))
	return count, nil
}

// FindEntitiesByLabels returns entities matching the labels, store-native
// order.
func (s *Service) FindEntitiesByLabels(ctx context.Context, labels []string, mode store.LabelMatchMode) ([]models.Entity, error) {
	out, err := s.st.FindByLabels(ctx, labels, mode)
	if err != nil {
		return nil, fmt.Errorf("finding entities by labels: %w", err)
	}
	return out, nil
}

// FindRelationships returns relationships matching the selector.
func (s *Service) FindRelationships(ctx context.Context, sel store.RelationshipSelector) ([]models.Relationship, error) {
	out, err := s.st.FindRelationships(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("finding relationships: %w", err)
	}
	return out, nil
}

// SetObservations replaces the entity's observation sequence with next.
func (s *Service) SetObservations(ctx context.Context, name string, next []string) (*models.Entity, error) {
	return s.editObservations(ctx, name, next, setObservations)
}

// AddObservations appends observations in order. Duplicates are kept:
// adding an existing observation produces a repeated entry.
func (s *Service) AddObservations(ctx context.Context, name string, toAdd []string) (*models.Entity, error) {
	return s.editObservations(ctx, name, toAdd, addObservations)
}

// RemoveObservations removes all occurrences of each given observation,
// preserving survivor order. Absent values are ignored.
func (s *Service) RemoveObservations(ctx context.Context, name string, toRemove []string) (*models.Entity, error) {
	return s.editObservations(ctx, name, toRemove, removeObservations)
}

// RemoveAllObservations clears the entity's observations.
func (s *Service) RemoveAllObservations(ctx context.Context, name string) (*models.Entity, error) {
	return s.editObservations(ctx, name, nil, removeAllObservations)
}

// editObservations reads the current sequence, applies a pure editor, and
// writes the result back wholesale.
func (s *Service) editObservations(ctx context.Context, name string, input []string, edit func(current, input []string) []string) (*models.Entity, error) {
	if name == "" {
		return nil, validationIssue("", "entity name must not be empty")
	}
	current, err := s.st.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reading entity %s: %w", name, err)
	}
	if current == nil {
		return nil, fmt.Errorf("editing observations for %s: %w", name, store.ErrNotFound)
	}
	next := edit(current.Observations, input)
	updated, err := s.st.UpdateEntity(ctx, name, store.EntityPatch{Observations: next})
	if err != nil {
		return nil, fmt.Errorf("writing observations for %s: %w", name, err)
	}
	metrics.ObservationEdits.Add(1)
	return updated, nil
}
