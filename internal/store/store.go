// Package store defines the persistence port for the memory graph and its
// adapters. The domain layer depends only on the Store interface; the
// graph database behind it is an external collaborator.
package store

import (
	"context"
	"errors"

	"github.com/mnemo-graph/mnemo/internal/models"
)

// Sentinel errors shared by all adapters. Adapters wrap these with
// fmt.Errorf("%w: ...") so callers can match with errors.Is.
var (
	// ErrNotFound is returned by mutating operations that target an entity
	// name that does not exist. Lookups return empty results instead.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a create collides with an existing
	// entity name.
	ErrConflict = errors.New("entity already exists")

	// ErrReference is returned when a relationship names an endpoint that
	// does not exist. Endpoints are never auto-created.
	ErrReference = errors.New("relationship endpoint not found")

	// ErrUnavailable is returned when the store itself failed: connectivity,
	// timeout inside the adapter, or a store-internal fault.
	ErrUnavailable = errors.New("store unavailable")
)

// EntityPatch is a partial update applied to an existing entity.
// Nil fields are left unchanged. A non-nil Labels replaces the label set
// wholesale; a non-nil Observations replaces the observation sequence
// wholesale; Properties merge key-wise, with RemoveProperties applied
// afterwards.
type EntityPatch struct {
	Labels           []string
	Observations     []string
	Properties       map[string]models.Value
	RemoveProperties []string
}

// IsZero reports whether the patch changes nothing.
func (p EntityPatch) IsZero() bool {
	return p.Labels == nil && p.Observations == nil &&
		len(p.Properties) == 0 && len(p.RemoveProperties) == 0
}

// RelationshipPatch is a partial update applied to existing relationships.
// Properties merge key-wise, with RemoveProperties applied afterwards; a
// relationship's endpoints and type are immutable.
type RelationshipPatch struct {
	Properties       map[string]models.Value
	RemoveProperties []string
}

// IsZero reports whether the patch changes nothing.
func (p RelationshipPatch) IsZero() bool {
	return len(p.Properties) == 0 && len(p.RemoveProperties) == 0
}

// RelationshipSelector matches relationships for find/delete. Empty fields
// are wildcards.
type RelationshipSelector struct {
	From string
	To   string
	Type string
}

// Matches reports whether the selector matches the relationship.
func (s RelationshipSelector) Matches(r models.Relationship) bool {
	if s.From != "" && s.From != r.From {
		return false
	}
	if s.To != "" && s.To != r.To {
		return false
	}
	return s.Type == "" || s.Type == r.Type
}

// LabelMatchMode selects how FindByLabels combines multiple labels.
type LabelMatchMode int

const (
	// MatchAny returns entities carrying at least one of the labels.
	MatchAny LabelMatchMode = iota
	// MatchAll returns entities carrying every label.
	MatchAll
)

// Store is the repository port for the memory graph.
//
// Traverse must satisfy the bounded-BFS contract regardless of whether the
// walk runs in-process or is pushed down into a store query: outbound edges
// only, at most depth hops, edges filtered by type before being followed
// when typeFilter is non-empty, each entity visited once (cycle safe), and
// the root excluded from the result. A missing root yields an empty
// subgraph, not an error.
type Store interface {
	// FindByName returns the entity with the given name, or nil when absent.
	FindByName(ctx context.Context, name string) (*models.Entity, error)

	// CreateEntities persists the batch atomically. Any name collision fails
	// the whole batch with ErrConflict; nothing is written.
	CreateEntities(ctx context.Context, entities []models.Entity) error

	// UpdateEntity applies a partial patch to an existing entity and returns
	// the updated entity. Fails with ErrNotFound when the name is absent.
	UpdateEntity(ctx context.Context, name string, patch EntityPatch) (*models.Entity, error)

	// DeleteEntities removes the named entities and their attached
	// relationships, returning how many entities were deleted. Absent names
	// are skipped, not errors.
	DeleteEntities(ctx context.Context, names []string) (int, error)

	// CreateRelationships persists the batch. Parallel edges are permitted;
	// no deduplication happens here. A missing endpoint fails the whole
	// batch with ErrReference.
	CreateRelationships(ctx context.Context, rels []models.Relationship) ([]models.Relationship, error)

	// UpdateRelationship applies the patch to every relationship running
	// from->to with the given type (parallel edges all receive it) and
	// returns the updated edges. Fails with ErrNotFound when no such
	// relationship exists.
	UpdateRelationship(ctx context.Context, from, to, relType string, patch RelationshipPatch) ([]models.Relationship, error)

	// DeleteRelationships removes all relationships matching the selector,
	// returning the count removed.
	DeleteRelationships(ctx context.Context, sel RelationshipSelector) (int, error)

	// FindByLabels returns entities matching the labels under the given
	// mode, in store-native order.
	FindByLabels(ctx context.Context, labels []string, mode LabelMatchMode) ([]models.Entity, error)

	// FindRelationships returns relationships matching the selector, in
	// store-native order.
	FindRelationships(ctx context.Context, sel RelationshipSelector) ([]models.Relationship, error)

	// Traverse runs the bounded outbound walk described above.
	Traverse(ctx context.Context, root string, depth int, typeFilter string) (models.Subgraph, error)

	// Ping verifies store connectivity.
	Ping(ctx context.Context) error

	// Close releases adapter resources.
	Close(ctx context.Context) error
}
