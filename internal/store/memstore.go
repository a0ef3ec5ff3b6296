package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mnemo-graph/mnemo/internal/models"
)

// MemStore is an in-memory Store. It is the reference implementation of
// the port contract (notably the bounded traversal) and backs all tests.
type MemStore struct {
	mu       sync.RWMutex
	entities map[string]models.Entity
	rels     []models.Relationship
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{entities: make(map[string]models.Entity)}
}

// FindByName returns a deep copy of the named entity, or nil when absent.
func (m *MemStore) FindByName(_ context.Context, name string) (*models.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[name]
	if !ok {
		return nil, nil
	}
	out := e.Clone()
	return &out, nil
}

// CreateEntities inserts the batch atomically, failing whole on conflict.
func (m *MemStore) CreateEntities(_ context.Context, entities []models.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool, len(entities))
	for i := range entities {
		name := entities[i].Name
		if _, ok := m.entities[name]; ok {
			return fmt.Errorf("%w: %s", ErrConflict, name)
		}
		// A repeated name inside the batch is the same collision; without
		// this check the later entity would overwrite the earlier one.
		if seen[name] {
			return fmt.Errorf("%w: %s", ErrConflict, name)
		}
		seen[name] = true
	}
	for i := range entities {
		e := entities[i].Clone()
		if e.Observations == nil {
			e.Observations = []string{}
		}
		m.entities[e.Name] = e
	}
	return nil
}

// UpdateEntity applies the patch and returns the updated entity.
func (m *MemStore) UpdateEntity(_ context.Context, name string, patch EntityPatch) (*models.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if patch.Labels != nil {
		e.Labels = append([]string(nil), patch.Labels...)
	}
	if patch.Observations != nil {
		e.Observations = append([]string(nil), patch.Observations...)
	}
	if len(patch.Properties) > 0 {
		if e.Properties == nil {
			e.Properties = make(map[string]models.Value, len(patch.Properties))
		}
		for k, v := range patch.Properties {
			e.Properties[k] = v
		}
	}
	for _, k := range patch.RemoveProperties {
		delete(e.Properties, k)
	}
	m.entities[name] = e
	out := e.Clone()
	return &out, nil
}

// DeleteEntities removes named entities and detaches their relationships.
func (m *MemStore) DeleteEntities(_ context.Context, names []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	gone := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := m.entities[name]; ok {
			delete(m.entities, name)
			gone[name] = true
			deleted++
		}
	}
	if deleted > 0 {
		kept := m.rels[:0]
		for _, r := range m.rels {
			if !gone[r.From] && !gone[r.To] {
				kept = append(kept, r)
			}
		}
		m.rels = kept
	}
	return deleted, nil
}

// CreateRelationships appends the batch after checking both endpoints
// exist. Parallel edges are allowed.
func (m *MemStore) CreateRelationships(_ context.Context, rels []models.Relationship) ([]models.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range rels {
		if _, ok := m.entities[rels[i].From]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrReference, rels[i].From)
		}
		if _, ok := m.entities[rels[i].To]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrReference, rels[i].To)
		}
	}
	created := make([]models.Relationship, 0, len(rels))
	for i := range rels {
		r := rels[i].Clone()
		m.rels = append(m.rels, r)
		created = append(created, r.Clone())
	}
	return created, nil
}

// UpdateRelationship patches every edge from->to of the given type.
func (m *MemStore) UpdateRelationship(_ context.Context, from, to, relType string, patch RelationshipPatch) ([]models.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated []models.Relationship
	for i := range m.rels {
		r := &m.rels[i]
		if r.From != from || r.To != to || r.Type != relType {
			continue
		}
		if len(patch.Properties) > 0 {
			if r.Properties == nil {
				r.Properties = make(map[string]models.Value, len(patch.Properties))
			}
			for k, v := range patch.Properties {
				r.Properties[k] = v
			}
		}
		for _, k := range patch.RemoveProperties {
			delete(r.Properties, k)
		}
		updated = append(updated, r.Clone())
	}
	if len(updated) == 0 {
		return nil, fmt.Errorf("%w: %s-[%s]->%s", ErrNotFound, from, relType, to)
	}
	return updated, nil
}

// DeleteRelationships removes every relationship matching the selector.
func (m *MemStore) DeleteRelationships(_ context.Context, sel RelationshipSelector) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rels[:0]
	removed := 0
	for _, r := range m.rels {
		if sel.Matches(r) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.rels = kept
	return removed, nil
}

// FindByLabels returns entities carrying the labels, sorted by name so
// results are stable for a given store state.
func (m *MemStore) FindByLabels(_ context.Context, labels []string, mode LabelMatchMode) ([]models.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Entity
	for _, e := range m.entities {
		if matchesLabels(&e, labels, mode) {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FindRelationships returns matching relationships in insertion order.
func (m *MemStore) FindRelationships(_ context.Context, sel RelationshipSelector) ([]models.Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Relationship
	for _, r := range m.rels {
		if sel.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// Traverse runs a breadth-first walk over outbound edges from root, up to
// depth hops. When typeFilter is non-empty only edges of that exact type
// are followed. A visited set keeps cyclic graphs terminating and each
// entity appears at most once. The root itself is excluded from results;
// a missing root yields an empty subgraph.
func (m *MemStore) Traverse(_ context.Context, root string, depth int, typeFilter string) (models.Subgraph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub := models.Subgraph{Entities: []models.Entity{}, Relationships: []models.Relationship{}}
	if _, ok := m.entities[root]; !ok {
		return sub, nil
	}

	// Outbound adjacency, filtered before following.
	adj := make(map[string][]models.Relationship)
	for _, r := range m.rels {
		if typeFilter != "" && r.Type != typeFilter {
			continue
		}
		adj[r.From] = append(adj[r.From], r)
	}

	visited := map[string]bool{root: true}
	frontier := []string{root}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, name := range frontier {
			for _, r := range adj[name] {
				target, ok := m.entities[r.To]
				if !ok {
					// Dangling edge; nothing to visit.
					continue
				}
				sub.Relationships = append(sub.Relationships, r.Clone())
				if visited[r.To] {
					continue
				}
				visited[r.To] = true
				sub.Entities = append(sub.Entities, target.Clone())
				next = append(next, r.To)
			}
		}
		frontier = next
	}
	return sub, nil
}

// Ping is a no-op for the in-memory store.
func (m *MemStore) Ping(_ context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (m *MemStore) Close(_ context.Context) error { return nil }

func matchesLabels(e *models.Entity, labels []string, mode LabelMatchMode) bool {
	if len(labels) == 0 {
		return true
	}
	switch mode {
	case MatchAll:
		for _, l := range labels {
			if !e.HasLabel(l) {
				return false
			}
		}
		return true
	default:
		for _, l := range labels {
			if e.HasLabel(l) {
				return true
			}
		}
		return false
	}
}
