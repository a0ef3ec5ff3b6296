package memory

import (
	"context"
	"fmt"

	"github.com/mnemo-graph/mnemo/internal/metrics"
	"github.com/mnemo-graph/mnemo/internal/models"
)

// Traversal depth bounds. Depth counts hops outward from the root.
const (
	MinTraversalDepth = 1
	MaxTraversalDepth = 5
)

// FindRelatedEntities walks outbound relationships from root up to depth
// hops and returns the discovered subgraph. The root itself is never part
// of the result. When typeFilter is non-empty, only edges of exactly that
// type are followed. A root that does not exist yields an empty subgraph,
// consistent with GetEntity's absent-is-empty convention.
func (s *Service) FindRelatedEntities(ctx context.Context, root string, depth int, typeFilter string) (models.Subgraph, error) {
	empty := models.Subgraph{Entities: []models.Entity{}, Relationships: []models.Relationship{}}
	if root == "" {
		return empty, validationIssue("", "entity name must not be empty")
	}
	if depth < MinTraversalDepth || depth > MaxTraversalDepth {
		return empty, validationIssue(root, "traversal depth %d is out of range (%d-%d)", depth, MinTraversalDepth, MaxTraversalDepth)
	}
	if typeFilter != "" && !models.IsSnakeCase(typeFilter) {
		return empty, validationIssue(typeFilter, "relationship type must be snake_case")
	}

	sub, err := s.st.Traverse(ctx, root, depth, typeFilter)
	if err != nil {
		return empty, fmt.Errorf("traversing from %s: %w", root, err)
	}
	if sub.Entities == nil {
		sub.Entities = []models.Entity{}
	}
	if sub.Relationships == nil {
		sub.Relationships = []models.Relationship{}
	}
	metrics.Traversals.Add(1)
	s.logger.Debug("traversal complete",
		"root", root, "depth", depth, "filter", typeFilter,
		"entities", len(sub.Entities), "relationships", len(sub.Relationships))
	return sub, nil
}

// GetGraphMeta returns the subgraph reachable from the configured graph
// root at the maximum depth: FindRelatedEntities with the root pinned to
// the sentinel entity and depth pinned to MaxTraversalDepth.
func (s *Service) GetGraphMeta(ctx context.Context, typeFilter string) (models.Subgraph, error) {
	return s.FindRelatedEntities(ctx, s.cfg.GraphRoot, MaxTraversalDepth, typeFilter)
}
