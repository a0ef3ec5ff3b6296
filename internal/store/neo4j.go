package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mnemo-graph/mnemo/internal/models"
)

// Node property keys reserved for the model itself; everything else on a
// node is part of the open property bag.
var reservedNodeKeys = map[string]bool{
	"name":         true,
	"observations": true,
}

// Neo4jStore implements Store against a Neo4j database. Entity labels map
// to node labels, the name and observation list live as node properties,
// and the open property bag is flattened onto the node.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewNeo4jStore connects to Neo4j, verifies connectivity, and ensures the
// uniqueness constraint on entity names.
func NewNeo4jStore(ctx context.Context, uri, username, password, database string, logger *slog.Logger) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: creating driver for %s: %v", ErrUnavailable, uri, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("%w: verifying connectivity to %s: %v", ErrUnavailable, uri, err)
	}

	s := &Neo4jStore{driver: driver, database: database, logger: logger}

	// Entity names are globally unique regardless of label, so the
	// constraint anchors on the default label every entity carries.
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	_, err = session.Run(ctx,
		fmt.Sprintf("CREATE CONSTRAINT entity_name_unique IF NOT EXISTS FOR (n:`%s`) REQUIRE n.name IS UNIQUE", models.DefaultLabel),
		nil)
	if err != nil {
		logger.Warn("neo4j: could not ensure name uniqueness constraint", "error", err)
	}

	return s, nil
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

// FindByName returns the named entity or nil when absent.
func (s *Neo4jStore) FindByName(ctx context.Context, name string) (*models.Entity, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		"MATCH (n {name: $name}) RETURN n.name AS name, labels(n) AS labels, n.observations AS observations, properties(n) AS props",
		map[string]any{"name": name})
	if err != nil {
		return nil, wrapNeo4jErr("finding entity", err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, wrapNeo4jErr("finding entity", err)
		}
		return nil, nil
	}
	e, err := entityFromRecord(result.Record())
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEntities creates the batch in one transaction; any name collision
// rolls the whole batch back with ErrConflict.
func (s *Neo4jStore) CreateEntities(ctx context.Context, entities []models.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	names := make([]string, len(entities))
	seen := make(map[string]bool, len(entities))
	for i := range entities {
		names[i] = entities[i].Name
		// The existence pre-check below cannot see a name repeated inside
		// the batch itself; catch that collision before touching the store.
		if seen[names[i]] {
			return fmt.Errorf("%w: %s", ErrConflict, names[i])
		}
		seen[names[i]] = true
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx,
			"MATCH (n) WHERE n.name IN $names RETURN n.name AS name LIMIT 1",
			map[string]any{"names": names})
		if err != nil {
			return nil, err
		}
		if result.Next(ctx) {
			taken, _ := result.Record().Get("name")
			return nil, fmt.Errorf("%w: %v", ErrConflict, taken)
		}
		if err := result.Err(); err != nil {
			return nil, err
		}

		for i := range entities {
			e := &entities[i]
			props := flattenEntity(e)
			query := fmt.Sprintf("CREATE (n%s) SET n = $props", labelFragment(e.Labels))
			if _, err := tx.Run(ctx, query, map[string]any{"props": props}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return wrapNeo4jErr("creating entities", err)
	}
	s.logger.Debug("neo4j: created entities", "count", len(entities))
	return nil
}

// UpdateEntity applies the patch inside one transaction and returns the
// updated entity.
func (s *Neo4jStore) UpdateEntity(ctx context.Context, name string, patch EntityPatch) (*models.Entity, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx,
			"MATCH (n {name: $name}) RETURN labels(n) AS labels",
			map[string]any{"name": name})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			if err := result.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		current := stringSliceFromAny(recordValue(result.Record(), "labels"))

		if patch.Labels != nil {
			if remove := labelFragment(current); remove != "" {
				query := fmt.Sprintf("MATCH (n {name: $name}) REMOVE n%s", remove)
				if _, err := tx.Run(ctx, query, map[string]any{"name": name}); err != nil {
					return nil, err
				}
			}
			if add := labelFragment(patch.Labels); add != "" {
				query := fmt.Sprintf("MATCH (n {name: $name}) SET n%s", add)
				if _, err := tx.Run(ctx, query, map[string]any{"name": name}); err != nil {
					return nil, err
				}
			}
		}

		if patch.Observations != nil {
			_, err := tx.Run(ctx,
				"MATCH (n {name: $name}) SET n.observations = $observations",
				map[string]any{"name": name, "observations": patch.Observations})
			if err != nil {
				return nil, err
			}
		}

		if len(patch.Properties) > 0 {
			props := make(map[string]any, len(patch.Properties))
			for k, v := range patch.Properties {
				if reservedNodeKeys[k] {
					continue
				}
				props[k] = v.Native()
			}
			_, err := tx.Run(ctx,
				"MATCH (n {name: $name}) SET n += $props",
				map[string]any{"name": name, "props": props})
			if err != nil {
				return nil, err
			}
		}

		for _, key := range patch.RemoveProperties {
			if reservedNodeKeys[key] {
				continue
			}
			query := fmt.Sprintf("MATCH (n {name: $name}) SET n.`%s` = null", key)
			if _, err := tx.Run(ctx, query, map[string]any{"name": name}); err != nil {
				return nil, err
			}
		}

		result, err = tx.Run(ctx,
			"MATCH (n {name: $name}) RETURN n.name AS name, labels(n) AS labels, n.observations AS observations, properties(n) AS props",
			map[string]any{"name": name})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		e, err := entityFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		return &e, nil
	})
	if err != nil {
		return nil, wrapNeo4jErr("updating entity", err)
	}
	return out.(*models.Entity), nil
}

// DeleteEntities detach-deletes the named entities and reports the count.
func (s *Neo4jStore) DeleteEntities(ctx context.Context, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		"MATCH (n) WHERE n.name IN $names DETACH DELETE n",
		map[string]any{"names": names})
	if err != nil {
		return 0, wrapNeo4jErr("deleting entities", err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return 0, wrapNeo4jErr("deleting entities", err)
	}
	return summary.Counters().NodesDeleted(), nil
}

// CreateRelationships verifies both endpoints of every edge, then creates
// the batch in one transaction. Parallel edges are permitted.
func (s *Neo4jStore) CreateRelationships(ctx context.Context, rels []models.Relationship) ([]models.Relationship, error) {
	if len(rels) == 0 {
		return []models.Relationship{}, nil
	}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	endpoints := make([]string, 0, len(rels)*2)
	for i := range rels {
		endpoints = append(endpoints, rels[i].From, rels[i].To)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx,
			"UNWIND $names AS name OPTIONAL MATCH (n {name: name}) WITH name, n WHERE n IS NULL RETURN name LIMIT 1",
			map[string]any{"names": endpoints})
		if err != nil {
			return nil, err
		}
		if result.Next(ctx) {
			missing, _ := result.Record().Get("name")
			return nil, fmt.Errorf("%w: %v", ErrReference, missing)
		}
		if err := result.Err(); err != nil {
			return nil, err
		}

		for i := range rels {
			r := &rels[i]
			props := make(map[string]any, len(r.Properties))
			for k, v := range r.Properties {
				props[k] = v.Native()
			}
			query := fmt.Sprintf(
				"MATCH (a {name: $from}), (b {name: $to}) CREATE (a)-[r:`%s`]->(b) SET r = $props",
				r.Type)
			params := map[string]any{"from": r.From, "to": r.To, "props": props}
			if _, err := tx.Run(ctx, query, params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, wrapNeo4jErr("creating relationships", err)
	}

	created := make([]models.Relationship, len(rels))
	for i := range rels {
		created[i] = rels[i].Clone()
	}
	return created, nil
}

// UpdateRelationship patches every edge from->to of the given type inside
// one transaction and returns the updated edges.
func (s *Neo4jStore) UpdateRelationship(ctx context.Context, from, to, relType string, patch RelationshipPatch) ([]models.Relationship, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	match := fmt.Sprintf("MATCH (a {name: $from})-[r:`%s`]->(b {name: $to})", relType)
	params := map[string]any{"from": from, "to": to}

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(patch.Properties) > 0 {
			props := make(map[string]any, len(patch.Properties))
			for k, v := range patch.Properties {
				props[k] = v.Native()
			}
			setParams := map[string]any{"from": from, "to": to, "props": props}
			result, err := tx.Run(ctx, match+" SET r += $props RETURN count(r) AS n", setParams)
			if err != nil {
				return nil, err
			}
			if !result.Next(ctx) {
				if err := result.Err(); err != nil {
					return nil, err
				}
				return nil, fmt.Errorf("%w: %s-[%s]->%s", ErrNotFound, from, relType, to)
			}
			if n, _ := result.Record().Get("n"); n == int64(0) {
				return nil, fmt.Errorf("%w: %s-[%s]->%s", ErrNotFound, from, relType, to)
			}
		}

		for _, key := range patch.RemoveProperties {
			query := fmt.Sprintf("%s SET r.`%s` = null", match, key)
			if _, err := tx.Run(ctx, query, params); err != nil {
				return nil, err
			}
		}

		result, err := tx.Run(ctx,
			match+" RETURN a.name AS from, b.name AS to, type(r) AS type, properties(r) AS props",
			params)
		if err != nil {
			return nil, err
		}
		var updated []models.Relationship
		for result.Next(ctx) {
			r, err := relationshipFromRecord(result.Record())
			if err != nil {
				return nil, err
			}
			updated = append(updated, r)
		}
		if err := result.Err(); err != nil {
			return nil, err
		}
		if len(updated) == 0 {
			return nil, fmt.Errorf("%w: %s-[%s]->%s", ErrNotFound, from, relType, to)
		}
		return updated, nil
	})
	if err != nil {
		return nil, wrapNeo4jErr("updating relationship", err)
	}
	return out.([]models.Relationship), nil
}

// DeleteRelationships removes every relationship matching the selector.
func (s *Neo4jStore) DeleteRelationships(ctx context.Context, sel RelationshipSelector) (int, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query, params := relationshipMatch(sel)
	result, err := session.Run(ctx, query+" DELETE r", params)
	if err != nil {
		return 0, wrapNeo4jErr("deleting relationships", err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return 0, wrapNeo4jErr("deleting relationships", err)
	}
	return summary.Counters().RelationshipsDeleted(), nil
}

// FindByLabels returns entities matching the labels under the given mode.
func (s *Neo4jStore) FindByLabels(ctx context.Context, labels []string, mode LabelMatchMode) ([]models.Entity, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	where := ""
	params := map[string]any{}
	if len(labels) > 0 {
		quantifier := "any"
		if mode == MatchAll {
			quantifier = "all"
		}
		where = fmt.Sprintf("WHERE %s(l IN $labels WHERE l IN labels(n))", quantifier)
		params["labels"] = labels
	}

	query := fmt.Sprintf(
		"MATCH (n) %s RETURN n.name AS name, labels(n) AS labels, n.observations AS observations, properties(n) AS props ORDER BY n.name",
		where)
	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, wrapNeo4jErr("finding entities by labels", err)
	}
	var out []models.Entity
	for result.Next(ctx) {
		e, err := entityFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := result.Err(); err != nil {
		return nil, wrapNeo4jErr("finding entities by labels", err)
	}
	return out, nil
}

// FindRelationships returns relationships matching the selector.
func (s *Neo4jStore) FindRelationships(ctx context.Context, sel RelationshipSelector) ([]models.Relationship, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query, params := relationshipMatch(sel)
	result, err := session.Run(ctx,
		query+" RETURN a.name AS from, b.name AS to, type(r) AS type, properties(r) AS props",
		params)
	if err != nil {
		return nil, wrapNeo4jErr("finding relationships", err)
	}
	var out []models.Relationship
	for result.Next(ctx) {
		r, err := relationshipFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := result.Err(); err != nil {
		return nil, wrapNeo4jErr("finding relationships", err)
	}
	return out, nil
}

// Traverse pushes the bounded outbound walk down into a variable-length
// Cypher pattern. Depth is validated by the domain layer (1..5) before it
// is inlined; Cypher cannot parameterize pattern bounds.
func (s *Neo4jStore) Traverse(ctx context.Context, root string, depth int, typeFilter string) (models.Subgraph, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	relPattern := ""
	if typeFilter != "" {
		relPattern = fmt.Sprintf(":`%s`", typeFilter)
	}

	sub := models.Subgraph{Entities: []models.Entity{}, Relationships: []models.Relationship{}}

	// The WHERE guard keeps cyclic paths from re-admitting the root.
	nodeQuery := fmt.Sprintf(
		"MATCH (start {name: $root})-[%s*1..%d]->(n) WITH DISTINCT n WHERE n.name <> $root "+
			"RETURN n.name AS name, labels(n) AS labels, n.observations AS observations, properties(n) AS props",
		relPattern, depth)
	result, err := session.Run(ctx, nodeQuery, map[string]any{"root": root})
	if err != nil {
		return sub, wrapNeo4jErr("traversing graph", err)
	}
	for result.Next(ctx) {
		e, err := entityFromRecord(result.Record())
		if err != nil {
			return sub, err
		}
		sub.Entities = append(sub.Entities, e)
	}
	if err := result.Err(); err != nil {
		return sub, wrapNeo4jErr("traversing graph", err)
	}

	relQuery := fmt.Sprintf(
		"MATCH p = (start {name: $root})-[%s*1..%d]->(n) UNWIND relationships(p) AS rel "+
			"RETURN DISTINCT startNode(rel).name AS from, endNode(rel).name AS to, type(rel) AS type, properties(rel) AS props",
		relPattern, depth)
	result, err = session.Run(ctx, relQuery, map[string]any{"root": root})
	if err != nil {
		return sub, wrapNeo4jErr("traversing graph", err)
	}
	for result.Next(ctx) {
		r, err := relationshipFromRecord(result.Record())
		if err != nil {
			return sub, err
		}
		sub.Relationships = append(sub.Relationships, r)
	}
	if err := result.Err(); err != nil {
		return sub, wrapNeo4jErr("traversing graph", err)
	}
	return sub, nil
}

// Ping verifies connectivity.
func (s *Neo4jStore) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close shuts down the driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// --- helpers ---

// wrapNeo4jErr keeps domain sentinels intact and folds driver faults into
// ErrUnavailable. Context cancellation passes through untouched.
func wrapNeo4jErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isSentinel(err):
		return err
	case contextErr(err):
		return err
	}
	var ne *neo4j.Neo4jError
	if errors.As(err, &ne) && strings.Contains(ne.Code, "ConstraintValidationFailed") {
		return fmt.Errorf("%w: %s", ErrConflict, ne.Msg)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func isSentinel(err error) bool {
	for _, s := range []error{ErrNotFound, ErrConflict, ErrReference, ErrUnavailable} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

func contextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func labelFragment(labels []string) string {
	var b strings.Builder
	for _, l := range labels {
		if l == "" {
			continue
		}
		fmt.Fprintf(&b, ":`%s`", l)
	}
	return b.String()
}

// flattenEntity lays the entity out as node properties: name and
// observations under their reserved keys, the open bag alongside.
func flattenEntity(e *models.Entity) map[string]any {
	props := make(map[string]any, len(e.Properties)+2)
	for k, v := range e.Properties {
		if reservedNodeKeys[k] {
			continue
		}
		props[k] = v.Native()
	}
	props["name"] = e.Name
	obs := e.Observations
	if obs == nil {
		obs = []string{}
	}
	props["observations"] = obs
	return props
}

func entityFromRecord(record *neo4j.Record) (models.Entity, error) {
	e := models.Entity{
		Name:         stringFromAny(recordValue(record, "name")),
		Labels:       stringSliceFromAny(recordValue(record, "labels")),
		Observations: stringSliceFromAny(recordValue(record, "observations")),
	}
	props, err := propertiesFromAny(recordValue(record, "props"))
	if err != nil {
		return e, err
	}
	e.Properties = props
	if e.Observations == nil {
		e.Observations = []string{}
	}
	return e, nil
}

func relationshipFromRecord(record *neo4j.Record) (models.Relationship, error) {
	r := models.Relationship{
		From: stringFromAny(recordValue(record, "from")),
		To:   stringFromAny(recordValue(record, "to")),
		Type: stringFromAny(recordValue(record, "type")),
	}
	props, err := propertiesFromAny(recordValue(record, "props"))
	if err != nil {
		return r, err
	}
	// Relationship property bags carry no reserved keys, but the shared
	// parser strips them for node records; harmless here.
	r.Properties = props
	return r, nil
}

func relationshipMatch(sel RelationshipSelector) (string, map[string]any) {
	var conditions []string
	params := map[string]any{}
	if sel.From != "" {
		conditions = append(conditions, "a.name = $from")
		params["from"] = sel.From
	}
	if sel.To != "" {
		conditions = append(conditions, "b.name = $to")
		params["to"] = sel.To
	}
	if sel.Type != "" {
		conditions = append(conditions, "type(r) = $type")
		params["type"] = sel.Type
	}
	query := "MATCH (a)-[r]->(b)"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return query, params
}

func recordValue(record *neo4j.Record, key string) any {
	v, ok := record.Get(key)
	if !ok {
		return nil
	}
	return v
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return s
}

func stringSliceFromAny(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// propertiesFromAny converts a Neo4j property map into the model's scalar
// union bag, skipping reserved keys.
func propertiesFromAny(v any) (map[string]models.Value, error) {
	raw, ok := v.(map[string]any)
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	props := make(map[string]models.Value)
	for k, rv := range raw {
		if reservedNodeKeys[k] {
			continue
		}
		val, err := models.ValueFromAny(rv)
		if err != nil {
			// Non-scalar values (lists, temporal types) written by other
			// clients are rendered as strings rather than dropped.
			val = models.StringValue(fmt.Sprintf("%v", rv))
		}
		props[k] = val
	}
	if len(props) == 0 {
		return nil, nil
	}
	return props, nil
}
