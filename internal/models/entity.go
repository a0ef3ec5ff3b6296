// Package models defines the memory graph data model: entities,
// relationships, property values, and the task specialization.
package models

// Reserved labels and relationship types.
const (
	// DefaultLabel is appended to every created entity unless configured otherwise.
	DefaultLabel = "Memory"

	// TaskLabel marks an entity as a task.
	TaskLabel = "Task"

	// GraphRoot is the well-known root entity that anchors graph metadata
	// traversals. get_graph_meta walks outbound from this node.
	GraphRoot = "tech:tool:memory_graph"

	// RelDependsOn links a task to a task it depends on.
	RelDependsOn = "depends_on"

	// RelContains links the graph root (or a parent entity) to a member entity.
	RelContains = "contains"
)

// Entity is a uniquely named node in the memory graph.
//
// The name is the primary key and immutable after creation. By convention
// names are colon-delimited hierarchical segments (domain:type:identifier),
// but the model treats them as opaque strings.
type Entity struct {
	Name         string           `json:"name"`
	Labels       []string         `json:"labels"`
	Observations []string         `json:"observations"`
	Properties   map[string]Value `json:"properties,omitempty"`
}

// HasLabel reports whether the entity carries the given label.
func (e *Entity) HasLabel(label string) bool {
	for _, l := range e.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the entity.
func (e Entity) Clone() Entity {
	out := e
	if e.Labels != nil {
		out.Labels = append([]string(nil), e.Labels...)
	}
	if e.Observations != nil {
		out.Observations = append([]string(nil), e.Observations...)
	}
	if e.Properties != nil {
		out.Properties = make(map[string]Value, len(e.Properties))
		for k, v := range e.Properties {
			out.Properties[k] = v
		}
	}
	return out
}

// Relationship is a directed, typed edge between two entities.
type Relationship struct {
	From       string           `json:"from"`
	To         string           `json:"to"`
	Type       string           `json:"type"`
	Properties map[string]Value `json:"properties,omitempty"`
}

// Clone returns a deep copy of the relationship.
func (r Relationship) Clone() Relationship {
	out := r
	if r.Properties != nil {
		out.Properties = make(map[string]Value, len(r.Properties))
		for k, v := range r.Properties {
			out.Properties[k] = v
		}
	}
	return out
}

// Subgraph is the result of a bounded traversal: the distinct entities
// discovered from the root (the root itself is never included) and the
// relationships followed to reach them.
type Subgraph struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

// IsSnakeCase reports whether s is non-empty lower_snake_case: lowercase
// ASCII letters, digits, and single underscores between segments.
func IsSnakeCase(s string) bool {
	if s == "" {
		return false
	}
	prevUnderscore := true // leading underscore is not allowed
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			prevUnderscore = false
		case c == '_':
			if prevUnderscore {
				return false
			}
			prevUnderscore = true
		default:
			return false
		}
	}
	return !prevUnderscore // no trailing underscore
}
