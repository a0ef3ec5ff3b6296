// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint
// when net/http/pprof is imported in the main binary.
package metrics

import "expvar"

// Operation counters, incremented by the domain façade.
var (
	EntitiesCreated      = expvar.NewInt("mnemo_entities_created_total")
	EntitiesUpdated      = expvar.NewInt("mnemo_entities_updated_total")
	EntitiesDeleted      = expvar.NewInt("mnemo_entities_deleted_total")
	RelationshipsCreated = expvar.NewInt("mnemo_relationships_created_total")
	RelationshipsUpdated = expvar.NewInt("mnemo_relationships_updated_total")
	RelationshipsDeleted = expvar.NewInt("mnemo_relationships_deleted_total")
	ObservationEdits     = expvar.NewInt("mnemo_observation_edits_total")
	Traversals           = expvar.NewInt("mnemo_traversals_total")
	TasksCreated         = expvar.NewInt("mnemo_tasks_created_total")
	TasksUpdated         = expvar.NewInt("mnemo_tasks_updated_total")
	TasksDeleted         = expvar.NewInt("mnemo_tasks_deleted_total")
)
