package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSnakeCase(t *testing.T) {
	valid := []string{"uses", "depends_on", "written_in", "a", "v2", "has_2_parts"}
	for _, s := range valid {
		assert.True(t, IsSnakeCase(s), "expected %q to be snake_case", s)
	}

	invalid := []string{"", "DependsOn", "depends-on", "_leading", "trailing_", "double__underscore", "has space", "Uses"}
	for _, s := range invalid {
		assert.False(t, IsSnakeCase(s), "expected %q to be rejected", s)
	}
}

func TestEntity_HasLabel(t *testing.T) {
	e := Entity{Name: "x", Labels: []string{"Memory", "Task"}}
	assert.True(t, e.HasLabel("Task"))
	assert.False(t, e.HasLabel("task"), "labels are case sensitive")
	assert.False(t, e.HasLabel("Other"))
}

func TestEntity_CloneIsDeep(t *testing.T) {
	e := Entity{
		Name:         "x",
		Labels:       []string{"Memory"},
		Observations: []string{"a"},
		Properties:   map[string]Value{"k": StringValue("v")},
	}
	c := e.Clone()
	c.Labels[0] = "Changed"
	c.Observations[0] = "changed"
	c.Properties["k"] = StringValue("changed")

	assert.Equal(t, "Memory", e.Labels[0])
	assert.Equal(t, "a", e.Observations[0])
	assert.Equal(t, "v", e.Properties["k"].String())
}
