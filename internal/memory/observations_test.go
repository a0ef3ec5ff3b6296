package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetObservations_ReplacesWholesale(t *testing.T) {
	got := setObservations([]string{"old", "older"}, []string{"new"})
	assert.Equal(t, []string{"new"}, got)
}

func TestAddObservations_KeepsDuplicates(t *testing.T) {
	got := addObservations([]string{"fast"}, []string{"fast"})
	assert.Equal(t, []string{"fast", "fast"}, got, "adding an existing observation repeats it")
}

func TestAddObservations_PreservesOrder(t *testing.T) {
	got := addObservations([]string{"a"}, []string{"b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestRemoveObservations_DropsAllOccurrences(t *testing.T) {
	got := removeObservations([]string{"x", "y", "x", "z"}, []string{"x"})
	assert.Equal(t, []string{"y", "z"}, got)
}

func TestRemoveObservations_AbsentValueIsIdempotent(t *testing.T) {
	current := []string{"a", "b"}
	got := removeObservations(current, []string{"missing"})
	assert.Equal(t, current, got)

	again := removeObservations(got, []string{"missing"})
	assert.Equal(t, got, again)
}

func TestRemoveAllObservations_AlwaysEmpty(t *testing.T) {
	got := removeAllObservations([]string{"a", "b"}, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEditors_DoNotMutateInput(t *testing.T) {
	current := []string{"a", "b"}
	_ = removeObservations(current, []string{"a"})
	assert.Equal(t, []string{"a", "b"}, current)

	_ = addObservations(current, []string{"c"})
	assert.Equal(t, []string{"a", "b"}, current)
}
