package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInheritanceGraph_TopologicalSort(t *testing.T) {
	order := []string{"Georectified", "GridSpatialRepresentation", "SpatialRepresentation"}
	g := NewInheritanceGraph(order, map[string]string{
		"Georectified":              "GridSpatialRepresentation",
		"GridSpatialRepresentation": "SpatialRepresentation",
	})

	sorted, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"SpatialRepresentation", "GridSpatialRepresentation", "Georectified"}, sorted)
	assert.Equal(t, []string{"GridSpatialRepresentation", "SpatialRepresentation"}, g.Ancestors("Georectified"))
}

func TestInheritanceGraph_DetectCycles(t *testing.T) {
	g := NewInheritanceGraph([]string{"A", "B", "C", "Root"}, map[string]string{
		"A": "B",
		"B": "C",
		"C": "A",
	})

	cycles := g.DetectCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"A", "B", "C"}, cycles[0])

	_, err := g.TopologicalSort()
	assert.ErrorIs(t, err, ErrInheritanceCycle)
}

func TestParseHelpers(t *testing.T) {
	c, err := ParseCardinality("many")
	require.NoError(t, err)
	assert.Equal(t, Many, c)

	k, err := ParseKind("codelist")
	require.NoError(t, err)
	assert.Equal(t, KindEnum, k)

	p, err := ParsePrimitive("")
	require.NoError(t, err)
	assert.Equal(t, PrimitiveAny, p)

	_, err = ParsePrimitive("blob")
	assert.Error(t, err)
	_, err = ParseKind("union")
	assert.Error(t, err)
	_, err = ParseCardinality("some")
	assert.Error(t, err)
}
