package vocab

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndQuery(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("ProgressCode", "completed", "onGoing", "planned"))

	ok, err := r.IsMember("ProgressCode", "onGoing")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.IsMember("ProgressCode", "bogus")
	require.NoError(t, err)
	assert.False(t, ok)

	codes, err := r.CodesOf("ProgressCode")
	require.NoError(t, err)
	assert.Equal(t, []string{"completed", "onGoing", "planned"}, codes)
}

func TestRegistry_UnknownEnumeration(t *testing.T) {
	r := NewRegistry()

	_, err := r.IsMember("CellGeometryCode", "point")
	assert.True(t, errors.Is(err, ErrUnknownEnumeration))

	_, err = r.CodesOf("CellGeometryCode")
	assert.True(t, errors.Is(err, ErrUnknownEnumeration))
}

func TestRegistry_RegisterErrors(t *testing.T) {
	tests := []struct {
		name    string
		enum    string
		codes   []string
		wantErr error
	}{
		{"empty name", "", []string{"a"}, ErrInvalidEnumeration},
		{"no codes", "Empty", nil, ErrInvalidEnumeration},
		{"empty code", "Blank", []string{"a", ""}, ErrInvalidEnumeration},
		{"repeated code", "Twice", []string{"a", "a"}, ErrInvalidEnumeration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.Register(tt.enum, tt.codes...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("CellGeometryCode", "point", "area"))

	err := r.Register("CellGeometryCode", "voxel")
	assert.ErrorIs(t, err, ErrDuplicateEnumeration)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_SealedRejectsRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("CellGeometryCode", "point"))
	r.Seal()

	assert.True(t, r.Sealed())
	assert.ErrorIs(t, r.Register("TopologyLevelCode", "geometryOnly"), ErrRegistrySealed)

	ok, err := r.IsMember("CellGeometryCode", "point")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistry_CodesReturnsCopy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("PixelOrientationCode", "center", "lowerLeft"))

	codes, err := r.CodesOf("PixelOrientationCode")
	require.NoError(t, err)
	codes[0] = "MODIFIED"

	again, err := r.CodesOf("PixelOrientationCode")
	require.NoError(t, err)
	assert.Equal(t, "center", again[0])
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("TopologyLevelCode", "geometryOnly"))
	require.NoError(t, r.Register("CellGeometryCode", "point"))

	assert.Equal(t, []string{"CellGeometryCode", "TopologyLevelCode"}, r.Names())
}

func TestRegistry_ConcurrentReadsAfterSeal(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("KeywordTypeCode", "place", "theme", "stratum"))
	r.Seal()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ok, err := r.IsMember("KeywordTypeCode", "theme")
				if err != nil || !ok {
					t.Errorf("IsMember returned %v, %v", ok, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
