package record

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomd/metaschema/internal/schema"
)

func TestCreate(t *testing.T) {
	reg := testRegistry(t)

	rec, err := Create(reg, "DataIdentification")
	require.NoError(t, err)
	assert.Equal(t, "DataIdentification", rec.TypeName())
	assert.Equal(t, 0, rec.Len())
	assert.False(t, rec.Frozen())

	tests := []struct {
		name     string
		typeName string
		wantErr  error
	}{
		{"unknown type", "ServiceIdentification", schema.ErrUnknownRecordType},
		{"abstract type", "SpatialRepresentation", ErrAbstractType},
		{"external type", "Citation", ErrExternalType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Create(reg, tt.typeName)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreate_AbstractSuggestsSubtypes(t *testing.T) {
	reg := testRegistry(t)

	_, err := Create(reg, "SpatialRepresentation")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GridSpatialRepresentation")
}

func TestSet_InheritedAndOwnFields(t *testing.T) {
	reg := testRegistry(t)
	rec := MustCreate(reg, "DataIdentification")

	require.NoError(t, rec.Set("abstract", "Sea surface temperature"))
	require.NoError(t, rec.Set("language", []string{"eng"}))
	require.NoError(t, rec.Set("citation", Ref{ID: "doi:10.1000/182"}))

	v, ok := rec.Get("abstract")
	require.True(t, ok)
	assert.Equal(t, "Sea surface temperature", v)

	lang, ok := rec.Get("language")
	require.True(t, ok)
	assert.Equal(t, Seq("eng"), lang)

	assert.Equal(t, []string{"citation", "abstract", "language"}, rec.Fields())
}

func TestSet_UnknownField(t *testing.T) {
	rec := MustCreate(testRegistry(t), "Identification")

	err := rec.Set("abstrct", "typo")
	assert.True(t, errors.Is(err, ErrUnknownField))
	assert.Contains(t, err.Error(), "did you mean abstract")

	err = rec.Set("supplementalInformation", "only on DataIdentification")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSet_Cardinality(t *testing.T) {
	rec := MustCreate(testRegistry(t), "Identification")

	assert.ErrorIs(t, rec.Set("status", "onGoing"), ErrCardinalityViolation)
	assert.ErrorIs(t, rec.Set("abstract", Seq("a", "b")), ErrCardinalityViolation)
	assert.NoError(t, rec.Set("status", Seq("onGoing")))
	assert.NoError(t, rec.Set("status", Seq()))
}

func TestSet_EnumMembershipNotCheckedAtWrite(t *testing.T) {
	rec := MustCreate(testRegistry(t), "Identification")
	assert.NoError(t, rec.Set("status", Seq("bogus")))
}

func TestSet_NilClears(t *testing.T) {
	rec := MustCreate(testRegistry(t), "Identification")
	require.NoError(t, rec.Set("purpose", "testing"))
	require.True(t, rec.Has("purpose"))

	require.NoError(t, rec.Set("purpose", nil))
	assert.False(t, rec.Has("purpose"))

	require.NoError(t, rec.Set("purpose", "again"))
	require.NoError(t, rec.Unset("purpose"))
	_, ok := rec.Get("purpose")
	assert.False(t, ok)
}

func TestSet_NormalizesNumbers(t *testing.T) {
	rec := MustCreate(testRegistry(t), "GridSpatialRepresentation")
	require.NoError(t, rec.Set("numberOfDimensions", 2))
	require.NoError(t, rec.Set("resolution", float32(0.5)))

	v, _ := rec.Get("numberOfDimensions")
	assert.Equal(t, int64(2), v)
	r, _ := rec.Get("resolution")
	assert.Equal(t, float64(0.5), r)
}

func TestSet_NormalizesUnsigned(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"uint", uint(7), int64(7)},
		{"uint64", uint64(10), int64(10)},
		{"uintptr", uintptr(3), int64(3)},
		{"max int64", uint64(math.MaxInt64), int64(math.MaxInt64)},
		{"overflow kept", uint64(math.MaxUint64), uint64(math.MaxUint64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := MustCreate(testRegistry(t), "GridSpatialRepresentation")
			require.NoError(t, rec.Set("numberOfDimensions", tt.value))

			v, _ := rec.Get("numberOfDimensions")
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestSet_RejectsCycles(t *testing.T) {
	reg := testRegistry(t)
	outer := MustCreate(reg, "Identification")
	kw := MustCreate(reg, "Keywords")

	require.NoError(t, outer.Set("descriptiveKeywords", Seq(kw)))
	assert.ErrorIs(t, outer.Set("descriptiveKeywords", Seq(kw, outer)), ErrCyclicReference)
}

func TestFreeze(t *testing.T) {
	reg := testRegistry(t)
	kw := MustCreate(reg, "Keywords")
	require.NoError(t, kw.Set("keyword", Seq("ocean")))

	rec := MustCreate(reg, "Identification")
	require.NoError(t, rec.Set("descriptiveKeywords", Seq(kw)))

	rec.Freeze()
	rec.Freeze()
	assert.True(t, rec.Frozen())
	assert.True(t, kw.Frozen(), "nested records freeze with their parent")

	assert.ErrorIs(t, rec.Set("abstract", "late"), ErrFrozenRecordMutation)
	assert.ErrorIs(t, rec.Unset("descriptiveKeywords"), ErrFrozenRecordMutation)
	assert.ErrorIs(t, rec.Append("status", "completed"), ErrFrozenRecordMutation)
	assert.ErrorIs(t, kw.Set("type", "theme"), ErrFrozenRecordMutation)
}

func TestFreeze_AnyFieldFailsAfterwards(t *testing.T) {
	reg := testRegistry(t)
	rt, err := reg.Lookup("DataIdentification")
	require.NoError(t, err)

	rec := MustCreate(reg, "DataIdentification")
	rec.Freeze()
	for _, f := range rt.EffectiveFields() {
		assert.ErrorIs(t, rec.Set(f.Name, nil), ErrFrozenRecordMutation, f.Name)
	}
}

func TestGet_ReturnsSequenceCopy(t *testing.T) {
	rec := MustCreate(testRegistry(t), "Identification")
	require.NoError(t, rec.Set("status", Seq("planned")))

	v, _ := rec.Get("status")
	v.(Sequence)[0] = "MODIFIED"

	again, _ := rec.Get("status")
	assert.Equal(t, Seq("planned"), again)
}

func TestAppend(t *testing.T) {
	rec := MustCreate(testRegistry(t), "Identification")
	require.NoError(t, rec.Append("status", "planned"))
	require.NoError(t, rec.Append("status", "onGoing", "completed"))

	v, _ := rec.Get("status")
	assert.Equal(t, Seq("planned", "onGoing", "completed"), v)
	assert.ErrorIs(t, rec.Append("abstract", "x"), ErrCardinalityViolation)
}

func TestBuilder(t *testing.T) {
	reg := testRegistry(t)

	kw, err := NewBuilder(reg, "Keywords").
		Set("keyword", Seq("ocean", "salinity")).
		Set("type", "theme").
		Build()
	require.NoError(t, err)
	assert.Equal(t, "Keywords{keyword, type}", kw.String())

	_, err = NewBuilder(reg, "Keywords").
		Set("keywrd", Seq("ocean")).
		Set("type", "theme").
		Build()
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = NewBuilder(reg, "Nope").Set("x", 1).Build()
	assert.ErrorIs(t, err, schema.ErrUnknownRecordType)

	frozen, err := NewBuilder(reg, "Usage").Set("specificUsage", "teaching").Frozen()
	require.NoError(t, err)
	assert.True(t, frozen.Frozen())
}
