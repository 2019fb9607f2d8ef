package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomd/metaschema/internal/schema"
)

func TestDecodeJSON(t *testing.T) {
	reg := testRegistry(t)
	doc := []byte(`{
		"@type": "DataIdentification",
		"language": ["eng"],
		"abstract": "Sea surface temperature",
		"citation": "doi:10.1000/182",
		"descriptiveKeywords": [
			{"keyword": ["ocean"], "type": "theme", "thesaurusName": {"@ref": "gcmd"}}
		],
		"zzz": 1,
		"extra": {"a": 1}
	}`)

	m, err := DecodeJSON(reg, doc, "")
	require.NoError(t, err)
	assert.Equal(t, "DataIdentification", m.Type)
	assert.Equal(t, []string{"citation", "abstract", "descriptiveKeywords", "language", "extra", "zzz"}, m.Names())

	citation, _ := m.Get("citation")
	assert.Equal(t, Ref{Type: "Citation", ID: "doi:10.1000/182"}, citation)

	kws, _ := m.Get("descriptiveKeywords")
	kw := kws.(Sequence)[0].(Mapping)
	assert.Equal(t, "Keywords", kw.Type)
	thesaurus, _ := kw.Get("thesaurusName")
	assert.Equal(t, Ref{Type: "Citation", ID: "gcmd"}, thesaurus)

	zzz, _ := m.Get("zzz")
	assert.Equal(t, int64(1), zzz)
}

func TestDecodeJSON_Primitives(t *testing.T) {
	reg := testRegistry(t)

	m, err := DecodeJSON(reg, []byte(`{"numberOfDimensions": 2, "resolution": 3}`), "GridSpatialRepresentation")
	require.NoError(t, err)
	dims, _ := m.Get("numberOfDimensions")
	assert.Equal(t, int64(2), dims)
	res, _ := m.Get("resolution")
	assert.Equal(t, float64(3), res)

	m, err = DecodeJSON(reg, []byte(`{"specificUsage": "x", "usageDateTime": "2024-05-01"}`), "Usage")
	require.NoError(t, err)
	when, _ := m.Get("usageDateTime")
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), when)
}

func TestDecodeJSON_KeepsBadValuesForValidation(t *testing.T) {
	reg := testRegistry(t)

	m, err := DecodeJSON(reg, []byte(`{"numberOfDimensions": "two", "resolution": [1, 2]}`), "GridSpatialRepresentation")
	require.NoError(t, err)
	dims, _ := m.Get("numberOfDimensions")
	assert.Equal(t, "two", dims)
	res, _ := m.Get("resolution")
	assert.True(t, IsSequence(res))
}

func TestDecodeJSON_Errors(t *testing.T) {
	reg := testRegistry(t)

	_, err := DecodeJSON(reg, []byte(`{"abstract": "no type"}`), "")
	assert.ErrorIs(t, err, ErrMissingType)

	_, err = DecodeJSON(reg, []byte(`{"@type": "Nope"}`), "")
	assert.ErrorIs(t, err, schema.ErrUnknownRecordType)

	_, err = DecodeJSON(reg, []byte(`[1, 2]`), "Usage")
	assert.Error(t, err)
}

func TestDecodeTree_YAMLShapes(t *testing.T) {
	reg := testRegistry(t)
	tree := map[string]any{
		"@type": "Identification",
		"descriptiveKeywords": []any{
			map[any]any{"keyword": []any{"ice"}},
		},
	}

	m, err := DecodeTree(reg, tree, "")
	require.NoError(t, err)
	kws, _ := m.Get("descriptiveKeywords")
	kw := kws.(Sequence)[0].(Mapping)
	v, _ := kw.Get("keyword")
	assert.Equal(t, Seq("ice"), v)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty(Seq()))
	assert.False(t, IsEmpty(Seq("x")))
	assert.False(t, IsEmpty(int64(0)))
	assert.False(t, IsEmpty(false))
}

func TestDecodeYAML(t *testing.T) {
	reg := testRegistry(t)
	doc := []byte(`
"@type": Usage
specificUsage: Coastal flood modelling
usageDateTime: "2024-03-01T12:00:00Z"
`)

	m, err := DecodeYAML(reg, doc, "")
	require.NoError(t, err)
	assert.Equal(t, "Usage", m.Type)
	assert.Equal(t, []string{"specificUsage", "usageDateTime"}, m.Names())
	when, _ := m.Get("usageDateTime")
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), when)

	_, err = DecodeYAML(reg, []byte("specificUsage: x\n"), "")
	assert.ErrorIs(t, err, ErrMissingType)

	_, err = DecodeYAML(reg, []byte(""), "Usage")
	assert.ErrorContains(t, err, "empty document")

	_, err = DecodeYAML(reg, []byte("- a\n- b\n"), "Usage")
	assert.Error(t, err)
}
