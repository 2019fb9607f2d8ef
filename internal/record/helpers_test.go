package record

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geomd/metaschema/internal/schema"
	"github.com/geomd/metaschema/internal/vocab"
)

// testRegistry builds a trimmed identification schema
func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	v := vocab.NewRegistry()
	require.NoError(t, v.Register("ProgressCode", "completed", "onGoing", "planned"))
	require.NoError(t, v.Register("KeywordTypeCode", "place", "theme"))

	r := schema.NewRegistry(v)
	require.NoError(t, r.DeclareExternal("Citation"))
	require.NoError(t, r.Define("Keywords", "",
		schema.Field("keyword", schema.PrimitiveString, true).Seq(),
		schema.EnumField("type", "KeywordTypeCode", false),
		schema.RecordField("thesaurusName", "Citation", false),
	))
	require.NoError(t, r.Define("Identification", "",
		schema.RecordField("citation", "Citation", true),
		schema.Field("abstract", schema.PrimitiveString, true),
		schema.Field("purpose", schema.PrimitiveString, false),
		schema.EnumField("status", "ProgressCode", false).Seq(),
		schema.RecordField("descriptiveKeywords", "Keywords", false).Seq(),
	))
	require.NoError(t, r.Define("DataIdentification", "Identification",
		schema.Field("supplementalInformation", schema.PrimitiveString, false),
		schema.Field("language", schema.PrimitiveString, true).Seq(),
	))
	require.NoError(t, r.DefineAbstract("SpatialRepresentation", ""))
	require.NoError(t, r.Define("GridSpatialRepresentation", "SpatialRepresentation",
		schema.Field("numberOfDimensions", schema.PrimitiveInteger, true),
		schema.Field("resolution", schema.PrimitiveReal, false),
	))
	require.NoError(t, r.Define("Usage", "",
		schema.Field("specificUsage", schema.PrimitiveString, true),
		schema.Field("usageDateTime", schema.PrimitiveDateTime, false),
	))
	require.NoError(t, r.Resolve())
	return r
}
