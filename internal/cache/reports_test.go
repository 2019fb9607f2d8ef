package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomd/metaschema/internal/validation"
)

func TestReportKey(t *testing.T) {
	base := ReportKey{Type: "Usage", Body: []byte(`{"specificUsage":"x"}`)}

	assert.Equal(t, base.String(), base.String())
	assert.Contains(t, base.String(), "report:Usage:")

	lenient := base
	lenient.Lenient = true
	assert.NotEqual(t, base.String(), lenient.String())

	body := base
	body.Body = []byte(`{"specificUsage":"y"}`)
	assert.NotEqual(t, base.String(), body.String())

	schema := base
	schema.Schema = "extended"
	assert.NotEqual(t, base.String(), schema.String())

	r1 := ReportKey{Type: "Usage", Rules: []string{"a", "b"}}
	r2 := ReportKey{Type: "Usage", Rules: []string{"b", "a"}}
	assert.Equal(t, r1.String(), r2.String(), "rule order does not matter")
}

func TestReports(t *testing.T) {
	backends := map[string]func(t *testing.T) Cache{
		"memory": func(t *testing.T) Cache {
			return NewMemoryCache(DefaultConfig())
		},
		"redis": func(t *testing.T) Cache {
			mr := miniredis.RunT(t)
			return NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), DefaultConfig())
		},
	}

	for name, newBackend := range backends {
		t.Run(name, func(t *testing.T) {
			backend := newBackend(t)
			defer backend.Close()

			reports := NewReports(backend, 0)
			ctx := context.Background()
			key := ReportKey{Type: "Identification", Body: []byte(`{}`)}

			_, ok, err := reports.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)

			want := validation.NewReport("Identification", validation.Violations{{
				FieldPath: "abstract",
				Kind:      validation.MissingRequiredField,
				Severity:  validation.SeverityError,
				Message:   "Identification requires abstract",
			}})
			require.NoError(t, reports.Put(ctx, key, want))

			got, ok, err := reports.Get(ctx, key)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestReports_CorruptEntry(t *testing.T) {
	backend := NewMemoryCache(DefaultConfig())
	defer backend.Close()
	ctx := context.Background()
	key := ReportKey{Type: "Usage"}

	require.NoError(t, backend.Set(ctx, key.String(), []byte("not json"), 0))

	_, ok, err := NewReports(backend, 0).Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := backend.Exists(ctx, key.String())
	require.NoError(t, err)
	assert.False(t, exists)
}
