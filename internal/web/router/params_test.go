package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=20&lenient&strict=false&rules=a,b&rules=c&bad=x", nil)
	p := NewParamExtractor(req)

	limit, err := p.QueryParamInt("limit", 50, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, 20, limit)

	def, err := p.QueryParamInt("offset", 7, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 7, def)

	_, err = p.QueryParamInt("bad", 0, 0, 10)
	assert.ErrorContains(t, err, "invalid integer")
	_, err = p.QueryParamInt("limit", 0, 0, 10)
	assert.ErrorContains(t, err, "between 0 and 10")

	lenient, err := p.QueryParamBool("lenient", false)
	require.NoError(t, err)
	assert.True(t, lenient)

	strict, err := p.QueryParamBool("strict", true)
	require.NoError(t, err)
	assert.False(t, strict)

	missing, err := p.QueryParamBool("missing", true)
	require.NoError(t, err)
	assert.True(t, missing)

	_, err = p.QueryParamBool("bad", false)
	assert.Error(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, p.QueryParamList("rules"))
	assert.Nil(t, p.QueryParamList("none"))
	assert.Equal(t, "x", p.QueryParam("bad"))
}

func TestPathParamUUID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{name: "valid", value: "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{name: "invalid", value: "not-a-uuid", wantErr: "invalid UUID"},
		{name: "missing", wantErr: "missing path parameter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rctx := chi.NewRouteContext()
			if tt.value != "" {
				rctx.URLParams.Add("id", tt.value)
			}
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			id, err := NewParamExtractor(req).PathParamUUID("id")
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value, id.String())
			assert.Equal(t, tt.value, NewParamExtractor(req).PathParam("id"))
		})
	}
}
