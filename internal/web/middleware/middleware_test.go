package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/geomd/metaschema/internal/metrics"
	"github.com/geomd/metaschema/internal/web/auth"
	webcontext "github.com/geomd/metaschema/internal/web/context"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
})

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	chain := NewChain(mark("first")).Use(mark("second"))
	chain.Then(okHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Len(t, chain.Handlers(), 2)
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestIDWithGenerator(func() string { return "generated" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = webcontext.GetRequestID(r.Context())
		}),
	)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "generated when absent", want: "generated"},
		{name: "client id reused", header: "abc-123", want: "abc-123"},
		{name: "oversized id replaced", header: strings.Repeat("x", 200), want: "generated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, seen)
			assert.Equal(t, tt.want, rec.Header().Get(RequestIDHeader))
		})
	}
}

func TestRequestIDDefaultGeneratesUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	RequestID()(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestLoggingRecordsRouteAndStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(RequestID(), Logging(zap.New(core), m))
	r.Get("/v1/types/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/types/Nope", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/v1/types/{name}", "404")))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1, "health checks are not logged")
	entry := entries[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	ctx := entry.ContextMap()
	assert.Equal(t, "/v1/types/{name}", ctx["route"])
	assert.Equal(t, int64(404), ctx["status"])
	assert.NotEmpty(t, ctx["request_id"])
}

func TestLoggingWithoutRouter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := LoggingWithConfig(LoggingConfig{Logger: zap.New(core)})(okHandler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))

	assert.Equal(t, "ok", rec.Body.String())
	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, unmatchedRoute, ctx["route"])
	assert.Equal(t, int64(2), ctx["bytes"])
}

func TestResponseWriterPassesFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	rw.Flush()
	assert.True(t, rec.Flushed)

	_, _, err := rw.Hijack()
	assert.Error(t, err, "recorder cannot be hijacked")
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := Recovery(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/records", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body["code"])
	assert.NotContains(t, rec.Body.String(), "boom")

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "panic: boom", ctx["error"])
	assert.NotEmpty(t, ctx["stack"])
}

func TestRecoveryRepanicsAbort(t *testing.T) {
	handler := Recovery(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestAuth(t *testing.T) {
	svc := auth.NewService("test-secret", time.Hour)
	writer, err := svc.GenerateToken("harvester", auth.ScopeRecordsWrite)
	require.NoError(t, err)
	reader, err := svc.GenerateToken("reader")
	require.NoError(t, err)

	var subject string
	handler := Auth(svc, auth.ScopeRecordsWrite)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = webcontext.GetSubject(r.Context())
		assert.Equal(t, []string{auth.ScopeRecordsWrite}, webcontext.GetScopes(r.Context()))
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid token", header: "Bearer " + writer, status: http.StatusOK},
		{name: "lower case scheme", header: "bearer " + writer, status: http.StatusOK},
		{name: "missing header", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", status: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", status: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer not-a-jwt", status: http.StatusUnauthorized},
		{name: "missing scope", header: "Bearer " + reader, status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject = ""
			req := httptest.NewRequest(http.MethodPost, "/v1/records", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "harvester", subject)
			} else {
				assert.Empty(t, subject)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://catalog.example.org", "*.geo.example.org"}
	handler := CORS(cfg)(okHandler)

	tests := []struct {
		name      string
		method    string
		origin    string
		preflight bool
		allowed   bool
		status    int
	}{
		{name: "exact origin", method: http.MethodGet, origin: "https://catalog.example.org", allowed: true, status: http.StatusOK},
		{name: "subdomain", method: http.MethodGet, origin: "https://maps.geo.example.org", allowed: true, status: http.StatusOK},
		{name: "other origin", method: http.MethodGet, origin: "https://evil.example.com", status: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, origin: "https://catalog.example.org", preflight: true, allowed: true, status: http.StatusNoContent},
		{name: "preflight denied", method: http.MethodOptions, origin: "https://evil.example.com", preflight: true, status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/v1/types", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.allowed {
				assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
			if tt.preflight && tt.allowed {
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
				assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
			}
		})
	}
}

func TestCORSDisabled(t *testing.T) {
	handler := CORS(CORSConfig{})(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://catalog.example.org")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
