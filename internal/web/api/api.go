// Package api exposes the metadata catalogue over HTTP: schema browsing,
// validation, record storage and the interactive validation stream.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/geomd/metaschema/internal/cache"
	"github.com/geomd/metaschema/internal/iso19115"
	"github.com/geomd/metaschema/internal/metrics"
	"github.com/geomd/metaschema/internal/store"
	"github.com/geomd/metaschema/internal/web/auth"
	"github.com/geomd/metaschema/internal/web/middleware"
	"github.com/geomd/metaschema/internal/web/response"
	"github.com/geomd/metaschema/internal/web/router"
	"github.com/geomd/metaschema/internal/web/websocket"
)

// DefaultMaxBodyBytes bounds uploaded record documents
const DefaultMaxBodyBytes = 4 << 20

// Config wires the API to its collaborators. Only Catalog is required.
type Config struct {
	Catalog *iso19115.Catalog
	// Store enables the record endpoints
	Store *store.Store
	// Reports caches validation reports
	Reports *cache.Reports
	// Metrics enables /metrics and request instrumentation
	Metrics *metrics.Metrics
	// Auth guards record writes; nil leaves them open
	Auth   *auth.Service
	Logger *zap.Logger

	// Lenient and Rules are the validation defaults when a request names none
	Lenient bool
	Rules   []string

	CORS         middleware.CORSConfig
	MaxBodyBytes int64
}

// API is the HTTP handler of the service
type API struct {
	cfg    Config
	router *router.Router
	hub    *websocket.Hub
	logger *zap.Logger
	// schema is the catalogue fingerprint that namespaces cached reports
	schema string
}

// New builds the router. Cancelling ctx closes the stream connections.
func New(ctx context.Context, cfg Config) (*API, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("api: catalog is required")
	}
	if _, err := iso19115.Rules(cfg.Rules...); err != nil {
		return nil, err
	}
	fingerprint, err := cfg.Catalog.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("api: fingerprint schema: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Auth == nil && cfg.Store != nil {
		cfg.Logger.Warn("record endpoints are not protected: no auth secret configured")
	}

	a := &API{
		cfg:    cfg,
		router: router.NewRouter(),
		hub:    websocket.NewHub(ctx, cfg.Logger.Named("stream")),
		logger: cfg.Logger,
		schema: fingerprint,
	}
	websocket.RegisterDefaultHandlers(a.hub)
	a.hub.RegisterHandler("validate", a.streamValidate)
	if cfg.Metrics != nil {
		a.hub.OnCountChange(func(n int) { cfg.Metrics.StreamConnections.Set(float64(n)) })
	}

	a.routes()
	return a, nil
}

func (a *API) routes() {
	r := a.router
	r.Use(
		middleware.RequestID(),
		middleware.Logging(a.logger, a.cfg.Metrics),
		middleware.Recovery(a.logger),
		middleware.CORS(a.cfg.CORS),
	)
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.RenderNotFound(w, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.RenderError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	r.Get("/healthz", a.health).Named("health")
	if a.cfg.Metrics != nil {
		r.Handle(http.MethodGet, "/metrics", a.cfg.Metrics.Handler()).Named("metrics")
	}

	r.Route("/v1", func(r *router.Router) {
		r.Get("/vocabularies", a.listVocabularies).Named("vocabularies")
		r.Get("/vocabularies/{name}", a.getVocabulary).Named("vocabulary")
		r.Get("/types", a.listTypes).Named("types")
		r.Get("/types/{name}", a.getType).Named("type")
		r.Post("/types/{name}/validate", a.validateTyped).Named("validate_type")
		r.Post("/validate", a.validateDocument).Named("validate")
		r.Get("/rules", a.listRules).Named("rules")
		r.Handle(http.MethodGet, "/stream", websocket.NewUpgrader(nil, a.hub)).Named("stream")

		if a.cfg.Store == nil {
			return
		}
		r.Get("/records", a.listRecords).Named("records")
		r.Get("/records/export", a.exportRecords).Named("export")
		r.Get("/records/{id}", a.getRecord).Named("record")
		r.Group(func(r *router.Router) {
			if a.cfg.Auth != nil {
				r.Use(middleware.Auth(a.cfg.Auth, auth.ScopeRecordsWrite))
			}
			r.Post("/records", a.createRecord).Named("create_record")
		})
		r.Group(func(r *router.Router) {
			if a.cfg.Auth != nil {
				r.Use(middleware.Auth(a.cfg.Auth, auth.ScopeRecordsDelete))
			}
			r.Delete("/records/{id}", a.deleteRecord).Named("delete_record")
		})
	})
}

// ServeHTTP implements http.Handler
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Routes lists the registered routes
func (a *API) Routes() []router.RouteInfo {
	return a.router.Routes()
}

// RouteList renders the registered routes as a table
func (a *API) RouteList() string {
	return a.router.RouteList()
}

// Hub returns the stream hub
func (a *API) Hub() *websocket.Hub {
	return a.hub
}

// Close disconnects every stream client
func (a *API) Close(ctx context.Context) error {
	a.hub.Shutdown()
	return nil
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status": "ok",
		"types":  len(a.cfg.Catalog.Types.Names()),
	}

	if a.cfg.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		count, err := a.cfg.Store.Count(ctx)
		if err != nil {
			a.logger.Warn("health check failed", zap.Error(err))
			response.RenderServiceUnavailable(w, "record store unavailable")
			return
		}
		body["records"] = count
	}

	response.RenderJSON(w, http.StatusOK, body)
}
