package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geomd/metaschema/internal/cache"
	"github.com/geomd/metaschema/internal/metrics"
	"github.com/geomd/metaschema/internal/store"
	"github.com/geomd/metaschema/internal/web/api"
	"github.com/geomd/metaschema/internal/web/auth"
	"github.com/geomd/metaschema/internal/web/middleware"
	"github.com/geomd/metaschema/internal/web/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the metadata HTTP API",
		Long: `Serve schema browsing, validation and, when a database is configured, record
storage over HTTP. Validation reports are cached in memory or redis and
/v1/stream accepts WebSocket clients for interactive validation.

The server stops gracefully on SIGINT or SIGTERM.`,
		Example: `  metaschema serve --port 9000
  METASCHEMA_DATABASE_URL=metadata.db metaschema serve
  metaschema serve --db-driver postgres --db-url postgres://localhost/metadata`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, e, migrate)
		},
	}

	cmd.Flags().String("host", "0.0.0.0", "Listen host")
	cmd.Flags().Int("port", 8080, "Listen port")
	cmd.Flags().String("db-driver", "sqlite3", "Database driver: sqlite3 or postgres")
	cmd.Flags().String("db-url", "", "Database URL; empty disables record storage")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Create the record table on startup")
	cmd.Flags().Bool("lenient", false, "Default to lenient validation")
	cmd.Flags().StringSlice("rules", nil, "Default extra rules, or \"all\"")
	return cmd
}

// components are the collaborators of the API built from configuration
type components struct {
	store   *store.Store
	backend cache.Cache
	reports *cache.Reports
	auth    *auth.Service
}

// buildComponents opens the store and the cache and creates the token service
func buildComponents(ctx context.Context, e *env, migrate bool) (*components, error) {
	c := &components{}

	if e.cfg.Database.URL != "" {
		st, err := e.openStore()
		if err != nil {
			return nil, err
		}
		if err := st.Ping(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("database unreachable: %w", err)
		}
		if migrate {
			if err := st.Migrate(ctx); err != nil {
				st.Close()
				return nil, err
			}
		}
		c.store = st
	}

	if e.cfg.Cache.Backend != "none" {
		backend, err := cache.New(cache.Config{
			Backend:    e.cfg.Cache.Backend,
			DefaultTTL: e.cfg.Cache.TTL,
			Prefix:     e.cfg.Cache.Prefix,
			Redis: cache.RedisConfig{
				Addr:     e.cfg.Cache.Redis.Addr,
				Password: e.cfg.Cache.Redis.Password,
				DB:       e.cfg.Cache.Redis.DB,
			},
		})
		if err != nil {
			c.close()
			return nil, err
		}
		c.backend = backend
		c.reports = cache.NewReports(backend, e.cfg.Cache.TTL)
	}

	if e.cfg.Auth.Secret != "" {
		c.auth = auth.NewService(e.cfg.Auth.Secret, e.cfg.Auth.TokenTTL)
	}
	return c, nil
}

func (c *components) close() {
	if c.store != nil {
		c.store.Close()
	}
	if c.backend != nil {
		c.backend.Close()
	}
}

// apiConfig wires components into the API configuration
func apiConfig(e *env, c *components, m *metrics.Metrics) api.Config {
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = e.cfg.Server.CORSOrigins

	return api.Config{
		Catalog:      e.catalog,
		Store:        c.store,
		Reports:      c.reports,
		Metrics:      m,
		Auth:         c.auth,
		Logger:       e.logger,
		Lenient:      e.cfg.Validation.Lenient,
		Rules:        e.cfg.Validation.Rules,
		CORS:         cors,
		MaxBodyBytes: e.cfg.Server.MaxBodyBytes,
	}
}

func serve(ctx context.Context, e *env, migrate bool) error {
	c, err := buildComponents(ctx, e, migrate)
	if err != nil {
		return err
	}

	handler, err := api.New(ctx, apiConfig(e, c, metrics.New()))
	if err != nil {
		c.close()
		return err
	}

	srvCfg := server.DefaultConfig(handler)
	srvCfg.Address = e.cfg.Server.Address()
	srvCfg.ReadTimeout = e.cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = e.cfg.Server.WriteTimeout
	srvCfg.IdleTimeout = e.cfg.Server.IdleTimeout
	if e.cfg.Server.TLSCertFile != "" {
		srvCfg.TLSConfig = &server.TLSConfig{CertFile: e.cfg.Server.TLSCertFile, KeyFile: e.cfg.Server.TLSKeyFile}
	}
	if c.store != nil {
		srvCfg.Database = server.DefaultDatabaseConfig(c.store.DB())
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		c.close()
		return err
	}

	shutdown := server.NewGracefulShutdown(srv, e.cfg.Server.ShutdownTimeout, e.logger)
	shutdown.RegisterHook("stream", handler.Close)
	if c.backend != nil {
		shutdown.RegisterHook("cache", func(context.Context) error { return c.backend.Close() })
	}
	if c.store != nil {
		shutdown.RegisterHook("store", func(context.Context) error { return c.store.Close() })
	}

	if err := srv.Listen(); err != nil {
		shutdown.Shutdown()
		return err
	}
	e.logger.Info("metadata API listening",
		zap.String("addr", srv.Addr()),
		zap.Bool("records", c.store != nil),
		zap.String("cache", e.cfg.Cache.Backend),
		zap.Bool("auth", c.auth != nil),
		zap.Int("types", len(e.catalog.Types.Names())),
	)

	return shutdown.Run(ctx)
}
