package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"advisor-backend/internal/analyzer"
	"advisor-backend/internal/catalog"
	"advisor-backend/internal/engine"
	"advisor-backend/internal/recommendations"
	"advisor-backend/internal/services/health"
	"advisor-backend/internal/shared/config"
	"advisor-backend/internal/shared/server"
	"advisor-backend/internal/shared/storage/db"
	"advisor-backend/internal/shared/storage/object"
	localstore "advisor-backend/internal/shared/storage/object/local"
	s3store "advisor-backend/internal/shared/storage/object/s3"
	"advisor-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config                 config.Config
	Router                 *gin.Engine
	DB                     *sql.DB
	Dialect                db.Dialect
	Store                  object.ObjectStore
	Catalog                *catalog.Catalog
	Engine                 *engine.Engine
	RecommendationsRepo    recommendations.Repo
	RecommendationsService *recommendations.Service
	RecommendationsHandler *recommendations.Handler
	Health                 *health.Service
	logCloser              io.Closer
	shutdownTracing        func(context.Context) error
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	logCloser := telemetry.Configure(telemetry.Options{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   true,
	})

	shutdownTracing, err := telemetry.ConfigureTracing(ctx, telemetry.TracingOptions{
		Endpoint:    cfg.TracingEndpoint,
		Insecure:    cfg.TracingInsecure,
		ServiceName: "advisor-api",
		SampleRatio: cfg.TracingSampleRatio,
	})
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	sqlDB, dialect, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:          cfg,
		DB:              sqlDB,
		Dialect:         dialect,
		Store:           store,
		Catalog:         cat,
		Engine:          engine.New(analyzer.New(cat, nil)),
		logCloser:       logCloser,
		shutdownTracing: shutdownTracing,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		Recommendations: app.RecommendationsHandler,
		Health:          app.Health,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"dialect":      string(dialect),
		"object_store": cfg.ObjectStoreType,
		"catalog":      catalogSource(cfg.CatalogPath),
	})
	return app, nil
}

// Close flushes pending spans and releases the database and the log file.
func (a *App) Close() error {
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			telemetry.Warn("tracing.shutdown_failed", map[string]any{"error": err.Error()})
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return err
		}
	}
	if a.logCloser != nil {
		return a.logCloser.Close()
	}
	return nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, db.Dialect, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, dialect, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, "", nil
		}
		return nil, "", err
	}
	if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
		_ = sqlDB.Close()
		return nil, "", err
	}
	return sqlDB, dialect, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(app *App) {
	var repo recommendations.Repo
	switch {
	case app.DB != nil && app.Dialect == db.SQLite:
		repo = recommendations.NewSQLiteRepo(app.DB)
	case app.DB != nil:
		repo = &recommendations.PGRepo{DB: app.DB}
	default:
		repo = recommendations.NewMemoryRepo()
	}

	svc := &recommendations.Service{
		Engine:         app.Engine,
		Repo:           repo,
		Store:          app.Store,
		ArchiveReports: app.Config.ArchiveReports,
	}

	var pinger health.Pinger
	if app.DB != nil {
		pinger = app.DB
	}

	app.RecommendationsRepo = repo
	app.RecommendationsService = svc
	app.RecommendationsHandler = recommendations.NewHandler(svc, app.Config.MaxUploadBytes)
	app.Health = health.NewService(pinger)
}

func catalogSource(path string) string {
	if strings.TrimSpace(path) == "" {
		return "embedded"
	}
	return path
}
