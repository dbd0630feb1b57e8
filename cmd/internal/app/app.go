// Package app wires the TechHeal server runtime: config, logging, metrics,
// database, and the HTTP route groups.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"techheal/cmd/identity"
	"techheal/cmd/internal/activity"
	"techheal/cmd/internal/assist"
	authapi "techheal/cmd/internal/auth/api"
	"techheal/cmd/internal/genai"
	"techheal/cmd/internal/migrations"
	"techheal/cmd/internal/plan"
	"techheal/cmd/internal/storage"
	"techheal/cmd/internal/upload"
	"techheal/cmd/security/token"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the TechHeal server runtime: it owns the HTTP wiring and the shared
// resources behind it.
type App struct {
	cfg     Config
	log     Logger
	metrics *Metrics

	dbPool    *pgxpool.Pool
	dbEnabled bool

	auth       *authapi.Handler
	activities *activity.Handler
	plans      *plan.Handler
	uploads    *upload.Handler
	chat       *assist.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		log:     log,
		metrics: NewMetrics(),
	}

	codec, err := token.NewCodec(token.Config{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.TokenTTL,
	})
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		log.Info("db.disabled", "note", "account and tracking routes are not served")
		return a, nil
	}

	if cfg.MigrateOnStart {
		if err := migrations.Up(ctx, cfg.DatabaseURL, cfg.DBSchema); err != nil {
			return nil, err
		}
		log.Info("db.migrations.ok")
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbPool = pool
	a.dbEnabled = true
	log.Info("db.enabled.postgres_store")

	users, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, err
	}
	activities, err := activity.NewPostgresStore(pool, activity.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, err
	}

	gate := authapi.NewGate(identity.NewResolver(codec, users))

	bucket, err := a.newBucket(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	ai := a.newAI(cfg)

	authCfg := authapi.LoadConfigFromEnv()
	var pictures authapi.ObjectStore
	if bucket != nil {
		pictures = bucket
	}
	a.auth, err = authapi.NewHandler(log, authCfg, users, codec, gate, pictures)
	if err != nil {
		pool.Close()
		return nil, err
	}

	var textAI activity.TextGenerator
	var chatAI assist.ChatGenerator
	var visionAI upload.VisionGenerator
	if ai != nil {
		textAI = ai
		chatAI = ai
		visionAI = ai
	}

	a.activities, err = activity.NewHandler(log, activities, gate, textAI)
	if err != nil {
		pool.Close()
		return nil, err
	}
	a.plans, err = plan.NewHandler(log, gate, activities, textAI)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if bucket != nil {
		a.uploads, err = upload.NewHandler(log, gate, bucket, visionAI, activities)
		if err != nil {
			pool.Close()
			return nil, err
		}
	} else {
		log.Info("storage.disabled", "note", "upload routes are not served")
	}
	a.chat, err = assist.NewHandler(log, gate, chatAI)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) newBucket(ctx context.Context, cfg Config) (*storage.Bucket, error) {
	if cfg.S3Endpoint == "" || cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		return nil, nil
	}
	return storage.NewBucket(ctx, storage.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		PublicURL: cfg.S3PublicURL,
	})
}

func (a *App) newAI(cfg Config) *genai.Client {
	if cfg.GeminiAPIKey == "" {
		a.log.Info("genai.disabled", "note", "AI features degrade to fallbacks")
		return nil
	}
	return genai.NewClient(genai.Config{
		APIKey:  cfg.GeminiAPIKey,
		Models:  cfg.GeminiModels,
		Timeout: cfg.GeminiTimeout,
	})
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a)

	handler := WithCORS(WithRequestLogging(mux, a.log, a.metrics), a.cfg.CORSAllowOrigin)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 60*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
