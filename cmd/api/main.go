package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pmohq/pmo-api/internal/audit"
	"github.com/pmohq/pmo-api/internal/auth"
	"github.com/pmohq/pmo-api/internal/config"
	"github.com/pmohq/pmo-api/internal/google"
	"github.com/pmohq/pmo-api/internal/httpapi"
	"github.com/pmohq/pmo-api/internal/migrate"
	"github.com/pmohq/pmo-api/internal/obs"
	"github.com/pmohq/pmo-api/migrations"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	log, err := obs.NewLogger(obs.LogConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		store auth.Store
		db    *sql.DB
	)
	if cfg.PGDSN != "" {
		pg, err := auth.OpenPG(cfg.PGDSN)
		if err != nil {
			log.Fatal("open db", zap.Error(err))
		}
		defer pg.Close()
		store = pg
		db = pg.DB()

		if cfg.AutoMigrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := migrate.NewRunner(db, migrations.FS).Up(ctx); err != nil {
				cancel()
				log.Fatal("migrate", zap.Error(err))
			}
			cancel()
		}
	} else {
		// No DSN configured: run against the in-memory store for local
		// development.
		log.Warn("PMO_PG_DSN not set, using in-memory store")
		store = auth.NewMemStore()
	}

	tokens, err := auth.NewTokenIssuer(cfg.AuthSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatal("token issuer", zap.Error(err))
	}

	svc, err := auth.NewService(store, tokens,
		auth.WithLockoutPolicy(auth.NewLockoutPolicy(cfg.LockoutThreshold, cfg.LockoutDuration)),
		auth.WithAllowedDomains(cfg.AllowedDomains),
		auth.WithDefaultRole(cfg.DefaultRole),
		auth.WithLogger(log.Named("auth")),
		auth.WithMetrics(obs.AuthCollector{}),
	)
	if err != nil {
		log.Fatal("auth service", zap.Error(err))
	}

	api := httpapi.New(httpapi.Options{
		Auth:        svc,
		Verifier:    google.NewVerifier(cfg.GoogleClientID),
		OAuth:       google.NewOAuthExchanger(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
		Auditor:     audit.NewAuditor(log),
		Logger:      log.Named("http"),
		ReadyProbe:  httpapi.ReadyProbe{DB: db},
		FrontendURL: cfg.FrontendURL,
		Version:     version,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("starting pmo-api", zap.String("version", version), zap.String("addr", srv.Addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("stopped")
}
