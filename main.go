package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"storyboard-app/config"
	"storyboard-app/database"
	generateapi "storyboard-app/internal/api/generate"
	storiesapi "storyboard-app/internal/api/stories"
	routes "storyboard-app/internal/app/http"
	"storyboard-app/internal/app/http/middleware"
	"storyboard-app/internal/imagegen"
	"storyboard-app/internal/infra/replicate"
	"storyboard-app/internal/infra/supabase"
	"storyboard-app/internal/logger"
	"storyboard-app/internal/repository"
	"storyboard-app/internal/service/orchestrator"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Encoding:    cfg.Logger.Encoding,
		OutputPaths: cfg.Logger.Output,
		Service:     "storyboard-api",
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := newRepository(cfg, zl)
	if err != nil {
		zl.Fatal("store init failed", zap.Error(err))
	}
	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		zl.Fatal("auth init failed", zap.Error(err))
	}
	gen, err := newGenerator(cfg)
	if err != nil {
		zl.Fatal("image generator init failed", zap.Error(err))
	}

	orch := orchestrator.New(repo, gen,
		orchestrator.NewRatePacer(cfg.ImageGen.Interval, cfg.ImageGen.Burst),
		zl,
		orchestrator.Options{DefaultStyle: cfg.DefaultStyle},
	)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.GinZapLogger(zl))
	r.Use(gin.Recovery())
	ginprometheus.NewPrometheus("gin").Use(r)
	r.Use(cors.New(corsConfig(cfg.CORSOrigin)))

	routes.RegisterRoutes(r, routes.Deps{
		Stories:  storiesapi.NewHandler(orch, zl),
		Generate: generateapi.NewHandler(orch, zl),
		Verifier: verifier,
		Logger:   zl,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.StoreDriver),
			zap.String("auth", cfg.Auth.Mode),
			zap.String("images", cfg.ImageGen.Provider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newRepository(cfg *config.Config, zl *zap.Logger) (repository.Repository, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		zl.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemory(), nil
	}
	db, err := database.InitDB(cfg.DBURL, zl)
	if err != nil {
		return nil, err
	}
	return repository.NewGorm(db), nil
}

func newVerifier(ctx context.Context, cfg *config.Config) (middleware.Verifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeSupabase:
		client, err := supabase.NewAuthClient(supabase.Config{
			URL:     cfg.Auth.SupabaseURL,
			AnonKey: cfg.Auth.SupabaseAnonKey,
			Timeout: cfg.Auth.VerifyHTTPTimeout,
		})
		if err != nil {
			return nil, err
		}
		return middleware.NewSupabaseVerifier(client), nil
	case config.AuthModeOIDC:
		return middleware.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuerURL, cfg.Auth.OIDCClientID)
	default:
		return middleware.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTAudience), nil
	}
}

func newGenerator(cfg *config.Config) (imagegen.Generator, error) {
	if cfg.ImageGen.Provider == config.ImageProviderPlaceholder {
		return imagegen.Placeholder{Label: "Storyboard"}, nil
	}
	client, err := replicate.New(replicate.Config{
		APIToken: cfg.Replicate.APIToken,
		Model:    cfg.Replicate.Model,
		BaseURL:  cfg.Replicate.BaseURL,
		Timeout:  cfg.Replicate.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func corsConfig(origin string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if origin == "" || origin == "*" {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = []string{origin}
	c.AllowCredentials = true
	return c
}
