package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	candidateshandler "github.com/wundergunder/gunderats/domains/candidates/be/handler"
	candidatesrepo "github.com/wundergunder/gunderats/domains/candidates/be/repo"
	candidatesservice "github.com/wundergunder/gunderats/domains/candidates/be/service"
	companieshandler "github.com/wundergunder/gunderats/domains/companies/be/handler"
	companiesrepo "github.com/wundergunder/gunderats/domains/companies/be/repo"
	companiesservice "github.com/wundergunder/gunderats/domains/companies/be/service"
	documentshandler "github.com/wundergunder/gunderats/domains/documents/be/handler"
	documentsrepo "github.com/wundergunder/gunderats/domains/documents/be/repo"
	documentsservice "github.com/wundergunder/gunderats/domains/documents/be/service"
	jobshandler "github.com/wundergunder/gunderats/domains/jobs/be/handler"
	jobsrepo "github.com/wundergunder/gunderats/domains/jobs/be/repo"
	jobsservice "github.com/wundergunder/gunderats/domains/jobs/be/service"
	pipelinehandler "github.com/wundergunder/gunderats/domains/pipeline/be/handler"
	pipelinerepo "github.com/wundergunder/gunderats/domains/pipeline/be/repo"
	pipelineservice "github.com/wundergunder/gunderats/domains/pipeline/be/service"
	platformauth "github.com/wundergunder/gunderats/platform/go/auth"
	platformlogging "github.com/wundergunder/gunderats/platform/go/logging"
	platformmiddleware "github.com/wundergunder/gunderats/platform/go/middleware"
	"github.com/wundergunder/gunderats/platform/go/persistence"
	"github.com/wundergunder/gunderats/platform/go/session"
	platformstorage "github.com/wundergunder/gunderats/platform/go/storage"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	BootstrapSchema bool          `env:"BOOTSTRAP_SCHEMA" envDefault:"false"`
	AuthProvider    string        `env:"AUTH_PROVIDER" envDefault:"firebase"`
	FirebaseCreds   string        `env:"FIREBASE_CREDENTIALS_FILE"`
	SessionCacheTTL time.Duration `env:"SESSION_CACHE_TTL" envDefault:"1m"`
	StorageBackend  string        `env:"STORAGE_BACKEND" envDefault:"gcs"`               // gcs | local
	StorageBucket   string        `env:"STORAGE_BUCKET"`                                 // required when STORAGE_BACKEND=gcs
	StorageLocalDir string        `env:"STORAGE_LOCAL_DIR" envDefault:"./.data/storage"` // used when STORAGE_BACKEND=local
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	if cfg.BootstrapSchema {
		if err := persistence.Bootstrap(ctx, pool); err != nil {
			logger.Fatal("bootstrap schema", zap.Error(err))
		}
		logger.Info("database schema applied")
	}

	companyStore, err := persistence.NewCompanyStore(pool)
	if err != nil {
		logger.Fatal("init company store", zap.Error(err))
	}
	memberStore, err := persistence.NewTeamMemberStore(pool)
	if err != nil {
		logger.Fatal("init team member store", zap.Error(err))
	}
	stageStore, err := persistence.NewStageStore(pool)
	if err != nil {
		logger.Fatal("init stage store", zap.Error(err))
	}
	jobStore, err := persistence.NewJobStore(pool)
	if err != nil {
		logger.Fatal("init job store", zap.Error(err))
	}
	candidateStore, err := persistence.NewCandidateStore(pool)
	if err != nil {
		logger.Fatal("init candidate store", zap.Error(err))
	}
	commentStore, err := persistence.NewCommentStore(pool)
	if err != nil {
		logger.Fatal("init comment store", zap.Error(err))
	}
	documentStore, err := persistence.NewDocumentStore(pool)
	if err != nil {
		logger.Fatal("init document store", zap.Error(err))
	}

	var blobs platformstorage.BlobStore
	switch cfg.StorageBackend {
	case "gcs":
		if cfg.StorageBucket == "" {
			logger.Fatal("storage bucket required when STORAGE_BACKEND=gcs")
		}
		gcsClient, err := gcstorage.NewClient(ctx)
		if err != nil {
			logger.Fatal("init gcs client", zap.Error(err))
		}
		defer gcsClient.Close()
		blobs = platformstorage.NewGCSBlobStore(gcsClient, cfg.StorageBucket)
	case "local":
		if strings.TrimSpace(cfg.StorageLocalDir) == "" {
			logger.Fatal("storage local dir required when STORAGE_BACKEND=local")
		}
		localStore, err := platformstorage.NewLocalBlobStore(cfg.StorageLocalDir)
		if err != nil {
			logger.Fatal("init local blob store", zap.Error(err))
		}
		blobs = localStore
	default:
		logger.Fatal("invalid STORAGE_BACKEND (use gcs or local)", zap.String("backend", cfg.StorageBackend))
	}

	companiesRepo := companiesrepo.NewPostgresRepository(pool, companyStore, memberStore, stageStore)
	companiesService := companiesservice.New(companiesRepo)
	companiesHTTPHandler := companieshandler.New(companiesService, logger)

	pipelineRepo := pipelinerepo.NewPostgresRepository(stageStore)
	pipelineService := pipelineservice.New(pipelineRepo)
	pipelineHTTPHandler := pipelinehandler.New(pipelineService, logger)

	jobsRepo := jobsrepo.NewPostgresRepository(jobStore)
	jobsService := jobsservice.New(jobsRepo)
	jobsHTTPHandler := jobshandler.New(jobsService, logger)

	candidatesRepo := candidatesrepo.NewPostgresRepository(candidateStore, commentStore)
	candidatesService := candidatesservice.New(
		candidatesRepo,
		candidatesrepo.NewJobGateway(jobStore),
		candidatesrepo.NewStageGateway(stageStore),
	)
	candidatesHTTPHandler := candidateshandler.New(candidatesService, logger)

	documentsRepo := documentsrepo.NewPostgresRepository(documentStore)
	documentsService := documentsservice.New(
		documentsRepo,
		blobs,
		documentsrepo.NewCandidateGateway(candidateStore),
		logger,
	)
	documentsHTTPHandler := documentshandler.New(documentsService, logger)

	authMiddleware := buildAuthMiddleware(ctx, cfg, logger)

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	apiRouter := chi.NewRouter()
	apiRouter.Use(authMiddleware)
	apiRouter.Use(platformauth.RequireUser())

	// Signup and the company selector work before any session exists.
	apiRouter.Group(companiesHTTPHandler.AccountRoutes)

	// Everything company-scoped runs behind session resolution.
	apiRouter.Group(func(r chi.Router) {
		r.Use(session.Middleware(companiesService, session.Config{CacheTTL: cfg.SessionCacheTTL}))
		companiesHTTPHandler.Routes(r)
		pipelineHTTPHandler.Routes(r)
		jobsHTTPHandler.Routes(r)
		candidatesHTTPHandler.Routes(r)
		documentsHTTPHandler.Routes(r)
	})

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
