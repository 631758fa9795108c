package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/knoxfield/corpusflow/internal/app"
	"github.com/knoxfield/corpusflow/internal/data/db"
	"github.com/knoxfield/corpusflow/internal/data/graph"
	"github.com/knoxfield/corpusflow/internal/data/repos"
	"github.com/knoxfield/corpusflow/internal/ingestion/coordinator"
	"github.com/knoxfield/corpusflow/internal/ingestion/dispatch"
	"github.com/knoxfield/corpusflow/internal/ingestion/handlers"
	"github.com/knoxfield/corpusflow/internal/ingestion/normalize"
	"github.com/knoxfield/corpusflow/internal/observability"
	"github.com/knoxfield/corpusflow/internal/platform/gcp"
	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/platform/redislock"
	"github.com/knoxfield/corpusflow/internal/server"
	"github.com/knoxfield/corpusflow/internal/transport/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Fatal("Could not load config", "error", err)
	}

	shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "corpusflow-coordinator",
		Environment: os.Getenv("DEPLOY_ENV"),
	})
	defer func() { _ = shutdownOtel(context.Background()) }()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	recordRepo := repos.NewRecordRepo(thePG, log)

	// Relationship graph (optional)
	graphStore, err := graph.NewFromEnv(log)
	if err != nil {
		log.Fatal("Could not init graph store", "error", err)
	}
	if graphStore != nil {
		defer graphStore.Close(context.Background())
	}

	// Origin bucket (optional)
	bucket, err := gcp.NewBucket(log, cfg.OriginBucket)
	if err != nil {
		log.Fatal("Could not init origin bucket", "error", err)
	}

	// Extraction clients
	visionClient, err := gcp.NewVision(log)
	if err != nil {
		log.Warn("Vision client unavailable, OCR handlers degraded", "error", err)
	}
	docClient, err := gcp.NewDocument(log)
	if err != nil {
		log.Warn("Document AI client unavailable, structured handlers degraded", "error", err)
	}

	dispatcher := dispatch.New(dispatch.Handlers{
		Office:        handlers.NewOfficeHandler(docClient, log),
		Web:           handlers.NewWebHandler(log),
		PlainText:     handlers.NewPlainTextHandler(log),
		Delimited:     handlers.NewDelimitedHandler(log),
		TableSnapshot: handlers.NewTableSnapshotHandler(log),
		Image:         handlers.NewImageHandler(visionClient, log),
		StructuredPDF: handlers.NewStructuredPDFHandler(docClient, log),
		OCRPDF:        handlers.NewOCRPDFHandler(visionClient, log),
	}, dispatch.NewPageSampler(cfg.PDFSamplePages, cfg.PDFMinTextChars, log), cfg.PDFOCRThreshold, log)

	// Best-effort fingerprint lease
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lease := redislock.New(rdb, cfg.FingerprintLeaseTTL, log)

	coord := coordinator.New(coordinator.Deps{
		Repo:           recordRepo,
		Graph:          graphStore,
		Bucket:         bucket,
		Lease:          lease,
		Dispatcher:     dispatcher,
		Normalize:      normalize.Canonical,
		ReconcileTypes: cfg.ReconcileTypes,
		Log:            log,
	})

	// Admin surface
	adminRouter := server.NewAdminRouter(recordRepo, log)
	go func() {
		if err := adminRouter.Run(cfg.AdminAddr); err != nil {
			log.Error("admin server stopped", "error", err)
		}
	}()

	// Transport worker
	srv := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
	})
	processor := worker.NewProcessor(coord, log)

	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()

	log.Info("coordinator worker starting",
		"concurrency", cfg.WorkerConcurrency, "admin_addr", cfg.AdminAddr)
	if err := srv.Run(processor.Handler()); err != nil {
		log.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}
