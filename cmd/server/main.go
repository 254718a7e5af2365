package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apiHandler "github.com/taskyard/backend/api/handler"
	"github.com/taskyard/backend/internal/config"
	"github.com/taskyard/backend/internal/infrastructure/filestore"
	"github.com/taskyard/backend/internal/infrastructure/monitor"
	"github.com/taskyard/backend/internal/infrastructure/outbox"
	pgInfra "github.com/taskyard/backend/internal/infrastructure/postgres"
	redisInfra "github.com/taskyard/backend/internal/infrastructure/redis"
	"github.com/taskyard/backend/internal/middleware"
	"github.com/taskyard/backend/internal/notify"
	"github.com/taskyard/backend/internal/router"
	"github.com/taskyard/backend/internal/services"
	"github.com/taskyard/backend/internal/services/lifecycle"
	"github.com/taskyard/backend/pkg/httpcontext"
	"github.com/taskyard/backend/pkg/logger"
	"github.com/taskyard/backend/repository/postgres"
	redisRepo "github.com/taskyard/backend/repository/redis"
	accessUC "github.com/taskyard/backend/usecase/access"
	authUC "github.com/taskyard/backend/usecase/auth"
	commentUC "github.com/taskyard/backend/usecase/comment"
	profileUC "github.com/taskyard/backend/usecase/profile"
	taskUC "github.com/taskyard/backend/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	outboxStore, err := outbox.Open(cfg.Outbox.Path, "outbox")
	if err != nil {
		zapLogger.Fatal("failed to open notification outbox", zap.Error(err))
	}
	manager.Register("outbox", func(ctx context.Context) error {
		return outboxStore.Close()
	})

	attachmentStore, err := filestore.New(cfg.Todo.AttachmentDir)
	if err != nil {
		zapLogger.Fatal("failed to prepare attachment directory", zap.Error(err))
	}

	mon := monitor.New(pool, redisClient, outboxStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	mailer, err := notify.NewMailer(cfg.SMTP, zapLogger)
	if err != nil {
		zapLogger.Fatal("mailer setup failed", zap.Error(err))
	}

	outboxProcessor := services.NewOutboxProcessor(
		outboxStore,
		mailer,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Outbox.SyncInterval,
			BatchSize:  50,
			MaxRetries: cfg.Outbox.MaxRetry,
			Retention:  cfg.Outbox.Retention,
		},
	)
	outboxProcessor.Start()
	manager.Register("outbox_processor", func(ctx context.Context) error {
		outboxProcessor.Stop(ctx)
		return nil
	})

	notifier := services.NewNotifyBridge(outboxProcessor)

	userRepo := postgres.NewUserRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	listRepo := postgres.NewTaskListRepository(pool)
	commentRepo := postgres.NewCommentRepository(pool)
	attachmentRepo := postgres.NewAttachmentRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, 24*time.Hour)

	accessSvc := accessUC.New(listRepo, cfg.Todo.StaffOnly, zapLogger)
	authUseCase := authUC.New(userRepo, sessionRepo, zapLogger)
	profileUseCase := profileUC.New(userRepo, zapLogger)
	taskService := taskUC.New(taskRepo, accessSvc, cfg.Todo.MergeEnabled, zapLogger)
	commentService := commentUC.New(
		commentRepo,
		attachmentStore,
		notifier,
		commentUC.Policy{
			MaxBodyLength:      cfg.Todo.MaxCommentLength,
			AttachmentsEnabled: cfg.Todo.AttachmentsEnabled,
			MaxAttachmentSize:  cfg.Todo.MaxAttachmentSize,
			AllowedExtensions:  cfg.Todo.AllowedExtensions,
		},
		zapLogger,
	)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:    apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger, time.Hour),
		Profile: apiHandler.NewProfileHandler(profileUseCase, ctxAdapter, zapLogger),
		Task: apiHandler.NewTaskHandler(
			taskService,
			commentService,
			accessSvc,
			userRepo,
			attachmentRepo,
			attachmentStore,
			ctxAdapter,
			zapLogger,
		),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	rateLimited := middleware.RateLimit(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst)(r.Handler)

	server := &fasthttp.Server{
		Handler:            rateLimited,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		MaxRequestBodySize: cfg.HTTP.MaxBodyBytes,
		Name:               cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
