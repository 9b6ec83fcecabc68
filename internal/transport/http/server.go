package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"familycalls/internal/cache"
	"familycalls/internal/config"
	"familycalls/internal/database"
	"familycalls/internal/handler"
	"familycalls/internal/queue"
	"familycalls/internal/realtime"
	appredis "familycalls/internal/redis"
	"familycalls/internal/repository"
	"familycalls/internal/service"
	"familycalls/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// 3. Connect to Redis (signal stream, live pub/sub, handled-event log)
	rdb, err := appredis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rdb.Close()
	if err := rdb.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Println("Connected to Redis successfully")

	// 4. Optional external services. Push and media degrade to disabled
	// rather than failing startup: calls and messages still work without
	// them, the family just has to have the app open.
	var pusher worker.Pusher
	if cfg.FirebaseProjectID != "" {
		fcm, err := service.NewFCMClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseClientEmail, cfg.FirebasePrivateKey)
		if err != nil {
			log.Printf("[Startup] FCM init FAILED, push dispatch disabled: %v", err)
		} else {
			pusher = fcm
			log.Println("[Startup] FCM client ready")
		}
	} else {
		log.Println("[Startup] FCM not configured, push dispatch disabled")
	}

	var media *service.MediaService
	if cfg.R2AccountID != "" {
		media, err = service.NewMediaService(ctx, cfg)
		if err != nil {
			log.Printf("[Startup] R2 init FAILED, media endpoints disabled: %v", err)
			media = nil
		} else {
			log.Println("[Startup] R2 media storage ready")
		}
	} else {
		log.Println("[Startup] R2 not configured, media endpoints disabled")
	}

	// 5. Repositories
	userRepo := repository.NewUserRepository(db)
	callRepo := repository.NewCallRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	tokenRepo := repository.NewDeviceTokenRepository(db)

	// 6. Queue, realtime, and dedup infrastructure
	publisher := queue.NewPublisher(rdb.Client)
	consumer := queue.NewConsumer(rdb.Client)
	seenLog := cache.NewSeenLog(rdb.Client)
	broadcaster := realtime.NewBroadcaster(rdb.Client)
	hub := realtime.NewHub(rdb.Client, messageRepo)

	// 7. Services
	directoryService := service.NewDirectoryService(userRepo)
	callService := service.NewCallService(callRepo, userRepo, publisher, broadcaster)
	messageService := service.NewMessageService(messageRepo, userRepo, publisher, broadcaster)

	// 8. Dispatch workers draining the signal stream into pushes
	dispatchHandler := worker.NewHandler(tokenRepo, userRepo, messageRepo, seenLog, pusher)
	manager := worker.NewManager(consumer, dispatchHandler, worker.ManagerConfig{
		WorkerCount: cfg.DispatchWorkers,
	})
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dispatch workers: %w", err)
	}
	defer manager.Stop()

	// 9. HTTP surface
	router := NewRouter(RouterConfig{
		DirectoryHandler: handler.NewDirectoryHandler(directoryService, media),
		CallHandler:      handler.NewCallHandler(callService),
		MessageHandler:   handler.NewMessageHandler(messageService),
		TokenHandler:     handler.NewTokenHandler(tokenRepo),
		MediaHandler:     handler.NewMediaHandler(media),
		WSHandler:        handler.NewWSHandler(hub),
		DeviceResolver:   directoryService,
	})

	srv := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
