package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gahimbaref/Rentema-sub002/internal/api"
	"github.com/gahimbaref/Rentema-sub002/internal/cache"
	"github.com/gahimbaref/Rentema-sub002/internal/config"
	"github.com/gahimbaref/Rentema-sub002/internal/db"
	"github.com/gahimbaref/Rentema-sub002/internal/email"
	"github.com/gahimbaref/Rentema-sub002/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mongoClient, mongoDb, err := db.Connect(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Disconnect(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(indexCtx, mongoDb); err != nil {
		cancelIndex()
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
	cancelIndex()

	redisClient, err := cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.Disconnect(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Email sender: Redis-backed mock in test environments, SMTP otherwise,
	// optionally teeing to a file.
	var primarySender email.Sender
	if os.Getenv("MOCK_SERVICES") == "true" {
		log.Println("MOCK_SERVICES enabled: Using Redis email sender.")
		primarySender = email.NewRedisSender(redisClient, cfg)
	} else {
		primarySender = email.NewSMTPSender(cfg)
	}
	compositeSender := email.NewCompositeSender(primarySender)
	if logEmailsPath := os.Getenv("LOG_EMAILS"); logEmailsPath != "" {
		fileSender, err := email.NewFileSender(logEmailsPath)
		if err != nil {
			log.Printf("WARNING: Failed to initialize file email sender (LOG_EMAILS=%q): %v", logEmailsPath, err)
		} else {
			compositeSender.AddSender(fileSender)
		}
	}
	emailSender := email.Sender(compositeSender)

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()

	svcs, err := api.NewServices(cfg, mongoDb, nil)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// The notifier needs the services and the services need the notifier;
	// rebuild the workflow-facing services with the real notifier wired in.
	notifier := tasks.NewNotifier(cfg, taskClient, svcs.Property, svcs.Question)
	svcs, err = api.NewServices(cfg, mongoDb, notifier)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	taskProcessor := tasks.NewTaskProcessor(cfg, mongoDb, emailSender, svcs.Template, svcs.Property, svcs.Booking, svcs.Storage.Client())

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	serviceRouter := api.SetupServiceRouter(cfg, redisClient, svcs.Inquiry, shutdownChan)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: serviceRouter,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Service API listening on :%s", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
	}()

	var mainApiSrv *http.Server
	var backgroundTaskSrv *asynq.Server
	var scheduler *asynq.Scheduler

	apiMode := func() {
		mainApiRouter := api.SetupRouter(cfg, svcs, taskClient)
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: mainApiRouter,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("Main API listening on :%s", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
		}()
	}

	bgMode := func() {
		backgroundTaskSrv = tasks.SetupServer(redisClient, taskProcessor)
		scheduler = tasks.SetupScheduler(redisClient)
	}

	log.Printf("Starting in %q mode...", cfg.RunMode)
	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		log.Fatalf("Invalid run mode: %s", cfg.RunMode)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("Received signal: %s. Shutting down gracefully...", sig)
	case <-shutdownChan:
		log.Println("Shutdown requested via Service API. Shutting down gracefully...")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Service API server shutdown error: %v", err)
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API server shutdown error: %v", err)
		}
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}
	if backgroundTaskSrv != nil {
		backgroundTaskSrv.Shutdown()
	}

	wg.Wait()
	log.Println("Server gracefully stopped")
}
