package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-service/config"
	"pos-service/internal/api"
	"pos-service/internal/broker"
	"pos-service/internal/receipt"
	"pos-service/internal/redisclient"
	"pos-service/internal/service"
	"pos-service/internal/store"
	"pos-service/internal/util"
	"pos-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting pos service")

	tp, err := util.InitTracer("pos-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)
	renderer := receipt.NewRenderer(receipt.Config{
		Dir:       cfg.Receipts.Dir,
		StoreName: cfg.Receipts.StoreName,
		StoreAddr: cfg.Receipts.StoreAddr,
	})

	inventory := service.NewInventory(db, redisClient)
	sales := service.NewSaleRecorder(db, inventory, eventPublisher)
	debts := service.NewDebtLedger(db, redisClient, inventory, sales, eventPublisher)
	reports := service.NewReporter(db)
	auth := service.NewAuth(db, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	ctx := context.Background()
	if err := inventory.SyncStockToRedis(ctx); err != nil {
		log.Printf("Failed to sync stock to Redis: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	receiptConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales, cfg.Kafka.ConsumerGroup)
	receiptWorker := worker.NewReceiptWorker(receiptConsumer, db, renderer)
	go func() {
		if err := receiptWorker.Start(workerCtx); err != nil {
			log.Printf("Receipt worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(inventory, sales, debts, reports, auth, db, renderer,
		cfg.Receipts.Dir, cfg.Uploads.Dir, cfg.Business.LowStockThreshold)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	receiptWorker.Stop()

	log.Println("Server exited")
}
