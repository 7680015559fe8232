package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-contracts/internal/config"
	"github.com/ignatzorin/freelance-contracts/internal/db"
	httpHandlers "github.com/ignatzorin/freelance-contracts/internal/http/handlers"
	httpRouter "github.com/ignatzorin/freelance-contracts/internal/http/router"
	"github.com/ignatzorin/freelance-contracts/internal/logger"
	"github.com/ignatzorin/freelance-contracts/internal/repository"
	"github.com/ignatzorin/freelance-contracts/internal/service"
	"github.com/ignatzorin/freelance-contracts/internal/storage"
	"github.com/ignatzorin/freelance-contracts/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	archiver := storage.NewDeliverableArchiver(cfg.ArchiveFileTimeout, cfg.MaxArchiveFileMB)

	// Репозитории.
	contractRepo := repository.NewContractRepository(dbConn)
	ledgerRepo := repository.NewLedgerRepository(dbConn)
	walletRepo := repository.NewWalletRepository(dbConn)
	settlementRepo := repository.NewSettlementRepository(dbConn, contractRepo, ledgerRepo, walletRepo)
	cancellationRepo := repository.NewCancellationRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	activityRepo := repository.NewActivityRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub(ctx)
	go hub.Run()

	// Сервисы.
	activityService := service.NewActivityService(activityRepo, contractRepo)
	notificationService := service.NewNotificationService(notificationRepo, hub)
	settlementService := service.NewSettlementService(contractRepo, ledgerRepo, settlementRepo, activityService, notificationService, cfg.CommissionRate)
	cancellationService := service.NewCancellationService(contractRepo, ledgerRepo, settlementRepo, cancellationRepo, disputeRepo, activityService, notificationService, cfg.DisputeWindow)
	extensionService := service.NewExtensionService(contractRepo, activityService, notificationService)
	walletService := service.NewWalletService(walletRepo)

	// Фоновое автоподтверждение зависших сдач.
	autoApprover := service.NewAutoApprover(settlementService, contractRepo, cfg.AutoApproveAfter, cfg.AutoApproveInterval)
	autoApprover.Start(ctx)

	// HTTP хэндлеры.
	contractHandler := httpHandlers.NewContractHandler(settlementService, activityService)
	deliverableHandler := httpHandlers.NewDeliverableHandler(settlementService, archiver)
	cancellationHandler := httpHandlers.NewCancellationHandler(cancellationService)
	extensionHandler := httpHandlers.NewExtensionHandler(extensionService)
	walletHandler := httpHandlers.NewWalletHandler(walletService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, contractHandler, deliverableHandler, cancellationHandler, extensionHandler, walletHandler, notificationHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
