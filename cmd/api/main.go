package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/StockLedger-api/internal/application/auth"
	"github.com/jhoicas/StockLedger-api/internal/application/directory"
	"github.com/jhoicas/StockLedger-api/internal/application/movements"
	"github.com/jhoicas/StockLedger-api/internal/application/restock"
	"github.com/jhoicas/StockLedger-api/internal/infrastructure/export"
	infrapdf "github.com/jhoicas/StockLedger-api/internal/infrastructure/pdf"
	"github.com/jhoicas/StockLedger-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/StockLedger-api/internal/interfaces/http"
	"github.com/jhoicas/StockLedger-api/pkg/config"
	"github.com/jhoicas/StockLedger-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB, cfg.Ledger.LockTimeoutMs)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)
	warehouseRepo := postgres.NewWarehouseRepository(pool)
	itemRepo := postgres.NewItemRepository(pool)
	movementRepo := postgres.NewMovementRepository(pool)
	restockRepo := postgres.NewRestockRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	exporter := export.NewExporter()
	reportPDF := infrapdf.NewMarotoReportGenerator()

	movementUC := movements.NewUseCase(
		warehouseRepo, itemRepo, movementRepo, txRunner, exporter, reportPDF,
		movements.RetryPolicy{
			Attempts: cfg.Ledger.RetryAttempts,
			Backoff:  time.Duration(cfg.Ledger.RetryBackoffMs) * time.Millisecond,
		},
	)
	directoryUC := directory.NewUseCase(warehouseRepo, itemRepo)
	restockUC := restock.NewUseCase(warehouseRepo, itemRepo, restockRepo, txRunner, exporter)
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "StockLedger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		MovementUC:  movementUC,
		DirectoryUC: directoryUC,
		RestockUC:   restockUC,
		AuthUC:      authUC,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
