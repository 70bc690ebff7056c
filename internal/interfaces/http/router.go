package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/StockLedger-api/internal/application/auth"
	"github.com/jhoicas/StockLedger-api/internal/application/directory"
	"github.com/jhoicas/StockLedger-api/internal/application/movements"
	"github.com/jhoicas/StockLedger-api/internal/application/restock"
	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	MovementUC  *movements.UseCase
	DirectoryUC *directory.UseCase
	RestockUC   *restock.UseCase
	AuthUC      *auth.AuthUseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	// Auth (público)
	authGroup := app.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := app.Group("/", AuthMiddleware(deps.JWTSecret))
	mdOnly := RequireRole(entity.RoleMD)

	// Libro de movimientos + directorio (protegido)
	b2b := protected.Group("/b2b")
	b2bHandler := NewB2BHandler(deps.MovementUC, deps.DirectoryUC)
	b2b.Get("/warehouses", b2bHandler.ListWarehouses)
	b2b.Get("/inventory/:warehouse", b2bHandler.ListInventory)
	b2b.Post("/transfer/warehouse", b2bHandler.WarehouseTransfer)
	b2b.Post("/transfer/customer", b2bHandler.CustomerSale)
	b2b.Post("/transfer/stockout", mdOnly, b2bHandler.Stockout)
	b2b.Get("/movements", b2bHandler.ListMovements)
	b2b.Get("/movements/summary", b2bHandler.Summary)
	b2b.Get("/movements/export", b2bHandler.Export)
	b2b.Get("/movements/:id", b2bHandler.GetMovement)

	// Compras de restock (protegido)
	restockGroup := protected.Group("/restock")
	restockHandler := NewRestockHandler(deps.RestockUC)
	restockGroup.Post("/new-item", restockHandler.NewItem)
	restockGroup.Post("/batch", restockHandler.Batch)
	restockGroup.Post("/price-bulk-update", mdOnly, restockHandler.BulkUpdatePrices)
	restockGroup.Delete("/delete-by-id-date", mdOnly, restockHandler.DeleteByIDAndDate)
	restockGroup.Get("/history/range", restockHandler.HistoryRange)
}
