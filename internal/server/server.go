package server

import (
	"log/slog"
	"strings"

	"gestion-backend/internal/admin"
	"gestion-backend/internal/audit"
	"gestion-backend/internal/auth"
	"gestion-backend/internal/catalogue"
	"gestion-backend/internal/commandes"
	"gestion-backend/internal/config"
	"gestion-backend/internal/dashboard"
	"gestion-backend/internal/freshness"
	"gestion-backend/internal/gateway"
	"gestion-backend/internal/livraisons"
	"gestion-backend/internal/logging"
	"gestion-backend/internal/models"
	"gestion-backend/internal/observability"
	"gestion-backend/internal/paiements"
	"gestion-backend/internal/reports"
	"gestion-backend/internal/tiers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const genericError = "Échec du chargement des données"

// NewApp monte le middleware et toutes les routes. metrics peut être nil.
func NewApp(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, guard *freshness.Guard) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			logger.Error("erreur inattendue", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": genericError,
			})
		},
	})

	app.Use(recover.New())
	app.Use(logging.RequestID())
	app.Use(logging.Middleware(logger))
	if metrics != nil {
		app.Use(metrics.Middleware())
	}

	// origines séparées par des virgules
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(corsOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		ExposeHeaders: freshness.HeaderGeneration + ", Content-Disposition",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if metrics != nil {
		app.Get("/metrics", metrics.Handler())
	}

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))
	protected.Use(auth.RequireRole(models.RoleAdmin, models.RoleGestionnaire))

	protected.Get("/auth/me", auth.MeHandler())

	// Lecture générique
	protected.Get("/query/:table", gateway.QueryHandler())

	// Tableau de bord et relevés
	protected.Get("/dashboard", dashboard.DashboardHandler(cfg, guard, metrics))
	protected.Get("/reports/clients/:id", reports.ClientReportHandler(guard, metrics))
	protected.Get("/reports/clients/:id/export", reports.ClientReportExportHandler(guard, metrics))
	protected.Get("/reports/fournisseurs/:id", reports.SupplierReportHandler(guard, metrics))
	protected.Get("/reports/fournisseurs/:id/export", reports.SupplierReportExportHandler(guard, metrics))

	// Clients
	protected.Post("/clients", tiers.CreateClientHandler())
	protected.Get("/clients", tiers.ListClientsHandler())
	protected.Get("/clients/:id", tiers.GetClientHandler())
	protected.Put("/clients/:id", tiers.UpdateClientHandler())
	protected.Delete("/clients/:id", tiers.DeleteClientHandler())

	// Fournisseurs
	protected.Post("/fournisseurs", tiers.CreateFournisseurHandler())
	protected.Get("/fournisseurs", tiers.ListFournisseursHandler())
	protected.Get("/fournisseurs/:id", tiers.GetFournisseurHandler())
	protected.Put("/fournisseurs/:id", tiers.UpdateFournisseurHandler())
	protected.Delete("/fournisseurs/:id", tiers.DeleteFournisseurHandler())

	// Chauffeurs
	protected.Post("/chauffeurs", tiers.CreateChauffeurHandler())
	protected.Get("/chauffeurs", tiers.ListChauffeursHandler())
	protected.Get("/chauffeurs/:id", tiers.GetChauffeurHandler())
	protected.Put("/chauffeurs/:id", tiers.UpdateChauffeurHandler())
	protected.Delete("/chauffeurs/:id", tiers.DeleteChauffeurHandler())

	// Produits
	protected.Post("/produits", catalogue.CreateProduitHandler())
	protected.Post("/produits/import", catalogue.ImportProduitsHandler())
	protected.Get("/produits", catalogue.ListProduitsHandler())
	protected.Get("/produits/:id", catalogue.GetProduitHandler())
	protected.Put("/produits/:id", catalogue.UpdateProduitHandler())
	protected.Delete("/produits/:id", catalogue.DeleteProduitHandler())

	// Bons de commande
	protected.Post("/bons-commande", commandes.CreateBonCommandeHandler())
	protected.Get("/bons-commande", commandes.ListBonsCommandeHandler())
	protected.Get("/bons-commande/:id", commandes.GetBonCommandeHandler())
	protected.Put("/bons-commande/:id", commandes.UpdateBonCommandeHandler())
	protected.Delete("/bons-commande/:id", commandes.DeleteBonCommandeHandler())

	// Bons de livraison
	protected.Post("/bons-livraison", livraisons.CreateBonLivraisonHandler())
	protected.Get("/bons-livraison", livraisons.ListBonsLivraisonHandler())
	protected.Get("/bons-livraison/:id", livraisons.GetBonLivraisonHandler())
	protected.Put("/bons-livraison/:id", livraisons.UpdateBonLivraisonHandler())
	protected.Delete("/bons-livraison/:id", livraisons.DeleteBonLivraisonHandler())

	// Paiements
	protected.Post("/paiements-clients", paiements.CreatePaiementClientHandler())
	protected.Get("/paiements-clients", paiements.ListPaiementsClientsHandler())
	protected.Get("/paiements-clients/:id", paiements.GetPaiementClientHandler())
	protected.Put("/paiements-clients/:id", paiements.UpdatePaiementClientHandler())
	protected.Delete("/paiements-clients/:id", paiements.DeletePaiementClientHandler())

	protected.Post("/paiements-fournisseurs", paiements.CreatePaiementFournisseurHandler())
	protected.Get("/paiements-fournisseurs", paiements.ListPaiementsFournisseursHandler())
	protected.Get("/paiements-fournisseurs/:id", paiements.GetPaiementFournisseurHandler())
	protected.Put("/paiements-fournisseurs/:id", paiements.UpdatePaiementFournisseurHandler())
	protected.Delete("/paiements-fournisseurs/:id", paiements.DeletePaiementFournisseurHandler())

	// Journal d'audit
	adminOnly := auth.RequireRole(models.RoleAdmin)
	protected.Get("/audit-logs", adminOnly, audit.ListAuditLogsHandler())
	protected.Post("/audit-logs/:id/undo", adminOnly, audit.UndoAuditLogHandler())

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(adminOnly)

	adminRoutes.Post("/users", auth.CreateUserHandler())
	adminRoutes.Get("/users", admin.ListUsersHandler())
	adminRoutes.Put("/users/:id", admin.UpdateUserHandler())
	adminRoutes.Delete("/users/:id", admin.DeleteUserHandler())

	return app
}
