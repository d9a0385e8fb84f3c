package reports

import (
	"context"
	"errors"
	"time"

	"gestion-backend/internal/aggregation"
	"gestion-backend/internal/auth"
	"gestion-backend/internal/crud"
	"gestion-backend/internal/database"
	"gestion-backend/internal/freshness"
	"gestion-backend/internal/gateway"
	"gestion-backend/internal/models"
	"gestion-backend/internal/observability"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const supplierScreen = "report_fournisseur"

type SupplierTotalsResponse struct {
	TotalOrdered float64 `json:"total_ordered"`
	TotalPaid    float64 `json:"total_paid"`
	Debt         float64 `json:"debt"`
	Credit       float64 `json:"credit"`
}

type SupplierReport struct {
	Fournisseur models.Fournisseur           `json:"fournisseur"`
	From        *string                      `json:"from"`
	To          *string                      `json:"to"`
	Totals      SupplierTotalsResponse       `json:"totals"`
	Orders      []models.BonCommande         `json:"orders"` // annulés compris, hors totaux
	Payments    []models.PaiementFournisseur `json:"payments"`
	Generation  uint64                       `json:"generation"`
}

func BuildSupplierReport(ctx context.Context, db *gorm.DB, fournisseurID uint, w Window) (*SupplierReport, error) {
	var f models.Fournisseur
	if err := db.WithContext(ctx).First(&f, fournisseurID).Error; err != nil {
		return nil, err
	}

	var (
		orders   []models.BonCommande
		payments []models.PaiementFournisseur
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		q := gateway.New().Eq("fournisseur_id", fournisseurID).Between("date_commande", w.From, w.To).
			OrderBy("date_commande", true).OrderBy("id", true).With("Client")
		orders, err = gateway.Select[models.BonCommande](gctx, db, q)
		return err
	})
	g.Go(func() (err error) {
		q := gateway.New().Eq("fournisseur_id", fournisseurID).Between("date_paiement", w.From, w.To).
			OrderBy("date_paiement", true).OrderBy("id", true)
		payments, err = gateway.Select[models.PaiementFournisseur](gctx, db, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	active := make([]models.BonCommande, 0, len(orders))
	for _, o := range orders {
		if !models.IsCancelled(o.Statut) {
			active = append(active, o)
		}
	}
	totals := aggregation.ComputeSupplierTotals(active, payments)

	return &SupplierReport{
		Fournisseur: f,
		From:        formatDate(w.From),
		To:          formatDate(w.To),
		Totals: SupplierTotalsResponse{
			TotalOrdered: totals.TotalOrdered.InexactFloat64(),
			TotalPaid:    totals.TotalPaid.InexactFloat64(),
			Debt:         totals.Debt.InexactFloat64(),
			Credit:       totals.Credit.InexactFloat64(),
		},
		Orders:   orders,
		Payments: payments,
	}, nil
}

// GET /api/reports/fournisseurs/:id?from=&to=
func SupplierReportHandler(guard *freshness.Guard, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := supplierReport(c, guard, metrics)
		if err != nil {
			return err
		}
		return c.JSON(report)
	}
}

// GET /api/reports/fournisseurs/:id/export
func SupplierReportExportHandler(guard *freshness.Guard, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := supplierReport(c, guard, metrics)
		if err != nil {
			return err
		}
		book, err := SupplierWorkbook(report)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Export impossible")
		}
		return sendWorkbook(c, book, "releve-fournisseur-"+report.Fournisseur.NumeroFournisseur)
	}
}

func supplierReport(c *fiber.Ctx, guard *freshness.Guard, metrics *observability.Metrics) (*SupplierReport, error) {
	start := time.Now()
	id, err := crud.ParamID(c, "id")
	if err != nil {
		return nil, err
	}
	w, err := windowFromQuery(c)
	if err != nil {
		return nil, err
	}

	ticket, ctx := guard.Begin(c.UserContext(), freshness.Key(auth.UserID(c), supplierScreen))
	defer ticket.Done()

	report, err := BuildSupplierReport(ctx, database.DB, id, w)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "Fournisseur introuvable")
	}
	if err := finish(c, ticket, metrics, supplierScreen, err); err != nil {
		return nil, err
	}
	report.Generation = ticket.Generation()
	metrics.ObserveAggregation(supplierScreen, start)
	return report, nil
}
