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

const clientScreen = "report_client"

type ClientTotalsResponse struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalPaid    float64 `json:"total_paid"`
	Balance      float64 `json:"balance"`
	Credit       float64 `json:"credit"`
	Count        int     `json:"count"`
	Margin       float64 `json:"margin"`
}

type ClientReport struct {
	Client        models.Client           `json:"client"`
	From          *string                 `json:"from"`
	To            *string                 `json:"to"`
	EffectiveFrom *string                 `json:"effective_from"`
	LastPayment   *string                 `json:"last_payment"`
	Totals        ClientTotalsResponse    `json:"totals"`
	Deliveries    []models.BonLivraison   `json:"deliveries"`
	Payments      []models.PaiementClient `json:"payments"`
	Generation    uint64                  `json:"generation"`
}

// BuildClientReport charge et agrège la situation d'un client. Avec
// sinceLastPayment, la fenêtre démarre au lendemain du dernier paiement connu.
func BuildClientReport(ctx context.Context, db *gorm.DB, clientID uint, w Window, sinceLastPayment bool) (*ClientReport, error) {
	var client models.Client
	if err := db.WithContext(ctx).First(&client, clientID).Error; err != nil {
		return nil, err
	}

	// En mode "depuis le dernier paiement" la borne basse dépend des paiements :
	// on charge sans elle puis on filtre une fois la borne connue.
	loadFrom := w.From
	if sinceLastPayment {
		loadFrom = nil
	}

	var (
		deliveries []models.BonLivraison
		allPaid    []models.PaiementClient
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		q := gateway.New().Eq("client_id", clientID).Between("date_livraison", loadFrom, w.To).
			OrderBy("date_livraison", true).OrderBy("id", true).With("Lignes.Produit", "Chauffeur")
		deliveries, err = gateway.Select[models.BonLivraison](gctx, db, q)
		return err
	})
	g.Go(func() (err error) {
		q := gateway.New().Eq("client_id", clientID).OrderBy("date_paiement", true).OrderBy("id", true)
		allPaid, err = gateway.Select[models.PaiementClient](gctx, db, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	paymentDate := func(p models.PaiementClient) time.Time { return p.DatePaiement }
	lastPayment := aggregation.LastDate(allPaid, paymentDate)
	from := aggregation.EffectiveFrom(w.From, lastPayment, sinceLastPayment)

	deliveries = aggregation.FilterByDate(deliveries, func(d models.BonLivraison) time.Time { return d.DateLivraison }, from, w.To)
	payments := aggregation.FilterByDate(allPaid, paymentDate, from, w.To)

	totals := aggregation.ComputeClientTotals(deliveries, payments)
	margin := aggregation.ComputeDeliveriesMargin(deliveries)

	return &ClientReport{
		Client:        client,
		From:          formatDate(w.From),
		To:            formatDate(w.To),
		EffectiveFrom: formatDate(from),
		LastPayment:   formatDate(lastPayment),
		Totals: ClientTotalsResponse{
			TotalRevenue: totals.TotalRevenue.InexactFloat64(),
			TotalPaid:    totals.TotalPaid.InexactFloat64(),
			Balance:      totals.Balance.InexactFloat64(),
			Credit:       totals.Credit.InexactFloat64(),
			Count:        totals.Count,
			Margin:       margin.InexactFloat64(),
		},
		Deliveries: deliveries,
		Payments:   payments,
	}, nil
}

// GET /api/reports/clients/:id?from=2024-01-01&to=2024-01-31&since_last_payment=true
func ClientReportHandler(guard *freshness.Guard, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := clientReport(c, guard, metrics)
		if err != nil {
			return err
		}
		return c.JSON(report)
	}
}

// GET /api/reports/clients/:id/export
func ClientReportExportHandler(guard *freshness.Guard, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := clientReport(c, guard, metrics)
		if err != nil {
			return err
		}
		book, err := ClientWorkbook(report)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Export impossible")
		}
		return sendWorkbook(c, book, "releve-client-"+report.Client.NumeroClient)
	}
}

func clientReport(c *fiber.Ctx, guard *freshness.Guard, metrics *observability.Metrics) (*ClientReport, error) {
	start := time.Now()
	id, err := crud.ParamID(c, "id")
	if err != nil {
		return nil, err
	}
	w, err := windowFromQuery(c)
	if err != nil {
		return nil, err
	}
	since := c.QueryBool("since_last_payment", false)

	ticket, ctx := guard.Begin(c.UserContext(), freshness.Key(auth.UserID(c), clientScreen))
	defer ticket.Done()

	report, err := BuildClientReport(ctx, database.DB, id, w, since)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "Client introuvable")
	}
	if err := finish(c, ticket, metrics, clientScreen, err); err != nil {
		return nil, err
	}
	report.Generation = ticket.Generation()
	metrics.ObserveAggregation(clientScreen, start)
	return report, nil
}
