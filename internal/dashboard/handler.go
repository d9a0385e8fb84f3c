package dashboard

import (
	"context"
	"time"

	"gestion-backend/internal/aggregation"
	"gestion-backend/internal/auth"
	"gestion-backend/internal/config"
	"gestion-backend/internal/database"
	"gestion-backend/internal/freshness"
	"gestion-backend/internal/gateway"
	"gestion-backend/internal/models"
	"gestion-backend/internal/observability"
	"gestion-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	screen        = "dashboard"
	recentLimit   = 5
	loadFailedMsg = "Échec du chargement des données"
)

// now est remplacé dans les tests.
var now = time.Now

type Counts struct {
	Clients      int64 `json:"clients"`
	Fournisseurs int64 `json:"fournisseurs"`
	Produits     int64 `json:"produits"`
	Chauffeurs   int64 `json:"chauffeurs"`
	Livraisons   int64 `json:"livraisons"` // sur la période
	Commandes    int64 `json:"commandes"`  // sur la période
}

type RankedEntry struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

type RecentDelivery struct {
	ID              uint    `json:"id"`
	NumeroLivraison string  `json:"numero_livraison"`
	DateLivraison   string  `json:"date_livraison"`
	Statut          string  `json:"statut"`
	ClientName      string  `json:"client_name"`
	TotalHT         float64 `json:"total_ht"`
}

type Response struct {
	Period     Period  `json:"period"`
	From       *string `json:"from"`
	Generation uint64  `json:"generation"`
	Counts     Counts  `json:"counts"`

	Revenue      float64 `json:"revenue"`
	ClientsPaid  float64 `json:"clients_paid"`
	Outstanding  float64 `json:"outstanding"` // reste dû par les clients (négatif : avances)
	ClientCredit float64 `json:"client_credit"`

	SupplierOrdered float64 `json:"supplier_ordered"`
	SupplierPaid    float64 `json:"supplier_paid"`
	SupplierDebt    float64 `json:"supplier_debt"`
	SupplierCredit  float64 `json:"supplier_credit"`

	Margin float64 `json:"margin"`

	TopClients       []RankedEntry    `json:"top_clients"`
	TopSuppliers     []RankedEntry    `json:"top_suppliers"`
	RecentDeliveries []RecentDelivery `json:"recent_deliveries"`
}

// snapshot regroupe les résultats bruts des chargements parallèles.
type snapshot struct {
	counts      Counts
	deliveries  []models.BonLivraison
	orders      []models.BonCommande
	clientPay   []models.PaiementClient
	supplierPay []models.PaiementFournisseur
	recent      []models.BonLivraison
}

// GET /api/dashboard?period=day|week|month|year|all
func DashboardHandler(cfg *config.Config, guard *freshness.Guard, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		period := Period(c.Query("period", string(PeriodMonth)))
		from, err := period.Range(now())
		if err != nil {
			return err
		}

		ticket, ctx := guard.Begin(c.UserContext(), freshness.Key(auth.UserID(c), screen))
		defer ticket.Done()

		snap, err := load(ctx, database.DB, from)
		if cerr := freshness.Check(c, ticket); cerr != nil {
			metrics.Superseded(screen)
			return cerr
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, loadFailedMsg)
		}

		resp, err := build(ctx, database.DB, snap, cfg.TopN)
		if cerr := freshness.Check(c, ticket); cerr != nil {
			metrics.Superseded(screen)
			return cerr
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, loadFailedMsg)
		}

		resp.Period = period
		resp.Generation = ticket.Generation()
		if from != nil {
			s := from.Format(validation.DateLayout)
			resp.From = &s
		}

		metrics.ObserveAggregation(screen, start)
		return c.JSON(resp)
	}
}

// load lance tous les chargements en parallèle et attend qu'ils aboutissent.
func load(ctx context.Context, db *gorm.DB, from *time.Time) (*snapshot, error) {
	var snap snapshot
	g, ctx := errgroup.WithContext(ctx)

	count := func(dst *int64, fn func() (int64, error)) {
		g.Go(func() error {
			n, err := fn()
			*dst = n
			return err
		})
	}
	count(&snap.counts.Clients, func() (int64, error) { return gateway.Count[models.Client](ctx, db, nil) })
	count(&snap.counts.Fournisseurs, func() (int64, error) { return gateway.Count[models.Fournisseur](ctx, db, nil) })
	count(&snap.counts.Produits, func() (int64, error) { return gateway.Count[models.Produit](ctx, db, nil) })
	count(&snap.counts.Chauffeurs, func() (int64, error) { return gateway.Count[models.Chauffeur](ctx, db, nil) })
	count(&snap.counts.Livraisons, func() (int64, error) {
		return gateway.Count[models.BonLivraison](ctx, db, gateway.New().Scope(models.NotCancelled).Between("date_livraison", from, nil))
	})
	count(&snap.counts.Commandes, func() (int64, error) {
		return gateway.Count[models.BonCommande](ctx, db, gateway.New().Scope(models.NotCancelled).Between("date_commande", from, nil))
	})

	g.Go(func() (err error) {
		q := gateway.New().Scope(models.NotCancelled).Between("date_livraison", from, nil).
			OrderBy("date_livraison", true).OrderBy("id", true).With("Lignes.Produit")
		snap.deliveries, err = gateway.Select[models.BonLivraison](ctx, db, q)
		return err
	})
	g.Go(func() (err error) {
		q := gateway.New().Scope(models.NotCancelled).Between("date_commande", from, nil).
			OrderBy("date_commande", true).OrderBy("id", true)
		snap.orders, err = gateway.Select[models.BonCommande](ctx, db, q)
		return err
	})
	g.Go(func() (err error) {
		q := gateway.New().Between("date_paiement", from, nil)
		snap.clientPay, err = gateway.Select[models.PaiementClient](ctx, db, q)
		return err
	})
	g.Go(func() (err error) {
		q := gateway.New().Between("date_paiement", from, nil)
		snap.supplierPay, err = gateway.Select[models.PaiementFournisseur](ctx, db, q)
		return err
	})
	g.Go(func() (err error) {
		q := gateway.New().Between("date_livraison", from, nil).
			OrderBy("date_livraison", false).OrderBy("id", false).Limit(recentLimit).With("Client")
		snap.recent, err = gateway.Select[models.BonLivraison](ctx, db, q)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// build réduit le snapshot puis résout les noms du classement.
func build(ctx context.Context, db *gorm.DB, snap *snapshot, topN int) (*Response, error) {
	clients := aggregation.ComputeClientTotals(snap.deliveries, snap.clientPay)
	suppliers := aggregation.ComputeSupplierTotals(snap.orders, snap.supplierPay)
	margin := aggregation.ComputeDeliveriesMargin(snap.deliveries)

	topClients := aggregation.TopN(snap.deliveries,
		func(d models.BonLivraison) (uint, bool) {
			if d.ClientID == nil {
				return 0, false
			}
			return *d.ClientID, true
		},
		func(d models.BonLivraison) decimal.Decimal { return aggregation.Amount(d.TotalHT) },
		topN)
	topSuppliers := aggregation.TopN(snap.orders,
		func(o models.BonCommande) (uint, bool) { return o.FournisseurID, o.FournisseurID != 0 },
		func(o models.BonCommande) decimal.Decimal { return aggregation.Amount(o.TotalHT) },
		topN)

	var clientNames, supplierNames map[uint]string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rows, err := gateway.Select[models.Client](gctx, db, gateway.New().Scope(idIn(keys(topClients))))
		clientNames = make(map[uint]string, len(rows))
		for i := range rows {
			clientNames[rows[i].ID] = rows[i].DisplayName()
		}
		return err
	})
	g.Go(func() (err error) {
		rows, err := gateway.Select[models.Fournisseur](gctx, db, gateway.New().Scope(idIn(keys(topSuppliers))))
		supplierNames = make(map[uint]string, len(rows))
		for i := range rows {
			supplierNames[rows[i].ID] = rows[i].DisplayName()
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &Response{
		Counts:           snap.counts,
		Revenue:          clients.TotalRevenue.InexactFloat64(),
		ClientsPaid:      clients.TotalPaid.InexactFloat64(),
		Outstanding:      clients.Balance.InexactFloat64(),
		ClientCredit:     clients.Credit.InexactFloat64(),
		SupplierOrdered:  suppliers.TotalOrdered.InexactFloat64(),
		SupplierPaid:     suppliers.TotalPaid.InexactFloat64(),
		SupplierDebt:     suppliers.Debt.InexactFloat64(),
		SupplierCredit:   suppliers.Credit.InexactFloat64(),
		Margin:           margin.InexactFloat64(),
		TopClients:       entries(topClients, clientNames),
		TopSuppliers:     entries(topSuppliers, supplierNames),
		RecentDeliveries: make([]RecentDelivery, 0, len(snap.recent)),
	}
	for _, d := range snap.recent {
		name := models.NonSpecifie
		if d.Client != nil {
			name = d.Client.DisplayName()
		}
		resp.RecentDeliveries = append(resp.RecentDeliveries, RecentDelivery{
			ID:              d.ID,
			NumeroLivraison: d.NumeroLivraison,
			DateLivraison:   d.DateLivraison.Format(validation.DateLayout),
			Statut:          string(d.Statut),
			ClientName:      name,
			TotalHT:         aggregation.Amount(d.TotalHT).InexactFloat64(),
		})
	}
	return resp, nil
}

func keys(ranked []aggregation.Ranked[uint]) []uint {
	out := make([]uint, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.Key)
	}
	return out
}

func idIn(ids []uint) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if len(ids) == 0 {
			return tx.Where("1 = 0")
		}
		return tx.Where("id IN ?", ids)
	}
}

func entries(ranked []aggregation.Ranked[uint], names map[uint]string) []RankedEntry {
	out := make([]RankedEntry, 0, len(ranked))
	for _, r := range ranked {
		name, ok := names[r.Key]
		if !ok {
			name = models.NonSpecifie
		}
		out = append(out, RankedEntry{ID: r.Key, Name: name, Total: r.Total.InexactFloat64(), Count: r.Count})
	}
	return out
}

