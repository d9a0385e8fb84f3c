package dashboard_test

import (
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"gestion-backend/internal/dashboard"
	"gestion-backend/internal/freshness"
	"gestion-backend/internal/models"
	"gestion-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardAggregatesAllTime(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	db := env.DB
	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	clients := []models.Client{
		{NumeroClient: "CL-1", Nom: "Petit"},
		{NumeroClient: "CL-2", Nom: "Grand", Societe: "Grand BTP"},
		{NumeroClient: "CL-3", Nom: "Moyen"},
	}
	for i := range clients {
		require.NoError(t, db.Create(&clients[i]).Error)
	}
	produit := models.Produit{NomProduit: "Ciment", PrixAchat: testutil.Ptr(60.0), PrixVente: 100, Unite: "sac"}
	require.NoError(t, db.Create(&produit).Error)

	type row struct {
		client uint
		total  float64
		statut models.StatutLivraison
	}
	rows := []row{
		{clients[0].ID, 100, models.LivraisonLivree},
		{clients[1].ID, 700, models.LivraisonLivree},
		{clients[2].ID, 300, models.LivraisonLivree},
		{clients[1].ID, 200, models.LivraisonEnCours},
		{clients[0].ID, 5000, models.LivraisonAnnulee},
	}
	for i, r := range rows {
		clientID := r.client
		bl := models.BonLivraison{
			NumeroLivraison: fmt.Sprintf("BL-%d", i+1), DateLivraison: day.AddDate(0, 0, i), Statut: r.statut,
			TotalHT: testutil.Ptr(r.total), ClientID: &clientID,
		}
		if i == 0 {
			bl.Lignes = []models.LigneLivraison{{Position: 1, ProduitID: &produit.ID, QuantiteLivree: 1, PrixUnitaire: 100, TotalLigne: 100}}
		}
		require.NoError(t, db.Create(&bl).Error)
	}
	require.NoError(t, db.Create(&models.PaiementClient{ClientID: clients[1].ID, DatePaiement: day, Montant: testutil.Ptr(400.0)}).Error)

	f := models.Fournisseur{NumeroFournisseur: "FR-1", Nom: "Holcim"}
	require.NoError(t, db.Create(&f).Error)
	require.NoError(t, db.Create(&models.BonCommande{NumeroCommande: "BC-1", DateCommande: day, Statut: models.CommandeConfirmee, TotalHT: testutil.Ptr(2000.0), FournisseurID: f.ID}).Error)
	require.NoError(t, db.Create(&models.PaiementFournisseur{FournisseurID: f.ID, DatePaiement: day, Montant: testutil.Ptr(500.0)}).Error)

	resp := env.Do(t, http.MethodGet, "/api/dashboard?period=all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(freshness.HeaderGeneration))

	var got dashboard.Response
	testutil.Decode(t, resp, &got)

	assert.Equal(t, dashboard.PeriodAll, got.Period)
	assert.Nil(t, got.From)
	assert.Equal(t, int64(3), got.Counts.Clients)
	assert.Equal(t, int64(1), got.Counts.Produits)
	assert.Equal(t, int64(4), got.Counts.Livraisons)
	assert.Equal(t, int64(1), got.Counts.Commandes)

	assert.InDelta(t, 1300.0, got.Revenue, 1e-9)
	assert.InDelta(t, 400.0, got.ClientsPaid, 1e-9)
	assert.InDelta(t, 900.0, got.Outstanding, 1e-9)
	assert.InDelta(t, 1500.0, got.SupplierDebt, 1e-9)
	assert.InDelta(t, 0.0, got.SupplierCredit, 1e-9)
	assert.InDelta(t, 40.0, got.Margin, 1e-9)

	require.Len(t, got.TopClients, 3)
	assert.Equal(t, "Grand BTP", got.TopClients[0].Name)
	assert.InDelta(t, 900.0, got.TopClients[0].Total, 1e-9)
	assert.Equal(t, "Moyen", got.TopClients[1].Name)
	assert.Equal(t, "Petit", got.TopClients[2].Name)

	require.Len(t, got.TopSuppliers, 1)
	assert.Equal(t, "Holcim", got.TopSuppliers[0].Name)

	require.Len(t, got.RecentDeliveries, 5)
	assert.Equal(t, "BL-5", got.RecentDeliveries[0].NumeroLivraison)
}

func TestDashboardEmptyStore(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)

	resp := env.Do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got dashboard.Response
	testutil.Decode(t, resp, &got)

	assert.Equal(t, dashboard.PeriodMonth, got.Period)
	assert.NotNil(t, got.From)
	assert.Zero(t, got.Revenue)
	assert.Empty(t, got.TopClients)
	assert.Empty(t, got.TopSuppliers)
	assert.Empty(t, got.RecentDeliveries)
}

func TestDashboardRejectsUnknownPeriod(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	resp := env.Do(t, http.MethodGet, "/api/dashboard?period=decade", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDashboardMissingClientIsNonSpecifie(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	ghost := uint(4242)
	require.NoError(t, env.DB.Create(&models.BonLivraison{
		NumeroLivraison: "BL-1", DateLivraison: time.Now(), Statut: models.LivraisonLivree,
		TotalHT: testutil.Ptr(10.0), ClientID: &ghost,
	}).Error)

	resp := env.Do(t, http.MethodGet, "/api/dashboard?period=all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got dashboard.Response
	testutil.Decode(t, resp, &got)
	require.Len(t, got.TopClients, 1)
	assert.Equal(t, models.NonSpecifie, got.TopClients[0].Name)
	require.Len(t, got.RecentDeliveries, 1)
	assert.Equal(t, models.NonSpecifie, got.RecentDeliveries[0].ClientName)
}

func TestDashboardSupersededRequestIsDiscarded(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	env.SupersedeOnFirstQuery(t, "dashboard")

	resp := env.Do(t, http.MethodGet, "/api/dashboard?period=all", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(freshness.HeaderGeneration))

	resp = testutil.Request(t, env.App, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gestion_superseded_requests_total{screen="dashboard"} 1`)
}
