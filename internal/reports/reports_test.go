package reports_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"gestion-backend/internal/models"
	"gestion-backend/internal/reports"
	"gestion-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedClient(t *testing.T, db *gorm.DB) models.Client {
	t.Helper()
	c := models.Client{NumeroClient: "CL-00007", Nom: "Chraibi", Societe: "Chraibi Construction"}
	require.NoError(t, db.Create(&c).Error)
	p := models.Produit{NomProduit: "Gravette", PrixAchat: testutil.Ptr(60.0), PrixVente: 100, Unite: "t"}
	require.NoError(t, db.Create(&p).Error)

	deliveries := []models.BonLivraison{
		{NumeroLivraison: "BL-1", DateLivraison: day("2024-01-05"), Statut: models.LivraisonLivree, TotalHT: testutil.Ptr(300.0), ClientID: &c.ID},
		{NumeroLivraison: "BL-2", DateLivraison: day("2024-01-15"), Statut: models.LivraisonLivree, TotalHT: testutil.Ptr(200.0), ClientID: &c.ID,
			Lignes: []models.LigneLivraison{{Position: 1, ProduitID: &p.ID, QuantiteLivree: 2, PrixUnitaire: 100, TotalLigne: 200}}},
		{NumeroLivraison: "BL-3", DateLivraison: day("2024-01-20"), Statut: models.LivraisonAnnulee, TotalHT: testutil.Ptr(1000.0), ClientID: &c.ID},
	}
	for i := range deliveries {
		require.NoError(t, db.Create(&deliveries[i]).Error)
	}
	require.NoError(t, db.Create(&models.PaiementClient{ClientID: c.ID, DatePaiement: day("2024-01-10"), Montant: testutil.Ptr(300.0)}).Error)
	return c
}

func TestBuildClientReportSinceLastPayment(t *testing.T) {
	db := testutil.NewDB(t)
	c := seedClient(t, db)
	manual := day("2024-01-01")

	r, err := reports.BuildClientReport(context.Background(), db, c.ID, reports.Window{From: &manual}, true)
	require.NoError(t, err)

	require.NotNil(t, r.LastPayment)
	assert.Equal(t, "2024-01-10", *r.LastPayment)
	require.NotNil(t, r.EffectiveFrom)
	assert.Equal(t, "2024-01-11", *r.EffectiveFrom)
	assert.Equal(t, "2024-01-01", *r.From)

	require.Len(t, r.Deliveries, 2, "BL-2 and the cancelled BL-3 are listed")
	assert.Equal(t, 1, r.Totals.Count)
	assert.InDelta(t, 200.0, r.Totals.TotalRevenue, 1e-9)
	assert.Empty(t, r.Payments)
	assert.InDelta(t, 200.0, r.Totals.Balance, 1e-9)
	assert.InDelta(t, 80.0, r.Totals.Margin, 1e-9)
}

func TestBuildClientReportManualWindow(t *testing.T) {
	db := testutil.NewDB(t)
	c := seedClient(t, db)
	from, to := day("2024-01-01"), day("2024-01-15")

	r, err := reports.BuildClientReport(context.Background(), db, c.ID, reports.Window{From: &from, To: &to}, false)
	require.NoError(t, err)

	assert.Len(t, r.Deliveries, 2)
	assert.InDelta(t, 500.0, r.Totals.TotalRevenue, 1e-9)
	assert.InDelta(t, 300.0, r.Totals.TotalPaid, 1e-9)
	assert.InDelta(t, 200.0, r.Totals.Balance, 1e-9)
	assert.Zero(t, r.Totals.Credit)
	assert.Equal(t, "2024-01-01", *r.EffectiveFrom)
}

func TestBuildClientReportSinceLastPaymentWithoutPayments(t *testing.T) {
	db := testutil.NewDB(t)
	c := models.Client{NumeroClient: "CL-1", Nom: "Sans paiement"}
	require.NoError(t, db.Create(&c).Error)
	manual := day("2024-03-01")

	r, err := reports.BuildClientReport(context.Background(), db, c.ID, reports.Window{From: &manual}, true)
	require.NoError(t, err)
	assert.Nil(t, r.LastPayment)
	assert.Equal(t, "2024-03-01", *r.EffectiveFrom)
	assert.Empty(t, r.Deliveries)
}

func TestBuildSupplierReport(t *testing.T) {
	db := testutil.NewDB(t)
	f := models.Fournisseur{NumeroFournisseur: "FR-1", Nom: "Cimat"}
	require.NoError(t, db.Create(&f).Error)
	require.NoError(t, db.Create(&models.BonCommande{NumeroCommande: "BC-1", DateCommande: day("2024-01-02"), Statut: models.CommandeConfirmee, TotalHT: testutil.Ptr(2000.0), FournisseurID: f.ID}).Error)
	require.NoError(t, db.Create(&models.BonCommande{NumeroCommande: "BC-2", DateCommande: day("2024-01-03"), Statut: models.CommandeAnnulee, TotalHT: testutil.Ptr(800.0), FournisseurID: f.ID}).Error)
	require.NoError(t, db.Create(&models.PaiementFournisseur{FournisseurID: f.ID, DatePaiement: day("2024-01-04"), Montant: testutil.Ptr(5000.0)}).Error)

	r, err := reports.BuildSupplierReport(context.Background(), db, f.ID, reports.Window{})
	require.NoError(t, err)

	assert.Len(t, r.Orders, 2)
	assert.InDelta(t, 2000.0, r.Totals.TotalOrdered, 1e-9)
	assert.Zero(t, r.Totals.Debt)
	assert.InDelta(t, 3000.0, r.Totals.Credit, 1e-9)
}

func TestClientReportHandler(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	c := seedClient(t, env.DB)

	resp := env.Do(t, http.MethodGet, fmt.Sprintf("/api/reports/clients/%d?from=2024-01-01&since_last_payment=true", c.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var r reports.ClientReport
	testutil.Decode(t, resp, &r)
	assert.Equal(t, "2024-01-11", *r.EffectiveFrom)
	assert.NotZero(t, r.Generation)

	resp = env.Do(t, http.MethodGet, "/api/reports/clients/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, fmt.Sprintf("/api/reports/clients/%d?from=2024-02-01&to=2024-01-01", c.ID), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClientReportExport(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	c := seedClient(t, env.DB)

	resp := env.Do(t, http.MethodGet, fmt.Sprintf("/api/reports/clients/%d/export", c.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "releve-client-CL-00007.xlsx")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	book, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{"Relevé", "Livraisons", "Paiements"}, book.GetSheetList())
	name, err := book.GetCellValue("Relevé", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Chraibi Construction", name)

	rows, err := book.GetRows("Livraisons")
	require.NoError(t, err)
	assert.Len(t, rows, 4, "header + BL-1 + one line of BL-2 + BL-3")
}

func TestSupplierReportExport(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	f := models.Fournisseur{NumeroFournisseur: "FR-9", Nom: "Cimat"}
	require.NoError(t, env.DB.Create(&f).Error)

	resp := env.Do(t, http.MethodGet, fmt.Sprintf("/api/reports/fournisseurs/%d/export", f.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	book, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{"Relevé", "Commandes", "Paiements"}, book.GetSheetList())
}

func TestClientReportSupersededRequestIsDiscarded(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	client := seedClient(t, env.DB)
	env.SupersedeOnFirstQuery(t, "report_client")

	resp := env.Do(t, http.MethodGet, fmt.Sprintf("/api/reports/clients/%d", client.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Generation"))
}
