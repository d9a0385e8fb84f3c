package gateway_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"gestion-backend/internal/gateway"
	"gestion-backend/internal/models"
	"gestion-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func seed(t *testing.T, db *gorm.DB) (models.Client, []models.BonLivraison) {
	t.Helper()
	client := models.Client{NumeroClient: "CL-00001", Nom: "Alaoui", Societe: "Béton Atlas"}
	require.NoError(t, db.Create(&client).Error)
	ciment := models.Produit{NomProduit: "Ciment", PrixVente: 100, Unite: "sac"}
	sable := models.Produit{NomProduit: "Sable", PrixVente: 50, Unite: "m3"}
	require.NoError(t, db.Create(&ciment).Error)
	require.NoError(t, db.Create(&sable).Error)

	deliveries := []models.BonLivraison{
		{NumeroLivraison: "BL-1", DateLivraison: date("2024-01-05"), Statut: models.LivraisonLivree, TotalHT: testutil.Ptr(1000.0), ClientID: &client.ID,
			Lignes: []models.LigneLivraison{
				{Position: 2, ProduitID: &sable.ID, QuantiteLivree: 10, PrixUnitaire: 50, TotalLigne: 500},
				{Position: 1, ProduitID: &ciment.ID, QuantiteLivree: 5, PrixUnitaire: 100, TotalLigne: 500},
			}},
		{NumeroLivraison: "BL-2", DateLivraison: date("2024-01-10"), Statut: models.LivraisonAnnulee, TotalHT: testutil.Ptr(500.0), ClientID: &client.ID},
		{NumeroLivraison: "BL-3", DateLivraison: date("2024-01-20"), Statut: models.LivraisonEnCours, TotalHT: testutil.Ptr(200.0)},
	}
	for i := range deliveries {
		require.NoError(t, db.Create(&deliveries[i]).Error)
	}
	return client, deliveries
}

func numeros(rows []models.BonLivraison) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.NumeroLivraison)
	}
	return out
}

func TestSelectFiltersAndOrders(t *testing.T) {
	db := testutil.NewDB(t)
	seed(t, db)
	ctx := context.Background()

	rows, err := gateway.Select[models.BonLivraison](ctx, db,
		gateway.New().Neq("statut", models.StatutAnnule).OrderBy("date_livraison", false))
	require.NoError(t, err)
	assert.Equal(t, []string{"BL-3", "BL-1"}, numeros(rows))

	rows, err = gateway.Select[models.BonLivraison](ctx, db,
		gateway.New().Gte("date_livraison", gateway.Raw("2024-01-05")).Lte("date_livraison", gateway.Raw("2024-01-10")).OrderBy("id", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"BL-1", "BL-2"}, numeros(rows), "a date-only upper bound covers the whole day")
}

func TestSelectScopeAndBetween(t *testing.T) {
	db := testutil.NewDB(t)
	seed(t, db)
	from := date("2024-01-06")

	rows, err := gateway.Select[models.BonLivraison](context.Background(), db,
		gateway.New().Scope(models.NotCancelled).Between("date_livraison", &from, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"BL-3"}, numeros(rows))
}

func TestSelectNullFilter(t *testing.T) {
	db := testutil.NewDB(t)
	seed(t, db)

	rows, err := gateway.Select[models.BonLivraison](context.Background(), db,
		gateway.New().Eq("client_id", gateway.Raw("null")))
	require.NoError(t, err)
	assert.Equal(t, []string{"BL-3"}, numeros(rows))
}

func TestSelectEmbedsLinesInPositionOrder(t *testing.T) {
	db := testutil.NewDB(t)
	seed(t, db)

	rows, err := gateway.Select[models.BonLivraison](context.Background(), db,
		gateway.New().Eq("numero_livraison", "BL-1").With("lignes.produit", "client"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Lignes, 2)
	assert.Equal(t, 1, rows[0].Lignes[0].Position)
	require.NotNil(t, rows[0].Lignes[0].Produit)
	assert.Equal(t, "Ciment", rows[0].Lignes[0].Produit.NomProduit)
	require.NotNil(t, rows[0].Client)
	assert.Equal(t, "Béton Atlas", rows[0].Client.DisplayName())
}

func TestUnknownFieldAndRelationAreRejected(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	_, err := gateway.Select[models.Client](ctx, db, gateway.New().Eq("solde", 1))
	assert.ErrorIs(t, err, gateway.ErrUnknownField)

	_, err = gateway.Select[models.Client](ctx, db, gateway.New().OrderBy("solde", true))
	assert.ErrorIs(t, err, gateway.ErrUnknownField)

	_, err = gateway.Select[models.BonLivraison](ctx, db, gateway.New().With("factures"))
	assert.ErrorIs(t, err, gateway.ErrUnknownRelation)

	_, err = gateway.Count[models.Client](ctx, db, gateway.New().Eq("id", gateway.Raw("abc")))
	assert.ErrorIs(t, err, gateway.ErrInvalidValue)
}

func TestCount(t *testing.T) {
	db := testutil.NewDB(t)
	seed(t, db)

	n, err := gateway.Count[models.BonLivraison](context.Background(), db, gateway.New().Scope(models.NotCancelled))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = gateway.Count[models.Chauffeur](context.Background(), db, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCancelledContextWrapsQueryError(t *testing.T) {
	db := testutil.NewDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gateway.Select[models.Client](ctx, db, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrQuery)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseParams(t *testing.T) {
	q, countOnly, err := gateway.ParseParams(url.Values{
		"statut": {"neq.annulee"},
		"order":  {"date_livraison.desc,id"},
		"limit":  {"5000"},
		"count":  {"exact"},
	})
	require.NoError(t, err)
	assert.NotNil(t, q)
	assert.True(t, countOnly)

	_, _, err = gateway.ParseParams(url.Values{"order": {"id.sideways"}})
	assert.Error(t, err)

	_, _, err = gateway.ParseParams(url.Values{"limit": {"-1"}})
	assert.Error(t, err)
}

func TestQueryHandler(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	seed(t, env.DB)

	resp := env.Do(t, http.MethodGet, "/api/query/bons_livraison?statut=neq.annulee&order=date_livraison.asc&embed=Lignes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []models.BonLivraison
	testutil.Decode(t, resp, &rows)
	assert.Equal(t, []string{"BL-1", "BL-3"}, numeros(rows))
	assert.Len(t, rows[0].Lignes, 2)

	resp = env.Do(t, http.MethodGet, "/api/query/bons_livraison?count=exact&client_id=null", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var count struct {
		Count int64 `json:"count"`
	}
	testutil.Decode(t, resp, &count)
	assert.Equal(t, int64(1), count.Count)

	resp = env.Do(t, http.MethodGet, "/api/query/clients?solde=gte.0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, "/api/query/users", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestQueryHandlerRangeOnOneField(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	seed(t, env.DB)

	resp := env.Do(t, http.MethodGet, "/api/query/bons_livraison?date_livraison=gte.2024-01-06&date_livraison=lte.2024-01-15&order=id.asc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []models.BonLivraison
	testutil.Decode(t, resp, &rows)
	assert.Equal(t, []string{"BL-2"}, numeros(rows))

	resp = env.Do(t, http.MethodGet, "/api/query/bons_livraison?count=exact&date_livraison=gte.2024-01-06&date_livraison=lte.2024-01-15", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var count struct {
		Count int64 `json:"count"`
	}
	testutil.Decode(t, resp, &count)
	assert.Equal(t, int64(1), count.Count)
}
