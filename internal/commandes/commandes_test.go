package commandes_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"gestion-backend/internal/crud"
	"gestion-backend/internal/models"
	"gestion-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedParties(t *testing.T, env *testutil.Env) (models.Fournisseur, models.Client) {
	t.Helper()
	f := models.Fournisseur{NumeroFournisseur: "FR-00001", Nom: "Carrière Atlas"}
	require.NoError(t, env.DB.Create(&f).Error)
	cl := models.Client{NumeroClient: "CL-00001", Nom: "Benani"}
	require.NoError(t, env.DB.Create(&cl).Error)
	return f, cl
}

func TestBonCommandeLifecycle(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	f, cl := seedParties(t, env)

	resp := env.Do(t, http.MethodPost, "/api/bons-commande", map[string]any{
		"date_commande": "2024-03-05", "total_ht": 4200, "fournisseur_id": f.ID, "client_id": cl.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var bc models.BonCommande
	testutil.Decode(t, resp, &bc)
	assert.Equal(t, "BC-00001", bc.NumeroCommande)
	assert.Equal(t, models.CommandeBrouillon, bc.Statut)

	resp = env.Do(t, http.MethodPut, fmt.Sprintf("/api/bons-commande/%d", bc.ID), map[string]any{
		"statut": "confirmee", "detach_client": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.Decode(t, resp, &bc)
	assert.Equal(t, models.CommandeConfirmee, bc.Statut)
	assert.Nil(t, bc.ClientID)

	resp = env.Do(t, http.MethodGet, "/api/bons-commande?statut=confirmee&from=2024-03-05&to=2024-03-05", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page crud.Page[models.BonCommande]
	testutil.Decode(t, resp, &page)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Carrière Atlas", page.Items[0].Fournisseur.Nom)

	resp = env.Do(t, http.MethodDelete, fmt.Sprintf("/api/bons-commande/%d", bc.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestBonCommandeRejectsUnknownLinksAndStatus(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	f, _ := seedParties(t, env)

	resp := env.Do(t, http.MethodPost, "/api/bons-commande", map[string]any{
		"date_commande": "2024-03-05", "fournisseur_id": f.ID + 100,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.Do(t, http.MethodPost, "/api/bons-commande", map[string]any{
		"date_commande": "05/03/2024", "fournisseur_id": f.ID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, "/api/bons-commande?statut=perdue", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteDeliveredBonCommande(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	f, _ := seedParties(t, env)
	bc := models.BonCommande{NumeroCommande: "BC-7", DateCommande: time.Now(), FournisseurID: f.ID}
	require.NoError(t, env.DB.Create(&bc).Error)
	require.NoError(t, env.DB.Create(&models.BonLivraison{NumeroLivraison: "BL-7", DateLivraison: time.Now(), BonCommandeID: &bc.ID}).Error)

	resp := env.Do(t, http.MethodDelete, fmt.Sprintf("/api/bons-commande/%d", bc.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
