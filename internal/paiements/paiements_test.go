package paiements_test

import (
	"fmt"
	"net/http"
	"testing"

	"gestion-backend/internal/crud"
	"gestion-backend/internal/models"
	"gestion-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaiementClientCreateListUpdate(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	cl := models.Client{NumeroClient: "CL-00001", Nom: "Benani"}
	require.NoError(t, env.DB.Create(&cl).Error)

	for _, d := range []string{"2024-01-10", "2024-02-10"} {
		resp := env.Do(t, http.MethodPost, "/api/paiements-clients", map[string]any{
			"client_id": cl.ID, "date_paiement": d, "montant": 500, "mode_paiement": "cheque",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := env.Do(t, http.MethodGet, fmt.Sprintf("/api/paiements-clients?client_id=%d&from=2024-02-01&to=2024-02-10", cl.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page crud.Page[models.PaiementClient]
	testutil.Decode(t, resp, &page)
	require.Equal(t, 1, page.Total)
	p := page.Items[0]

	resp = env.Do(t, http.MethodPut, fmt.Sprintf("/api/paiements-clients/%d", p.ID), map[string]any{"montant": 650.5, "reference": " CHQ-12 "})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.Decode(t, resp, &p)
	require.NotNil(t, p.Montant)
	assert.InDelta(t, 650.5, *p.Montant, 0.001)
	assert.Equal(t, "CHQ-12", p.Reference)
}

func TestPaiementValidation(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	cl := models.Client{NumeroClient: "CL-00001", Nom: "Benani"}
	require.NoError(t, env.DB.Create(&cl).Error)

	cases := []map[string]any{
		{"client_id": cl.ID, "date_paiement": "2024-01-10", "montant": 0},
		{"client_id": cl.ID, "date_paiement": "2024-01-10", "montant": 100, "mode_paiement": "troc"},
		{"client_id": cl.ID, "montant": 100},
		{"client_id": cl.ID + 50, "date_paiement": "2024-01-10", "montant": 100},
	}
	for i, body := range cases {
		resp := env.Do(t, http.MethodPost, "/api/paiements-clients", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "case %d", i)
	}
}

func TestPaiementFournisseurDelete(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	f := models.Fournisseur{NumeroFournisseur: "FR-00001", Nom: "Carrière Atlas"}
	require.NoError(t, env.DB.Create(&f).Error)

	resp := env.Do(t, http.MethodPost, "/api/paiements-fournisseurs", map[string]any{
		"fournisseur_id": f.ID, "date_paiement": "2024-01-10", "montant": 1200, "mode_paiement": "virement",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var p models.PaiementFournisseur
	testutil.Decode(t, resp, &p)

	resp = env.Do(t, http.MethodDelete, fmt.Sprintf("/api/paiements-fournisseurs/%d", p.ID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var n int64
	env.DB.Model(&models.PaiementFournisseur{}).Count(&n)
	assert.Zero(t, n)

	var logs []models.AuditLog
	require.NoError(t, env.DB.Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionDelete, logs[1].Action)
}
