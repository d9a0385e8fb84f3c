package catalogue_test

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gestion-backend/internal/catalogue"
	"gestion-backend/internal/models"
	"gestion-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestProduitUpdateClearsPurchasePrice(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)

	resp := env.Do(t, http.MethodPost, "/api/produits", map[string]any{
		"nom_produit": "Gravette", "unite": "tonne", "prix_vente": 150, "prix_achat": 110,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var p models.Produit
	testutil.Decode(t, resp, &p)
	require.NotNil(t, p.PrixAchat)

	resp = env.Do(t, http.MethodPut, fmt.Sprintf("/api/produits/%d", p.ID), map[string]any{"clear_prix_achat": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.Decode(t, resp, &p)
	assert.Nil(t, p.PrixAchat)
}

func TestProduitValidation(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	resp := env.Do(t, http.MethodPost, "/api/produits", map[string]any{"nom_produit": "Sable", "prix_vente": -1, "unite": "m3"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteProduitUsedInDelivery(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	p := models.Produit{NomProduit: "Sable", Unite: "m3", PrixVente: 100}
	require.NoError(t, env.DB.Create(&p).Error)
	bl := models.BonLivraison{NumeroLivraison: "BL-1", DateLivraison: time.Now(), Lignes: []models.LigneLivraison{{ProduitID: &p.ID}}}
	require.NoError(t, env.DB.Create(&bl).Error)

	resp := env.Do(t, http.MethodDelete, fmt.Sprintf("/api/produits/%d", p.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestImportUpsertsByName(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	require.NoError(t, env.DB.Create(&models.Produit{NomProduit: "Sable de mer", Unite: "m3", PrixVente: 150}).Error)

	book := excelize.NewFile()
	defer book.Close()
	rows := [][]any{
		{"Produit", "Unité", "Prix vente", "Prix achat"},
		{"SABLE DE MER", "m3", 175, 120},
		{"Gravette", "tonne", 140, ""},
		{"Ciment", "", 80, ""},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, book.SetSheetRow("Sheet1", cell, &row))
	}
	xlsx, err := book.WriteToBuffer()
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "catalogue.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/produits/import", &body)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+env.Token)
	resp, err := env.App.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result catalogue.ImportResult
	testutil.Decode(t, resp, &result)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Len(t, result.Rejected, 1)

	var sable models.Produit
	require.NoError(t, env.DB.Where("nom_produit = ?", "Sable de mer").First(&sable).Error)
	assert.InDelta(t, 175, sable.PrixVente, 0.001)
	require.NotNil(t, sable.PrixAchat)

	var logs int64
	env.DB.Model(&models.AuditLog{}).Where("action = ?", models.AuditActionImport).Count(&logs)
	assert.Equal(t, int64(1), logs)
}

func TestImportRejectsNonXLSX(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "catalogue.csv")
	_, _ = part.Write([]byte("Sable;m3;100"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/produits/import", &body)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+env.Token)
	resp, err := env.App.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
