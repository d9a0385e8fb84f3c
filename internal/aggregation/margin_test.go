package aggregation

import (
	"testing"

	"gestion-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeMargin(t *testing.T) {
	items := []models.LigneLivraison{
		{PrixUnitaire: 100, QuantiteLivree: 2, Produit: &models.Produit{PrixAchat: f(60)}},
	}
	assert.True(t, ComputeMargin(items).Equal(dec("80")))
}

func TestComputeMarginUnknownCostIsZero(t *testing.T) {
	items := []models.LigneLivraison{
		{PrixUnitaire: 25, QuantiteLivree: 4, Produit: &models.Produit{PrixAchat: nil}},
		{PrixUnitaire: 10, QuantiteLivree: 3, Produit: nil},
	}
	assert.True(t, ComputeMargin(items).Equal(dec("130")))
}

func TestComputeDeliveriesMarginSkipsCancelled(t *testing.T) {
	cost := &models.Produit{PrixAchat: f(8)}
	deliveries := []models.BonLivraison{
		{Statut: models.LivraisonLivree, Lignes: []models.LigneLivraison{
			{PrixUnitaire: 10, QuantiteLivree: 5, Produit: cost},
			{PrixUnitaire: 12, QuantiteLivree: 1, Produit: cost},
		}},
		{Statut: models.LivraisonAnnulee, Lignes: []models.LigneLivraison{
			{PrixUnitaire: 1000, QuantiteLivree: 1, Produit: cost},
		}},
	}
	assert.True(t, ComputeDeliveriesMargin(deliveries).Equal(dec("14")))
}
