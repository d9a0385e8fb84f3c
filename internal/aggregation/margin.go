package aggregation

import (
	"gestion-backend/internal/models"

	"github.com/shopspring/decimal"
)

// ComputeMargin = Σ (prix_unitaire - prix_achat) × quantite_livree.
// Produit ou coût inconnu : coût 0, la marge vaut alors le prix unitaire.
func ComputeMargin(items []models.LigneLivraison) decimal.Decimal {
	margin := decimal.Zero
	for i := range items {
		margin = margin.Add(lineMargin(&items[i]))
	}
	return margin
}

// ComputeDeliveriesMargin cumule la marge des lignes de toutes les livraisons non annulées.
func ComputeDeliveriesMargin(deliveries []models.BonLivraison) decimal.Decimal {
	margin := decimal.Zero
	for i := range deliveries {
		if models.IsCancelled(deliveries[i].Statut) {
			continue
		}
		margin = margin.Add(ComputeMargin(deliveries[i].Lignes))
	}
	return margin
}

func lineMargin(item *models.LigneLivraison) decimal.Decimal {
	cost := decimal.Zero
	if item.Produit != nil {
		cost = Amount(item.Produit.PrixAchat)
	}
	return Value(item.PrixUnitaire).Sub(cost).Mul(Value(item.QuantiteLivree))
}
