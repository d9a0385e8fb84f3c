package aggregation

import (
	"gestion-backend/internal/models"

	"github.com/shopspring/decimal"
)

// ClientTotals - situation d'un client sur la période.
type ClientTotals struct {
	TotalRevenue decimal.Decimal // Σ total_ht des livraisons non annulées
	TotalPaid    decimal.Decimal // Σ montant des paiements
	Balance      decimal.Decimal // revenue - paid, positif = le client doit
	Credit       decimal.Decimal // max(0, paid - revenue)
	Count        int             // livraisons prises en compte
}

// SupplierTotals - situation vis-à-vis d'un fournisseur.
type SupplierTotals struct {
	TotalOrdered decimal.Decimal
	TotalPaid    decimal.Decimal
	Debt         decimal.Decimal // ce que l'on doit
	Credit       decimal.Decimal // avance détenue chez le fournisseur
}

func ComputeClientTotals(deliveries []models.BonLivraison, payments []models.PaiementClient) ClientTotals {
	var t ClientTotals
	for i := range deliveries {
		if models.IsCancelled(deliveries[i].Statut) {
			continue
		}
		t.TotalRevenue = t.TotalRevenue.Add(Amount(deliveries[i].TotalHT))
		t.Count++
	}
	for i := range payments {
		t.TotalPaid = t.TotalPaid.Add(Amount(payments[i].Montant))
	}
	t.Balance = t.TotalRevenue.Sub(t.TotalPaid)
	t.Credit = positive(t.TotalPaid.Sub(t.TotalRevenue))
	return t
}

// ComputeSupplierTotals additionne toutes les commandes reçues. L'exclusion des
// commandes annulées se fait à la requête (models.NotCancelled), si bien que
// Debt - Credit == Σ commandes - Σ paiements pour toute entrée.
func ComputeSupplierTotals(orders []models.BonCommande, payments []models.PaiementFournisseur) SupplierTotals {
	var t SupplierTotals
	for i := range orders {
		t.TotalOrdered = t.TotalOrdered.Add(Amount(orders[i].TotalHT))
	}
	for i := range payments {
		t.TotalPaid = t.TotalPaid.Add(Amount(payments[i].Montant))
	}
	t.Debt = positive(t.TotalOrdered.Sub(t.TotalPaid))
	t.Credit = positive(t.TotalPaid.Sub(t.TotalOrdered))
	return t
}
