// Package aggregation réduit les lignes chargées (livraisons, commandes,
// paiements) en totaux, soldes, marges et classements. Fonctions pures :
// aucun état conservé entre deux appels.
package aggregation

import (
	"math"

	"github.com/shopspring/decimal"
)

// Amount convertit un montant éventuellement absent ou invalide. nil, NaN et ±Inf valent 0.
func Amount(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return Value(*v)
}

// Value convertit un float64 en décimal, NaN et ±Inf valent 0.
func Value(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// positive renvoie max(0, d).
func positive(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
