package models

import (
	"strings"

	"gorm.io/gorm"
)

// Statut commun aux bons de commande et de livraison annulés.
const StatutAnnule = "annulee"

// NotCancelled exclut les bons annulés. Seul endroit où la règle est écrite côté requête.
func NotCancelled(db *gorm.DB) *gorm.DB {
	return db.Where("statut <> ?", StatutAnnule)
}

// IsCancelled est l'équivalent en mémoire de NotCancelled.
func IsCancelled[S ~string](statut S) bool {
	return string(statut) == StatutAnnule
}

// NonSpecifie remplace une entité liée absente (supprimée ou jamais renseignée).
const NonSpecifie = "Non spécifié"

func displayName(societe, prenom, nom string) string {
	if s := strings.TrimSpace(societe); s != "" {
		return s
	}
	full := strings.TrimSpace(strings.TrimSpace(prenom) + " " + strings.TrimSpace(nom))
	if full == "" {
		return NonSpecifie
	}
	return full
}
