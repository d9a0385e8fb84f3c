package models

import "time"

type StatutLivraison string

const (
	LivraisonEnPreparation StatutLivraison = "en_preparation"
	LivraisonEnCours       StatutLivraison = "en_cours"
	LivraisonLivree        StatutLivraison = "livree"
	LivraisonAnnulee       StatutLivraison = "annulee"
)

func (s StatutLivraison) Valid() bool {
	switch s {
	case LivraisonEnPreparation, LivraisonEnCours, LivraisonLivree, LivraisonAnnulee:
		return true
	}
	return false
}

// BonLivraison - livraison (totale ou partielle) d'un bon de commande à un client
type BonLivraison struct {
	ID                 uint             `gorm:"primaryKey" json:"id"`
	NumeroLivraison    string           `gorm:"size:50;uniqueIndex;not null" json:"numero_livraison"`
	DateLivraison      time.Time        `gorm:"index;not null" json:"date_livraison"`
	Statut             StatutLivraison  `gorm:"size:20;not null;index;default:'en_preparation'" json:"statut"`
	TotalHT            *float64         `json:"total_ht"`
	Notes              string           `gorm:"size:1000" json:"notes"`
	ImmatriculeUtilise string           `gorm:"size:30" json:"immatricule_utilise"`
	ClientID           *uint            `gorm:"index" json:"client_id"`
	Client             *Client          `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ChauffeurID        *uint            `gorm:"index" json:"chauffeur_id"`
	Chauffeur          *Chauffeur       `gorm:"foreignKey:ChauffeurID" json:"chauffeur,omitempty"`
	BonCommandeID      *uint            `gorm:"index" json:"bon_commande_id"`
	BonCommande        *BonCommande     `gorm:"foreignKey:BonCommandeID" json:"bon_commande,omitempty"`
	Lignes             []LigneLivraison `gorm:"foreignKey:BonLivraisonID;constraint:OnDelete:CASCADE" json:"lignes,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func (BonLivraison) TableName() string { return "bons_livraison" }

// LigneLivraison - ligne ordonnée d'un bon de livraison
type LigneLivraison struct {
	ID               uint     `gorm:"primaryKey" json:"id"`
	BonLivraisonID   uint     `gorm:"index;not null" json:"bon_livraison_id"`
	Position         int      `gorm:"not null;default:0" json:"position"`
	ProduitID        *uint    `gorm:"index" json:"produit_id"`
	Produit          *Produit `gorm:"foreignKey:ProduitID" json:"produit,omitempty"`
	QuantiteLivree   float64  `gorm:"not null;default:0" json:"quantite_livree"`
	QuantitePieces   float64  `gorm:"not null;default:0" json:"quantite_pieces"`
	QuantiteUnitaire float64  `gorm:"not null;default:0" json:"quantite_unitaire"`
	PrixUnitaire     float64  `gorm:"not null;default:0" json:"prix_unitaire"`
	TotalLigne       float64  `gorm:"not null;default:0" json:"total_ligne"` // prix_unitaire × quantite_livree
}

func (LigneLivraison) TableName() string { return "lignes_livraison" }
