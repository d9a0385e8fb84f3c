package models

import "time"

type StatutCommande string

const (
	CommandeBrouillon StatutCommande = "brouillon"
	CommandeEnvoyee   StatutCommande = "envoyee"
	CommandeConfirmee StatutCommande = "confirmee"
	CommandeLivree    StatutCommande = "livree"
	CommandeAnnulee   StatutCommande = "annulee"
)

func (s StatutCommande) Valid() bool {
	switch s {
	case CommandeBrouillon, CommandeEnvoyee, CommandeConfirmee, CommandeLivree, CommandeAnnulee:
		return true
	}
	return false
}

// BonCommande - commande passée auprès d'un fournisseur
type BonCommande struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	NumeroCommande string         `gorm:"size:50;uniqueIndex;not null" json:"numero_commande"`
	DateCommande   time.Time      `gorm:"index;not null" json:"date_commande"`
	Statut         StatutCommande `gorm:"size:20;not null;index;default:'brouillon'" json:"statut"`
	TotalHT        *float64       `json:"total_ht"`
	Notes          string         `gorm:"size:1000" json:"notes"`
	FournisseurID  uint           `gorm:"index;not null" json:"fournisseur_id"`
	Fournisseur    *Fournisseur   `gorm:"foreignKey:FournisseurID" json:"fournisseur,omitempty"`
	ClientID       *uint          `gorm:"index" json:"client_id"`
	Client         *Client        `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (BonCommande) TableName() string { return "bons_commande" }
