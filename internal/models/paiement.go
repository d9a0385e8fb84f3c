package models

import "time"

type ModePaiement string

const (
	ModeEspeces  ModePaiement = "especes"
	ModeCheque   ModePaiement = "cheque"
	ModeVirement ModePaiement = "virement"
	ModeEffet    ModePaiement = "effet"
	ModeCarte    ModePaiement = "carte"
)

func (m ModePaiement) Valid() bool {
	switch m {
	case ModeEspeces, ModeCheque, ModeVirement, ModeEffet, ModeCarte:
		return true
	}
	return false
}

// PaiementClient - règlement reçu d'un client
type PaiementClient struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	ClientID     uint         `gorm:"index;not null" json:"client_id"`
	Client       *Client      `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	DatePaiement time.Time    `gorm:"index;not null" json:"date_paiement"`
	Montant      *float64     `json:"montant"`
	ModePaiement ModePaiement `gorm:"size:20" json:"mode_paiement"`
	Reference    string       `gorm:"size:100" json:"reference"`
	Emetteur     string       `gorm:"size:200" json:"emetteur"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (PaiementClient) TableName() string { return "paiements_clients" }

// PaiementFournisseur - règlement versé à un fournisseur
type PaiementFournisseur struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	FournisseurID uint         `gorm:"index;not null" json:"fournisseur_id"`
	Fournisseur   *Fournisseur `gorm:"foreignKey:FournisseurID" json:"fournisseur,omitempty"`
	DatePaiement  time.Time    `gorm:"index;not null" json:"date_paiement"`
	Montant       *float64     `json:"montant"`
	ModePaiement  ModePaiement `gorm:"size:20" json:"mode_paiement"`
	Reference     string       `gorm:"size:100" json:"reference"`
	Emetteur      string       `gorm:"size:200" json:"emetteur"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (PaiementFournisseur) TableName() string { return "paiements_fournisseurs" }
