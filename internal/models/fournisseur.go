package models

import "time"

// Fournisseur - fournisseur auprès duquel on passe les bons de commande
type Fournisseur struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	NumeroFournisseur string    `gorm:"size:50;uniqueIndex;not null" json:"numero_fournisseur"`
	Nom               string    `gorm:"size:100;not null" json:"nom"`
	Prenom            string    `gorm:"size:100" json:"prenom"`
	Societe           string    `gorm:"size:200" json:"societe"`
	ICE               string    `gorm:"size:15" json:"ice"`
	Email             string    `gorm:"size:150" json:"email"`
	Telephone         string    `gorm:"size:30" json:"telephone"`
	AvailableCredit   float64   `gorm:"-" json:"available_credit"` // avance détenue, calculée
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (f *Fournisseur) DisplayName() string {
	return displayName(f.Societe, f.Prenom, f.Nom)
}
