package models

import "time"

type Produit struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	NomProduit string    `gorm:"size:200;not null" json:"nom_produit"`
	PrixAchat  *float64  `json:"prix_achat"` // coût, peut être inconnu
	PrixVente  float64   `gorm:"not null;default:0" json:"prix_vente"`
	Unite      string    `gorm:"size:20;not null" json:"unite"` // tonne, m3, sac, pièce...
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
