package models

import "time"

// Client - client livré
type Client struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	NumeroClient string    `gorm:"size:50;uniqueIndex;not null" json:"numero_client"`
	Nom          string    `gorm:"size:100;not null" json:"nom"`
	Prenom       string    `gorm:"size:100" json:"prenom"`
	Societe      string    `gorm:"size:200" json:"societe"`
	ICE          string    `gorm:"size:15" json:"ice"`
	Email        string    `gorm:"size:150" json:"email"`
	Telephone    string    `gorm:"size:30" json:"telephone"`
	TotalMargin  float64   `gorm:"-" json:"total_margin"` // calculé, jamais stocké
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName renvoie la société si renseignée, sinon "prénom nom".
func (c *Client) DisplayName() string {
	return displayName(c.Societe, c.Prenom, c.Nom)
}
