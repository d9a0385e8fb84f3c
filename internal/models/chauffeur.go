package models

import "time"

type TypeChauffeur string

const (
	ChauffeurInterne TypeChauffeur = "interne"
	ChauffeurExterne TypeChauffeur = "externe"
)

type Chauffeur struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	NumeroChauffeur string        `gorm:"size:50;uniqueIndex;not null" json:"numero_chauffeur"`
	Nom             string        `gorm:"size:100;not null" json:"nom"`
	Prenom          string        `gorm:"size:100" json:"prenom"`
	Telephone       string        `gorm:"size:30" json:"telephone"`
	Immatricule     string        `gorm:"size:30" json:"immatricule"` // véhicule attribué
	TypeChauffeur   TypeChauffeur `gorm:"size:20;not null;default:'interne'" json:"type_chauffeur"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
