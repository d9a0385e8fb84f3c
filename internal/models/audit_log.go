package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionUndo   AuditAction = "undo"
	AuditActionImport AuditAction = "import" // import en masse, non annulable
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Qui ?
	UserID   uint   `json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"` // dénormalisé

	// Quelle entité ? (ex: "client", "bon_livraison", "paiement_client")
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	// État avant / après (JSON)
	BeforeData string `json:"before_data"`
	AfterData  string `json:"after_data"`

	// Ce log résulte d'une annulation
	Undone bool `json:"undone"`

	// Ce log a été annulé
	IsUndone bool       `gorm:"default:false" json:"is_undone"`
	UndoneBy *uint      `json:"undone_by"`
	UndoneAt *time.Time `json:"undone_at"`
}
