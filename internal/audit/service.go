package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gestion-backend/internal/auth"
	"gestion-backend/internal/database"
	"gestion-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Types d'entités journalisées.
const (
	EntityClient              = "client"
	EntityFournisseur         = "fournisseur"
	EntityProduit             = "produit"
	EntityChauffeur           = "chauffeur"
	EntityBonCommande         = "bon_commande"
	EntityBonLivraison        = "bon_livraison"
	EntityPaiementClient      = "paiement_client"
	EntityPaiementFournisseur = "paiement_fournisseur"
)

// entities fabrique un modèle vide par type, pour l'annulation.
var entities = map[string]func() any{
	EntityClient:              func() any { return &models.Client{} },
	EntityFournisseur:         func() any { return &models.Fournisseur{} },
	EntityProduit:             func() any { return &models.Produit{} },
	EntityChauffeur:           func() any { return &models.Chauffeur{} },
	EntityBonCommande:         func() any { return &models.BonCommande{} },
	EntityBonLivraison:        func() any { return &models.BonLivraison{} },
	EntityPaiementClient:      func() any { return &models.PaiementClient{} },
	EntityPaiementFournisseur: func() any { return &models.PaiementFournisseur{} },
}

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func WriteLog(opts LogOptions) error {
	// "null" plutôt qu'une chaîne vide pour rester du JSON valide
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := database.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("journal d'audit non enregistré: %w", err)
	}
	return nil
}

// Record complète l'utilisateur depuis la requête et journalise. Un échec
// d'écriture est seulement tracé : la mutation a déjà eu lieu.
func Record(c *fiber.Ctx, opts LogOptions) {
	opts.UserID = auth.UserID(c)
	if opts.UserName == "" && opts.UserID != 0 {
		var user models.User
		if err := database.DB.Select("name").First(&user, opts.UserID).Error; err == nil {
			opts.UserName = user.Name
		}
	}
	if err := WriteLog(opts); err != nil {
		slog.Warn("audit", "entity", opts.EntityType, "id", opts.EntityID, "error", err)
	}
}

// UndoLog annule l'opération journalisée logID.
func UndoLog(logID uint, userID uint, userName string) error {
	var entry models.AuditLog
	if err := database.DB.First(&entry, "id = ?", logID).Error; err != nil {
		return fmt.Errorf("journal introuvable: %w", err)
	}

	if entry.IsUndone {
		return fmt.Errorf("cette opération a déjà été annulée")
	}

	newModel, ok := entities[entry.EntityType]
	if !ok {
		return fmt.Errorf("type d'entité inconnu: %s", entry.EntityType)
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		switch entry.Action {
		case models.AuditActionCreate:
			// création : on supprime
			if err := deleteLignes(tx, entry.EntityType, entry.EntityID); err != nil {
				return err
			}
			if err := tx.Delete(newModel(), "id = ?", entry.EntityID).Error; err != nil {
				return fmt.Errorf("suppression impossible: %w", err)
			}

		case models.AuditActionUpdate:
			// modification : on remet l'état précédent
			m := newModel()
			if err := json.Unmarshal([]byte(entry.BeforeData), m); err != nil {
				return fmt.Errorf("état précédent illisible: %w", err)
			}
			if err := tx.Omit(clause.Associations).Save(m).Error; err != nil {
				return fmt.Errorf("restauration impossible: %w", err)
			}
			if bl, ok := m.(*models.BonLivraison); ok {
				if err := deleteLignes(tx, entry.EntityType, bl.ID); err != nil {
					return err
				}
				if len(bl.Lignes) > 0 {
					if err := tx.Omit("Produit").Create(&bl.Lignes).Error; err != nil {
						return fmt.Errorf("lignes non restaurées: %w", err)
					}
				}
			}

		case models.AuditActionDelete:
			// suppression : on recrée avec le même identifiant, lignes comprises
			m := newModel()
			if err := json.Unmarshal([]byte(entry.BeforeData), m); err != nil {
				return fmt.Errorf("état supprimé illisible: %w", err)
			}
			if err := tx.Create(m).Error; err != nil {
				return fmt.Errorf("recréation impossible: %w", err)
			}

		default:
			return fmt.Errorf("ce type d'opération ne peut pas être annulé")
		}

		now := time.Now()
		entry.IsUndone = true
		entry.UndoneBy = &userID
		entry.UndoneAt = &now
		if err := tx.Save(&entry).Error; err != nil {
			return fmt.Errorf("journal non mis à jour: %w", err)
		}

		undo := models.AuditLog{
			UserID:      userID,
			UserName:    userName,
			EntityType:  entry.EntityType,
			EntityID:    entry.EntityID,
			Action:      models.AuditActionUndo,
			Description: fmt.Sprintf("Annulé : %s", entry.Description),
			BeforeData:  entry.AfterData,
			AfterData:   entry.BeforeData,
			Undone:      true,
		}
		if err := tx.Create(&undo).Error; err != nil {
			return fmt.Errorf("journal d'annulation non enregistré: %w", err)
		}
		return nil
	})
}

// deleteLignes retire les lignes d'un bon de livraison, sans effet pour les autres entités.
func deleteLignes(tx *gorm.DB, entityType string, id uint) error {
	if entityType != EntityBonLivraison {
		return nil
	}
	if err := tx.Where("bon_livraison_id = ?", id).Delete(&models.LigneLivraison{}).Error; err != nil {
		return fmt.Errorf("lignes non supprimées: %w", err)
	}
	return nil
}
