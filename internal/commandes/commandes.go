package commandes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gestion-backend/internal/audit"
	"gestion-backend/internal/crud"
	"gestion-backend/internal/database"
	"gestion-backend/internal/models"
	"gestion-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateBonCommandeRequest struct {
	NumeroCommande string   `json:"numero_commande" validate:"max=50"`
	DateCommande   string   `json:"date_commande" validate:"required,date"`
	Statut         string   `json:"statut" validate:"omitempty,oneof=brouillon envoyee confirmee livree annulee"`
	TotalHT        *float64 `json:"total_ht" validate:"omitempty,gte=0"`
	Notes          string   `json:"notes" validate:"max=1000"`
	FournisseurID  uint     `json:"fournisseur_id" validate:"required"`
	ClientID       *uint    `json:"client_id"`
}

type UpdateBonCommandeRequest struct {
	DateCommande  *string  `json:"date_commande" validate:"omitempty,date"`
	Statut        *string  `json:"statut" validate:"omitempty,oneof=brouillon envoyee confirmee livree annulee"`
	TotalHT       *float64 `json:"total_ht" validate:"omitempty,gte=0"`
	Notes         *string  `json:"notes" validate:"omitempty,max=1000"`
	FournisseurID *uint    `json:"fournisseur_id"`
	ClientID      *uint    `json:"client_id"`
	DetachClient  bool     `json:"detach_client"`
}

// POST /api/bons-commande
func CreateBonCommandeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBonCommandeRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		date, _ := time.Parse(validation.DateLayout, body.DateCommande)
		if err := checkLinks(body.FournisseurID, body.ClientID); err != nil {
			return err
		}

		numero := strings.TrimSpace(body.NumeroCommande)
		if numero == "" {
			n, err := crud.NextNumber(database.DB, &models.BonCommande{}, "numero_commande", "BC")
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Numérotation impossible")
			}
			numero = n
		} else if err := crud.EnsureUnique(database.DB, &models.BonCommande{}, "numero_commande", numero, 0, "Le bon de commande"); err != nil {
			return err
		}

		statut := models.CommandeBrouillon
		if body.Statut != "" {
			statut = models.StatutCommande(body.Statut)
		}

		bc := models.BonCommande{
			NumeroCommande: numero,
			DateCommande:   date,
			Statut:         statut,
			TotalHT:        body.TotalHT,
			Notes:          strings.TrimSpace(body.Notes),
			FournisseurID:  body.FournisseurID,
			ClientID:       body.ClientID,
		}
		if err := database.DB.Create(&bc).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bon de commande non enregistré")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityBonCommande,
			EntityID:    bc.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Bon de commande créé : %s", bc.NumeroCommande),
			After:       bc,
		})

		return c.Status(fiber.StatusCreated).JSON(bc)
	}
}

// GET /api/bons-commande?q=&statut=&fournisseur_id=&client_id=&from=&to=
func ListBonsCommandeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		params := crud.ListParamsFromQuery(c)

		dbq := database.DB.Model(&models.BonCommande{}).Preload("Fournisseur").Preload("Client")
		if s := c.Query("statut"); s != "" {
			if !models.StatutCommande(s).Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "statut inconnu")
			}
			dbq = dbq.Where("statut = ?", s)
		}
		if id := c.QueryInt("fournisseur_id"); id > 0 {
			dbq = dbq.Where("fournisseur_id = ?", id)
		}
		if id := c.QueryInt("client_id"); id > 0 {
			dbq = dbq.Where("client_id = ?", id)
		}
		from, err := validation.ParseDate(c.Query("from"), "from")
		if err != nil {
			return err
		}
		to, err := validation.ParseDate(c.Query("to"), "to")
		if err != nil {
			return err
		}
		if from != nil {
			dbq = dbq.Where("date_commande >= ?", *from)
		}
		if to != nil {
			dbq = dbq.Where("date_commande < ?", to.AddDate(0, 0, 1))
		}

		var list []models.BonCommande
		if err := dbq.Order("date_commande desc, id desc").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Échec du chargement des bons de commande")
		}
		return c.JSON(crud.Paginate(crud.Search(list, params.Search, searchFields), params))
	}
}

func searchFields(bc *models.BonCommande) []string {
	fields := []string{bc.NumeroCommande, bc.Notes}
	if bc.Fournisseur != nil {
		fields = append(fields, bc.Fournisseur.DisplayName())
	}
	if bc.Client != nil {
		fields = append(fields, bc.Client.DisplayName())
	}
	return fields
}

// GET /api/bons-commande/:id
func GetBonCommandeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var bc models.BonCommande
		if err := database.DB.Preload("Fournisseur").Preload("Client").First(&bc, id).Error; err != nil {
			return crud.NotFoundOr(err, "Bon de commande introuvable")
		}
		return c.JSON(bc)
	}
}

// PUT /api/bons-commande/:id
func UpdateBonCommandeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var bc models.BonCommande
		if err := database.DB.First(&bc, id).Error; err != nil {
			return crud.NotFoundOr(err, "Bon de commande introuvable")
		}

		var body UpdateBonCommandeRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		before := bc
		if body.DateCommande != nil {
			bc.DateCommande, _ = time.Parse(validation.DateLayout, *body.DateCommande)
		}
		if body.Statut != nil {
			bc.Statut = models.StatutCommande(*body.Statut)
		}
		if body.TotalHT != nil {
			bc.TotalHT = body.TotalHT
		}
		if body.Notes != nil {
			bc.Notes = strings.TrimSpace(*body.Notes)
		}
		if body.FournisseurID != nil {
			bc.FournisseurID = *body.FournisseurID
		}
		switch {
		case body.DetachClient:
			bc.ClientID = nil
		case body.ClientID != nil:
			bc.ClientID = body.ClientID
		}
		if err := checkLinks(bc.FournisseurID, bc.ClientID); err != nil {
			return err
		}

		if err := database.DB.Omit("Fournisseur", "Client").Save(&bc).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bon de commande non mis à jour")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityBonCommande,
			EntityID:    bc.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Bon de commande modifié : %s (%s)", bc.NumeroCommande, bc.Statut),
			Before:      before,
			After:       bc,
		})

		return c.JSON(bc)
	}
}

// DELETE /api/bons-commande/:id
func DeleteBonCommandeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var bc models.BonCommande
		if err := database.DB.First(&bc, id).Error; err != nil {
			return crud.NotFoundOr(err, "Bon de commande introuvable")
		}

		var deliveries int64
		database.DB.Model(&models.BonLivraison{}).Where("bon_commande_id = ?", bc.ID).Count(&deliveries)
		if deliveries > 0 {
			return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("Bon de commande livré par %d bon(s) de livraison, annulez-le plutôt", deliveries))
		}

		if err := database.DB.Delete(&bc).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bon de commande non supprimé")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityBonCommande,
			EntityID:    bc.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Bon de commande supprimé : %s", bc.NumeroCommande),
			Before:      bc,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// checkLinks vérifie que le fournisseur (obligatoire) et le client (facultatif) existent.
func checkLinks(fournisseurID uint, clientID *uint) error {
	if err := database.DB.Select("id").First(&models.Fournisseur{}, fournisseurID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "Fournisseur introuvable")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Échec du chargement des données")
	}
	if clientID == nil {
		return nil
	}
	if err := database.DB.Select("id").First(&models.Client{}, *clientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "Client introuvable")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Échec du chargement des données")
	}
	return nil
}
