package paiements

import (
	"fmt"
	"strings"
	"time"

	"gestion-backend/internal/audit"
	"gestion-backend/internal/crud"
	"gestion-backend/internal/database"
	"gestion-backend/internal/models"
	"gestion-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type CreatePaiementFournisseurRequest struct {
	FournisseurID uint    `json:"fournisseur_id" validate:"required"`
	DatePaiement  string  `json:"date_paiement" validate:"required,date"`
	Montant       float64 `json:"montant" validate:"gt=0"`
	ModePaiement  string  `json:"mode_paiement" validate:"omitempty,oneof=especes cheque virement effet carte"`
	Reference     string  `json:"reference" validate:"max=100"`
	Emetteur      string  `json:"emetteur" validate:"max=200"`
}

// POST /api/paiements-fournisseurs
func CreatePaiementFournisseurHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreatePaiementFournisseurRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		var f models.Fournisseur
		if err := exists(&f, body.FournisseurID, "Fournisseur introuvable"); err != nil {
			return err
		}

		date, _ := time.Parse(validation.DateLayout, body.DatePaiement)
		montant := body.Montant
		p := models.PaiementFournisseur{
			FournisseurID: body.FournisseurID,
			DatePaiement:  date,
			Montant:       &montant,
			ModePaiement:  models.ModePaiement(body.ModePaiement),
			Reference:     strings.TrimSpace(body.Reference),
			Emetteur:      strings.TrimSpace(body.Emetteur),
		}
		if err := database.DB.Create(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Paiement non enregistré")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityPaiementFournisseur,
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Paiement fournisseur : %.2f à %s", montant, f.DisplayName()),
			After:       p,
		})

		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// GET /api/paiements-fournisseurs?fournisseur_id=&from=&to=&q=
func ListPaiementsFournisseursHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		params := crud.ListParamsFromQuery(c)

		dbq := database.DB.Model(&models.PaiementFournisseur{}).Preload("Fournisseur")
		if id := c.QueryInt("fournisseur_id"); id > 0 {
			dbq = dbq.Where("fournisseur_id = ?", id)
		}
		dbq, err := betweenDates(c, dbq)
		if err != nil {
			return err
		}

		var list []models.PaiementFournisseur
		if err := dbq.Order("date_paiement desc, id desc").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Échec du chargement des paiements")
		}
		return c.JSON(crud.Paginate(crud.Search(list, params.Search, func(p *models.PaiementFournisseur) []string {
			fields := []string{p.Reference, p.Emetteur, string(p.ModePaiement)}
			if p.Fournisseur != nil {
				fields = append(fields, p.Fournisseur.DisplayName())
			}
			return fields
		}), params))
	}
}

// GET /api/paiements-fournisseurs/:id
func GetPaiementFournisseurHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.PaiementFournisseur
		if err := database.DB.Preload("Fournisseur").First(&p, id).Error; err != nil {
			return crud.NotFoundOr(err, "Paiement introuvable")
		}
		return c.JSON(p)
	}
}

// PUT /api/paiements-fournisseurs/:id
func UpdatePaiementFournisseurHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.PaiementFournisseur
		if err := database.DB.First(&p, id).Error; err != nil {
			return crud.NotFoundOr(err, "Paiement introuvable")
		}

		var body UpdatePaiementRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		before := p
		if body.PartyID != nil {
			if err := exists(&models.Fournisseur{}, *body.PartyID, "Fournisseur introuvable"); err != nil {
				return err
			}
			p.FournisseurID = *body.PartyID
		}
		body.apply(&p.DatePaiement, &p.Montant, &p.ModePaiement, &p.Reference, &p.Emetteur)

		if err := database.DB.Omit("Fournisseur").Save(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Paiement non mis à jour")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityPaiementFournisseur,
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Paiement fournisseur modifié (#%d)", p.ID),
			Before:      before,
			After:       p,
		})
		return c.JSON(p)
	}
}

// DELETE /api/paiements-fournisseurs/:id
func DeletePaiementFournisseurHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.PaiementFournisseur
		if err := database.DB.First(&p, id).Error; err != nil {
			return crud.NotFoundOr(err, "Paiement introuvable")
		}
		if err := database.DB.Delete(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Paiement non supprimé")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityPaiementFournisseur,
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Paiement fournisseur supprimé (#%d)", p.ID),
			Before:      p,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
