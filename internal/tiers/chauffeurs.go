package tiers

import (
	"fmt"
	"strings"

	"gestion-backend/internal/audit"
	"gestion-backend/internal/crud"
	"gestion-backend/internal/database"
	"gestion-backend/internal/models"
	"gestion-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type CreateChauffeurRequest struct {
	NumeroChauffeur string `json:"numero_chauffeur" validate:"max=50"`
	Nom             string `json:"nom" validate:"required,max=100"`
	Prenom          string `json:"prenom" validate:"max=100"`
	Telephone       string `json:"telephone" validate:"max=30"`
	Immatricule     string `json:"immatricule" validate:"max=30"`
	TypeChauffeur   string `json:"type_chauffeur" validate:"omitempty,oneof=interne externe"`
}

type UpdateChauffeurRequest struct {
	Nom           *string `json:"nom" validate:"omitempty,min=1,max=100"`
	Prenom        *string `json:"prenom" validate:"omitempty,max=100"`
	Telephone     *string `json:"telephone" validate:"omitempty,max=30"`
	Immatricule   *string `json:"immatricule" validate:"omitempty,max=30"`
	TypeChauffeur *string `json:"type_chauffeur" validate:"omitempty,oneof=interne externe"`
}

func chauffeurSearchFields(ch *models.Chauffeur) []string {
	return []string{ch.NumeroChauffeur, ch.Nom, ch.Prenom, ch.Telephone, ch.Immatricule}
}

// POST /api/chauffeurs
func CreateChauffeurHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateChauffeurRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		numero := strings.TrimSpace(body.NumeroChauffeur)
		if numero == "" {
			n, err := crud.NextNumber(database.DB, &models.Chauffeur{}, "numero_chauffeur", "CH")
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Numérotation impossible")
			}
			numero = n
		} else if err := crud.EnsureUnique(database.DB, &models.Chauffeur{}, "numero_chauffeur", numero, 0, "Le chauffeur"); err != nil {
			return err
		}

		typ := models.ChauffeurInterne
		if body.TypeChauffeur != "" {
			typ = models.TypeChauffeur(body.TypeChauffeur)
		}

		ch := models.Chauffeur{
			NumeroChauffeur: numero,
			Nom:             strings.TrimSpace(body.Nom),
			Prenom:          strings.TrimSpace(body.Prenom),
			Telephone:       strings.TrimSpace(body.Telephone),
			Immatricule:     strings.ToUpper(strings.TrimSpace(body.Immatricule)),
			TypeChauffeur:   typ,
		}
		if err := database.DB.Create(&ch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Chauffeur non enregistré")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityChauffeur,
			EntityID:    ch.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Chauffeur ajouté : %s %s", ch.Prenom, ch.Nom),
			After:       ch,
		})

		return c.Status(fiber.StatusCreated).JSON(ch)
	}
}

// GET /api/chauffeurs?q=&type=interne
func ListChauffeursHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		params := crud.ListParamsFromQuery(c)

		dbq := database.DB.Model(&models.Chauffeur{})
		if typ := c.Query("type"); typ != "" {
			if typ != string(models.ChauffeurInterne) && typ != string(models.ChauffeurExterne) {
				return fiber.NewError(fiber.StatusBadRequest, "type doit valoir 'interne' ou 'externe'")
			}
			dbq = dbq.Where("type_chauffeur = ?", typ)
		}

		var list []models.Chauffeur
		if err := dbq.Order("nom asc, prenom asc, id asc").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Échec du chargement des chauffeurs")
		}
		return c.JSON(crud.Paginate(crud.Search(list, params.Search, chauffeurSearchFields), params))
	}
}

// GET /api/chauffeurs/:id
func GetChauffeurHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var ch models.Chauffeur
		if err := database.DB.First(&ch, id).Error; err != nil {
			return crud.NotFoundOr(err, "Chauffeur introuvable")
		}
		return c.JSON(ch)
	}
}

// PUT /api/chauffeurs/:id
func UpdateChauffeurHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var ch models.Chauffeur
		if err := database.DB.First(&ch, id).Error; err != nil {
			return crud.NotFoundOr(err, "Chauffeur introuvable")
		}

		var body UpdateChauffeurRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		before := ch
		setTrimmed(&ch.Nom, body.Nom)
		setTrimmed(&ch.Prenom, body.Prenom)
		setTrimmed(&ch.Telephone, body.Telephone)
		if body.Immatricule != nil {
			ch.Immatricule = strings.ToUpper(strings.TrimSpace(*body.Immatricule))
		}
		if body.TypeChauffeur != nil {
			ch.TypeChauffeur = models.TypeChauffeur(*body.TypeChauffeur)
		}

		if err := database.DB.Save(&ch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Chauffeur non mis à jour")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityChauffeur,
			EntityID:    ch.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Chauffeur modifié : %s %s", ch.Prenom, ch.Nom),
			Before:      before,
			After:       ch,
		})

		return c.JSON(ch)
	}
}

// DELETE /api/chauffeurs/:id
func DeleteChauffeurHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var ch models.Chauffeur
		if err := database.DB.First(&ch, id).Error; err != nil {
			return crud.NotFoundOr(err, "Chauffeur introuvable")
		}

		var deliveries int64
		database.DB.Model(&models.BonLivraison{}).Where("chauffeur_id = ?", ch.ID).Count(&deliveries)
		if deliveries > 0 {
			return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("Chauffeur affecté à %d bon(s) de livraison, suppression impossible", deliveries))
		}

		if err := database.DB.Delete(&ch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Chauffeur non supprimé")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityChauffeur,
			EntityID:    ch.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Chauffeur supprimé : %s %s", ch.Prenom, ch.Nom),
			Before:      ch,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
