package tiers

import (
	"context"
	"fmt"
	"strings"

	"gestion-backend/internal/aggregation"
	"gestion-backend/internal/audit"
	"gestion-backend/internal/crud"
	"gestion-backend/internal/database"
	"gestion-backend/internal/models"
	"gestion-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type CreateFournisseurRequest struct {
	NumeroFournisseur string `json:"numero_fournisseur" validate:"max=50"`
	Nom               string `json:"nom" validate:"required,max=100"`
	Prenom            string `json:"prenom" validate:"max=100"`
	Societe           string `json:"societe" validate:"max=200"`
	ICE               string `json:"ice" validate:"omitempty,ice"`
	Email             string `json:"email" validate:"omitempty,email"`
	Telephone         string `json:"telephone" validate:"max=30"`
}

type UpdateFournisseurRequest struct {
	NumeroFournisseur *string `json:"numero_fournisseur" validate:"omitempty,min=1,max=50"`
	Nom               *string `json:"nom" validate:"omitempty,min=1,max=100"`
	Prenom            *string `json:"prenom" validate:"omitempty,max=100"`
	Societe           *string `json:"societe" validate:"omitempty,max=200"`
	ICE               *string `json:"ice" validate:"omitempty,ice"`
	Email             *string `json:"email" validate:"omitempty,email"`
	Telephone         *string `json:"telephone" validate:"omitempty,max=30"`
}

func fournisseurSearchFields(f *models.Fournisseur) []string {
	return []string{f.NumeroFournisseur, f.Nom, f.Prenom, f.Societe, f.ICE, f.Telephone}
}

// POST /api/fournisseurs
func CreateFournisseurHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateFournisseurRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		numero := strings.TrimSpace(body.NumeroFournisseur)
		if numero == "" {
			n, err := crud.NextNumber(database.DB, &models.Fournisseur{}, "numero_fournisseur", "FR")
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Numérotation impossible")
			}
			numero = n
		} else if err := crud.EnsureUnique(database.DB, &models.Fournisseur{}, "numero_fournisseur", numero, 0, "Le fournisseur"); err != nil {
			return err
		}

		f := models.Fournisseur{
			NumeroFournisseur: numero,
			Nom:               strings.TrimSpace(body.Nom),
			Prenom:            strings.TrimSpace(body.Prenom),
			Societe:           strings.TrimSpace(body.Societe),
			ICE:               body.ICE,
			Email:             strings.TrimSpace(body.Email),
			Telephone:         strings.TrimSpace(body.Telephone),
		}
		if err := database.DB.Create(&f).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Fournisseur non enregistré")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityFournisseur,
			EntityID:    f.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Fournisseur ajouté : %s (%s)", f.DisplayName(), f.NumeroFournisseur),
			After:       f,
		})

		return c.Status(fiber.StatusCreated).JSON(f)
	}
}

// GET /api/fournisseurs?q=&page=&per_page=
func ListFournisseursHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		params := crud.ListParamsFromQuery(c)

		var list []models.Fournisseur
		if err := database.DB.WithContext(c.UserContext()).Order("nom asc, prenom asc, id asc").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Échec du chargement des fournisseurs")
		}

		page := crud.Paginate(crud.Search(list, params.Search, fournisseurSearchFields), params)
		if err := fillAvailableCredit(c.UserContext(), page.Items); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Échec du calcul des avances")
		}
		return c.JSON(page)
	}
}

// GET /api/fournisseurs/:id
func GetFournisseurHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var f models.Fournisseur
		if err := database.DB.WithContext(c.UserContext()).First(&f, id).Error; err != nil {
			return crud.NotFoundOr(err, "Fournisseur introuvable")
		}
		list := []models.Fournisseur{f}
		if err := fillAvailableCredit(c.UserContext(), list); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Échec du calcul des avances")
		}
		return c.JSON(list[0])
	}
}

// PUT /api/fournisseurs/:id
func UpdateFournisseurHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var f models.Fournisseur
		if err := database.DB.First(&f, id).Error; err != nil {
			return crud.NotFoundOr(err, "Fournisseur introuvable")
		}

		var body UpdateFournisseurRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		before := f
		if body.NumeroFournisseur != nil {
			numero := strings.TrimSpace(*body.NumeroFournisseur)
			if err := crud.EnsureUnique(database.DB, &models.Fournisseur{}, "numero_fournisseur", numero, f.ID, "Le fournisseur"); err != nil {
				return err
			}
			f.NumeroFournisseur = numero
		}
		setTrimmed(&f.Nom, body.Nom)
		setTrimmed(&f.Prenom, body.Prenom)
		setTrimmed(&f.Societe, body.Societe)
		setTrimmed(&f.ICE, body.ICE)
		setTrimmed(&f.Email, body.Email)
		setTrimmed(&f.Telephone, body.Telephone)

		if err := database.DB.Save(&f).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Fournisseur non mis à jour")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityFournisseur,
			EntityID:    f.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Fournisseur modifié : %s", f.DisplayName()),
			Before:      before,
			After:       f,
		})

		return c.JSON(f)
	}
}

// DELETE /api/fournisseurs/:id
func DeleteFournisseurHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var f models.Fournisseur
		if err := database.DB.First(&f, id).Error; err != nil {
			return crud.NotFoundOr(err, "Fournisseur introuvable")
		}

		var orders, payments int64
		database.DB.Model(&models.BonCommande{}).Where("fournisseur_id = ?", f.ID).Count(&orders)
		database.DB.Model(&models.PaiementFournisseur{}).Where("fournisseur_id = ?", f.ID).Count(&payments)
		if orders > 0 || payments > 0 {
			return fiber.NewError(fiber.StatusConflict, fmt.Sprintf(
				"Fournisseur rattaché à %d bon(s) de commande et %d paiement(s), suppression impossible", orders, payments))
		}

		if err := database.DB.Delete(&f).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Fournisseur non supprimé")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityFournisseur,
			EntityID:    f.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Fournisseur supprimé : %s", f.DisplayName()),
			Before:      f,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// fillAvailableCredit renseigne l'avance détenue chez chaque fournisseur.
func fillAvailableCredit(ctx context.Context, list []models.Fournisseur) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(list))
	for _, f := range list {
		ids = append(ids, f.ID)
	}

	var orders []models.BonCommande
	if err := database.DB.WithContext(ctx).Scopes(models.NotCancelled).Where("fournisseur_id IN ?", ids).Find(&orders).Error; err != nil {
		return err
	}
	var payments []models.PaiementFournisseur
	if err := database.DB.WithContext(ctx).Where("fournisseur_id IN ?", ids).Find(&payments).Error; err != nil {
		return err
	}

	ordersBy := make(map[uint][]models.BonCommande)
	for _, o := range orders {
		ordersBy[o.FournisseurID] = append(ordersBy[o.FournisseurID], o)
	}
	paymentsBy := make(map[uint][]models.PaiementFournisseur)
	for _, p := range payments {
		paymentsBy[p.FournisseurID] = append(paymentsBy[p.FournisseurID], p)
	}

	for i := range list {
		totals := aggregation.ComputeSupplierTotals(ordersBy[list[i].ID], paymentsBy[list[i].ID])
		list[i].AvailableCredit = totals.Credit.InexactFloat64()
	}
	return nil
}
