package catalogue

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

type CreateProduitRequest struct {
	NomProduit string   `json:"nom_produit" validate:"required,max=200"`
	PrixAchat  *float64 `json:"prix_achat" validate:"omitempty,gte=0"`
	PrixVente  float64  `json:"prix_vente" validate:"gte=0"`
	Unite      string   `json:"unite" validate:"required,max=20"`
}

type UpdateProduitRequest struct {
	NomProduit *string  `json:"nom_produit" validate:"omitempty,min=1,max=200"`
	PrixAchat  *float64 `json:"prix_achat" validate:"omitempty,gte=0"`
	PrixVente  *float64 `json:"prix_vente" validate:"omitempty,gte=0"`
	Unite      *string  `json:"unite" validate:"omitempty,min=1,max=20"`
	// prix_achat ne peut pas être remis à null via nil, d'où ce drapeau
	ClearPrixAchat bool `json:"clear_prix_achat"`
}

func produitSearchFields(p *models.Produit) []string {
	return []string{p.NomProduit, p.Unite}
}

// POST /api/produits
func CreateProduitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProduitRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		p := models.Produit{
			NomProduit: strings.TrimSpace(body.NomProduit),
			PrixAchat:  body.PrixAchat,
			PrixVente:  body.PrixVente,
			Unite:      strings.TrimSpace(body.Unite),
		}
		if err := database.DB.Create(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Produit non enregistré")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityProduit,
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Produit ajouté : %s (%s)", p.NomProduit, p.Unite),
			After:       p,
		})

		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// GET /api/produits?q=
func ListProduitsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		params := crud.ListParamsFromQuery(c)

		var list []models.Produit
		if err := database.DB.Order("nom_produit asc, id asc").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Échec du chargement des produits")
		}
		return c.JSON(crud.Paginate(crud.Search(list, params.Search, produitSearchFields), params))
	}
}

// GET /api/produits/:id
func GetProduitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.Produit
		if err := database.DB.First(&p, id).Error; err != nil {
			return crud.NotFoundOr(err, "Produit introuvable")
		}
		return c.JSON(p)
	}
}

// PUT /api/produits/:id
func UpdateProduitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.Produit
		if err := database.DB.First(&p, id).Error; err != nil {
			return crud.NotFoundOr(err, "Produit introuvable")
		}

		var body UpdateProduitRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		before := p
		if body.NomProduit != nil {
			p.NomProduit = strings.TrimSpace(*body.NomProduit)
		}
		if body.Unite != nil {
			p.Unite = strings.TrimSpace(*body.Unite)
		}
		if body.PrixVente != nil {
			p.PrixVente = *body.PrixVente
		}
		switch {
		case body.ClearPrixAchat:
			p.PrixAchat = nil
		case body.PrixAchat != nil:
			p.PrixAchat = body.PrixAchat
		}

		if err := database.DB.Save(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Produit non mis à jour")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityProduit,
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Produit modifié : %s", p.NomProduit),
			Before:      before,
			After:       p,
		})

		return c.JSON(p)
	}
}

// DELETE /api/produits/:id
func DeleteProduitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.Produit
		if err := database.DB.First(&p, id).Error; err != nil {
			return crud.NotFoundOr(err, "Produit introuvable")
		}

		var used int64
		database.DB.Model(&models.LigneLivraison{}).Where("produit_id = ?", p.ID).Count(&used)
		if used > 0 {
			return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("Produit utilisé dans %d ligne(s) de livraison, suppression impossible", used))
		}

		if err := database.DB.Delete(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Produit non supprimé")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityProduit,
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Produit supprimé : %s", p.NomProduit),
			Before:      p,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
