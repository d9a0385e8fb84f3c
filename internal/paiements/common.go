package paiements

import (
	"errors"
	"strings"
	"time"

	"gestion-backend/internal/database"
	"gestion-backend/internal/models"
	"gestion-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// UpdatePaiementRequest sert aux deux sens de paiement ; party_id désigne le client ou le fournisseur.
type UpdatePaiementRequest struct {
	PartyID      *uint    `json:"party_id"`
	DatePaiement *string  `json:"date_paiement" validate:"omitempty,date"`
	Montant      *float64 `json:"montant" validate:"omitempty,gt=0"`
	ModePaiement *string  `json:"mode_paiement" validate:"omitempty,oneof=especes cheque virement effet carte"`
	Reference    *string  `json:"reference" validate:"omitempty,max=100"`
	Emetteur     *string  `json:"emetteur" validate:"omitempty,max=200"`
}

func (r *UpdatePaiementRequest) apply(date *time.Time, montant **float64, mode *models.ModePaiement, reference, emetteur *string) {
	if r.DatePaiement != nil {
		*date, _ = time.Parse(validation.DateLayout, *r.DatePaiement)
	}
	if r.Montant != nil {
		v := *r.Montant
		*montant = &v
	}
	if r.ModePaiement != nil {
		*mode = models.ModePaiement(*r.ModePaiement)
	}
	if r.Reference != nil {
		*reference = strings.TrimSpace(*r.Reference)
	}
	if r.Emetteur != nil {
		*emetteur = strings.TrimSpace(*r.Emetteur)
	}
}

// exists charge model par id ; 400 si absent.
func exists(model any, id uint, notFound string) error {
	if err := database.DB.First(model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, notFound)
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Échec du chargement des données")
	}
	return nil
}

// betweenDates applique ?from= et ?to= (bornes incluses au jour près) sur date_paiement.
func betweenDates(c *fiber.Ctx, dbq *gorm.DB) (*gorm.DB, error) {
	from, err := validation.ParseDate(c.Query("from"), "from")
	if err != nil {
		return nil, err
	}
	to, err := validation.ParseDate(c.Query("to"), "to")
	if err != nil {
		return nil, err
	}
	if from != nil {
		dbq = dbq.Where("date_paiement >= ?", *from)
	}
	if to != nil {
		dbq = dbq.Where("date_paiement < ?", to.AddDate(0, 0, 1))
	}
	return dbq, nil
}
