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
	"github.com/shopspring/decimal"
)

// -------------------------
// Request Types
// -------------------------

type CreateClientRequest struct {
	NumeroClient string `json:"numero_client" validate:"max=50"`
	Nom          string `json:"nom" validate:"required,max=100"`
	Prenom       string `json:"prenom" validate:"max=100"`
	Societe      string `json:"societe" validate:"max=200"`
	ICE          string `json:"ice" validate:"omitempty,ice"`
	Email        string `json:"email" validate:"omitempty,email"`
	Telephone    string `json:"telephone" validate:"max=30"`
}

type UpdateClientRequest struct {
	NumeroClient *string `json:"numero_client" validate:"omitempty,min=1,max=50"`
	Nom          *string `json:"nom" validate:"omitempty,min=1,max=100"`
	Prenom       *string `json:"prenom" validate:"omitempty,max=100"`
	Societe      *string `json:"societe" validate:"omitempty,max=200"`
	ICE          *string `json:"ice" validate:"omitempty,ice"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Telephone    *string `json:"telephone" validate:"omitempty,max=30"`
}

func clientSearchFields(c *models.Client) []string {
	return []string{c.NumeroClient, c.Nom, c.Prenom, c.Societe, c.ICE, c.Telephone}
}

// POST /api/clients
func CreateClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateClientRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		numero := strings.TrimSpace(body.NumeroClient)
		if numero == "" {
			n, err := crud.NextNumber(database.DB, &models.Client{}, "numero_client", "CL")
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Numérotation impossible")
			}
			numero = n
		} else if err := crud.EnsureUnique(database.DB, &models.Client{}, "numero_client", numero, 0, "Le client"); err != nil {
			return err
		}

		client := models.Client{
			NumeroClient: numero,
			Nom:          strings.TrimSpace(body.Nom),
			Prenom:       strings.TrimSpace(body.Prenom),
			Societe:      strings.TrimSpace(body.Societe),
			ICE:          body.ICE,
			Email:        strings.TrimSpace(body.Email),
			Telephone:    strings.TrimSpace(body.Telephone),
		}
		if err := database.DB.Create(&client).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Client non enregistré")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityClient,
			EntityID:    client.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Client ajouté : %s (%s)", client.DisplayName(), client.NumeroClient),
			After:       client,
		})

		return c.Status(fiber.StatusCreated).JSON(client)
	}
}

// GET /api/clients?q=&page=&per_page=
func ListClientsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		params := crud.ListParamsFromQuery(c)

		var clients []models.Client
		if err := database.DB.WithContext(c.UserContext()).Order("nom asc, prenom asc, id asc").Find(&clients).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Échec du chargement des clients")
		}

		page := crud.Paginate(crud.Search(clients, params.Search, clientSearchFields), params)
		if err := fillClientMargins(c.UserContext(), page.Items); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Échec du calcul des marges")
		}
		return c.JSON(page)
	}
}

// GET /api/clients/:id
func GetClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var client models.Client
		if err := database.DB.WithContext(c.UserContext()).First(&client, id).Error; err != nil {
			return crud.NotFoundOr(err, "Client introuvable")
		}
		clients := []models.Client{client}
		if err := fillClientMargins(c.UserContext(), clients); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Échec du calcul des marges")
		}
		return c.JSON(clients[0])
	}
}

// PUT /api/clients/:id
func UpdateClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var client models.Client
		if err := database.DB.First(&client, id).Error; err != nil {
			return crud.NotFoundOr(err, "Client introuvable")
		}

		var body UpdateClientRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		before := client
		if body.NumeroClient != nil {
			numero := strings.TrimSpace(*body.NumeroClient)
			if err := crud.EnsureUnique(database.DB, &models.Client{}, "numero_client", numero, client.ID, "Le client"); err != nil {
				return err
			}
			client.NumeroClient = numero
		}
		setTrimmed(&client.Nom, body.Nom)
		setTrimmed(&client.Prenom, body.Prenom)
		setTrimmed(&client.Societe, body.Societe)
		setTrimmed(&client.ICE, body.ICE)
		setTrimmed(&client.Email, body.Email)
		setTrimmed(&client.Telephone, body.Telephone)

		if err := database.DB.Save(&client).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Client non mis à jour")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityClient,
			EntityID:    client.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Client modifié : %s", client.DisplayName()),
			Before:      before,
			After:       client,
		})

		return c.JSON(client)
	}
}

// DELETE /api/clients/:id
// Refusé tant que des livraisons ou paiements y sont rattachés.
func DeleteClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var client models.Client
		if err := database.DB.First(&client, id).Error; err != nil {
			return crud.NotFoundOr(err, "Client introuvable")
		}

		var deliveries, payments int64
		database.DB.Model(&models.BonLivraison{}).Where("client_id = ?", client.ID).Count(&deliveries)
		database.DB.Model(&models.PaiementClient{}).Where("client_id = ?", client.ID).Count(&payments)
		if deliveries > 0 || payments > 0 {
			return fiber.NewError(fiber.StatusConflict, fmt.Sprintf(
				"Client rattaché à %d bon(s) de livraison et %d paiement(s), suppression impossible", deliveries, payments))
		}

		if err := database.DB.Delete(&client).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Client non supprimé")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityClient,
			EntityID:    client.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Client supprimé : %s", client.DisplayName()),
			Before:      client,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// fillClientMargins renseigne TotalMargin (livraisons non annulées) pour chaque client.
func fillClientMargins(ctx context.Context, clients []models.Client) error {
	if len(clients) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(clients))
	for _, cl := range clients {
		ids = append(ids, cl.ID)
	}

	var deliveries []models.BonLivraison
	if err := database.DB.WithContext(ctx).Scopes(models.NotCancelled).
		Where("client_id IN ?", ids).
		Preload("Lignes.Produit").
		Find(&deliveries).Error; err != nil {
		return err
	}

	margins := make(map[uint]decimal.Decimal, len(clients))
	for _, d := range deliveries {
		if d.ClientID == nil {
			continue
		}
		margins[*d.ClientID] = margins[*d.ClientID].Add(aggregation.ComputeMargin(d.Lignes))
	}
	for i := range clients {
		clients[i].TotalMargin = margins[clients[i].ID].InexactFloat64()
	}
	return nil
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
