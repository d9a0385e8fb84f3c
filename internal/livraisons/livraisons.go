package livraisons

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gestion-backend/internal/aggregation"
	"gestion-backend/internal/audit"
	"gestion-backend/internal/crud"
	"gestion-backend/internal/database"
	"gestion-backend/internal/models"
	"gestion-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LigneRequest struct {
	ProduitID        *uint    `json:"produit_id"`
	QuantiteLivree   float64  `json:"quantite_livree" validate:"gte=0"`
	QuantitePieces   float64  `json:"quantite_pieces" validate:"gte=0"`
	QuantiteUnitaire float64  `json:"quantite_unitaire" validate:"gte=0"`
	PrixUnitaire     *float64 `json:"prix_unitaire" validate:"omitempty,gte=0"` // défaut : prix de vente du produit
}

type CreateBonLivraisonRequest struct {
	NumeroLivraison    string         `json:"numero_livraison" validate:"max=50"`
	DateLivraison      string         `json:"date_livraison" validate:"required,date"`
	Statut             string         `json:"statut" validate:"omitempty,oneof=en_preparation en_cours livree annulee"`
	Notes              string         `json:"notes" validate:"max=1000"`
	ImmatriculeUtilise string         `json:"immatricule_utilise" validate:"max=30"`
	ClientID           *uint          `json:"client_id"`
	ChauffeurID        *uint          `json:"chauffeur_id"`
	BonCommandeID      *uint          `json:"bon_commande_id"`
	Lignes             []LigneRequest `json:"lignes" validate:"dive"`
}

type UpdateBonLivraisonRequest struct {
	DateLivraison      *string `json:"date_livraison" validate:"omitempty,date"`
	Statut             *string `json:"statut" validate:"omitempty,oneof=en_preparation en_cours livree annulee"`
	Notes              *string `json:"notes" validate:"omitempty,max=1000"`
	ImmatriculeUtilise *string `json:"immatricule_utilise" validate:"omitempty,max=30"`
	ClientID           *uint   `json:"client_id"`
	ChauffeurID        *uint   `json:"chauffeur_id"`
	BonCommandeID      *uint   `json:"bon_commande_id"`
	// nil : lignes inchangées ; tableau (même vide) : lignes remplacées
	Lignes *[]LigneRequest `json:"lignes" validate:"omitempty,dive"`
}

// POST /api/bons-livraison
func CreateBonLivraisonHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBonLivraisonRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		date, _ := time.Parse(validation.DateLayout, body.DateLivraison)

		numero := strings.TrimSpace(body.NumeroLivraison)
		if numero == "" {
			n, err := crud.NextNumber(database.DB, &models.BonLivraison{}, "numero_livraison", "BL")
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Numérotation impossible")
			}
			numero = n
		} else if err := crud.EnsureUnique(database.DB, &models.BonLivraison{}, "numero_livraison", numero, 0, "Le bon de livraison"); err != nil {
			return err
		}

		statut := models.LivraisonEnPreparation
		if body.Statut != "" {
			statut = models.StatutLivraison(body.Statut)
		}

		bl := models.BonLivraison{
			NumeroLivraison:    numero,
			DateLivraison:      date,
			Statut:             statut,
			Notes:              strings.TrimSpace(body.Notes),
			ImmatriculeUtilise: strings.ToUpper(strings.TrimSpace(body.ImmatriculeUtilise)),
			ClientID:           body.ClientID,
			ChauffeurID:        body.ChauffeurID,
			BonCommandeID:      body.BonCommandeID,
		}
		if err := resolveLinks(&bl); err != nil {
			return err
		}

		lignes, err := buildLignes(body.Lignes)
		if err != nil {
			return err
		}
		bl.Lignes = lignes
		bl.TotalHT = totalHT(lignes)

		if err := database.DB.Create(&bl).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bon de livraison non enregistré")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityBonLivraison,
			EntityID:    bl.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Bon de livraison créé : %s (%d ligne(s))", bl.NumeroLivraison, len(bl.Lignes)),
			After:       stripRelations(bl),
		})

		return c.Status(fiber.StatusCreated).JSON(bl)
	}
}

// GET /api/bons-livraison?q=&statut=&client_id=&chauffeur_id=&from=&to=
func ListBonsLivraisonHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		params := crud.ListParamsFromQuery(c)

		dbq := database.DB.Model(&models.BonLivraison{}).Preload("Client").Preload("Chauffeur")
		if s := c.Query("statut"); s != "" {
			if !models.StatutLivraison(s).Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "statut inconnu")
			}
			dbq = dbq.Where("statut = ?", s)
		}
		if id := c.QueryInt("client_id"); id > 0 {
			dbq = dbq.Where("client_id = ?", id)
		}
		if id := c.QueryInt("chauffeur_id"); id > 0 {
			dbq = dbq.Where("chauffeur_id = ?", id)
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
			dbq = dbq.Where("date_livraison >= ?", *from)
		}
		if to != nil {
			dbq = dbq.Where("date_livraison < ?", to.AddDate(0, 0, 1))
		}

		var list []models.BonLivraison
		if err := dbq.Order("date_livraison desc, id desc").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Échec du chargement des bons de livraison")
		}
		return c.JSON(crud.Paginate(crud.Search(list, params.Search, searchFields), params))
	}
}

func searchFields(bl *models.BonLivraison) []string {
	fields := []string{bl.NumeroLivraison, bl.ImmatriculeUtilise, bl.Notes}
	if bl.Client != nil {
		fields = append(fields, bl.Client.DisplayName())
	}
	if bl.Chauffeur != nil {
		fields = append(fields, bl.Chauffeur.Prenom, bl.Chauffeur.Nom)
	}
	return fields
}

// GET /api/bons-livraison/:id
func GetBonLivraisonHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		bl, err := load(database.DB, id, true)
		if err != nil {
			return crud.NotFoundOr(err, "Bon de livraison introuvable")
		}
		return c.JSON(bl)
	}
}

// PUT /api/bons-livraison/:id
func UpdateBonLivraisonHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		bl, err := load(database.DB, id, false)
		if err != nil {
			return crud.NotFoundOr(err, "Bon de livraison introuvable")
		}

		var body UpdateBonLivraisonRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		before := stripRelations(*bl)
		if body.DateLivraison != nil {
			bl.DateLivraison, _ = time.Parse(validation.DateLayout, *body.DateLivraison)
		}
		if body.Statut != nil {
			bl.Statut = models.StatutLivraison(*body.Statut)
		}
		if body.Notes != nil {
			bl.Notes = strings.TrimSpace(*body.Notes)
		}
		if body.ImmatriculeUtilise != nil {
			bl.ImmatriculeUtilise = strings.ToUpper(strings.TrimSpace(*body.ImmatriculeUtilise))
		}
		if body.ClientID != nil {
			bl.ClientID = body.ClientID
		}
		if body.ChauffeurID != nil {
			bl.ChauffeurID = body.ChauffeurID
		}
		if body.BonCommandeID != nil {
			bl.BonCommandeID = body.BonCommandeID
		}
		if err := resolveLinks(bl); err != nil {
			return err
		}

		replaceLines := body.Lignes != nil
		if replaceLines {
			lignes, err := buildLignes(*body.Lignes)
			if err != nil {
				return err
			}
			bl.Lignes = lignes
		}
		bl.TotalHT = totalHT(bl.Lignes)

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if replaceLines {
				if err := tx.Where("bon_livraison_id = ?", bl.ID).Delete(&models.LigneLivraison{}).Error; err != nil {
					return err
				}
				for i := range bl.Lignes {
					bl.Lignes[i].ID = 0
					bl.Lignes[i].BonLivraisonID = bl.ID
				}
				if len(bl.Lignes) > 0 {
					if err := tx.Omit("Produit").Create(&bl.Lignes).Error; err != nil {
						return err
					}
				}
			}
			return tx.Omit(clause.Associations).Save(bl).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bon de livraison non mis à jour")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityBonLivraison,
			EntityID:    bl.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Bon de livraison modifié : %s (%s)", bl.NumeroLivraison, bl.Statut),
			Before:      before,
			After:       stripRelations(*bl),
		})

		return c.JSON(bl)
	}
}

// DELETE /api/bons-livraison/:id
func DeleteBonLivraisonHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		bl, err := load(database.DB, id, false)
		if err != nil {
			return crud.NotFoundOr(err, "Bon de livraison introuvable")
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("bon_livraison_id = ?", bl.ID).Delete(&models.LigneLivraison{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.BonLivraison{}, bl.ID).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bon de livraison non supprimé")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityBonLivraison,
			EntityID:    bl.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Bon de livraison supprimé : %s", bl.NumeroLivraison),
			Before:      stripRelations(*bl),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// load charge un bon avec ses lignes dans l'ordre ; withRelations ajoute client, chauffeur et produits.
func load(db *gorm.DB, id uint, withRelations bool) (*models.BonLivraison, error) {
	q := db.Preload("Lignes", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC, id ASC")
	})
	if withRelations {
		q = q.Preload("Lignes.Produit").Preload("Client").Preload("Chauffeur").Preload("BonCommande")
	}
	var bl models.BonLivraison
	if err := q.First(&bl, id).Error; err != nil {
		return nil, err
	}
	return &bl, nil
}

// resolveLinks vérifie les entités liées et reprend l'immatricule du chauffeur si aucun n'est saisi.
func resolveLinks(bl *models.BonLivraison) error {
	if bl.ClientID != nil {
		if err := exists(&models.Client{}, *bl.ClientID, "Client introuvable"); err != nil {
			return err
		}
	}
	if bl.BonCommandeID != nil {
		if err := exists(&models.BonCommande{}, *bl.BonCommandeID, "Bon de commande introuvable"); err != nil {
			return err
		}
	}
	if bl.ChauffeurID != nil {
		var ch models.Chauffeur
		if err := database.DB.First(&ch, *bl.ChauffeurID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusBadRequest, "Chauffeur introuvable")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Échec du chargement des données")
		}
		if bl.ImmatriculeUtilise == "" {
			bl.ImmatriculeUtilise = ch.Immatricule
		}
	}
	return nil
}

func exists(model any, id uint, notFound string) error {
	if err := database.DB.Select("id").First(model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, notFound)
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Échec du chargement des données")
	}
	return nil
}

// buildLignes numérote les lignes dans l'ordre reçu et calcule total_ligne.
func buildLignes(in []LigneRequest) ([]models.LigneLivraison, error) {
	prices := make(map[uint]float64)
	ids := make([]uint, 0, len(in))
	for _, l := range in {
		if l.ProduitID != nil {
			ids = append(ids, *l.ProduitID)
		}
	}
	if len(ids) > 0 {
		var produits []models.Produit
		if err := database.DB.Where("id IN ?", ids).Find(&produits).Error; err != nil {
			return nil, fiber.NewError(fiber.StatusInternalServerError, "Échec du chargement des produits")
		}
		for _, p := range produits {
			prices[p.ID] = p.PrixVente
		}
	}

	out := make([]models.LigneLivraison, 0, len(in))
	for i, l := range in {
		var prix float64
		if l.ProduitID != nil {
			pv, ok := prices[*l.ProduitID]
			if !ok {
				return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("ligne %d : produit introuvable", i+1))
			}
			prix = pv
		}
		if l.PrixUnitaire != nil {
			prix = *l.PrixUnitaire
		}
		out = append(out, models.LigneLivraison{
			Position:         i + 1,
			ProduitID:        l.ProduitID,
			QuantiteLivree:   l.QuantiteLivree,
			QuantitePieces:   l.QuantitePieces,
			QuantiteUnitaire: l.QuantiteUnitaire,
			PrixUnitaire:     prix,
			TotalLigne:       aggregation.Value(prix).Mul(aggregation.Value(l.QuantiteLivree)).Round(2).InexactFloat64(),
		})
	}
	return out, nil
}

// totalHT vaut la somme des total_ligne ; nil pour un bon sans ligne.
func totalHT(lignes []models.LigneLivraison) *float64 {
	if len(lignes) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, l := range lignes {
		sum = sum.Add(aggregation.Value(l.TotalLigne))
	}
	v := sum.InexactFloat64()
	return &v
}

// stripRelations garde les lignes mais retire les entités préchargées, pour l'audit.
func stripRelations(bl models.BonLivraison) models.BonLivraison {
	bl.Client, bl.Chauffeur, bl.BonCommande = nil, nil, nil
	lignes := make([]models.LigneLivraison, len(bl.Lignes))
	copy(lignes, bl.Lignes)
	for i := range lignes {
		lignes[i].Produit = nil
	}
	bl.Lignes = lignes
	return bl
}
