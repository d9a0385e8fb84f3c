package gateway

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"gestion-backend/internal/database"
	"gestion-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type table struct {
	selectRows func(ctx context.Context, db *gorm.DB, q *Query) (any, error)
	count      func(ctx context.Context, db *gorm.DB, q *Query) (int64, error)
}

func register[T any]() table {
	return table{
		selectRows: func(ctx context.Context, db *gorm.DB, q *Query) (any, error) {
			return Select[T](ctx, db, q)
		},
		count: Count[T],
	}
}

// Tables exposées en lecture. Les utilisateurs et le journal d'audit n'y figurent pas.
var tables = map[string]table{
	"clients":                register[models.Client](),
	"fournisseurs":           register[models.Fournisseur](),
	"produits":               register[models.Produit](),
	"chauffeurs":             register[models.Chauffeur](),
	"bons_commande":          register[models.BonCommande](),
	"bons_livraison":         register[models.BonLivraison](),
	"lignes_livraison":       register[models.LigneLivraison](),
	"paiements_clients":      register[models.PaiementClient](),
	"paiements_fournisseurs": register[models.PaiementFournisseur](),
}

var reservedParams = map[string]bool{
	"order":  true,
	"limit":  true,
	"offset": true,
	"embed":  true,
	"count":  true,
}

// GET /api/query/:table?statut=neq.annulee&date_livraison=gte.2024-01-01&order=date_livraison.desc&limit=20&embed=Lignes.Produit
// count=exact renvoie seulement {"count": n}.
func QueryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, ok := tables[c.Params("table")]
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "Table inconnue")
		}

		params := url.Values{}
		c.Context().QueryArgs().VisitAll(func(key, value []byte) {
			params.Add(string(key), string(value))
		})
		q, countOnly, err := ParseParams(params)
		if err != nil {
			return err
		}

		ctx := c.UserContext()
		if countOnly {
			n, err := t.count(ctx, database.DB, q)
			if err != nil {
				return toFiberError(err)
			}
			return c.JSON(fiber.Map{"count": n})
		}

		rows, err := t.selectRows(ctx, database.DB, q)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(rows)
	}
}

// ParseParams traduit les paramètres de requête en Query. Une clé répétée
// (date_livraison=gte.X&date_livraison=lte.Y) ajoute un filtre par valeur.
func ParseParams(params url.Values) (*Query, bool, error) {
	q := New()

	for key, values := range params {
		if reservedParams[key] {
			continue
		}
		for _, raw := range values {
			op, value := OpEq, raw
			if prefix, rest, found := strings.Cut(raw, "."); found && Op(prefix).Valid() {
				op, value = Op(prefix), rest
			}
			q.Where(key, op, Raw(value))
		}
	}

	if order := params.Get("order"); order != "" {
		for _, part := range strings.Split(order, ",") {
			field, dir, _ := strings.Cut(strings.TrimSpace(part), ".")
			switch dir {
			case "", "asc":
				q.OrderBy(field, true)
			case "desc":
				q.OrderBy(field, false)
			default:
				return nil, false, fiber.NewError(fiber.StatusBadRequest, "order doit être 'champ.asc' ou 'champ.desc'")
			}
		}
	}

	limit := defaultLimit
	if s := params.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, false, fiber.NewError(fiber.StatusBadRequest, "limit invalide")
		}
		limit = min(n, maxLimit)
	}
	q.Limit(limit)

	if s := params.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, false, fiber.NewError(fiber.StatusBadRequest, "offset invalide")
		}
		q.Offset(n)
	}

	if embed := params.Get("embed"); embed != "" {
		for _, rel := range strings.Split(embed, ",") {
			if rel = strings.TrimSpace(rel); rel != "" {
				q.With(rel)
			}
		}
	}

	countOnly := params.Get("count") == "exact"
	return q, countOnly, nil
}

func toFiberError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownField), errors.Is(err, ErrUnknownRelation), errors.Is(err, ErrInvalidValue):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		return fiber.NewError(fiber.StatusRequestTimeout, "Requête annulée")
	default:
		return err
	}
}
