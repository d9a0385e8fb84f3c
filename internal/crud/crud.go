// Package crud regroupe l'outillage commun aux handlers de saisie :
// identifiants, pagination, recherche libre et numérotation automatique.
package crud

import (
	"errors"
	"fmt"

	"gestion-backend/internal/aggregation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	defaultPerPage = 25
	maxPerPage     = 200
)

type ListParams struct {
	Search  string
	Page    int
	PerPage int
}

// ListParamsFromQuery lit ?q=&page=&per_page=.
func ListParamsFromQuery(c *fiber.Ctx) ListParams {
	p := ListParams{
		Search:  c.Query("q"),
		Page:    c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", defaultPerPage),
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

type Page[T any] struct {
	Items   []T `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Paginate découpe rows selon p. Une page hors limites est vide.
func Paginate[T any](rows []T, p ListParams) Page[T] {
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.Page < 1 {
		p.Page = 1
	}
	// page comparée avant multiplication : (page-1)*per_page peut déborder
	start, end := len(rows), len(rows)
	if pages := (len(rows) + p.PerPage - 1) / p.PerPage; p.Page-1 < pages {
		start = (p.Page - 1) * p.PerPage
		end = min(start+p.PerPage, len(rows))
	}
	items := make([]T, end-start)
	copy(items, rows[start:end])
	return Page[T]{Items: items, Total: len(rows), Page: p.Page, PerPage: p.PerPage}
}

// Search garde les lignes dont la concaténation des champs contient term.
func Search[T any](rows []T, term string, fields func(*T) []string) []T {
	if term == "" {
		return rows
	}
	out := make([]T, 0, len(rows))
	for i := range rows {
		if aggregation.MatchesSearch(term, fields(&rows[i])...) {
			out = append(out, rows[i])
		}
	}
	return out
}

// ParamID lit le paramètre de route :name.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
	}
	return uint(id), nil
}

// NotFoundOr traduit ErrRecordNotFound en 404, le reste en erreur interne générique.
func NotFoundOr(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, notFound)
	}
	return fiber.NewError(fiber.StatusInternalServerError, "Échec du chargement des données")
}

// NextNumber propose le premier numéro libre de la forme PREFIX-00001.
func NextNumber(db *gorm.DB, model any, column, prefix string) (string, error) {
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		return "", err
	}
	for n := count + 1; ; n++ {
		candidate := fmt.Sprintf("%s-%05d", prefix, n)
		var used int64
		if err := db.Model(model).Where(column+" = ?", candidate).Count(&used).Error; err != nil {
			return "", err
		}
		if used == 0 {
			return candidate, nil
		}
	}
}

// EnsureUnique renvoie 409 si value est déjà prise dans column (hors ligne exceptID).
func EnsureUnique(db *gorm.DB, model any, column, value string, exceptID uint, label string) error {
	q := db.Model(model).Where(column+" = ?", value)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Vérification d'unicité impossible")
	}
	if n > 0 {
		return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("%s %s existe déjà", label, value))
	}
	return nil
}
