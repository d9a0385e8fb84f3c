package reports

import (
	"time"

	"gestion-backend/internal/freshness"
	"gestion-backend/internal/observability"
	"gestion-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const loadFailedMsg = "Échec du chargement des données"

// Window - bornes de dates saisies, incluses au jour près.
type Window struct {
	From *time.Time
	To   *time.Time
}

func windowFromQuery(c *fiber.Ctx) (Window, error) {
	from, err := validation.ParseDate(c.Query("from"), "from")
	if err != nil {
		return Window{}, err
	}
	to, err := validation.ParseDate(c.Query("to"), "to")
	if err != nil {
		return Window{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return Window{}, fiber.NewError(fiber.StatusBadRequest, "to doit être postérieure à from")
	}
	return Window{From: from, To: to}, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(validation.DateLayout)
	return &s
}

// finish traduit l'issue d'un chargement : 409 si remplacé, 500 générique si échec.
func finish(c *fiber.Ctx, ticket *freshness.Ticket, metrics *observability.Metrics, screen string, err error) error {
	if cerr := freshness.Check(c, ticket); cerr != nil {
		metrics.Superseded(screen)
		return cerr
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, loadFailedMsg)
	}
	return nil
}
