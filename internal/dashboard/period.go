package dashboard

import (
	"time"

	"gestion-backend/internal/aggregation"

	"github.com/gofiber/fiber/v2"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// Range renvoie le premier jour de la période contenant now (nil pour "all").
// Semaine du lundi, mois et année calendaires.
func (p Period) Range(now time.Time) (*time.Time, error) {
	today := aggregation.Day(now)
	var from time.Time
	switch p {
	case PeriodDay:
		from = today
	case PeriodWeek:
		offset := (int(today.Weekday()) + 6) % 7 // lundi = 0
		from = today.AddDate(0, 0, -offset)
	case PeriodMonth:
		from = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	case PeriodYear:
		from = time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case PeriodAll:
		return nil, nil
	default:
		return nil, fiber.NewError(fiber.StatusBadRequest, "period doit valoir day, week, month, year ou all")
	}
	return &from, nil
}
