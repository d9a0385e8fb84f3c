package aggregation

import "time"

// FilterByDate garde les lignes dont la date (au jour près) est dans [from, to].
// Une borne nil ne filtre pas ce côté. La tranche d'entrée n'est pas modifiée.
func FilterByDate[T any](rows []T, date func(T) time.Time, from, to *time.Time) []T {
	out := make([]T, 0, len(rows))
	var lo, hi time.Time
	if from != nil {
		lo = Day(*from)
	}
	if to != nil {
		hi = Day(*to)
	}
	for _, row := range rows {
		d := Day(date(row))
		if from != nil && d.Before(lo) {
			continue
		}
		if to != nil && d.After(hi) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// Day ramène t à minuit (UTC) de sa date calendaire.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EffectiveFrom calcule la borne basse réellement appliquée. En mode
// "depuis le dernier paiement", le lendemain du dernier paiement remplace la
// date saisie. Sans paiement connu, la date saisie reste en vigueur.
func EffectiveFrom(manual, lastPayment *time.Time, sinceLastPayment bool) *time.Time {
	if sinceLastPayment && lastPayment != nil {
		next := Day(*lastPayment).AddDate(0, 0, 1)
		return &next
	}
	if manual == nil {
		return nil
	}
	from := Day(*manual)
	return &from
}

// LastDate renvoie la date la plus récente des lignes, nil si aucune.
func LastDate[T any](rows []T, date func(T) time.Time) *time.Time {
	var last *time.Time
	for _, row := range rows {
		d := date(row)
		if last == nil || d.After(*last) {
			last = &d
		}
	}
	return last
}
