package reports

import (
	"fmt"

	"gestion-backend/internal/aggregation"
	"gestion-backend/internal/models"
	"gestion-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// sheet écrit les lignes d'une feuille à partir de A1, la première en gras.
type sheet struct {
	f    *excelize.File
	name string
	row  int
	bold int
}

func newWorkbook(first string) (*excelize.File, *sheet, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", first); err != nil {
		f.Close()
		return nil, nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, &sheet{f: f, name: first, bold: bold}, nil
}

func (s *sheet) next(name string) (*sheet, error) {
	if _, err := s.f.NewSheet(name); err != nil {
		return nil, err
	}
	return &sheet{f: s.f, name: name, bold: s.bold}, nil
}

func (s *sheet) header(values ...any) error {
	if err := s.add(values...); err != nil {
		return err
	}
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(max(len(values), 1), s.row)
	if err != nil {
		return err
	}
	return s.f.SetCellStyle(s.name, cell, last, s.bold)
}

func (s *sheet) add(values ...any) error {
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	return s.f.SetSheetRow(s.name, cell, &values)
}

func (s *sheet) blank() { s.row++ }

func (s *sheet) widths(width float64) error {
	return s.f.SetColWidth(s.name, "A", "H", width)
}

func amount(v *float64) float64 { return aggregation.Amount(v).InexactFloat64() }

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ClientWorkbook - feuille "Relevé" (synthèse), "Livraisons" (une ligne par article) et "Paiements".
func ClientWorkbook(r *ClientReport) (*excelize.File, error) {
	f, summary, err := newWorkbook("Relevé")
	if err != nil {
		return nil, err
	}
	if err := writeClientWorkbook(summary, r); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeClientWorkbook(s *sheet, r *ClientReport) error {
	rows := [][]any{
		{"Client", r.Client.DisplayName()},
		{"Numéro", r.Client.NumeroClient},
		{"ICE", r.Client.ICE},
		{"Du", orEmpty(r.EffectiveFrom)},
		{"Au", orEmpty(r.To)},
		{"Dernier paiement", orEmpty(r.LastPayment)},
	}
	if err := s.header("Relevé client"); err != nil {
		return err
	}
	for _, row := range rows {
		if err := s.add(row...); err != nil {
			return err
		}
	}
	s.blank()
	totals := [][]any{
		{"Chiffre d'affaires", r.Totals.TotalRevenue},
		{"Total payé", r.Totals.TotalPaid},
		{"Solde", r.Totals.Balance},
		{"Avance", r.Totals.Credit},
		{"Marge", r.Totals.Margin},
		{"Livraisons", r.Totals.Count},
	}
	for _, row := range totals {
		if err := s.add(row...); err != nil {
			return err
		}
	}
	if err := s.widths(22); err != nil {
		return err
	}

	lines, err := s.next("Livraisons")
	if err != nil {
		return err
	}
	if err := lines.header("N° livraison", "Date", "Statut", "Produit", "Quantité", "Prix unitaire", "Total ligne", "Total HT"); err != nil {
		return err
	}
	for _, d := range r.Deliveries {
		date := d.DateLivraison.Format(validation.DateLayout)
		if len(d.Lignes) == 0 {
			if err := lines.add(d.NumeroLivraison, date, string(d.Statut), "", "", "", "", amount(d.TotalHT)); err != nil {
				return err
			}
			continue
		}
		for _, l := range d.Lignes {
			produit := models.NonSpecifie
			if l.Produit != nil {
				produit = l.Produit.NomProduit
			}
			if err := lines.add(d.NumeroLivraison, date, string(d.Statut), produit,
				l.QuantiteLivree, l.PrixUnitaire, l.TotalLigne, amount(d.TotalHT)); err != nil {
				return err
			}
		}
	}
	if err := lines.widths(16); err != nil {
		return err
	}

	return writePayments(lines, len(r.Payments), func(i int) []any {
		p := r.Payments[i]
		return []any{p.DatePaiement.Format(validation.DateLayout), amount(p.Montant), string(p.ModePaiement), p.Reference, p.Emetteur}
	})
}

// SupplierWorkbook - feuille "Relevé", "Commandes" et "Paiements".
func SupplierWorkbook(r *SupplierReport) (*excelize.File, error) {
	f, summary, err := newWorkbook("Relevé")
	if err != nil {
		return nil, err
	}
	if err := writeSupplierWorkbook(summary, r); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeSupplierWorkbook(s *sheet, r *SupplierReport) error {
	rows := [][]any{
		{"Fournisseur", r.Fournisseur.DisplayName()},
		{"Numéro", r.Fournisseur.NumeroFournisseur},
		{"ICE", r.Fournisseur.ICE},
		{"Du", orEmpty(r.From)},
		{"Au", orEmpty(r.To)},
	}
	if err := s.header("Relevé fournisseur"); err != nil {
		return err
	}
	for _, row := range rows {
		if err := s.add(row...); err != nil {
			return err
		}
	}
	s.blank()
	totals := [][]any{
		{"Total commandé", r.Totals.TotalOrdered},
		{"Total payé", r.Totals.TotalPaid},
		{"Dette", r.Totals.Debt},
		{"Avance", r.Totals.Credit},
	}
	for _, row := range totals {
		if err := s.add(row...); err != nil {
			return err
		}
	}
	if err := s.widths(22); err != nil {
		return err
	}

	orders, err := s.next("Commandes")
	if err != nil {
		return err
	}
	if err := orders.header("N° commande", "Date", "Statut", "Client", "Total HT"); err != nil {
		return err
	}
	for _, o := range r.Orders {
		client := ""
		if o.Client != nil {
			client = o.Client.DisplayName()
		}
		if err := orders.add(o.NumeroCommande, o.DateCommande.Format(validation.DateLayout), string(o.Statut), client, amount(o.TotalHT)); err != nil {
			return err
		}
	}
	if err := orders.widths(16); err != nil {
		return err
	}

	return writePayments(orders, len(r.Payments), func(i int) []any {
		p := r.Payments[i]
		return []any{p.DatePaiement.Format(validation.DateLayout), amount(p.Montant), string(p.ModePaiement), p.Reference, p.Emetteur}
	})
}

func writePayments(prev *sheet, n int, row func(i int) []any) error {
	s, err := prev.next("Paiements")
	if err != nil {
		return err
	}
	if err := s.header("Date", "Montant", "Mode", "Référence", "Émetteur"); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := s.add(row(i)...); err != nil {
			return err
		}
	}
	return s.widths(16)
}

func sendWorkbook(c *fiber.Ctx, f *excelize.File, name string) error {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Export impossible")
	}
	c.Set(fiber.HeaderContentType, xlsxMIME)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.xlsx"`, name))
	return c.Send(buf.Bytes())
}
