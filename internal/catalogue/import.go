package catalogue

import (
	"fmt"
	"strconv"
	"strings"

	"gestion-backend/internal/audit"
	"gestion-backend/internal/database"
	"gestion-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type ImportRow struct {
	Line       int
	NomProduit string
	Unite      string
	PrixVente  float64
	PrixAchat  *float64
}

type ImportResult struct {
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Rejected []string `json:"rejected"`
}

// ParseCatalogue lit la première feuille : produit, unité, prix de vente, prix d'achat (facultatif).
// Une première ligne commençant par "produit" ou "désignation" est un en-tête.
func ParseCatalogue(f *excelize.File) ([]ImportRow, []string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("aucune feuille")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, err
	}

	start := 0
	if len(rows) > 0 && len(rows[0]) > 0 {
		first := strings.ToLower(strings.TrimSpace(rows[0][0]))
		if strings.HasPrefix(first, "produit") || strings.HasPrefix(first, "désignation") || strings.HasPrefix(first, "nom") {
			start = 1
		}
	}

	var (
		out      []ImportRow
		rejected []string
	)
	for i := start; i < len(rows); i++ {
		row := rows[i]
		cell := func(n int) string {
			if n < len(row) {
				return strings.TrimSpace(row[n])
			}
			return ""
		}
		nom := cell(0)
		if nom == "" {
			continue
		}
		line := i + 1

		unite := cell(1)
		if unite == "" {
			rejected = append(rejected, fmt.Sprintf("ligne %d : unité manquante", line))
			continue
		}
		pv, err := parseAmount(cell(2))
		if err != nil || pv < 0 {
			rejected = append(rejected, fmt.Sprintf("ligne %d : prix de vente invalide", line))
			continue
		}
		r := ImportRow{Line: line, NomProduit: nom, Unite: unite, PrixVente: pv}
		if s := cell(3); s != "" {
			pa, err := parseAmount(s)
			if err != nil || pa < 0 {
				rejected = append(rejected, fmt.Sprintf("ligne %d : prix d'achat invalide", line))
				continue
			}
			r.PrixAchat = &pa
		}
		out = append(out, r)
	}
	return out, rejected, nil
}

// parseAmount accepte la virgule décimale et les espaces de milliers.
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// POST /api/produits/import (multipart, champ "file")
// Les produits existants (même nom, casse ignorée) sont mis à jour, les autres créés.
func ImportProduitsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Fichier manquant")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Seuls les fichiers .xlsx sont acceptés")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Fichier illisible")
		}
		defer file.Close()

		book, err := excelize.OpenReader(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Classeur Excel illisible")
		}
		defer book.Close()

		rows, rejected, err := ParseCatalogue(book)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Feuille illisible")
		}

		result := ImportResult{Rejected: rejected}
		if result.Rejected == nil {
			result.Rejected = []string{}
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var existing []models.Produit
			if err := tx.Find(&existing).Error; err != nil {
				return err
			}
			byName := make(map[string]*models.Produit, len(existing))
			for i := range existing {
				byName[strings.ToLower(existing[i].NomProduit)] = &existing[i]
			}

			for _, r := range rows {
				if p, ok := byName[strings.ToLower(r.NomProduit)]; ok {
					p.Unite, p.PrixVente = r.Unite, r.PrixVente
					if r.PrixAchat != nil {
						p.PrixAchat = r.PrixAchat
					}
					if err := tx.Save(p).Error; err != nil {
						return err
					}
					result.Updated++
					continue
				}
				p := models.Produit{NomProduit: r.NomProduit, Unite: r.Unite, PrixVente: r.PrixVente, PrixAchat: r.PrixAchat}
				if err := tx.Create(&p).Error; err != nil {
					return err
				}
				byName[strings.ToLower(p.NomProduit)] = &p
				result.Created++
			}
			return nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Import non enregistré")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityProduit,
			Action:      models.AuditActionImport,
			Description: fmt.Sprintf("Import catalogue %s : %d créé(s), %d mis à jour, %d rejeté(s)", fileHeader.Filename, result.Created, result.Updated, len(result.Rejected)),
		})

		return c.JSON(result)
	}
}
