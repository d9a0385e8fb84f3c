package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const DateLayout = "2006-01-02"

var iceRe = regexp.MustCompile(`^[0-9]{15}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// ICE : identifiant fiscal marocain à 15 chiffres
	_ = v.RegisterValidation("ice", func(fl validator.FieldLevel) bool {
		return iceRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
	return v
}

// Normalizer est implémenté par les requêtes qui nettoient leurs champs
// (espaces, casse) avant validation.
type Normalizer interface {
	Normalize()
}

// ParseBody décode le corps JSON, le normalise si possible, puis applique les règles `validate`.
func ParseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
	}
	if n, ok := dst.(Normalizer); ok {
		n.Normalize()
	}
	return Struct(dst)
}

func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fiber.NewError(fiber.StatusBadRequest, "Données invalides")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, message(fe))
	}
	return fiber.NewError(fiber.StatusBadRequest, strings.Join(msgs, "; "))
}

func message(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s est obligatoire", field)
	case "email":
		return fmt.Sprintf("%s n'est pas un email valide", field)
	case "ice":
		return "ICE doit contenir exactement 15 chiffres"
	case "date":
		return fmt.Sprintf("%s doit être au format 'AAAA-MM-JJ'", field)
	case "oneof":
		return fmt.Sprintf("%s doit valoir l'une des valeurs : %s", field, fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s doit être supérieur à %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s : au moins %s caractères", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s : au plus %s caractères", field, fe.Param())
	default:
		return fmt.Sprintf("%s invalide", field)
	}
}

// ParseDate lit une date 'AAAA-MM-JJ'. Chaîne vide : nil sans erreur.
func ParseDate(s, name string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s doit être au format 'AAAA-MM-JJ'", name))
	}
	return &d, nil
}
