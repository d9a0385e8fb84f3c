package validation

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Nom  string `validate:"required"`
	ICE  string `validate:"omitempty,ice"`
	Date string `validate:"required,date"`
}

func TestStructReportsFrenchMessages(t *testing.T) {
	err := Struct(&sample{ICE: "12345", Date: "10/01/2024"})
	require.Error(t, err)

	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
	assert.Contains(t, fe.Message, "nom est obligatoire")
	assert.Contains(t, fe.Message, "ICE doit contenir exactement 15 chiffres")
	assert.Contains(t, fe.Message, "date doit être au format")
}

func TestStructAcceptsValidICE(t *testing.T) {
	assert.NoError(t, Struct(&sample{Nom: "Atlas", ICE: "001234567000089", Date: "2024-01-10"}))
	assert.NoError(t, Struct(&sample{Nom: "Atlas", Date: "2024-01-10"}))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("", "from")
	assert.NoError(t, err)
	assert.Nil(t, d)

	d, err = ParseDate("2024-01-10", "from")
	require.NoError(t, err)
	assert.Equal(t, 10, d.Day())

	_, err = ParseDate("10-01-2024", "from")
	assert.Error(t, err)
}

type trimmed struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *trimmed) Normalize() { r.Email = strings.TrimSpace(r.Email) }

func TestParseBodyNormalizesBeforeValidation(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		var body trimmed
		if err := ParseBody(c, &body); err != nil {
			return err
		}
		return c.SendString(body.Email)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email": "  saisie@example.ma "}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "saisie@example.ma", string(got))
}
