package freshness

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSetsGenerationHeader(t *testing.T) {
	g := NewGuard()
	var stale *Ticket

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		ticket, _ := g.Begin(c.UserContext(), Key(7, "dashboard"))
		defer ticket.Done()
		if c.Query("replace") != "" {
			stale = ticket
			newer, _ := g.Begin(context.Background(), Key(7, "dashboard"))
			defer newer.Done()
		}
		if err := Check(c, ticket); err != nil {
			return err
		}
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get(HeaderGeneration))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/?replace=1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "2", resp.Header.Get(HeaderGeneration))
	require.NotNil(t, stale)
	assert.False(t, stale.Current())
}

func TestKeySeparatesUsersAndScreens(t *testing.T) {
	assert.Equal(t, "3:dashboard", Key(3, "dashboard"))
	assert.NotEqual(t, Key(3, "report:client:1"), Key(4, "report:client:1"))
}
