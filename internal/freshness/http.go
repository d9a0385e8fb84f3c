package freshness

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// HeaderGeneration porte la génération de la réponse ; le client ignore toute
// réponse plus ancienne que la dernière reçue pour le même écran.
const HeaderGeneration = "X-Request-Generation"

// Key identifie un écran d'un utilisateur.
func Key(userID uint, screen string) string {
	return fmt.Sprintf("%d:%s", userID, screen)
}

// Check pose l'en-tête de génération et renvoie 409 si le ticket a été remplacé.
func Check(c *fiber.Ctx, t *Ticket) error {
	c.Set(HeaderGeneration, strconv.FormatUint(t.Generation(), 10))
	if err := t.Err(); err != nil {
		return fiber.NewError(fiber.StatusConflict, "Requête remplacée par une plus récente")
	}
	return nil
}
