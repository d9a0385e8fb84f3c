package auth

import (
	"strings"

	"gestion-backend/internal/config"
	"gestion-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const claimsKey = "auth_claims"

// JWTMiddleware exige un jeton porteur valide et pose ses claims dans c.Locals.
func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}
		claims, err := ParseToken(cfg.JWTSecret, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Token invalide ou expiré")
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "En-tête Authorization manquant")
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Format attendu : 'Bearer <token>'")
	}
	return token, nil
}

// RequireRole laisse passer les rôles listés ; les autres reçoivent 403.
func RequireRole(allowed ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := Role(c)
		for _, r := range allowed {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Vous n'avez pas les droits pour cette opération")
	}
}

func currentClaims(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(claimsKey).(*Claims)
	return claims
}

// UserID renvoie l'utilisateur authentifié, 0 hors des routes protégées.
func UserID(c *fiber.Ctx) uint {
	if claims := currentClaims(c); claims != nil {
		return claims.UserID
	}
	return 0
}

// Role renvoie le rôle authentifié, vide hors des routes protégées.
func Role(c *fiber.Ctx) models.UserRole {
	if claims := currentClaims(c); claims != nil {
		return claims.Role
	}
	return ""
}
