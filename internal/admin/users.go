package admin

import (
	"strings"

	"gestion-backend/internal/auth"
	"gestion-backend/internal/crud"
	"gestion-backend/internal/database"
	"gestion-backend/internal/models"
	"gestion-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type UserResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type UpdateUserRequest struct {
	Name     *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Role     *models.UserRole `json:"role" validate:"omitempty,oneof=admin gestionnaire"`
	Password *string          `json:"password" validate:"omitempty,min=8"`
}

func toResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt: u.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ----------------------------------------
// UTILISATEURS
// GET /api/admin/users
// ----------------------------------------

func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.Order("created_at DESC, id DESC").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Utilisateurs indisponibles")
		}

		res := make([]UserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, toResponse(u))
		}
		return c.JSON(res)
	}
}

// PUT /api/admin/users/:id
// Le mot de passe n'est jamais renvoyé ; on ne peut pas retirer le dernier administrateur.
func UpdateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		var user models.User
		if err := database.DB.First(&user, id).Error; err != nil {
			return crud.NotFoundOr(err, "Utilisateur introuvable")
		}

		var body UpdateUserRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		if body.Name != nil {
			user.Name = strings.TrimSpace(*body.Name)
		}
		if body.Role != nil && *body.Role != user.Role {
			if user.Role == models.RoleAdmin {
				if err := ensureAnotherAdmin(user.ID); err != nil {
					return err
				}
			}
			user.Role = *body.Role
		}
		if body.Password != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(*body.Password), bcrypt.DefaultCost)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Hachage du mot de passe impossible")
			}
			user.PasswordHash = string(hash)
		}

		if err := database.DB.Save(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Utilisateur non mis à jour")
		}
		return c.JSON(toResponse(user))
	}
}

// DELETE /api/admin/users/:id
func DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParamID(c, "id")
		if err != nil {
			return err
		}
		if id == auth.UserID(c) {
			return fiber.NewError(fiber.StatusBadRequest, "Vous ne pouvez pas supprimer votre propre compte")
		}

		var user models.User
		if err := database.DB.First(&user, id).Error; err != nil {
			return crud.NotFoundOr(err, "Utilisateur introuvable")
		}
		if user.Role == models.RoleAdmin {
			if err := ensureAnotherAdmin(user.ID); err != nil {
				return err
			}
		}

		if err := database.DB.Delete(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Utilisateur non supprimé")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func ensureAnotherAdmin(exceptID uint) error {
	var n int64
	if err := database.DB.Model(&models.User{}).Where("role = ? AND id <> ?", models.RoleAdmin, exceptID).Count(&n).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Échec du chargement des données")
	}
	if n == 0 {
		return fiber.NewError(fiber.StatusConflict, "Au moins un administrateur doit rester")
	}
	return nil
}
