package authRoutes

import (
	authControllers "coursehub/controllers/auth"
	"coursehub/middleware"
	authValidators "coursehub/validators/auth"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App) {
	authGroup := app.Group("/auth")

	authGroup.Post("/register", authValidators.Register(), authControllers.Register)
	authGroup.Post("/login", authValidators.Login(), authControllers.Login)
	authGroup.Post("/admin/register", middleware.AdminSignupGuard(), authValidators.Register(), authControllers.RegisterAdmin)
	authGroup.Post("/admin/login", authValidators.Login(), authControllers.LoginAdmin)
}
