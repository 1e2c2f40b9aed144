package middleware

import (
	"crypto/subtle"
	"strings"

	"coursehub/config"
	"coursehub/models"
	"coursehub/utils"

	"github.com/gofiber/fiber/v2"
)

// RequireRoles returns a middleware that lets the request through only when
// the authenticated role is one of roles. It must run after JWTMiddleware.
func RequireRoles(roles ...string) fiber.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *fiber.Ctx) error {
		userID, role := CurrentUser(c)
		if userID == "" {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized: User ID not found", nil)
		}
		if !allowed[role] {
			return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
		}
		return c.Next()
	}
}

// SelfOrRoles allows the request when the path parameter param names the
// caller, or when the caller holds one of roles.
func SelfOrRoles(param string, roles ...string) fiber.Handler {
	guard := RequireRoles(roles...)
	return func(c *fiber.Ctx) error {
		userID, _ := CurrentUser(c)
		if userID != "" && userID == utils.NormalizeID(c.Params(param)) {
			return c.Next()
		}
		return guard(c)
	}
}

// AdminSignupGuard protects admin registration. The caller must either be an
// authenticated admin or present the configured X-Admin-Signup-Key. An empty
// ADMIN_SIGNUP_KEY disables the key path.
func AdminSignupGuard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key := c.Get("X-Admin-Signup-Key"); key != "" {
			want := config.AppConfig.AdminSignupKey
			if want != "" && subtle.ConstantTimeCompare([]byte(key), []byte(want)) == 1 {
				return c.Next()
			}
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid admin signup key!", nil)
		}

		authHeader := c.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Missing or invalid Authorization header", nil)
		}
		subject, err := ParseToken(strings.TrimSpace(authHeader[len("Bearer "):]))
		if err != nil {
			return ErrorResponse(c, err)
		}
		if subject.Role != models.RoleAdmin {
			return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
		}
		c.Locals("userId", subject.ID)
		c.Locals("role", subject.Role)
		return c.Next()
	}
}
