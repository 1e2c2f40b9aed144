package middleware

import (
	"coursehub/config"
	"coursehub/utils"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

// GenerateJWT generates a JWT token for the user
func GenerateJWT(userID, role string) (string, error) {
	ttl := time.Duration(config.AppConfig.JWTTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	claims := jwt.MapClaims{
		"id":   userID,
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	jwtSecret := []byte(config.AppConfig.JWTKey)

	return token.SignedString(jwtSecret)
}

// Subject is who a valid token speaks for.
type Subject struct {
	ID   string
	Role string
}

// ParseToken validates tokenString and returns its subject.
func ParseToken(tokenString string) (*Subject, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.AppConfig.JWTKey), nil
	})
	if err != nil || !token.Valid {
		return nil, utils.Unauthorized("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, utils.Unauthorized("Invalid token payload")
	}
	id := utils.NormalizeID(claims["id"])
	role, _ := claims["role"].(string)
	if id == "" || role == "" {
		return nil, utils.Unauthorized("Invalid token payload")
	}
	return &Subject{ID: id, Role: role}, nil
}

// JWTMiddleware is a middleware to check for valid JWT token in the request
func JWTMiddleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Missing or invalid Authorization header", nil)
	}

	// The token should be prefixed with "Bearer "
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid Authorization header format", nil)
	}

	subject, err := ParseToken(strings.TrimSpace(authHeader[len("Bearer "):]))
	if err != nil {
		return ErrorResponse(c, err)
	}

	c.Locals("userId", subject.ID)
	c.Locals("role", subject.Role)
	return c.Next()
}

// CurrentUser returns the subject JWTMiddleware stored on the request.
func CurrentUser(c *fiber.Ctx) (id, role string) {
	id, _ = c.Locals("userId").(string)
	role, _ = c.Locals("role").(string)
	return id, role
}

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Validation failed!", errors)
}

// ErrorResponse writes err using the status its kind maps to. Persistence and
// unknown errors are logged and answered with a generic message.
func ErrorResponse(c *fiber.Ctx, err error) error {
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		utils.Log.Error("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
		return JsonResponse(c, fiber.StatusInternalServerError, false, "Internal server error", nil)
	}

	switch appErr.Kind {
	case utils.KindValidation:
		field := appErr.Field
		if field == "" {
			field = "request"
		}
		return ValidationErrorResponse(c, map[string]string{field: appErr.Message})
	case utils.KindNotFound:
		return JsonResponse(c, fiber.StatusNotFound, false, appErr.Message, nil)
	case utils.KindUnauthorized:
		return JsonResponse(c, fiber.StatusUnauthorized, false, appErr.Message, nil)
	case utils.KindForbidden:
		return JsonResponse(c, fiber.StatusForbidden, false, appErr.Message, nil)
	case utils.KindConflict:
		return JsonResponse(c, fiber.StatusConflict, false, appErr.Message, nil)
	default:
		utils.Log.Error("request failed", "method", c.Method(), "path", c.Path(), "op", appErr.Message, "error", appErr.Err)
		return JsonResponse(c, fiber.StatusInternalServerError, false, "Internal server error", nil)
	}
}
