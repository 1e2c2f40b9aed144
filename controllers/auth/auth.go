package authController

import (
	"coursehub/config"
	"coursehub/database"
	"coursehub/middleware"
	"coursehub/models"
	"coursehub/utils"
	authValidator "coursehub/validators/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Register signs up a student
func Register(c *fiber.Ctx) error {
	return register(c, models.RoleStudent)
}

// RegisterAdmin signs up an admin. The route is guarded by
// middleware.AdminSignupGuard.
func RegisterAdmin(c *fiber.Ctx) error {
	return register(c, models.RoleAdmin)
}

// Login signs in a student or instructor
func Login(c *fiber.Ctx) error {
	return login(c, models.RoleStudent, models.RoleInstructor)
}

// LoginAdmin signs in an admin
func LoginAdmin(c *fiber.Ctx) error {
	return login(c, models.RoleAdmin)
}

func register(c *fiber.Ctx, role string) error {
	reqData := c.Locals("validatedRegister").(*authValidator.RegisterRequest)
	db := database.Database.Db

	// Check if email already exists
	if taken, err := emailTaken(db, reqData.Email); err != nil {
		return middleware.ErrorResponse(c, utils.Persistence("check email", err))
	} else if taken {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Email is already registered!", nil)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reqData.Password), config.AppConfig.SaltRound)
	if err != nil {
		utils.Log.Error("error hashing password", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}

	newUser := models.Student{
		Name:         reqData.Name,
		Email:        reqData.Email,
		PasswordHash: string(hashedPassword),
		Role:         role,
	}
	if err := db.Create(&newUser).Error; err != nil {
		// lost a race with a concurrent signup for the same email
		if taken, _ := emailTaken(db, reqData.Email); taken {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Email is already registered!", nil)
		}
		return middleware.ErrorResponse(c, utils.Persistence("create user", errors.Wrap(err, "insert student")))
	}

	token, err := middleware.GenerateJWT(newUser.ID.String(), newUser.Role)
	if err != nil {
		utils.Log.Error("error generating token", "user", newUser.ID, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate token!", nil)
	}

	utils.Log.Info("user registered", "user", newUser.ID, "role", newUser.Role)
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Registered successfully!", fiber.Map{
		"token": token,
		"user":  newUser,
	})
}

func login(c *fiber.Ctx, roles ...string) error {
	reqData := c.Locals("validatedLogin").(*authValidator.LoginRequest)

	var user models.Student
	err := database.Database.Db.Where("email = ?", reqData.Email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return middleware.ErrorResponse(c, utils.Persistence("load user", errors.Wrap(err, "query student")))
	}
	if err != nil || !hasRole(user.Role, roles) ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(reqData.Password)) != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid email or password!", nil)
	}

	token, err := middleware.GenerateJWT(user.ID.String(), user.Role)
	if err != nil {
		utils.Log.Error("error generating token", "user", user.ID, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate token!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login successful!", fiber.Map{
		"token": token,
		"user":  user,
	})
}

func emailTaken(db *gorm.DB, email string) (bool, error) {
	var count int64
	if err := db.Model(&models.Student{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "count students by email")
	}
	return count > 0, nil
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
