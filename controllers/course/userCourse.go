package controllers

import (
	"coursehub/middleware"
	progressService "coursehub/services/progress"

	"github.com/gofiber/fiber/v2"
)

// MyProgress returns the caller's progress report across purchased courses.
func MyProgress(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)

	report, err := progressService.NewAggregator(progressStore()).BuildReport(c.UserContext(), userID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", report)
}
