package courseValidator

import (
	"coursehub/middleware"
	"coursehub/validators"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type StudentListQuery struct {
	Search string `query:"search" json:"search" validate:"omitempty,max=100"`
	Role   string `query:"role" json:"role" validate:"omitempty,oneof=student admin instructor"`
	Page   int    `query:"page" json:"page" validate:"gte=0"`
	Limit  int    `query:"limit" json:"limit" validate:"gte=0,max=200"`
}

// AdminStudentList validator middleware
func AdminStudentList() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(StudentListQuery)
		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}
		reqData.Search = strings.TrimSpace(reqData.Search)
		reqData.Role = strings.ToLower(strings.TrimSpace(reqData.Role))

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		if reqData.Page == 0 {
			reqData.Page = 1
		}
		if reqData.Limit == 0 {
			reqData.Limit = 50
		}

		c.Locals("validatedStudentList", reqData)
		return c.Next()
	}
}
