package courseValidator

import (
	"coursehub/middleware"
	"coursehub/validators"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

type BatchInput struct {
	Name      string     `json:"name" validate:"required,max=100"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

type CreateCourseRequest struct {
	Title          string          `json:"title" validate:"required,min=3,max=200"`
	Description    string          `json:"description" validate:"required,min=10"`
	Category       string          `json:"category" validate:"omitempty,max=100"`
	Price          *float64        `json:"price" validate:"omitempty,gte=0"`
	Thumbnail      *string         `json:"thumbnail" validate:"omitempty,url"`
	InstructorName *string         `json:"instructorName" validate:"omitempty,max=100"`
	Batches        []BatchInput    `json:"batches" validate:"omitempty,dive"`
	Extension      json.RawMessage `json:"extension"`
}

type CourseListQuery struct {
	Category string `query:"category"`
}

func batchWindowErrors(prefix string, b BatchInput, errors map[string]string) {
	if b.StartDate != nil && b.EndDate != nil && b.EndDate.Before(*b.StartDate) {
		errors[prefix+"endDate"] = "End date must not be before start date!"
	}
}

// CreateCourse validator middleware
func CreateCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CreateCourseRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		reqData.Title = strings.TrimSpace(reqData.Title)
		reqData.Description = strings.TrimSpace(reqData.Description)
		reqData.Category = strings.TrimSpace(reqData.Category)
		if reqData.Category == "" {
			reqData.Category = "General"
		}

		errors := validators.Struct(reqData)
		if errors == nil {
			errors = map[string]string{}
		}

		seen := map[string]bool{}
		for i, b := range reqData.Batches {
			prefix := "batches[" + strconv.Itoa(i) + "]."
			batchWindowErrors(prefix, b, errors)
			key := strings.ToLower(strings.TrimSpace(b.Name))
			if key != "" && seen[key] {
				errors[prefix+"name"] = "Batch names must be unique!"
			}
			seen[key] = true
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCourse", reqData)
		return c.Next()
	}
}

// AddBatch validator middleware
func AddBatch() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(BatchInput)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.Name = strings.TrimSpace(reqData.Name)

		errors := validators.Struct(reqData)
		if errors == nil {
			errors = map[string]string{}
		}
		batchWindowErrors("", *reqData, errors)
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedBatch", reqData)
		return c.Next()
	}
}

// ListCourses validator middleware
func ListCourses() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CourseListQuery)
		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}
		reqData.Category = strings.TrimSpace(reqData.Category)

		c.Locals("validatedCourseList", reqData)
		return c.Next()
	}
}
