package courseValidator

import (
	"coursehub/middleware"
	"coursehub/validators"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

type PaymentInput struct {
	Method        string          `json:"method" validate:"required,max=40"`
	Status        string          `json:"status" validate:"required,max=40"`
	TransactionID *string         `json:"transactionId" validate:"omitempty,max=120"`
	CardLast4     *string         `json:"cardLast4" validate:"omitempty,len=4,numeric"`
	PaidAt        *time.Time      `json:"paidAt"`
	Raw           json.RawMessage `json:"raw"`
}

type EnrollRequest struct {
	CourseID string          `json:"courseId" validate:"required,uuid"`
	BatchID  *string         `json:"batchId"`
	Payment  *PaymentInput   `json:"payment" validate:"required"`
	Meta     json.RawMessage `json:"meta"`
}

// EnrollCourse validator middleware
func EnrollCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(EnrollRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		reqData.CourseID = strings.TrimSpace(reqData.CourseID)
		if reqData.Payment != nil {
			reqData.Payment.Method = strings.TrimSpace(reqData.Payment.Method)
			reqData.Payment.Status = strings.TrimSpace(reqData.Payment.Status)
		}

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedEnroll", reqData)
		return c.Next()
	}
}
