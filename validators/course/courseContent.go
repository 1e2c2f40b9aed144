package courseValidator

import (
	"bytes"
	"coursehub/middleware"
	"coursehub/models"
	lessonService "coursehub/services/lesson"
	quizService "coursehub/services/quiz"
	"coursehub/validators"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

type LessonRequest struct {
	Title                  string            `json:"title" validate:"required,max=200"`
	LessonNumber           int               `json:"lessonNumber" validate:"required,min=1"`
	Type                   string            `json:"type" validate:"omitempty,oneof=video quiz assignment article"`
	BatchID                *string           `json:"batchId"`
	VideoURL               *string           `json:"videoUrl" validate:"omitempty,url"`
	DurationMinutes        *int              `json:"durationMinutes" validate:"omitempty,gte=0"`
	QuizPayload            []models.Question `json:"quizPayload"`
	AssignmentInstructions *string           `json:"assignmentInstructions"`
	AssignmentDueDate      *time.Time        `json:"assignmentDueDate"`
	Resources              *string           `json:"resources"`
}

type StudentLessonsQuery struct {
	CourseID string `query:"courseId" json:"courseId" validate:"required,uuid"`
	BatchID  string `query:"batchId" json:"batchId"`
}

// Lesson turns the request into an unsaved lesson. New lessons always carry
// an explicit kind; video is the default.
func (r *LessonRequest) Lesson() *models.Lesson {
	kind := models.LessonKind(strings.ToLower(strings.TrimSpace(r.Type)))
	if kind == "" {
		kind = models.KindVideo
	}
	return &models.Lesson{
		Title:                  strings.TrimSpace(r.Title),
		LessonNumber:           r.LessonNumber,
		Kind:                   kind,
		VideoURL:               r.VideoURL,
		DurationMinutes:        r.DurationMinutes,
		QuizDefinition:         r.QuizPayload,
		AssignmentInstructions: r.AssignmentInstructions,
		AssignmentDueDate:      r.AssignmentDueDate,
		Resources:              r.Resources,
	}
}

// AddLesson validator middleware
func AddLesson() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(LessonRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}
		if err := lessonService.ValidateForWrite(reqData.Lesson()); err != nil {
			return middleware.ErrorResponse(c, err)
		}

		c.Locals("validatedLesson", reqData)
		return c.Next()
	}
}

// StudentLessons validator middleware
func StudentLessons() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(StudentLessonsQuery)
		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}
		reqData.CourseID = strings.TrimSpace(reqData.CourseID)
		reqData.BatchID = strings.TrimSpace(reqData.BatchID)

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedLessonQuery", reqData)
		return c.Next()
	}
}

// SubmitQuiz validator middleware. answers must be a JSON array; each entry
// may address its question by id or by position.
func SubmitQuiz() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Answers json.RawMessage `json:"answers"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		raw := bytes.TrimSpace(reqData.Answers)
		if len(raw) == 0 || raw[0] != '[' {
			return middleware.ValidationErrorResponse(c, map[string]string{"answers": "answers array required"})
		}

		answers := []quizService.Answer{}
		if err := json.Unmarshal(raw, &answers); err != nil {
			return middleware.ValidationErrorResponse(c, map[string]string{"answers": "each answer needs an integer selectedOptionIndex or null"})
		}

		c.Locals("validatedAnswers", answers)
		return c.Next()
	}
}

// SubmitAssignment validator middleware
func SubmitAssignment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Submission json.RawMessage `json:"submission"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		raw := bytes.TrimSpace(reqData.Submission)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return middleware.ValidationErrorResponse(c, map[string]string{"submission": "submission is required!"})
		}

		c.Locals("validatedSubmission", json.RawMessage(raw))
		return c.Next()
	}
}

// IDParam checks that path parameter name is a uuid and stores its canonical
// form in Locals under the same name.
func IDParam(name, label string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validators.UUIDParam(c.Params(name))
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid "+label+" ID!", nil)
		}
		c.Locals(name, id)
		return c.Next()
	}
}
