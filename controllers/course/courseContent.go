package controllers

import (
	"coursehub/database"
	"coursehub/middleware"
	"coursehub/models"
	progressService "coursehub/services/progress"
	quizService "coursehub/services/quiz"
	"coursehub/utils"
	courseValidator "coursehub/validators/course"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

func progressStore() *progressService.GormStore {
	return progressService.NewGormStore(database.Database.Db)
}

// StudentLessons lists a course's lessons in lesson order. batchId matches a
// lesson's batch id or its batch name.
func StudentLessons(c *fiber.Ctx) error {
	reqData := c.Locals("validatedLessonQuery").(*courseValidator.StudentLessonsQuery)

	query := database.Database.Db.WithContext(c.UserContext()).Where("course_ref = ?", reqData.CourseID)
	if reqData.BatchID != "" {
		query = query.Where("(batch_key = ? OR LOWER(batch_name) = ?)",
			utils.NormalizeID(reqData.BatchID), strings.ToLower(reqData.BatchID))
	}

	var lessons []models.Lesson
	if err := query.Order("lesson_number asc, created_at asc").Find(&lessons).Error; err != nil {
		return middleware.ErrorResponse(c, utils.Persistence("list lessons", errors.Wrap(err, "query lessons")))
	}

	_, role := middleware.CurrentUser(c)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lessons fetched successfully!", lessonsForViewer(lessons, role == models.RoleAdmin))
}

// CompleteLesson marks a lesson completed for the caller.
func CompleteLesson(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	lessonID := c.Locals("lessonId").(string)

	rec, err := progressService.NewRecorder(progressStore()).RecordCompletion(c.UserContext(), userID, lessonID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson marked as completed!", rec)
}

type quizSubmissionResponse struct {
	ScorePercent      int                     `json:"scorePercent"`
	CorrectCount      int                     `json:"correctCount"`
	TotalQuestions    int                     `json:"totalQuestions"`
	PerQuestionDetail []models.QuestionDetail `json:"perQuestionDetail"`
	Status            models.ProgressStatus   `json:"status"`
}

// SubmitQuiz grades the caller's answers and records the attempt.
func SubmitQuiz(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	lessonID := c.Locals("lessonId").(string)
	answers := c.Locals("validatedAnswers").([]quizService.Answer)

	result, rec, err := progressService.NewRecorder(progressStore()).SubmitQuiz(c.UserContext(), userID, lessonID, answers)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz submitted successfully!", quizSubmissionResponse{
		ScorePercent:      result.ScorePercent,
		CorrectCount:      result.CorrectCount,
		TotalQuestions:    result.TotalQuestions,
		PerQuestionDetail: result.PerQuestionDetail,
		Status:            rec.Status,
	})
}

// SubmitAssignment stores the caller's submission for an assignment lesson.
func SubmitAssignment(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	lessonID := c.Locals("lessonId").(string)
	submission := c.Locals("validatedSubmission").(json.RawMessage)

	rec, err := progressService.NewRecorder(progressStore()).SubmitAssignment(c.UserContext(), userID, lessonID, submission)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Assignment submitted successfully!", rec)
}
