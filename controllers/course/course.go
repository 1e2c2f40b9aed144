package controllers

import (
	"coursehub/database"
	"coursehub/middleware"
	"coursehub/models"
	"coursehub/utils"
	courseValidator "coursehub/validators/course"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/now"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type publicQuestion struct {
	ID      string              `json:"id"`
	Prompt  string              `json:"prompt"`
	Options []models.QuizOption `json:"options"`
}

// lessonView hides quiz answers from anyone but admins.
type lessonView struct {
	models.Lesson
	QuizPayload []publicQuestion `json:"quizPayload"`
}

func lessonsForViewer(lessons []models.Lesson, admin bool) interface{} {
	if admin {
		return lessons
	}
	out := make([]lessonView, 0, len(lessons))
	for _, l := range lessons {
		view := lessonView{Lesson: l, QuizPayload: []publicQuestion{}}
		for _, q := range l.QuizDefinition {
			view.QuizPayload = append(view.QuizPayload, publicQuestion{ID: q.ID, Prompt: q.Prompt, Options: q.Options})
		}
		out = append(out, view)
	}
	return out
}

// viewerIsAdmin reads an optional bearer token on public routes.
func viewerIsAdmin(c *fiber.Ctx) bool {
	if _, role := middleware.CurrentUser(c); role != "" {
		return role == models.RoleAdmin
	}
	header := c.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return false
	}
	subject, err := middleware.ParseToken(strings.TrimSpace(header[len("Bearer "):]))
	return err == nil && subject.Role == models.RoleAdmin
}

// ListCourses lists the catalog, optionally filtered by category.
func ListCourses(c *fiber.Ctx) error {
	reqData := c.Locals("validatedCourseList").(*courseValidator.CourseListQuery)

	query := database.Database.Db.WithContext(c.UserContext()).Preload("Batches", orderBatches)
	if reqData.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(reqData.Category))
	}

	var courses []models.Course
	if err := query.Order("created_at desc").Find(&courses).Error; err != nil {
		return middleware.ErrorResponse(c, utils.Persistence("list courses", errors.Wrap(err, "query courses")))
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", courses)
}

// GetCourseDetails returns a course with its lessons in lesson order.
func GetCourseDetails(c *fiber.Ctx) error {
	courseID := c.Locals("courseId").(string)
	db := database.Database.Db.WithContext(c.UserContext())

	course, err := loadCourse(db, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	var lessons []models.Lesson
	if err := db.Where("course_ref = ?", course.ID).Order("lesson_number asc, created_at asc").Find(&lessons).Error; err != nil {
		return middleware.ErrorResponse(c, utils.Persistence("list lessons", errors.Wrap(err, "query lessons")))
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully!", fiber.Map{
		"course":  course,
		"lessons": lessonsForViewer(lessons, viewerIsAdmin(c)),
	})
}

// GetActiveBatches returns the batches of a course whose window covers today.
// Open-ended windows count as active.
func GetActiveBatches(c *fiber.Ctx) error {
	courseID := c.Locals("courseId").(string)

	course, err := loadCourse(database.Database.Db.WithContext(c.UserContext()), courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	dayStart, dayEnd := now.BeginningOfDay(), now.EndOfDay()
	active := make([]models.Batch, 0, len(course.Batches))
	for _, b := range course.Batches {
		if b.StartDate != nil && b.StartDate.After(dayEnd) {
			continue
		}
		if b.EndDate != nil && b.EndDate.Before(dayStart) {
			continue
		}
		active = append(active, b)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Active batches fetched successfully!", active)
}

func loadCourse(db *gorm.DB, courseID string) (*models.Course, error) {
	var course models.Course
	if err := db.Preload("Batches", orderBatches).Where("id = ?", courseID).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("course")
		}
		return nil, utils.Persistence("load course", errors.Wrap(err, "query course"))
	}
	return &course, nil
}
