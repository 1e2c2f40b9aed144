package controllers

import (
	"coursehub/database"
	"coursehub/middleware"
	"coursehub/models"
	"coursehub/utils"
	courseValidator "coursehub/validators/course"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// AdminAddLesson creates a lesson in a course, optionally scoped to one of its
// batches. lessonNumber is unique per (course, batch-or-none).
func AdminAddLesson(c *fiber.Ctx) error {
	reqData := c.Locals("validatedLesson").(*courseValidator.LessonRequest)
	courseID := c.Locals("courseId").(string)
	adminID, _ := middleware.CurrentUser(c)
	db := database.Database.Db.WithContext(c.UserContext())

	var course models.Course
	if err := db.Preload("Batches", orderBatches).Where("id = ?", courseID).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.ErrorResponse(c, utils.NotFound("course"))
		}
		return middleware.ErrorResponse(c, utils.Persistence("load course", errors.Wrap(err, "query course")))
	}

	lesson := reqData.Lesson()
	lesson.CourseRef = course.ID
	lesson.CourseTitle = course.Title
	if id, err := uuid.Parse(adminID); err == nil {
		lesson.CreatedBy = &id
	}
	if utils.NormalizeID(reqData.BatchID) != "" {
		batch := course.FindBatch(*reqData.BatchID)
		if batch == nil {
			return middleware.ValidationErrorResponse(c, map[string]string{"batchId": "Batch does not belong to this course!"})
		}
		batchID, batchName := batch.ID.String(), batch.Name
		lesson.BatchRef = &batchID
		lesson.BatchName = &batchName
	}

	if taken, err := lessonNumberTaken(db, lesson); err != nil {
		return middleware.ErrorResponse(c, utils.Persistence("check lesson number", err))
	} else if taken {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Lesson number already exists for this course and batch!", nil)
	}

	if err := db.Create(lesson).Error; err != nil {
		if taken, _ := lessonNumberTaken(db, lesson); taken {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Lesson number already exists for this course and batch!", nil)
		}
		return middleware.ErrorResponse(c, utils.Persistence("create lesson", errors.Wrap(err, "insert lesson")))
	}

	utils.Log.Info("lesson created", "lesson", lesson.ID, "course", course.ID, "type", lesson.Kind)
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Lesson created successfully!", lesson)
}

func lessonNumberTaken(db *gorm.DB, lesson *models.Lesson) (bool, error) {
	var count int64
	err := db.Model(&models.Lesson{}).
		Where("course_ref = ? AND batch_key = ? AND lesson_number = ?", lesson.CourseRef, utils.NormalizeID(lesson.BatchRef), lesson.LessonNumber).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "count lessons by number")
	}
	return count > 0, nil
}
