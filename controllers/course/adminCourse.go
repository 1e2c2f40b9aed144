package controllers

import (
	"coursehub/database"
	"coursehub/middleware"
	"coursehub/models"
	"coursehub/utils"
	courseValidator "coursehub/validators/course"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminCreateCourse creates a course. Purchases and the purchase counter are
// owned by the server and always start empty.
func AdminCreateCourse(c *fiber.Ctx) error {
	reqData := c.Locals("validatedCourse").(*courseValidator.CreateCourseRequest)
	adminID, _ := middleware.CurrentUser(c)

	course := models.Course{
		Title:          reqData.Title,
		Description:    reqData.Description,
		Category:       reqData.Category,
		Thumbnail:      reqData.Thumbnail,
		InstructorName: reqData.InstructorName,
	}
	if reqData.Price != nil {
		course.Price = *reqData.Price
	}
	if len(reqData.Extension) > 0 {
		course.Extension = datatypes.JSON(reqData.Extension)
	}
	if id, err := uuid.Parse(adminID); err == nil {
		course.CreatedBy = &id
	}
	for i, b := range reqData.Batches {
		course.Batches = append(course.Batches, models.Batch{
			Position:  i,
			Name:      b.Name,
			StartDate: b.StartDate,
			EndDate:   b.EndDate,
		})
	}

	if err := database.Database.Db.WithContext(c.UserContext()).Create(&course).Error; err != nil {
		return middleware.ErrorResponse(c, utils.Persistence("create course", errors.Wrap(err, "insert course")))
	}

	utils.Log.Info("course created", "course", course.ID, "admin", adminID)
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course created successfully!", course)
}

// AdminAddBatch appends a batch to a course and returns the updated course.
// Batch names are unique per course, case-insensitively.
func AdminAddBatch(c *fiber.Ctx) error {
	reqData := c.Locals("validatedBatch").(*courseValidator.BatchInput)
	courseID := c.Locals("courseId").(string)

	var course models.Course
	err := database.Database.Db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", courseID).First(&course).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFound("course")
			}
			return utils.Persistence("load course", errors.Wrap(err, "query course"))
		}

		var existing []models.Batch
		if err := tx.Where("course_id = ?", course.ID).Find(&existing).Error; err != nil {
			return utils.Persistence("load batches", errors.Wrap(err, "query batches"))
		}
		position := 0
		for _, b := range existing {
			if strings.EqualFold(b.Name, reqData.Name) {
				return utils.Conflict("Batch with this name already exists!")
			}
			if b.Position >= position {
				position = b.Position + 1
			}
		}

		batch := models.Batch{
			CourseID:  course.ID,
			Position:  position,
			Name:      reqData.Name,
			StartDate: reqData.StartDate,
			EndDate:   reqData.EndDate,
		}
		if err := tx.Create(&batch).Error; err != nil {
			return utils.Persistence("add batch", errors.Wrap(err, "insert batch"))
		}

		if err := tx.Preload("Batches", orderBatches).Where("id = ?", course.ID).First(&course).Error; err != nil {
			return utils.Persistence("reload course", errors.Wrap(err, "query course"))
		}
		return nil
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Batch added successfully!", course)
}

type batchSummary struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// AdminListCourseBatches lists every course with its batches, for lesson
// authoring screens.
func AdminListCourseBatches(c *fiber.Ctx) error {
	var courses []models.Course
	if err := database.Database.Db.WithContext(c.UserContext()).
		Preload("Batches", orderBatches).
		Order("created_at desc").
		Find(&courses).Error; err != nil {
		return middleware.ErrorResponse(c, utils.Persistence("list courses", errors.Wrap(err, "query courses")))
	}

	response := make([]fiber.Map, 0, len(courses))
	for i := range courses {
		course := &courses[i]
		batches := make([]batchSummary, 0, len(course.Batches))
		for j, b := range course.Batches {
			id := b.ID.String()
			if b.ID == uuid.Nil {
				id = course.SyntheticBatchID(j)
			}
			batches = append(batches, batchSummary{ID: id, Name: b.Name, StartDate: b.StartDate, EndDate: b.EndDate})
		}
		response = append(response, fiber.Map{
			"id":       course.ID,
			"title":    course.Title,
			"category": course.Category,
			"batches":  batches,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", response)
}

func orderBatches(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}
