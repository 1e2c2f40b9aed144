package controllers

import (
	"coursehub/database"
	"coursehub/middleware"
	"coursehub/models"
	progressService "coursehub/services/progress"
	"coursehub/utils"
	courseValidator "coursehub/validators/course"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// AdminStudentProgress builds the progress report of any student.
func AdminStudentProgress(c *fiber.Ctx) error {
	studentID := c.Locals("studentId").(string)

	if _, err := loadStudent(database.Database.Db.WithContext(c.UserContext()), studentID); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	report, err := progressService.NewAggregator(progressStore()).BuildReport(c.UserContext(), studentID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Student progress fetched successfully!", report)
}

// AdminListStudents pages through accounts, newest first.
func AdminListStudents(c *fiber.Ctx) error {
	reqData := c.Locals("validatedStudentList").(*courseValidator.StudentListQuery)

	query := database.Database.Db.WithContext(c.UserContext()).Model(&models.Student{})
	if reqData.Search != "" {
		like := "%" + strings.ToLower(reqData.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if reqData.Role != "" {
		query = query.Where("role = ?", reqData.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return middleware.ErrorResponse(c, utils.Persistence("count students", errors.Wrap(err, "count students")))
	}

	var students []models.Student
	offset := (reqData.Page - 1) * reqData.Limit
	if err := query.Order("created_at desc").Offset(offset).Limit(reqData.Limit).Find(&students).Error; err != nil {
		return middleware.ErrorResponse(c, utils.Persistence("list students", errors.Wrap(err, "query students")))
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Students fetched successfully!", fiber.Map{
		"students": students,
		"pagination": fiber.Map{
			"page":  reqData.Page,
			"limit": reqData.Limit,
			"total": total,
		},
	})
}

// AdminGetStudent returns one account with its enrollments.
func AdminGetStudent(c *fiber.Ctx) error {
	db := database.Database.Db.WithContext(c.UserContext())

	student, err := loadStudent(db, c.Locals("studentId").(string))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	enrollments, err := EnrollmentService().ListByStudent(c.UserContext(), student.ID.String())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Student fetched successfully!", fiber.Map{
		"student":     student,
		"enrollments": enrollments,
	})
}

func loadStudent(db *gorm.DB, id string) (*models.Student, error) {
	var student models.Student
	if err := db.Where("id = ?", id).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("student")
		}
		return nil, utils.Persistence("load student", errors.Wrap(err, "query student"))
	}
	return &student, nil
}
