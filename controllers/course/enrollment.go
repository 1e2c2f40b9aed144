package controllers

import (
	"coursehub/database"
	"coursehub/middleware"
	"coursehub/models"
	enrollmentService "coursehub/services/enrollment"
	"coursehub/utils"
	courseValidator "coursehub/validators/course"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

var (
	paymentVerifier    enrollmentService.PaymentVerifier = enrollmentService.LocalVerifier{}
	enrollmentNotifier enrollmentService.Notifier
)

// Configure sets the payment verifier and confirmation notifier used by the
// enrollment handlers. A nil notifier disables confirmation email.
func Configure(verifier enrollmentService.PaymentVerifier, notifier enrollmentService.Notifier) {
	if verifier != nil {
		paymentVerifier = verifier
	}
	enrollmentNotifier = notifier
}

// EnrollmentService builds the service the handlers and the reconcile job share.
func EnrollmentService() *enrollmentService.Service {
	return enrollmentService.NewService(database.Database.Db, paymentVerifier, enrollmentNotifier)
}

// EnrollInCourse records a paid enrollment for the caller. Repeating the same
// enrollment returns the existing one.
func EnrollInCourse(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	reqData := c.Locals("validatedEnroll").(*courseValidator.EnrollRequest)

	p := reqData.Payment
	proof := models.PaymentProof{
		Method:        p.Method,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		CardLast4:     p.CardLast4,
		PaidAt:        p.PaidAt,
	}
	if len(p.Raw) > 0 {
		proof.Raw = datatypes.JSON(p.Raw)
	}

	result, err := EnrollmentService().Enroll(c.UserContext(), userID, enrollmentService.Request{
		CourseID: reqData.CourseID,
		BatchID:  reqData.BatchID,
		Payment:  proof,
		Meta:     json.RawMessage(reqData.Meta),
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	data := fiber.Map{
		"enrollmentId": result.Enrollment.ID,
		"enrollment":   result.Enrollment,
	}
	if !result.Created {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Already enrolled in this course!", data)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Enrolled in course successfully!", data)
}

// GetUserEnrollments lists a user's enrollments, newest first.
func GetUserEnrollments(c *fiber.Ctx) error {
	enrollments, err := EnrollmentService().ListByStudent(c.UserContext(), c.Params("userId"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", enrollments)
}

// GetEnrollment returns one enrollment. Students only see their own.
func GetEnrollment(c *fiber.Ctx) error {
	userID, role := middleware.CurrentUser(c)

	enrollment, err := EnrollmentService().GetByID(c.UserContext(), c.Locals("enrollmentId").(string))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if role != models.RoleAdmin && !utils.SameID(enrollment.StudentID, userID) {
		return middleware.ErrorResponse(c, utils.NotFound("enrollment"))
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment fetched successfully!", enrollment)
}
