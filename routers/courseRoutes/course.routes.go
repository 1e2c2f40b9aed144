package courseRoutes

import (
	controllers "coursehub/controllers/course"
	"coursehub/middleware"
	"coursehub/models"
	validators "coursehub/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up the public catalog and student routes.
func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/course")

	courseGroup.Get("/list", validators.ListCourses(), controllers.ListCourses)
	courseGroup.Get("/active-batches/:courseId", validators.IDParam("courseId", "course"), controllers.GetActiveBatches)
	courseGroup.Get("/:courseId", validators.IDParam("courseId", "course"), controllers.GetCourseDetails)

	studentGroup := app.Group("/student", middleware.JWTMiddleware)

	studentGroup.Get("/lessons", validators.StudentLessons(), controllers.StudentLessons)
	studentGroup.Get("/progress", controllers.MyProgress)

	// Enrollment
	studentGroup.Post("/enroll", validators.EnrollCourse(), controllers.EnrollInCourse)
	studentGroup.Get("/enroll/:enrollmentId", validators.IDParam("enrollmentId", "enrollment"), controllers.GetEnrollment)
	studentGroup.Get("/user/:userId", middleware.SelfOrRoles("userId", models.RoleAdmin), controllers.GetUserEnrollments)

	// Progress events
	studentGroup.Post("/:lessonId/complete", validators.IDParam("lessonId", "lesson"), controllers.CompleteLesson)
	studentGroup.Post("/:lessonId/submit-quiz", validators.IDParam("lessonId", "lesson"), validators.SubmitQuiz(), controllers.SubmitQuiz)
	studentGroup.Post("/:lessonId/submit-assignment", validators.IDParam("lessonId", "lesson"), validators.SubmitAssignment(), controllers.SubmitAssignment)
}
