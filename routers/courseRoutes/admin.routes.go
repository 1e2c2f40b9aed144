package courseRoutes

import (
	controllers "coursehub/controllers/course"
	"coursehub/middleware"
	"coursehub/models"
	validators "coursehub/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminCourseRoutes sets up catalog authoring and student oversight routes.
func SetupAdminCourseRoutes(app *fiber.App) {
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	adminGroup := app.Group("/admin/course", middleware.JWTMiddleware, adminOnly)

	// Static paths first so they are not captured by /:courseId
	adminGroup.Get("/lessons", controllers.AdminListCourseBatches)
	adminGroup.Post("/", validators.CreateCourse(), controllers.AdminCreateCourse)
	adminGroup.Post("/:courseId/batches", validators.IDParam("courseId", "course"), validators.AddBatch(), controllers.AdminAddBatch)
	adminGroup.Post("/:courseId/lessons", validators.IDParam("courseId", "course"), validators.AddLesson(), controllers.AdminAddLesson)

	studentGroup := app.Group("/admin/student", middleware.JWTMiddleware, adminOnly)
	studentGroup.Get("/:studentId/progress", validators.IDParam("studentId", "student"), controllers.AdminStudentProgress)

	studentsGroup := app.Group("/admin/students", middleware.JWTMiddleware, adminOnly)
	studentsGroup.Get("/", validators.AdminStudentList(), controllers.AdminListStudents)
	studentsGroup.Get("/:studentId", validators.IDParam("studentId", "student"), controllers.AdminGetStudent)
}
