package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursehub/config"
	courseController "coursehub/controllers/course"
	"coursehub/database"
	authRoutes "coursehub/routers/authRoutes"
	courseRoutes "coursehub/routers/courseRoutes"
	enrollmentService "coursehub/services/enrollment"
	"coursehub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	config.LoadConfig()
	if err := utils.InitLogger(config.AppConfig.LogMode); err != nil {
		log.Fatalf("failed to initialise logger: %v", err)
	}
	defer utils.Log.Sync()

	database.ConnectDb()

	timeout := time.Duration(config.AppConfig.HTTPTimeoutSeconds) * time.Second
	verifier := enrollmentService.NewVerifier(config.AppConfig.PaymentVerifyURL, config.AppConfig.PaymentVerifyKey, timeout)
	if mailer := utils.NewMailer(config.AppConfig.SendgridAPIKey, config.AppConfig.SendgridFromEmail, timeout); mailer != nil {
		courseController.Configure(verifier, mailer)
	} else {
		utils.Log.Warn("SENDGRID_API_KEY not set, enrollment emails disabled")
		courseController.Configure(verifier, nil)
	}

	app := fiber.New()

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	authRoutes.SetupAuthRoutes(app)
	courseRoutes.SetupAdminCourseRoutes(app)
	courseRoutes.SetupCourseRoutes(app)

	scheduler, err := utils.InitializeScheduler(utils.ScheduledJob{
		Name: "purchase-reconcile",
		Spec: config.AppConfig.ReconcileCron,
		Run: func(ctx context.Context) error {
			divergences, err := courseController.EnrollmentService().Reconcile(ctx)
			if err != nil {
				return err
			}
			utils.Log.Info("[RECONCILE] audit complete", "divergences", len(divergences))
			return nil
		},
	})
	if err != nil {
		utils.Log.Fatal("failed to start scheduler", "error", err)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		utils.Log.Info("shutting down")
		<-scheduler.Stop().Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			utils.Log.Error("server shutdown failed", "error", err)
		}
	}()

	utils.Log.Info("server is running", "port", config.AppConfig.Port)
	if err := app.Listen(":" + config.AppConfig.Port); err != nil {
		utils.Log.Fatal("server stopped", "error", err)
	}
}
