// Package dbtest opens throwaway sqlite databases for store-backed tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"coursehub/database"
	"coursehub/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// New returns a migrated in-memory sqlite database private to tb.
func New(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open("sqlite", dsn)
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("test db handle: %v", err)
	}
	// one connection keeps the shared in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return db
}

func SeedStudent(tb testing.TB, db *gorm.DB, name, email, role string) *models.Student {
	tb.Helper()
	s := &models.Student{Name: name, Email: email, PasswordHash: "x", Role: role}
	if err := db.WithContext(context.Background()).Create(s).Error; err != nil {
		tb.Fatalf("seed student: %v", err)
	}
	return s
}

func SeedCourse(tb testing.TB, db *gorm.DB, title string, batches ...string) *models.Course {
	tb.Helper()
	c := &models.Course{Title: title, Description: "seeded course description", Category: "General"}
	for i, name := range batches {
		c.Batches = append(c.Batches, models.Batch{Name: name, Position: i})
	}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

// SeedPurchase appends a purchase whose StudentRef is stored verbatim.
func SeedPurchase(tb testing.TB, db *gorm.DB, courseID uuid.UUID, studentRef string, batchRef *string) *models.PurchaseRecord {
	tb.Helper()
	p := &models.PurchaseRecord{
		CourseID:    courseID,
		StudentRef:  studentRef,
		StudentName: "seeded",
		BatchRef:    batchRef,
		PurchasedAt: time.Now().UTC(),
	}
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("seed purchase: %v", err)
	}
	if err := db.Model(&models.Course{}).Where("id = ?", courseID).
		UpdateColumn("total_purchase_count", gorm.Expr("total_purchase_count + 1")).Error; err != nil {
		tb.Fatalf("seed purchase count: %v", err)
	}
	return p
}

func SeedLesson(tb testing.TB, db *gorm.DB, l *models.Lesson) *models.Lesson {
	tb.Helper()
	if err := db.Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

// TwoQuestionQuiz returns questions whose correct answers are [1, 0].
func TwoQuestionQuiz() []models.Question {
	return []models.Question{
		{
			ID:                 "q1",
			Prompt:             "Which keyword declares a constant?",
			Options:            []models.QuizOption{{ID: "a", Text: "var"}, {ID: "b", Text: "const"}},
			CorrectOptionIndex: 1,
		},
		{
			ID:                 "q2",
			Prompt:             "Which type holds text?",
			Options:            []models.QuizOption{{ID: "a", Text: "string"}, {ID: "b", Text: "rune"}},
			CorrectOptionIndex: 0,
		},
	}
}

func StrPtr(s string) *string { return &s }
