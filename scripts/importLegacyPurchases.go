//go:build legacyimport

// Command importLegacyPurchases appends purchases exported from the previous
// platform. Run with: go run -tags legacyimport ./scripts purchases.csv
package main

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"coursehub/config"
	"coursehub/database"
	"coursehub/models"
	"coursehub/utils"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var requiredColumns = []string{"courseId", "studentRef", "studentName", "studentEmail", "batchRef", "purchasedAt"}

func main() {
	config.LoadConfig()
	if err := utils.InitLogger(config.AppConfig.LogMode); err != nil {
		log.Fatalf("failed to initialise logger: %v", err)
	}
	defer utils.Log.Sync()
	database.ConnectDb()

	path := "purchases.csv"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	file, err := os.Open(path)
	if err != nil {
		utils.Log.Fatal("failed to open CSV file", "path", path, "error", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		utils.Log.Fatal("failed to read CSV header", "error", err)
	}
	headerIndex := make(map[string]int)
	for i, h := range header {
		headerIndex[strings.TrimSpace(h)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := headerIndex[col]; !ok {
			utils.Log.Fatal("CSV header is missing a column", "column", col)
		}
	}

	courses := make(map[string]*models.Course)
	imported, skipped := 0, 0

	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			utils.Log.Warn("unreadable row", "line", line, "error", err)
			skipped++
			continue
		}

		courseID := getField(row, headerIndex, "courseId")
		studentRef := getField(row, headerIndex, "studentRef")
		if courseID == "" || utils.NormalizeID(studentRef) == "" {
			utils.Log.Warn("row without course or student", "line", line)
			skipped++
			continue
		}

		course, err := loadCourse(database.Database.Db, courses, courseID)
		if err != nil {
			utils.Log.Warn("unknown course", "line", line, "course", courseID, "error", err)
			skipped++
			continue
		}

		purchase, err := purchaseFromRow(row, headerIndex, course)
		if err != nil {
			utils.Log.Warn("invalid row", "line", line, "course", courseID, "error", err)
			skipped++
			continue
		}

		if err := appendPurchase(database.Database.Db, purchase); err != nil {
			utils.Log.Error("failed to import purchase", "line", line, "course", courseID, "error", err)
			skipped++
			continue
		}
		imported++
	}

	utils.Log.Info("legacy import complete", "imported", imported, "skipped", skipped)
}

// purchaseFromRow maps one CSV row onto a purchase of course. The student
// reference is kept exactly as exported.
func purchaseFromRow(row []string, headerIndex map[string]int, course *models.Course) (*models.PurchaseRecord, error) {
	purchasedAt, err := parseTime(getField(row, headerIndex, "purchasedAt"))
	if err != nil {
		return nil, err
	}

	purchase := &models.PurchaseRecord{
		CourseID:    course.ID,
		StudentRef:  getField(row, headerIndex, "studentRef"),
		StudentName: getField(row, headerIndex, "studentName"),
		PurchasedAt: purchasedAt,
	}
	if email := getField(row, headerIndex, "studentEmail"); email != "" {
		purchase.StudentEmail = &email
	}
	if ref := getField(row, headerIndex, "batchRef"); ref != "" {
		purchase.BatchRef = &ref
		if batch := course.FindBatch(ref); batch != nil {
			name := batch.Name
			purchase.BatchName = &name
		}
	}
	return purchase, nil
}

func loadCourse(db *gorm.DB, cache map[string]*models.Course, raw string) (*models.Course, error) {
	id, err := uuid.Parse(utils.NormalizeID(raw))
	if err != nil {
		return nil, errors.Wrap(err, "parse course id")
	}
	if c, ok := cache[id.String()]; ok {
		return c, nil
	}
	var course models.Course
	if err := db.Preload("Batches", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") }).
		Where("id = ?", id).First(&course).Error; err != nil {
		return nil, errors.Wrap(err, "query course")
	}
	cache[id.String()] = &course
	return &course, nil
}

// appendPurchase keeps the raw student reference and bumps the course counter.
func appendPurchase(db *gorm.DB, purchase *models.PurchaseRecord) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(purchase).Error; err != nil {
			return errors.Wrap(err, "insert purchase")
		}
		return errors.Wrap(tx.Model(&models.Course{}).Where("id = ?", purchase.CourseID).
			UpdateColumn("total_purchase_count", gorm.Expr("total_purchase_count + 1")).Error, "bump purchase count")
	})
}

// getField safely gets a field from the row by header name
func getField(row []string, headerIndex map[string]int, field string) string {
	if idx, ok := headerIndex[field]; ok && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("purchasedAt is empty")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognised purchasedAt %q", s)
}
