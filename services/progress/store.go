package progressService

import (
	"context"

	"coursehub/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence the progress engine needs. Implementations must
// make UpsertProgress atomic on (StudentRef, LessonRef).
type Store interface {
	LessonByID(ctx context.Context, id string) (*models.Lesson, error)
	UpsertProgress(ctx context.Context, rec *models.ProgressRecord, updateColumns []string) (*models.ProgressRecord, error)

	// CoursesByPurchaseKey is the indexed lookup: courses with a purchase whose
	// normalized key equals studentKey, plus courses holding purchases that were
	// never keyed (written outside this service).
	CoursesByPurchaseKey(ctx context.Context, studentKey string) ([]models.Course, error)
	// AllPurchasedCourses scans every course that has at least one purchase.
	AllPurchasedCourses(ctx context.Context) ([]models.Course, error)

	LessonsForCourse(ctx context.Context, courseID uuid.UUID) ([]models.Lesson, error)
	ProgressForLessons(ctx context.Context, studentRef string, lessonRefs []string) ([]models.ProgressRecord, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) LessonByID(ctx context.Context, id string) (*models.Lesson, error) {
	lessonID, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	var lesson models.Lesson
	if err := s.db.WithContext(ctx).Where("id = ?", lessonID).First(&lesson).Error; err != nil {
		return nil, errors.Wrap(err, "load lesson")
	}
	return &lesson, nil
}

func (s *GormStore) UpsertProgress(ctx context.Context, rec *models.ProgressRecord, updateColumns []string) (*models.ProgressRecord, error) {
	columns := append(append([]string{}, updateColumns...), "updated_at")

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_ref"}, {Name: "lesson_ref"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(rec).Error
	if err != nil {
		return nil, errors.Wrap(err, "upsert progress")
	}

	var stored models.ProgressRecord
	if err := s.db.WithContext(ctx).
		Where("student_ref = ? AND lesson_ref = ?", rec.StudentRef, rec.LessonRef).
		First(&stored).Error; err != nil {
		return nil, errors.Wrap(err, "reload progress")
	}
	return &stored, nil
}

func (s *GormStore) CoursesByPurchaseKey(ctx context.Context, studentKey string) ([]models.Course, error) {
	var courseIDs []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.PurchaseRecord{}).
		Distinct("course_id").
		Where("student_key = ? OR student_key = ''", studentKey).
		Pluck("course_id", &courseIDs).Error; err != nil {
		return nil, errors.Wrap(err, "find purchased course ids")
	}
	if len(courseIDs) == 0 {
		return nil, nil
	}
	return s.coursesWithPurchases(ctx, s.db.WithContext(ctx).Where("id IN ?", courseIDs))
}

func (s *GormStore) AllPurchasedCourses(ctx context.Context) ([]models.Course, error) {
	sub := s.db.Model(&models.PurchaseRecord{}).Select("course_id")
	return s.coursesWithPurchases(ctx, s.db.WithContext(ctx).Where("id IN (?)", sub))
}

func (s *GormStore) coursesWithPurchases(ctx context.Context, q *gorm.DB) ([]models.Course, error) {
	var courses []models.Course
	err := q.
		Preload("Batches", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("Purchases", func(db *gorm.DB) *gorm.DB { return db.Order("purchased_at asc, id asc") }).
		Order("created_at asc, id asc").
		Find(&courses).Error
	if err != nil {
		return nil, errors.Wrap(err, "load purchased courses")
	}
	return courses, nil
}

func (s *GormStore) LessonsForCourse(ctx context.Context, courseID uuid.UUID) ([]models.Lesson, error) {
	var lessons []models.Lesson
	if err := s.db.WithContext(ctx).
		Where("course_ref = ?", courseID).
		Order("lesson_number asc, created_at asc").
		Find(&lessons).Error; err != nil {
		return nil, errors.Wrap(err, "load course lessons")
	}
	return lessons, nil
}

func (s *GormStore) ProgressForLessons(ctx context.Context, studentRef string, lessonRefs []string) ([]models.ProgressRecord, error) {
	if len(lessonRefs) == 0 {
		return nil, nil
	}
	var records []models.ProgressRecord
	if err := s.db.WithContext(ctx).
		Where("student_ref = ? AND lesson_ref IN ?", studentRef, lessonRefs).
		Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "load progress records")
	}
	return records, nil
}
