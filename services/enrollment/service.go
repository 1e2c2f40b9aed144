package enrollmentService

import (
	"context"
	"encoding/json"
	"time"

	"coursehub/models"
	"coursehub/utils"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Notifier delivers the enrollment confirmation. *utils.Mailer satisfies it.
type Notifier interface {
	SendEnrollmentEmail(ctx context.Context, email, studentName, courseTitle, batchName string) error
}

type Request struct {
	CourseID string
	BatchID  *string
	Payment  models.PaymentProof
	Meta     json.RawMessage
}

type Result struct {
	Enrollment *models.Enrollment
	Created    bool
}

type Service struct {
	db       *gorm.DB
	verifier PaymentVerifier
	notifier Notifier
	now      func() time.Time
}

func NewService(db *gorm.DB, verifier PaymentVerifier, notifier Notifier) *Service {
	if verifier == nil {
		verifier = LocalVerifier{}
	}
	return &Service{
		db:       db,
		verifier: verifier,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Enroll records a paid enrollment. A repeat for the same (student, course,
// batch) returns the existing row with Created=false. The enrollment row, the
// course purchase entry and the purchase counter are written in one
// transaction.
func (s *Service) Enroll(ctx context.Context, studentID string, req Request) (*Result, error) {
	if err := s.verifier.Verify(ctx, req.Payment); err != nil {
		return nil, err
	}

	student, err := s.student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	course, err := s.course(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}

	var batch *models.Batch
	if req.BatchID != nil && utils.NormalizeID(req.BatchID) != "" {
		if batch = course.FindBatch(*req.BatchID); batch == nil {
			return nil, utils.ValidationError("batchId", "batch does not belong to this course")
		}
	}

	enrollment := &models.Enrollment{
		StudentID:    utils.NormalizeID(student.ID),
		CourseID:     utils.NormalizeID(course.ID),
		StudentName:  student.Name,
		StudentEmail: student.Email,
		Payment:      req.Payment,
	}
	if batch != nil {
		batchID := batch.ID.String()
		enrollment.BatchID = &batchID
	}
	if len(req.Meta) > 0 && !isNull(req.Meta) {
		enrollment.Meta = datatypes.JSON(req.Meta)
	}

	created := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(enrollment)
		if res.Error != nil {
			return errors.Wrap(res.Error, "insert enrollment")
		}
		if res.RowsAffected == 0 {
			existing := &models.Enrollment{}
			if err := tx.Where("student_id = ? AND course_id = ? AND batch_key = ?",
				enrollment.StudentID, enrollment.CourseID, utils.NormalizeID(enrollment.BatchID)).
				First(existing).Error; err != nil {
				return errors.Wrap(err, "load existing enrollment")
			}
			enrollment = existing
			return nil
		}

		email := student.Email
		purchase := &models.PurchaseRecord{
			CourseID:     course.ID,
			StudentRef:   student.ID.String(),
			StudentName:  student.Name,
			StudentEmail: &email,
			BatchRef:     enrollment.BatchID,
			PurchasedAt:  s.now(),
		}
		if batch != nil {
			name := batch.Name
			purchase.BatchName = &name
		}
		if err := tx.Create(purchase).Error; err != nil {
			return errors.Wrap(err, "append course purchase")
		}
		if err := tx.Model(&models.Course{}).Where("id = ?", course.ID).
			UpdateColumn("total_purchase_count", gorm.Expr("total_purchase_count + 1")).Error; err != nil {
			return errors.Wrap(err, "increment purchase count")
		}
		if err := tx.Model(enrollment).UpdateColumn("purchase_id", purchase.ID).Error; err != nil {
			return errors.Wrap(err, "link purchase")
		}
		enrollment.PurchaseID = &purchase.ID
		created = true
		return nil
	})
	if err != nil {
		utils.Log.Error("enrollment failed", "student", enrollment.StudentID, "course", enrollment.CourseID, "error", err)
		return nil, utils.Persistence("enroll", err)
	}

	if created {
		utils.Log.Info("student enrolled", "student", enrollment.StudentID, "course", enrollment.CourseID, "enrollment", enrollment.ID)
		batchName := ""
		if batch != nil {
			batchName = batch.Name
		}
		s.notify(student, course.Title, batchName)
	}
	return &Result{Enrollment: enrollment, Created: created}, nil
}

// ListByStudent returns a student's enrollments, newest first.
func (s *Service) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	var out []models.Enrollment
	if err := s.db.WithContext(ctx).
		Where("student_id = ?", utils.NormalizeID(studentID)).
		Order("created_at desc").
		Find(&out).Error; err != nil {
		return nil, utils.Persistence("list enrollments", errors.Wrap(err, "query enrollments"))
	}
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollmentID, err := uuid.Parse(id)
	if err != nil {
		return nil, utils.NotFound("enrollment")
	}
	var e models.Enrollment
	if err := s.db.WithContext(ctx).Where("id = ?", enrollmentID).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("enrollment")
		}
		return nil, utils.Persistence("get enrollment", errors.Wrap(err, "query enrollment"))
	}
	return &e, nil
}

func (s *Service) student(ctx context.Context, id string) (*models.Student, error) {
	studentID, err := uuid.Parse(utils.NormalizeID(id))
	if err != nil {
		return nil, utils.NotFound("student")
	}
	var st models.Student
	if err := s.db.WithContext(ctx).Where("id = ?", studentID).First(&st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("student")
		}
		return nil, utils.Persistence("load student", errors.Wrap(err, "query student"))
	}
	return &st, nil
}

func (s *Service) course(ctx context.Context, id string) (*models.Course, error) {
	courseID, err := uuid.Parse(utils.NormalizeID(id))
	if err != nil {
		return nil, utils.NotFound("course")
	}
	var c models.Course
	err = s.db.WithContext(ctx).
		Preload("Batches", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Where("id = ?", courseID).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("course")
		}
		return nil, utils.Persistence("load course", errors.Wrap(err, "query course"))
	}
	return &c, nil
}

// notify sends the confirmation in the background. Failures are logged only.
func (s *Service) notify(student *models.Student, courseTitle, batchName string) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.SendEnrollmentEmail(ctx, student.Email, student.Name, courseTitle, batchName); err != nil {
			utils.Log.Warn("enrollment email failed", "student", student.ID, "error", err)
		}
	}()
}

func isNull(raw json.RawMessage) bool {
	var v interface{}
	return json.Unmarshal(raw, &v) == nil && v == nil
}
