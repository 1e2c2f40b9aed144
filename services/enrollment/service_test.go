package enrollmentService

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"coursehub/database/dbtest"
	"coursehub/models"
	"coursehub/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentMail struct {
	email, course, batch string
}

type fakeNotifier struct {
	sent chan sentMail
}

func (f *fakeNotifier) SendEnrollmentEmail(_ context.Context, email, _, courseTitle, batchName string) error {
	f.sent <- sentMail{email: email, course: courseTitle, batch: batchName}
	return nil
}

func paid() models.PaymentProof {
	return models.PaymentProof{Method: "card", Status: "Paid", CardLast4: dbtest.StrPtr("4242")}
}

func purchaseState(t *testing.T, db *gorm.DB, courseID uuid.UUID) (count int64, entries int64) {
	t.Helper()
	var c models.Course
	require.NoError(t, db.First(&c, "id = ?", courseID).Error)
	require.NoError(t, db.Model(&models.PurchaseRecord{}).Where("course_id = ?", courseID).Count(&entries).Error)
	return c.TotalPurchaseCount, entries
}

func TestEnrollCreatesEnrollmentAndPurchase(t *testing.T) {
	db := dbtest.New(t)
	student := dbtest.SeedStudent(t, db, "Ada", "ada@example.com", models.RoleStudent)
	course := dbtest.SeedCourse(t, db, "Go Basics", "Morning", "Evening")
	notifier := &fakeNotifier{sent: make(chan sentMail, 1)}
	svc := NewService(db, nil, notifier)

	res, err := svc.Enroll(context.Background(), student.ID.String(), Request{
		CourseID: course.ID.String(),
		BatchID:  dbtest.StrPtr("evening"),
		Payment:  paid(),
		Meta:     json.RawMessage(`{"coupon":"WELCOME"}`),
	})
	require.NoError(t, err)
	assert.True(t, res.Created)
	require.NotNil(t, res.Enrollment.BatchID)
	assert.Equal(t, course.Batches[1].ID.String(), *res.Enrollment.BatchID)
	require.NotNil(t, res.Enrollment.PurchaseID)

	count, entries := purchaseState(t, db, course.ID)
	assert.EqualValues(t, 1, count)
	assert.EqualValues(t, 1, entries)

	var purchase models.PurchaseRecord
	require.NoError(t, db.First(&purchase, "id = ?", *res.Enrollment.PurchaseID).Error)
	assert.Equal(t, student.ID.String(), purchase.StudentKey)
	require.NotNil(t, purchase.BatchName)
	assert.Equal(t, "Evening", *purchase.BatchName)

	select {
	case mail := <-notifier.sent:
		assert.Equal(t, "ada@example.com", mail.email)
		assert.Equal(t, "Go Basics", mail.course)
		assert.Equal(t, "Evening", mail.batch)
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation email was not sent")
	}
}

func TestEnrollIsIdempotentPerBatch(t *testing.T) {
	db := dbtest.New(t)
	student := dbtest.SeedStudent(t, db, "Ada", "ada@example.com", models.RoleStudent)
	course := dbtest.SeedCourse(t, db, "Go Basics", "Morning")
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	first, err := svc.Enroll(ctx, student.ID.String(), Request{CourseID: course.ID.String(), Payment: paid()})
	require.NoError(t, err)
	second, err := svc.Enroll(ctx, student.ID.String(), Request{CourseID: course.ID.String(), Payment: paid()})
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.Enrollment.ID, second.Enrollment.ID)

	// the batch is part of the key, by id or by name
	byName, err := svc.Enroll(ctx, student.ID.String(), Request{CourseID: course.ID.String(), BatchID: dbtest.StrPtr("Morning"), Payment: paid()})
	require.NoError(t, err)
	byID, err := svc.Enroll(ctx, student.ID.String(), Request{CourseID: course.ID.String(), BatchID: dbtest.StrPtr(course.Batches[0].ID.String()), Payment: paid()})
	require.NoError(t, err)
	assert.True(t, byName.Created)
	assert.False(t, byID.Created)
	assert.Equal(t, byName.Enrollment.ID, byID.Enrollment.ID)

	count, entries := purchaseState(t, db, course.ID)
	assert.EqualValues(t, 2, count)
	assert.EqualValues(t, 2, entries)
}

func TestConcurrentEnrollsCountOnce(t *testing.T) {
	db := dbtest.New(t)
	student := dbtest.SeedStudent(t, db, "Ada", "ada@example.com", models.RoleStudent)
	course := dbtest.SeedCourse(t, db, "Go Basics")
	svc := NewService(db, nil, nil)

	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Enroll(context.Background(), student.ID.String(), Request{CourseID: course.ID.String(), Payment: paid()})
			if assert.NoError(t, err) {
				ids <- res.Enrollment.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[uuid.UUID]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)

	count, entries := purchaseState(t, db, course.ID)
	assert.EqualValues(t, 1, count)
	assert.EqualValues(t, 1, entries)
}

func TestEnrollRejections(t *testing.T) {
	db := dbtest.New(t)
	student := dbtest.SeedStudent(t, db, "Ada", "ada@example.com", models.RoleStudent)
	course := dbtest.SeedCourse(t, db, "Go Basics", "Morning")
	svc := NewService(db, nil, nil)

	tests := []struct {
		name    string
		student string
		req     Request
		kind    utils.ErrorKind
	}{
		{
			name:    "unpaid",
			student: student.ID.String(),
			req:     Request{CourseID: course.ID.String(), Payment: models.PaymentProof{Method: "card", Status: "pending"}},
			kind:    utils.KindValidation,
		},
		{
			name:    "missing method",
			student: student.ID.String(),
			req:     Request{CourseID: course.ID.String(), Payment: models.PaymentProof{Status: "paid"}},
			kind:    utils.KindValidation,
		},
		{
			name:    "unknown course",
			student: student.ID.String(),
			req:     Request{CourseID: uuid.NewString(), Payment: paid()},
			kind:    utils.KindNotFound,
		},
		{
			name:    "foreign batch",
			student: student.ID.String(),
			req:     Request{CourseID: course.ID.String(), BatchID: dbtest.StrPtr("Weekend"), Payment: paid()},
			kind:    utils.KindValidation,
		},
		{
			name:    "unknown student",
			student: uuid.NewString(),
			req:     Request{CourseID: course.ID.String(), Payment: paid()},
			kind:    utils.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Enroll(context.Background(), tt.student, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, utils.KindOf(err))
		})
	}

	count, entries := purchaseState(t, db, course.ID)
	assert.EqualValues(t, 0, count)
	assert.EqualValues(t, 0, entries)
}

func TestListAndGetEnrollments(t *testing.T) {
	db := dbtest.New(t)
	student := dbtest.SeedStudent(t, db, "Ada", "ada@example.com", models.RoleStudent)
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	var last *models.Enrollment
	for _, title := range []string{"First", "Second"} {
		course := dbtest.SeedCourse(t, db, title)
		res, err := svc.Enroll(ctx, student.ID.String(), Request{CourseID: course.ID.String(), Payment: paid()})
		require.NoError(t, err)
		last = res.Enrollment
		time.Sleep(5 * time.Millisecond)
	}

	list, err := svc.ListByStudent(ctx, student.ID.String())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, last.ID, list[0].ID)

	got, err := svc.GetByID(ctx, last.ID.String())
	require.NoError(t, err)
	assert.Equal(t, last.CourseID, got.CourseID)

	_, err = svc.GetByID(ctx, uuid.NewString())
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
	_, err = svc.GetByID(ctx, "nope")
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestReconcileReportsDivergences(t *testing.T) {
	db := dbtest.New(t)
	student := dbtest.SeedStudent(t, db, "Ada", "ada@example.com", models.RoleStudent)
	healthy := dbtest.SeedCourse(t, db, "Healthy")
	drifted := dbtest.SeedCourse(t, db, "Drifted")
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, student.ID.String(), Request{CourseID: healthy.ID.String(), Payment: paid()})
	require.NoError(t, err)

	divergences, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, divergences)

	// a counter bump with no purchase entry, and an enrollment with no purchase
	require.NoError(t, db.Model(&models.Course{}).Where("id = ?", drifted.ID).
		UpdateColumn("total_purchase_count", 3).Error)
	orphan := &models.Enrollment{StudentID: student.ID.String(), CourseID: drifted.ID.String(), Payment: paid()}
	require.NoError(t, db.Create(orphan).Error)

	divergences, err = svc.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, divergences, 2)

	kinds := map[string]Divergence{}
	for _, d := range divergences {
		kinds[d.Kind] = d
	}
	assert.Equal(t, drifted.ID.String(), kinds[DivergenceCountMismatch].CourseID)
	assert.Equal(t, orphan.ID.String(), kinds[DivergenceMissingPurchase].RecordID)
}
