package progressService

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"coursehub/database/dbtest"
	"coursehub/models"
	quizService "coursehub/services/quiz"
	"coursehub/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bucketValues(r *Report) map[string]int {
	out := make(map[string]int, len(r.Overall.QuizBuckets))
	for _, b := range r.Overall.QuizBuckets {
		out[b.Name] = b.Value
	}
	return out
}

func TestBucketIndexBoundaries(t *testing.T) {
	cases := map[int]string{
		0:   BucketLow,
		49:  BucketLow,
		50:  BucketMid,
		69:  BucketMid,
		70:  BucketHigh,
		89:  BucketHigh,
		90:  BucketTop,
		100: BucketTop,
	}
	names := []string{BucketLow, BucketMid, BucketHigh, BucketTop}
	for score, want := range cases {
		assert.Equal(t, want, names[BucketIndex(score)], "score %d", score)
	}
}

func TestBuildReportWithoutPurchases(t *testing.T) {
	db := dbtest.New(t)
	dbtest.SeedCourse(t, db, "Unbought")

	report, err := NewAggregator(NewGormStore(db)).BuildReport(context.Background(), uuid.NewString())
	require.NoError(t, err)

	assert.Empty(t, report.Courses)
	assert.Equal(t, 0, report.Overall.TotalLessons)
	assert.Nil(t, report.Overall.AvgQuizScore)
	require.Len(t, report.Overall.QuizBuckets, 4)
	for _, b := range report.Overall.QuizBuckets {
		assert.Equal(t, 0, b.Value, b.Name)
	}
}

func TestBuildReportScenarios(t *testing.T) {
	tests := []struct {
		name          string
		answers       []int
		wantCompleted int
		wantAvg       float64
		wantBucket    string
	}{
		{name: "all correct", answers: []int{1, 0}, wantCompleted: 2, wantAvg: 100, wantBucket: BucketTop},
		{name: "one wrong", answers: []int{0, 0}, wantCompleted: 1, wantAvg: 50, wantBucket: BucketMid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := dbtest.New(t)
			ctx := context.Background()
			store := NewGormStore(db)
			student := dbtest.SeedStudent(t, db, "Sam", fmt.Sprintf("sam-%s@example.com", uuid.NewString()[:8]), models.RoleStudent)

			course := dbtest.SeedCourse(t, db, "Go Basics", "Morning")
			video := dbtest.SeedLesson(t, db, &models.Lesson{
				CourseRef: course.ID, Title: "Intro", LessonNumber: 1,
				Kind: models.KindVideo, VideoURL: dbtest.StrPtr("https://videos.example/intro"),
			})
			quiz := dbtest.SeedLesson(t, db, &models.Lesson{
				CourseRef: course.ID, Title: "Checkpoint", LessonNumber: 2,
				Kind: models.KindQuiz, QuizDefinition: dbtest.TwoQuestionQuiz(),
			})
			dbtest.SeedPurchase(t, db, course.ID, student.ID.String(), nil)

			recorder := NewRecorder(store)
			_, err := recorder.RecordCompletion(ctx, student.ID.String(), video.ID.String())
			require.NoError(t, err)
			answers := make([]quizService.Answer, 0, len(tt.answers))
			for _, a := range tt.answers {
				answers = append(answers, quizService.Answer{SelectedOptionIndex: intPtr(a)})
			}
			_, _, err = recorder.SubmitQuiz(ctx, student.ID.String(), quiz.ID.String(), answers)
			require.NoError(t, err)

			report, err := NewAggregator(store).BuildReport(ctx, student.ID.String())
			require.NoError(t, err)
			require.Len(t, report.Courses, 1)

			line := report.Courses[0]
			assert.Equal(t, 2, line.LessonCounts.Total)
			assert.Equal(t, 1, line.LessonCounts.Videos)
			assert.Equal(t, 1, line.LessonCounts.Quizzes)
			assert.Equal(t, 0, line.LessonCounts.Assignments)
			assert.Equal(t, tt.wantCompleted, line.Progress.Completed)
			assert.Equal(t, 2-tt.wantCompleted, line.Progress.Remaining)
			assert.Equal(t, 1, line.Assessments.QuizzesTaken)
			require.NotNil(t, line.Assessments.AvgQuizScore)
			assert.Equal(t, tt.wantAvg, *line.Assessments.AvgQuizScore)
			assert.Equal(t, "Morning", line.BatchName)

			require.Len(t, line.Quizzes, 1)
			assert.True(t, line.Quizzes[0].Attempted)
			assert.Len(t, line.Quizzes[0].Detail, 2)

			assert.Equal(t, 2, report.Overall.TotalLessons)
			assert.Equal(t, tt.wantCompleted, report.Overall.LessonsCompleted)
			require.NotNil(t, report.Overall.AvgQuizScore)
			assert.Equal(t, tt.wantAvg, *report.Overall.AvgQuizScore)
			assert.Equal(t, 1, bucketValues(report)[tt.wantBucket])
		})
	}
}

func TestBuildReportMatchesWrappedAndRawStudentRefs(t *testing.T) {
	db := dbtest.New(t)
	student := uuid.New()

	raw := dbtest.SeedCourse(t, db, "Raw ref course")
	wrapped := dbtest.SeedCourse(t, db, "Wrapped ref course")
	other := dbtest.SeedCourse(t, db, "Someone else's course")
	dbtest.SeedPurchase(t, db, raw.ID, student.String(), nil)
	dbtest.SeedPurchase(t, db, wrapped.ID, fmt.Sprintf(`{"$oid": "%s"}`, strings.ToUpper(student.String())), nil)
	dbtest.SeedPurchase(t, db, other.ID, uuid.NewString(), nil)

	report, err := NewAggregator(NewGormStore(db)).BuildReport(context.Background(), student.String())
	require.NoError(t, err)

	var titles []string
	for _, line := range report.Courses {
		titles = append(titles, line.Title)
	}
	assert.ElementsMatch(t, []string{"Raw ref course", "Wrapped ref course"}, titles)
}

func TestBuildReportFallsBackToScanForUnkeyedPurchases(t *testing.T) {
	db := dbtest.New(t)
	student := uuid.New()

	course := dbtest.SeedCourse(t, db, "Imported")
	purchase := dbtest.SeedPurchase(t, db, course.ID, "ObjectId(\""+student.String()+"\")", nil)
	// simulate a row whose key was computed by an older normalizer
	require.NoError(t, db.Model(&models.PurchaseRecord{}).Where("id = ?", purchase.ID).
		UpdateColumn("student_key", "legacy:"+student.String()).Error)

	report, err := NewAggregator(NewGormStore(db)).BuildReport(context.Background(), student.String())
	require.NoError(t, err)
	require.Len(t, report.Courses, 1)
	assert.Equal(t, "Imported", report.Courses[0].Title)
}

func TestBuildReportOneLinePerPurchaseWithBatchFilter(t *testing.T) {
	db := dbtest.New(t)
	student := uuid.NewString()

	course := dbtest.SeedCourse(t, db, "Cohorts", "Morning", "Evening")
	dbtest.SeedLesson(t, db, &models.Lesson{CourseRef: course.ID, BatchRef: dbtest.StrPtr("morning"), Title: "AM video", LessonNumber: 1, Kind: models.KindVideo})
	dbtest.SeedLesson(t, db, &models.Lesson{CourseRef: course.ID, BatchRef: dbtest.StrPtr("evening"), Title: "PM video", LessonNumber: 1, Kind: models.KindVideo})
	dbtest.SeedLesson(t, db, &models.Lesson{CourseRef: course.ID, Title: "Shared quiz", LessonNumber: 2, Kind: models.KindQuiz, QuizDefinition: dbtest.TwoQuestionQuiz()})

	dbtest.SeedPurchase(t, db, course.ID, student, dbtest.StrPtr("morning"))
	dbtest.SeedPurchase(t, db, course.ID, student, nil)

	report, err := NewAggregator(NewGormStore(db)).BuildReport(context.Background(), student)
	require.NoError(t, err)
	require.Len(t, report.Courses, 2)

	byBatch := map[string]CourseLine{}
	for _, line := range report.Courses {
		byBatch[line.BatchName] = line
	}
	assert.Equal(t, 2, byBatch["morning"].LessonCounts.Total)
	assert.Equal(t, 3, byBatch["Morning"].LessonCounts.Total, "no batch on the purchase keeps every lesson")

	assert.Equal(t, 5, report.Overall.TotalLessons)
	assert.Equal(t, 5, report.Overall.LessonsRemaining)

	for _, line := range report.Courses {
		require.Len(t, line.Quizzes, 1)
		assert.False(t, line.Quizzes[0].Attempted)
		assert.Nil(t, line.Quizzes[0].Score)
		assert.NotNil(t, line.Quizzes[0].Detail)
		assert.Nil(t, line.Assessments.AvgQuizScore)
	}
}

type failingLessonsStore struct {
	*GormStore
}

func (failingLessonsStore) LessonsForCourse(context.Context, uuid.UUID) ([]models.Lesson, error) {
	return nil, errors.New("connection reset")
}

func TestBuildReportFailsWhenAnyReadFails(t *testing.T) {
	db := dbtest.New(t)
	student := uuid.NewString()
	for i := 0; i < 3; i++ {
		course := dbtest.SeedCourse(t, db, fmt.Sprintf("Course %d", i))
		dbtest.SeedPurchase(t, db, course.ID, student, nil)
	}

	report, err := NewAggregator(failingLessonsStore{NewGormStore(db)}).BuildReport(context.Background(), student)
	assert.Nil(t, report)
	assert.True(t, utils.IsKind(err, utils.KindPersistence))
}

func TestQuizSummaryTitleFallsBackToLessonNumber(t *testing.T) {
	db := dbtest.New(t)
	student := uuid.NewString()
	course := dbtest.SeedCourse(t, db, "Go Basics")
	dbtest.SeedPurchase(t, db, course.ID, student, nil)
	dbtest.SeedLesson(t, db, &models.Lesson{
		CourseRef: course.ID, LessonNumber: 4,
		Kind: models.KindQuiz, QuizDefinition: dbtest.TwoQuestionQuiz(),
	})
	dbtest.SeedLesson(t, db, &models.Lesson{
		CourseRef: course.ID, Title: "Named quiz", LessonNumber: 5,
		Kind: models.KindQuiz, QuizDefinition: dbtest.TwoQuestionQuiz(),
	})

	report, err := NewAggregator(NewGormStore(db)).BuildReport(context.Background(), student)
	require.NoError(t, err)
	require.Len(t, report.Courses, 1)
	require.Len(t, report.Courses[0].Quizzes, 2)
	assert.Equal(t, "Lesson 4", report.Courses[0].Quizzes[0].Title)
	assert.False(t, report.Courses[0].Quizzes[0].Attempted)
	assert.Equal(t, "Named quiz", report.Courses[0].Quizzes[1].Title)
}
