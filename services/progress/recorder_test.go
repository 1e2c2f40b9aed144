package progressService

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"coursehub/database/dbtest"
	"coursehub/models"
	quizService "coursehub/services/quiz"
	"coursehub/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorderFixture struct {
	db         *gorm.DB
	recorder   *Recorder
	course     *models.Course
	video      *models.Lesson
	quiz       *models.Lesson
	assignment *models.Lesson
	student    string
}

func newRecorderFixture(t *testing.T) recorderFixture {
	t.Helper()
	db := dbtest.New(t)
	course := dbtest.SeedCourse(t, db, "Go Basics")
	return recorderFixture{
		db:       db,
		recorder: NewRecorder(NewGormStore(db)),
		course:   course,
		video: dbtest.SeedLesson(t, db, &models.Lesson{
			CourseRef: course.ID, Title: "Intro", LessonNumber: 1,
			Kind: models.KindVideo, VideoURL: dbtest.StrPtr("https://videos.example/intro"),
		}),
		quiz: dbtest.SeedLesson(t, db, &models.Lesson{
			CourseRef: course.ID, Title: "Checkpoint", LessonNumber: 2,
			Kind: models.KindQuiz, QuizDefinition: dbtest.TwoQuestionQuiz(),
		}),
		assignment: dbtest.SeedLesson(t, db, &models.Lesson{
			CourseRef: course.ID, Title: "Homework", LessonNumber: 3,
			Kind: models.KindAssignment, AssignmentInstructions: dbtest.StrPtr("Write a CLI"),
		}),
		student: uuid.NewString(),
	}
}

func (f recorderFixture) countRecords(t *testing.T, lesson *models.Lesson) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.ProgressRecord{}).
		Where("student_ref = ? AND lesson_ref = ?", f.student, lesson.ID.String()).
		Count(&n).Error)
	return n
}

func intPtr(i int) *int { return &i }

func TestRecordCompletionIsIdempotent(t *testing.T) {
	f := newRecorderFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		rec, err := f.recorder.RecordCompletion(ctx, f.student, f.video.ID.String())
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, rec.Status)
		assert.Equal(t, f.course.ID.String(), rec.CourseRef)
	}
	assert.EqualValues(t, 1, f.countRecords(t, f.video))
}

func TestConcurrentCompletionsLeaveOneRecord(t *testing.T) {
	f := newRecorderFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.recorder.RecordCompletion(ctx, f.student, f.video.ID.String())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, f.countRecords(t, f.video))
}

func TestRecordQuizStatus(t *testing.T) {
	tests := []struct {
		name    string
		answers []quizService.Answer
		want    models.ProgressStatus
		score   int
	}{
		{
			name:    "all correct completes the lesson",
			answers: []quizService.Answer{{SelectedOptionIndex: intPtr(1)}, {SelectedOptionIndex: intPtr(0)}},
			want:    models.StatusCompleted,
			score:   100,
		},
		{
			name:    "one wrong stays attempted",
			answers: []quizService.Answer{{SelectedOptionIndex: intPtr(0)}, {SelectedOptionIndex: intPtr(0)}},
			want:    models.StatusAttempted,
			score:   50,
		},
		{
			name:    "no answers stays attempted",
			answers: []quizService.Answer{},
			want:    models.StatusAttempted,
			score:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRecorderFixture(t)
			result, rec, err := f.recorder.SubmitQuiz(context.Background(), f.student, f.quiz.ID.String(), tt.answers)
			require.NoError(t, err)

			assert.Equal(t, tt.score, result.ScorePercent)
			assert.Equal(t, tt.want, rec.Status)
			assert.True(t, rec.Quiz.Attempted)
			require.NotNil(t, rec.Quiz.ScorePercent)
			assert.Equal(t, tt.score, *rec.Quiz.ScorePercent)
			assert.Len(t, rec.Quiz.Detail, 2)
		})
	}
}

func TestRecordQuizWithEmptyQuestionSetIsAttempted(t *testing.T) {
	f := newRecorderFixture(t)

	rec, err := f.recorder.RecordQuiz(context.Background(), f.student, f.quiz.ID.String(), quizService.Grade(nil, nil))
	require.NoError(t, err)
	assert.Equal(t, models.StatusAttempted, rec.Status)
	assert.Equal(t, 0, rec.Quiz.TotalQuestions)
	assert.True(t, rec.Quiz.Attempted)
}

func TestEventsMergeIntoOneRecord(t *testing.T) {
	f := newRecorderFixture(t)
	ctx := context.Background()
	lessonID := f.assignment.ID.String()

	rec, err := f.recorder.RecordAssignment(ctx, f.student, lessonID, json.RawMessage(`{"repo":"https://git.example/cli"}`))
	require.NoError(t, err)
	assert.Equal(t, models.StatusIncomplete, rec.Status)
	assert.True(t, rec.Assignment.Submitted)

	rec, err = f.recorder.RecordCompletion(ctx, f.student, lessonID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, rec.Status)
	assert.True(t, rec.Assignment.Submitted, "completion must not clear the submission")

	rec, err = f.recorder.RecordAssignment(ctx, f.student, lessonID, json.RawMessage(`"v2"`))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, rec.Status, "a submission never changes status")
	assert.JSONEq(t, `"v2"`, string(rec.Assignment.Payload))

	rec, err = f.recorder.RecordQuiz(ctx, f.student, lessonID, quizService.Grade(dbtest.TwoQuestionQuiz(), nil))
	require.NoError(t, err)
	assert.True(t, rec.Assignment.Submitted, "a quiz result must not clear the submission")

	assert.EqualValues(t, 1, f.countRecords(t, f.assignment))
}

func TestSubmitQuizRejectsOtherKinds(t *testing.T) {
	f := newRecorderFixture(t)

	_, _, err := f.recorder.SubmitQuiz(context.Background(), f.student, f.video.ID.String(), []quizService.Answer{})
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
	assert.EqualValues(t, 0, f.countRecords(t, f.video))
}

func TestSubmitQuizRequiresAnswers(t *testing.T) {
	f := newRecorderFixture(t)

	_, _, err := f.recorder.SubmitQuiz(context.Background(), f.student, f.quiz.ID.String(), nil)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestSubmitAssignmentRejectsOtherKinds(t *testing.T) {
	f := newRecorderFixture(t)

	_, err := f.recorder.SubmitAssignment(context.Background(), f.student, f.quiz.ID.String(), json.RawMessage(`{}`))
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestRecordAssignmentRequiresPayload(t *testing.T) {
	f := newRecorderFixture(t)

	_, err := f.recorder.RecordAssignment(context.Background(), f.student, f.assignment.ID.String(), json.RawMessage(` null `))
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestUnknownLessonIsNotFound(t *testing.T) {
	f := newRecorderFixture(t)
	ctx := context.Background()

	_, err := f.recorder.RecordCompletion(ctx, f.student, uuid.NewString())
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	_, err = f.recorder.RecordCompletion(ctx, f.student, "not-a-lesson")
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestMissingStudentIsValidation(t *testing.T) {
	f := newRecorderFixture(t)

	_, err := f.recorder.RecordCompletion(context.Background(), "  ", f.video.ID.String())
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

type countingStore struct {
	*GormStore
	mu            sync.Mutex
	lessonLookups int
}

func (s *countingStore) LessonByID(ctx context.Context, id string) (*models.Lesson, error) {
	s.mu.Lock()
	s.lessonLookups++
	s.mu.Unlock()
	return s.GormStore.LessonByID(ctx, id)
}

func TestSubmitPathsLoadLessonOnce(t *testing.T) {
	f := newRecorderFixture(t)
	store := &countingStore{GormStore: NewGormStore(f.db)}
	recorder := NewRecorder(store)
	ctx := context.Background()

	result, rec, err := recorder.SubmitQuiz(ctx, f.student, f.quiz.ID.String(), []quizService.Answer{})
	require.NoError(t, err)
	assert.Equal(t, 1, store.lessonLookups)
	assert.Equal(t, result.TotalQuestions, rec.Quiz.TotalQuestions)
	assert.Equal(t, f.quiz.ID.String(), rec.LessonRef)

	store.lessonLookups = 0
	_, err = recorder.SubmitAssignment(ctx, f.student, f.assignment.ID.String(), json.RawMessage(`{"repo":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, store.lessonLookups)
}
