package progressService

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"coursehub/models"
	lessonService "coursehub/services/lesson"
	quizService "coursehub/services/quiz"
	"coursehub/utils"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	completionColumns = []string{"status", "course_ref", "batch_ref"}
	quizColumns       = []string{
		"status", "course_ref", "batch_ref",
		"quiz_attempted", "quiz_correct_count", "quiz_total_questions",
		"quiz_score_percent", "quiz_detail", "quiz_attempted_at",
	}
	// assignment submissions never touch status
	assignmentColumns = []string{
		"course_ref", "batch_ref",
		"assignment_submitted", "assignment_payload", "assignment_submitted_at",
	}
)

// Recorder writes lesson events into the single progress record of a
// (student, lesson) pair. Each call only sets the fields its event owns.
type Recorder struct {
	store Store
	now   func() time.Time
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// RecordCompletion marks the lesson completed for the student.
func (r *Recorder) RecordCompletion(ctx context.Context, studentID, lessonID string) (*models.ProgressRecord, error) {
	lesson, err := r.lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	rec, err := base(studentID, lesson)
	if err != nil {
		return nil, err
	}
	rec.Status = models.StatusCompleted
	return r.upsert(ctx, rec, completionColumns)
}

// RecordQuiz stores a graded attempt. The lesson becomes completed only when
// every question of a non-empty quiz was answered correctly.
func (r *Recorder) RecordQuiz(ctx context.Context, studentID, lessonID string, result quizService.GradeResult) (*models.ProgressRecord, error) {
	lesson, err := r.lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	return r.recordQuiz(ctx, studentID, lesson, result)
}

func (r *Recorder) recordQuiz(ctx context.Context, studentID string, lesson *models.Lesson, result quizService.GradeResult) (*models.ProgressRecord, error) {
	rec, err := base(studentID, lesson)
	if err != nil {
		return nil, err
	}

	rec.Status = models.StatusAttempted
	if result.AllCorrect() {
		rec.Status = models.StatusCompleted
	}

	score := result.ScorePercent
	attemptedAt := r.now()
	detail := result.PerQuestionDetail
	if detail == nil {
		detail = []models.QuestionDetail{}
	}
	rec.Quiz = models.QuizOutcome{
		Attempted:      true,
		CorrectCount:   result.CorrectCount,
		TotalQuestions: result.TotalQuestions,
		ScorePercent:   &score,
		Detail:         datatypes.JSONSlice[models.QuestionDetail](detail),
		AttemptedAt:    &attemptedAt,
	}
	return r.upsert(ctx, rec, quizColumns)
}

// RecordAssignment stores a submission payload without changing status.
func (r *Recorder) RecordAssignment(ctx context.Context, studentID, lessonID string, payload json.RawMessage) (*models.ProgressRecord, error) {
	lesson, err := r.lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	return r.recordAssignment(ctx, studentID, lesson, payload)
}

func (r *Recorder) recordAssignment(ctx context.Context, studentID string, lesson *models.Lesson, payload json.RawMessage) (*models.ProgressRecord, error) {
	if isNullJSON(payload) {
		return nil, utils.ValidationError("submission", "submission required")
	}
	rec, err := base(studentID, lesson)
	if err != nil {
		return nil, err
	}

	submittedAt := r.now()
	rec.Status = models.StatusIncomplete // only used when the record is new
	rec.Assignment = models.AssignmentOutcome{
		Submitted:   true,
		Payload:     datatypes.JSON(payload),
		SubmittedAt: &submittedAt,
	}
	return r.upsert(ctx, rec, assignmentColumns)
}

// SubmitQuiz runs the quiz event path: classify, grade, record.
func (r *Recorder) SubmitQuiz(ctx context.Context, studentID, lessonID string, answers []quizService.Answer) (quizService.GradeResult, *models.ProgressRecord, error) {
	lesson, err := r.lesson(ctx, lessonID)
	if err != nil {
		return quizService.GradeResult{}, nil, err
	}
	result, err := quizService.GradeLesson(lesson, answers)
	if err != nil {
		return quizService.GradeResult{}, nil, err
	}
	rec, err := r.recordQuiz(ctx, studentID, lesson, result)
	if err != nil {
		return quizService.GradeResult{}, nil, err
	}
	return result, rec, nil
}

// SubmitAssignment accepts a submission only for assignment lessons.
func (r *Recorder) SubmitAssignment(ctx context.Context, studentID, lessonID string, payload json.RawMessage) (*models.ProgressRecord, error) {
	lesson, err := r.lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lessonService.Classify(lesson) != models.KindAssignment {
		return nil, utils.ValidationError("lessonId", "lesson is not an assignment")
	}
	return r.recordAssignment(ctx, studentID, lesson, payload)
}

// base starts the record of studentID on an already loaded lesson.
func base(studentID string, lesson *models.Lesson) (*models.ProgressRecord, error) {
	studentRef := utils.NormalizeID(studentID)
	if studentRef == "" {
		return nil, utils.ValidationError("studentId", "student id required")
	}

	var batchRef *string
	if key := utils.NormalizeID(lesson.BatchRef); key != "" {
		batchRef = &key
	}
	rec := &models.ProgressRecord{
		StudentRef: studentRef,
		LessonRef:  utils.NormalizeID(lesson.ID),
		CourseRef:  utils.NormalizeID(lesson.CourseRef),
		BatchRef:   batchRef,
		Quiz:       models.QuizOutcome{Detail: datatypes.JSONSlice[models.QuestionDetail]{}},
	}
	return rec, nil
}

func (r *Recorder) lesson(ctx context.Context, lessonID string) (*models.Lesson, error) {
	if utils.NormalizeID(lessonID) == "" {
		return nil, utils.ValidationError("lessonId", "lesson id required")
	}
	lesson, err := r.store.LessonByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("lesson")
		}
		return nil, utils.Persistence("load lesson", err)
	}
	return lesson, nil
}

func (r *Recorder) upsert(ctx context.Context, rec *models.ProgressRecord, columns []string) (*models.ProgressRecord, error) {
	stored, err := r.store.UpsertProgress(ctx, rec, columns)
	if err != nil {
		return nil, utils.Persistence("upsert progress", err)
	}
	return stored, nil
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
