package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProgressStatus string

const (
	StatusIncomplete ProgressStatus = "incomplete"
	StatusAttempted  ProgressStatus = "attempted"
	StatusCompleted  ProgressStatus = "completed"
)

// QuestionDetail is the graded verdict for one question. It is stored as
// written and re-displayed, never regraded.
type QuestionDetail struct {
	QuestionID          string  `json:"questionId"`
	SelectedOptionIndex *int    `json:"selectedOptionIndex"`
	SelectedOptionID    *string `json:"selectedOptionId"`
	CorrectOptionIndex  int     `json:"correctOptionIndex"`
	IsCorrect           bool    `json:"isCorrect"`
}

// QuizOutcome.Attempted is the single authoritative "quiz was attempted" signal.
type QuizOutcome struct {
	Attempted      bool                                `json:"attempted" gorm:"not null"`
	CorrectCount   int                                 `json:"correctCount" gorm:"not null"`
	TotalQuestions int                                 `json:"totalQuestions" gorm:"not null"`
	ScorePercent   *int                                `json:"scorePercent"`
	Detail         datatypes.JSONSlice[QuestionDetail] `json:"perQuestionDetail"`
	AttemptedAt    *time.Time                          `json:"attemptedAt"`
}

type AssignmentOutcome struct {
	Submitted   bool           `json:"submitted" gorm:"not null"`
	Payload     datatypes.JSON `json:"submissionPayload"`
	SubmittedAt *time.Time     `json:"submittedAt"`
}

// ProgressRecord is the single record of one student on one lesson.
// (StudentRef, LessonRef) is unique; writes go through an upsert on that pair.
type ProgressRecord struct {
	ID         uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	StudentRef string            `json:"studentId" gorm:"not null;uniqueIndex:idx_progress_student_lesson,priority:1"`
	LessonRef  string            `json:"lessonId" gorm:"not null;uniqueIndex:idx_progress_student_lesson,priority:2;index"`
	CourseRef  string            `json:"courseId" gorm:"index"`
	BatchRef   *string           `json:"batchId"`
	Status     ProgressStatus    `json:"status" gorm:"type:varchar(20);not null"`
	Quiz       QuizOutcome       `json:"quiz" gorm:"embedded;embeddedPrefix:quiz_"`
	Assignment AssignmentOutcome `json:"assignment" gorm:"embedded;embeddedPrefix:assignment_"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

func (p *ProgressRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusIncomplete
	}
	return nil
}
