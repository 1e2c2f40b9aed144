package models

import (
	"time"

	"coursehub/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LessonKind string

const (
	KindVideo      LessonKind = "video"
	KindQuiz       LessonKind = "quiz"
	KindAssignment LessonKind = "assignment"
	KindArticle    LessonKind = "article"
)

func (k LessonKind) Valid() bool {
	switch k {
	case KindVideo, KindQuiz, KindAssignment, KindArticle:
		return true
	}
	return false
}

type QuizOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Question struct {
	ID                 string       `json:"id"`
	Prompt             string       `json:"prompt"`
	Options            []QuizOption `json:"options"`
	CorrectOptionIndex int          `json:"correctOptionIndex"`
}

// Lesson belongs to one course through CourseRef. Kind may be empty on rows
// written before the tag existed; the lesson classifier handles those.
type Lesson struct {
	ID                     uuid.UUID                     `json:"id" gorm:"type:uuid;primaryKey"`
	CourseRef              uuid.UUID                     `json:"courseId" gorm:"type:uuid;not null;index;uniqueIndex:idx_lesson_number,priority:1"`
	CourseTitle            string                        `json:"courseTitle"`
	BatchRef               *string                       `json:"batchId"`
	BatchKey               string                        `json:"-" gorm:"not null;default:'';uniqueIndex:idx_lesson_number,priority:2"`
	BatchName              *string                       `json:"batchName"`
	Title                  string                        `json:"title" gorm:"not null"`
	LessonNumber           int                           `json:"lessonNumber" gorm:"not null;uniqueIndex:idx_lesson_number,priority:3"`
	Kind                   LessonKind                    `json:"type" gorm:"type:varchar(20)"`
	VideoURL               *string                       `json:"videoUrl"`
	DurationMinutes        *int                          `json:"durationMinutes"`
	QuizDefinition         datatypes.JSONSlice[Question] `json:"quizPayload"`
	AssignmentInstructions *string                       `json:"assignmentInstructions"`
	AssignmentDueDate      *time.Time                    `json:"assignmentDueDate"`
	Resources              *string                       `json:"resources"`
	CreatedBy              *uuid.UUID                    `json:"createdBy" gorm:"type:uuid"`
	CreatedAt              time.Time                     `json:"createdAt"`
	UpdatedAt              time.Time                     `json:"updatedAt"`
}

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// BeforeSave keeps BatchKey in step with BatchRef so the lesson number
// uniqueness index treats "no batch" as one group.
func (l *Lesson) BeforeSave(tx *gorm.DB) error {
	l.BatchKey = utils.NormalizeID(l.BatchRef)
	return nil
}
