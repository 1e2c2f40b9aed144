package lessonService

import (
	"fmt"
	"strings"

	"coursehub/models"
	"coursehub/utils"
)

// Classify returns the effective kind of a lesson. An explicit kind wins;
// untagged rows are inferred from their content shape.
func Classify(l *models.Lesson) models.LessonKind {
	if l == nil {
		return models.KindArticle
	}
	if kind := models.LessonKind(strings.ToLower(strings.TrimSpace(string(l.Kind)))); kind.Valid() {
		return kind
	}
	switch {
	case len(l.QuizDefinition) > 0:
		return models.KindQuiz
	case nonBlank(l.VideoURL):
		return models.KindVideo
	case nonBlank(l.AssignmentInstructions):
		return models.KindAssignment
	default:
		return models.KindArticle
	}
}

// KindCounts tallies lessons by effective kind.
type KindCounts struct {
	Total       int `json:"total"`
	Videos      int `json:"videos"`
	Quizzes     int `json:"quizzes"`
	Assignments int `json:"assignments"`
}

func Count(lessons []models.Lesson) KindCounts {
	counts := KindCounts{Total: len(lessons)}
	for i := range lessons {
		switch Classify(&lessons[i]) {
		case models.KindVideo:
			counts.Videos++
		case models.KindQuiz:
			counts.Quizzes++
		case models.KindAssignment:
			counts.Assignments++
		}
	}
	return counts
}

// ValidateForWrite checks a lesson about to be stored. New writes must carry
// an explicit kind, and a quiz must come with a usable question set.
func ValidateForWrite(l *models.Lesson) error {
	if l == nil {
		return utils.ValidationError("lesson", "lesson is required")
	}
	if !l.Kind.Valid() {
		return utils.ValidationError("type", "type must be one of video, quiz, assignment, article")
	}
	if l.LessonNumber < 1 {
		return utils.ValidationError("lessonNumber", "lessonNumber must be at least 1")
	}

	if l.Kind == models.KindQuiz && len(l.QuizDefinition) == 0 {
		return utils.ValidationError("quizPayload", "quiz lessons need at least one question")
	}
	if l.Kind != models.KindQuiz && len(l.QuizDefinition) > 0 {
		return utils.ValidationError("quizPayload", "only quiz lessons may carry questions")
	}

	seen := make(map[string]bool, len(l.QuizDefinition))
	for i, q := range l.QuizDefinition {
		field := fmt.Sprintf("quizPayload[%d]", i)
		if strings.TrimSpace(q.ID) != "" {
			if seen[q.ID] {
				return utils.ValidationError(field+".id", "question ids must be unique")
			}
			seen[q.ID] = true
		}
		if len(q.Options) < 2 {
			return utils.ValidationError(field+".options", "each question must have at least 2 options")
		}
		if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
			return utils.ValidationError(field+".correctOptionIndex", "correctOptionIndex is out of range")
		}
	}
	return nil
}

func nonBlank(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
