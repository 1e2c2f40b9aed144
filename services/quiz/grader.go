package quizService

import (
	"strconv"

	"coursehub/models"
	lessonService "coursehub/services/lesson"
	"coursehub/utils"
)

// Answer is one submitted selection. QuestionID is optional; without it the
// answer is matched by position.
type Answer struct {
	QuestionID          *string `json:"questionId"`
	SelectedOptionIndex *int    `json:"selectedOptionIndex"`
}

type GradeResult struct {
	CorrectCount      int                     `json:"correctCount"`
	TotalQuestions    int                     `json:"totalQuestions"`
	ScorePercent      int                     `json:"scorePercent"`
	PerQuestionDetail []models.QuestionDetail `json:"perQuestionDetail"`
}

// AllCorrect reports a non-empty quiz answered fully correctly.
func (r GradeResult) AllCorrect() bool {
	return r.TotalQuestions > 0 && r.CorrectCount == r.TotalQuestions
}

// Grade scores answers against questions. It is deterministic and never fails:
// unanswered or out-of-range selections are simply wrong.
func Grade(questions []models.Question, answers []Answer) GradeResult {
	result := GradeResult{
		TotalQuestions:    len(questions),
		PerQuestionDetail: make([]models.QuestionDetail, 0, len(questions)),
	}

	byID := make(map[string]Answer, len(answers))
	for _, a := range answers {
		key := utils.NormalizeID(a.QuestionID)
		if key == "" {
			continue
		}
		if _, dup := byID[key]; !dup {
			byID[key] = a
		}
	}

	for i, q := range questions {
		qID := questionID(q, i)

		var selected *int
		if a, ok := resolveAnswer(q, i, byID, answers); ok && a.SelectedOptionIndex != nil {
			v := *a.SelectedOptionIndex
			selected = &v
		}

		detail := models.QuestionDetail{
			QuestionID:          qID,
			SelectedOptionIndex: selected,
			CorrectOptionIndex:  q.CorrectOptionIndex,
		}
		if selected != nil && *selected >= 0 && *selected < len(q.Options) {
			optID := q.Options[*selected].ID
			detail.SelectedOptionID = &optID
			detail.IsCorrect = *selected == q.CorrectOptionIndex
		}
		if detail.IsCorrect {
			result.CorrectCount++
		}
		result.PerQuestionDetail = append(result.PerQuestionDetail, detail)
	}

	result.ScorePercent = ScorePercent(result.CorrectCount, result.TotalQuestions)
	return result
}

// GradeLesson grades a submission for a lesson, rejecting non-quiz lessons
// and a missing answers list.
func GradeLesson(lesson *models.Lesson, answers []Answer) (GradeResult, error) {
	if answers == nil {
		return GradeResult{}, utils.ValidationError("answers", "answers array required")
	}
	if lessonService.Classify(lesson) != models.KindQuiz {
		return GradeResult{}, utils.ValidationError("lessonId", "not a quiz lesson")
	}
	return Grade(lesson.QuizDefinition, answers), nil
}

// ScorePercent is round(100*correct/total) with halves rounded up, or 0 for an
// empty quiz.
func ScorePercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*correct + total) / (2 * total)
}

// resolveAnswer: id match first, then the answer at the same position.
func resolveAnswer(q models.Question, i int, byID map[string]Answer, answers []Answer) (Answer, bool) {
	if key := utils.NormalizeID(q.ID); key != "" {
		if a, ok := byID[key]; ok {
			return a, true
		}
	}
	if i < len(answers) {
		return answers[i], true
	}
	return Answer{}, false
}

func questionID(q models.Question, i int) string {
	if q.ID != "" {
		return q.ID
	}
	return strconv.Itoa(i)
}
