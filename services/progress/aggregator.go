package progressService

import (
	"context"
	"fmt"
	"strings"

	"coursehub/models"
	lessonService "coursehub/services/lesson"
	"coursehub/utils"

	"golang.org/x/sync/errgroup"
)

const defaultParallelism = 4

// Aggregator folds purchases, lessons and progress records into a Report.
// It only reads.
type Aggregator struct {
	store       Store
	parallelism int
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store, parallelism: defaultParallelism}
}

type matchedCourse struct {
	course    models.Course
	purchases []models.PurchaseRecord
}

type courseData struct {
	lessons  []models.Lesson
	progress map[string]*models.ProgressRecord
}

// BuildReport returns the progress report of targetStudentID. A student with
// no purchases gets EmptyReport, not an error.
func (a *Aggregator) BuildReport(ctx context.Context, targetStudentID string) (*Report, error) {
	target := utils.NormalizeID(targetStudentID)
	if target == "" {
		return EmptyReport(), nil
	}

	matched, err := a.purchasedCourses(ctx, target)
	if err != nil {
		utils.Log.Error("progress report: purchase lookup failed", "student", target, "error", err)
		return nil, utils.Persistence("load purchased courses", err)
	}
	if len(matched) == 0 {
		return EmptyReport(), nil
	}

	data, err := a.loadCourseData(ctx, target, matched)
	if err != nil {
		utils.Log.Error("progress report: course data load failed", "student", target, "error", err)
		return nil, utils.Persistence("load course progress", err)
	}

	report := EmptyReport()
	var scores scoreTally
	for i, m := range matched {
		for _, purchase := range m.purchases {
			line, lineScores := buildLine(m.course, purchase, data[i])
			report.Courses = append(report.Courses, line)

			o := &report.Overall
			o.TotalLessons += line.LessonCounts.Total
			o.LessonsCompleted += line.Progress.Completed
			o.QuizzesTaken += line.Assessments.QuizzesTaken
			o.AssignmentsSubmitted += line.Assessments.AssignmentsSubmitted
			for _, s := range lineScores {
				scores.add(s)
				o.QuizBuckets[BucketIndex(s)].Value++
			}
		}
	}
	report.Overall.LessonsRemaining = max(0, report.Overall.TotalLessons-report.Overall.LessonsCompleted)
	report.Overall.AvgQuizScore = scores.average()
	return report, nil
}

// purchasedCourses tries the indexed key lookup first and falls back to a full
// scan when it finds nothing, since older purchases may carry a student
// reference in a form the index never saw.
func (a *Aggregator) purchasedCourses(ctx context.Context, target string) ([]matchedCourse, error) {
	courses, err := a.store.CoursesByPurchaseKey(ctx, target)
	if err != nil {
		utils.Log.Warn("indexed purchase lookup failed, scanning", "student", target, "error", err)
		courses = nil
	}
	if matched := matchPurchases(courses, target); len(matched) > 0 {
		return matched, nil
	}

	all, err := a.store.AllPurchasedCourses(ctx)
	if err != nil {
		return nil, err
	}
	return matchPurchases(all, target), nil
}

func matchPurchases(courses []models.Course, target string) []matchedCourse {
	var matched []matchedCourse
	for _, c := range courses {
		var own []models.PurchaseRecord
		for _, p := range c.Purchases {
			if utils.NormalizeID(p.StudentRef) == target {
				own = append(own, p)
			}
		}
		if len(own) > 0 {
			matched = append(matched, matchedCourse{course: c, purchases: own})
		}
	}
	return matched
}

// loadCourseData reads lessons and progress for every course concurrently.
// Any failed read fails the whole load.
func (a *Aggregator) loadCourseData(ctx context.Context, target string, matched []matchedCourse) ([]courseData, error) {
	data := make([]courseData, len(matched))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)
	for i := range matched {
		i := i
		g.Go(func() error {
			lessons, err := a.store.LessonsForCourse(gctx, matched[i].course.ID)
			if err != nil {
				return err
			}

			refs := make([]string, 0, len(lessons))
			for _, l := range lessons {
				refs = append(refs, utils.NormalizeID(l.ID))
			}
			records, err := a.store.ProgressForLessons(gctx, target, refs)
			if err != nil {
				return err
			}

			progress := make(map[string]*models.ProgressRecord, len(records))
			for j := range records {
				progress[utils.NormalizeID(records[j].LessonRef)] = &records[j]
			}
			data[i] = courseData{lessons: lessons, progress: progress}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

func buildLine(course models.Course, purchase models.PurchaseRecord, cd courseData) (CourseLine, []int) {
	lessons := lessonsForPurchase(cd.lessons, purchase)
	counts := lessonService.Count(lessons)

	line := CourseLine{
		CourseID:     utils.NormalizeID(course.ID),
		Title:        course.Title,
		Thumbnail:    course.Thumbnail,
		BatchName:    batchName(course, purchase),
		PurchasedAt:  purchase.PurchasedAt,
		PurchaseID:   utils.NormalizeID(purchase.ID),
		LessonCounts: counts,
		Quizzes:      []QuizSummary{},
	}

	var (
		tally  scoreTally
		scores []int
	)
	for i := range lessons {
		lesson := &lessons[i]
		rec := cd.progress[utils.NormalizeID(lesson.ID)]

		if rec != nil && rec.Status == models.StatusCompleted {
			line.Progress.Completed++
		}
		if rec != nil && rec.Assignment.Submitted {
			line.Assessments.AssignmentsSubmitted++
		}
		if lessonService.Classify(lesson) != models.KindQuiz {
			continue
		}

		summary := quizSummary(lesson, rec)
		line.Quizzes = append(line.Quizzes, summary)
		if !summary.Attempted {
			continue
		}
		line.Assessments.QuizzesTaken++
		if summary.Score != nil {
			tally.add(*summary.Score)
			scores = append(scores, *summary.Score)
		}
	}

	line.Progress.Remaining = max(0, counts.Total-line.Progress.Completed)
	line.Assessments.AvgQuizScore = tally.average()
	return line, scores
}

// lessonsForPurchase keeps a lesson unless both it and the purchase name a
// batch and the two differ.
func lessonsForPurchase(lessons []models.Lesson, purchase models.PurchaseRecord) []models.Lesson {
	want := utils.NormalizeID(purchase.BatchRef)
	if want == "" {
		return lessons
	}
	out := make([]models.Lesson, 0, len(lessons))
	for _, l := range lessons {
		have := utils.NormalizeID(l.BatchRef)
		if have != "" && have != want {
			continue
		}
		out = append(out, l)
	}
	return out
}

func quizSummary(lesson *models.Lesson, rec *models.ProgressRecord) QuizSummary {
	summary := QuizSummary{
		LessonID: utils.NormalizeID(lesson.ID),
		Title:    lesson.Title,
		Detail:   []models.QuestionDetail{},
	}
	if strings.TrimSpace(summary.Title) == "" {
		summary.Title = fmt.Sprintf("Lesson %d", lesson.LessonNumber)
	}
	if rec == nil || !rec.Quiz.Attempted {
		return summary
	}
	summary.Attempted = true
	if rec.Quiz.ScorePercent != nil {
		score := *rec.Quiz.ScorePercent
		summary.Score = &score
	}
	if len(rec.Quiz.Detail) > 0 {
		summary.Detail = []models.QuestionDetail(rec.Quiz.Detail)
	}
	return summary
}

func batchName(course models.Course, purchase models.PurchaseRecord) string {
	switch {
	case purchase.BatchName != nil && *purchase.BatchName != "":
		return *purchase.BatchName
	case purchase.BatchRef != nil && *purchase.BatchRef != "":
		return *purchase.BatchRef
	case len(course.Batches) > 0:
		return course.Batches[0].Name
	default:
		return ""
	}
}
