package progressService

import (
	"math"
	"time"

	"coursehub/models"
	lessonService "coursehub/services/lesson"
)

// Score bucket names, in histogram order.
const (
	BucketLow     = "0-49"
	BucketMid     = "50-69"
	BucketHigh    = "70-89"
	BucketTop     = "90-100"
	bucketsInPlan = 4
)

type Bucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type QuizSummary struct {
	LessonID  string                  `json:"lessonId"`
	Title     string                  `json:"title"`
	Attempted bool                    `json:"attempted"`
	Score     *int                    `json:"score"`
	Detail    []models.QuestionDetail `json:"detail"`
}

type LineProgress struct {
	Completed int `json:"completed"`
	Remaining int `json:"remaining"`
}

type Assessments struct {
	QuizzesTaken         int      `json:"quizzesTaken"`
	AvgQuizScore         *float64 `json:"avgQuizScore"`
	AssignmentsSubmitted int      `json:"assignmentsSubmitted"`
}

// CourseLine is one purchase of one course, seen through its batch filter.
type CourseLine struct {
	CourseID     string                   `json:"courseId"`
	Title        string                   `json:"title"`
	Thumbnail    *string                  `json:"thumbnail"`
	BatchName    string                   `json:"batchName"`
	PurchasedAt  time.Time                `json:"purchasedAt"`
	PurchaseID   string                   `json:"purchaseId"`
	LessonCounts lessonService.KindCounts `json:"lessonCounts"`
	Progress     LineProgress             `json:"progress"`
	Assessments  Assessments              `json:"assessments"`
	Quizzes      []QuizSummary            `json:"quizzes"`
}

type Overall struct {
	TotalLessons         int      `json:"totalLessons"`
	LessonsCompleted     int      `json:"lessonsCompleted"`
	LessonsRemaining     int      `json:"lessonsRemaining"`
	QuizzesTaken         int      `json:"quizzesTaken"`
	AssignmentsSubmitted int      `json:"assignmentsSubmitted"`
	AvgQuizScore         *float64 `json:"avgQuizScore"`
	QuizBuckets          []Bucket `json:"quizBuckets"`
}

type Report struct {
	Courses []CourseLine `json:"courses"`
	Overall Overall      `json:"overall"`
}

// EmptyReport is the report of a student with no purchases.
func EmptyReport() *Report {
	return &Report{
		Courses: []CourseLine{},
		Overall: Overall{QuizBuckets: newBuckets()},
	}
}

func newBuckets() []Bucket {
	return []Bucket{
		{Name: BucketLow},
		{Name: BucketMid},
		{Name: BucketHigh},
		{Name: BucketTop},
	}
}

// BucketIndex places a score into the histogram: <50, [50,70), [70,90), [90,100].
func BucketIndex(score int) int {
	switch {
	case score < 50:
		return 0
	case score < 70:
		return 1
	case score < 90:
		return 2
	default:
		return bucketsInPlan - 1
	}
}

// scoreTally accumulates scores that feed both an average and the buckets.
type scoreTally struct {
	sum   int
	count int
}

func (t *scoreTally) add(score int) {
	t.sum += score
	t.count++
}

// average is round(sum/count*100)/100, nil when nothing was scored.
func (t scoreTally) average() *float64 {
	if t.count == 0 {
		return nil
	}
	avg := math.Round(float64(t.sum)/float64(t.count)*100) / 100
	return &avg
}
