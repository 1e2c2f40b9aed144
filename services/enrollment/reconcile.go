package enrollmentService

import (
	"context"
	"fmt"

	"coursehub/models"
	"coursehub/utils"

	"github.com/pkg/errors"
)

const (
	DivergenceCountMismatch   = "purchase_count_mismatch"
	DivergenceMissingPurchase = "enrollment_without_purchase"
)

// Divergence is one inconsistency between enrollments and course purchases.
type Divergence struct {
	Kind     string `json:"kind"`
	CourseID string `json:"courseId"`
	RecordID string `json:"recordId,omitempty"`
	Detail   string `json:"detail"`
}

type courseCount struct {
	ID                 string
	Title              string
	TotalPurchaseCount int64
	Purchases          int64
}

// Reconcile audits purchase bookkeeping and logs every divergence at Warn.
// It never repairs anything.
func (s *Service) Reconcile(ctx context.Context) ([]Divergence, error) {
	db := s.db.WithContext(ctx)
	var divergences []Divergence

	purchaseCounts := db.Model(&models.PurchaseRecord{}).
		Select("course_id, COUNT(*) AS purchases").
		Group("course_id")

	var counts []courseCount
	if err := db.Table("courses").
		Select("courses.id, courses.title, courses.total_purchase_count, COALESCE(p.purchases, 0) AS purchases").
		Joins("LEFT JOIN (?) AS p ON p.course_id = courses.id", purchaseCounts).
		Scan(&counts).Error; err != nil {
		return nil, utils.Persistence("reconcile purchase counts", errors.Wrap(err, "count purchases"))
	}
	for _, c := range counts {
		if c.TotalPurchaseCount == c.Purchases {
			continue
		}
		divergences = append(divergences, Divergence{
			Kind:     DivergenceCountMismatch,
			CourseID: utils.NormalizeID(c.ID),
			Detail:   fmt.Sprintf("%q counts %d purchases but holds %d entries", c.Title, c.TotalPurchaseCount, c.Purchases),
		})
	}

	var orphans []models.Enrollment
	if err := db.
		Where("purchase_id IS NULL OR purchase_id NOT IN (?)", s.db.Model(&models.PurchaseRecord{}).Select("id")).
		Order("created_at asc").
		Find(&orphans).Error; err != nil {
		return nil, utils.Persistence("reconcile enrollments", errors.Wrap(err, "find orphan enrollments"))
	}
	for _, e := range orphans {
		divergences = append(divergences, Divergence{
			Kind:     DivergenceMissingPurchase,
			CourseID: e.CourseID,
			RecordID: e.ID.String(),
			Detail:   fmt.Sprintf("enrollment of student %s has no course purchase entry", e.StudentID),
		})
	}

	for _, d := range divergences {
		utils.Log.Warn("[RECONCILE] enrollment divergence", "kind", d.Kind, "course", d.CourseID, "record", d.RecordID, "detail", d.Detail)
	}
	utils.Log.Info("[RECONCILE] finished", "divergences", len(divergences))
	return divergences, nil
}
