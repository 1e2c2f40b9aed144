package models

import (
	"fmt"
	"strings"
	"time"

	"coursehub/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Course is a catalog entry. Batches and Purchases belong to it and are
// never written on their own outside of the enrollment and batch flows.
type Course struct {
	ID                 uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	Title              string           `json:"title" gorm:"index;not null"`
	Description        string           `json:"description"`
	Category           string           `json:"category" gorm:"index;default:'General'"`
	Price              float64          `json:"price" gorm:"default:0"`
	Thumbnail          *string          `json:"thumbnail"`
	InstructorName     *string          `json:"instructorName"`
	TotalPurchaseCount int64            `json:"totalPurchaseCount" gorm:"not null;default:0"`
	Batches            []Batch          `json:"batches" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
	Purchases          []PurchaseRecord `json:"purchases,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
	Extension          datatypes.JSON   `json:"extension,omitempty"` // opaque client metadata
	CreatedBy          *uuid.UUID       `json:"createdBy" gorm:"type:uuid"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// SyntheticBatchID is the id clients see for a batch at position i when the
// batch itself has none.
func (c *Course) SyntheticBatchID(i int) string {
	return fmt.Sprintf("%s-batch-%d", c.ID.String(), i+1)
}

// FindBatch resolves ref against the course batches by id, synthetic id or
// case-insensitive name.
func (c *Course) FindBatch(ref string) *Batch {
	key := utils.NormalizeID(ref)
	if key == "" {
		return nil
	}
	for i := range c.Batches {
		b := &c.Batches[i]
		if utils.NormalizeID(b.ID) == key || c.SyntheticBatchID(i) == key || strings.EqualFold(b.Name, strings.TrimSpace(ref)) {
			return b
		}
	}
	return nil
}

// Batch is a scheduled cohort of a course.
type Batch struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	CourseID  uuid.UUID  `json:"courseId" gorm:"type:uuid;index;not null"`
	Position  int        `json:"position" gorm:"not null;default:0"`
	Name      string     `json:"name" gorm:"not null"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

func (b *Batch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.Name = strings.TrimSpace(b.Name)
	return nil
}

// PurchaseRecord is one enrollment event appended to a course.
// StudentRef keeps whatever representation the writer used; StudentKey is its
// normalized form and is what queries match on.
type PurchaseRecord struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CourseID     uuid.UUID `json:"courseId" gorm:"type:uuid;index;not null"`
	StudentRef   string    `json:"studentRef" gorm:"not null"`
	StudentKey   string    `json:"-" gorm:"index;not null;default:''"`
	StudentName  string    `json:"studentName"`
	StudentEmail *string   `json:"studentEmail"`
	BatchRef     *string   `json:"batchRef"`
	BatchName    *string   `json:"batchName"`
	PurchasedAt  time.Time `json:"purchasedAt" gorm:"index"`
}

func (p *PurchaseRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.PurchasedAt.IsZero() {
		p.PurchasedAt = time.Now().UTC()
	}
	p.StudentKey = utils.NormalizeID(p.StudentRef)
	return nil
}
