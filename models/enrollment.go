package models

import (
	"time"

	"coursehub/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentProof is what the client presents as evidence of payment.
type PaymentProof struct {
	Method        string         `json:"method" gorm:"type:varchar(40)"`
	Status        string         `json:"status" gorm:"type:varchar(40)"`
	TransactionID *string        `json:"transactionId"`
	CardLast4     *string        `json:"cardLast4"`
	PaidAt        *time.Time     `json:"paidAt"`
	Raw           datatypes.JSON `json:"raw,omitempty"`
}

// Enrollment is the payment-verified record of a student joining a course.
// (StudentID, CourseID, BatchKey) is unique so repeated requests resolve to
// the same row.
type Enrollment struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	StudentID    string         `json:"studentId" gorm:"not null;uniqueIndex:idx_enrollment_key,priority:1"`
	CourseID     string         `json:"courseId" gorm:"not null;index;uniqueIndex:idx_enrollment_key,priority:2"`
	BatchKey     string         `json:"-" gorm:"not null;default:'';uniqueIndex:idx_enrollment_key,priority:3"`
	BatchID      *string        `json:"batchId"`
	StudentName  string         `json:"studentName"`
	StudentEmail string         `json:"studentEmail"`
	Payment      PaymentProof   `json:"payment" gorm:"embedded;embeddedPrefix:payment_"`
	PurchaseID   *uuid.UUID     `json:"purchaseId" gorm:"type:uuid"`
	Meta         datatypes.JSON `json:"meta,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.BatchKey = utils.NormalizeID(e.BatchID)
	return nil
}
