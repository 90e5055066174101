package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/evaldesk/copyflow/internal/pkg/apperrors"
)

// CopyStatus is a copy's position in the distribution lifecycle
type CopyStatus string

const (
	// StatusAvailable is the initial state: the copy sits with the exam cell
	StatusAvailable CopyStatus = "AVAILABLE"
	// StatusAllotted means the copy was handed to the evaluator but not yet accepted
	StatusAllotted CopyStatus = "ALLOTTED"
	// StatusInProgress means the evaluator accepted the allotment and is evaluating
	StatusInProgress CopyStatus = "INPROGRESS"
	// StatusSubmitted is the terminal state
	StatusSubmitted CopyStatus = "SUBMITTED"

	// StatusOverdue is shown in place of the stored status when a copy is past
	// its due date. It is a read-time projection and is never persisted.
	StatusOverdue CopyStatus = "OVERDUE"
)

// CopyBundle groups the answer-sheet copies for one exam date, subject and
// evaluator. Copies exist only inside their bundle.
type CopyBundle struct {
	ID             uuid.UUID `json:"id" db:"id"`
	DateOfExam     time.Time `json:"-" db:"date_of_exam"`
	EvaluationMode string    `json:"evaluation_mode" db:"evaluation_mode"`
	EvaluatorID    int64     `json:"-" db:"evaluator_id"`
	SubjectCode    string    `json:"subject_code" db:"subject_code"`
	SubjectName    string    `json:"subject_name" db:"subject_name"`
	SubjectSchool  string    `json:"subject_school" db:"subject_school"`
	RoomNo         int       `json:"room_no" db:"room_no"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`

	// Relations (populated when needed)
	Evaluator *Teacher `json:"evaluator,omitempty"`
	Copies    []Copy   `json:"copies"`
}

// Copy is one batch-and-program unit of answer sheets within a bundle
type Copy struct {
	ID           int64      `json:"id" db:"id"`
	BundleID     uuid.UUID  `json:"-" db:"bundle_id"`
	Batch        string     `json:"batch" db:"batch"`
	Program      string     `json:"program" db:"program"`
	NoOfStudents int        `json:"no_of_students" db:"no_of_students"`
	Status       CopyStatus `json:"status" db:"status"`

	AvailableDate time.Time  `json:"available_date" db:"available_date"`
	AllottedDate  *time.Time `json:"allotted_date" db:"allotted_date"`
	StartDate     *time.Time `json:"start_date" db:"start_date"`
	SubmitDate    *time.Time `json:"submit_date" db:"submit_date"`

	// Submission artifact receipts, recorded after the copy is submitted
	Answersheet   bool `json:"answersheet" db:"answersheet"`
	AwardSoftcopy bool `json:"award_softcopy" db:"award_softcopy"`
	AwardHardcopy bool `json:"award_hardcopy" db:"award_hardcopy"`
}

// Advance moves the copy one step along AVAILABLE → ALLOTTED and
// INPROGRESS → SUBMITTED, stamping the transition time. ALLOTTED copies must
// go through Accept first, so advancing one is a conflict, as is advancing a
// submitted copy.
func (c *Copy) Advance(now time.Time) error {
	switch c.Status {
	case StatusAvailable:
		c.Status = StatusAllotted
		c.AllottedDate = &now
		return nil
	case StatusAllotted:
		return apperrors.NewConflictError("Awaiting Teacher to Accept allotment")
	case StatusInProgress:
		c.Status = StatusSubmitted
		c.SubmitDate = &now
		return nil
	case StatusSubmitted:
		return apperrors.NewConflictError("Bundle already submitted")
	default:
		return apperrors.NewConflictError("copy is in an unknown state: " + string(c.Status))
	}
}

// Accept moves an ALLOTTED copy to INPROGRESS and stamps the evaluation
// start time. Any other state is a conflict.
func (c *Copy) Accept(now time.Time) error {
	if c.Status != StatusAllotted {
		return apperrors.NewConflictError("Bundle not allotted")
	}
	c.Status = StatusInProgress
	c.StartDate = &now
	return nil
}

// HasProgressed reports whether the copy ever left the AVAILABLE state.
func (c *Copy) HasProgressed() bool {
	return c.Status != StatusAvailable
}

// FindCopy returns the copy matching the (batch, program) pair, or nil.
func (b *CopyBundle) FindCopy(batch, program string) *Copy {
	for i := range b.Copies {
		if b.Copies[i].Batch == batch && b.Copies[i].Program == program {
			return &b.Copies[i]
		}
	}
	return nil
}

// Deletable reports whether the bundle may still be removed, which is only
// the case while no copy has progressed past AVAILABLE.
func (b *CopyBundle) Deletable() bool {
	for i := range b.Copies {
		if b.Copies[i].HasProgressed() {
			return false
		}
	}
	return true
}
