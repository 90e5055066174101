package dto

import (
	"time"

	"github.com/evaldesk/copyflow/internal/app/models"
)

// AddBundleRequest represents a request to register a new copy for
// distribution. The exam date is accepted in dd/mm/yyyy form.
type AddBundleRequest struct {
	DateOfExam     string `json:"dateOfExam" binding:"required" example:"15/03/2024"`
	EvaluationMode string `json:"evaluationMode" binding:"required" example:"OFFLINE"`
	EvaluatorSap   string `json:"evaluatorSap" binding:"required" example:"50012345"`
	SubjectCode    string `json:"subjectCode" binding:"required" example:"CS101"`
	SubjectName    string `json:"subjectName" binding:"required" example:"Data Structures"`
	SubjectSchool  string `json:"subjectSchool" binding:"required" example:"SOCS"`
	RoomNo         int    `json:"roomNo" binding:"required" example:"204"`
	NoOfStudents   int    `json:"noOfStudents" binding:"required,gt=0" example:"30"`
	Program        string `json:"program" binding:"required" example:"BTech CSE"`
	Batch          string `json:"batch" binding:"required" example:"2021-25"`
}

// ProgressBundleRequest identifies one copy of a bundle for a lifecycle
// transition
type ProgressBundleRequest struct {
	BundleID string `json:"bundle_id" binding:"required"`
	Batch    string `json:"batch" binding:"required"`
	Program  string `json:"program" binding:"required"`
}

// SubmissionUpdateRequest records which submission artifacts were received
// for a submitted copy
type SubmissionUpdateRequest struct {
	BundleID      string `json:"bundle_id" binding:"required"`
	Batch         string `json:"batch" binding:"required"`
	Program       string `json:"program" binding:"required"`
	Answersheet   *bool  `json:"answersheet" binding:"required"`
	AwardSoftcopy *bool  `json:"award_softcopy" binding:"required"`
	AwardHardcopy *bool  `json:"award_hardcopy" binding:"required"`
}

// EvaluatorResponse carries the evaluator display fields embedded in bundle
// views
type EvaluatorResponse struct {
	SapID string `json:"sap_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CopyResponse is the per-copy projection. Status carries the effective
// status (OVERDUE override applied) and DueIn the remaining/overdue label;
// DueIn is null for copies that never started or are already submitted.
type CopyResponse struct {
	ID            int64             `json:"id"`
	Batch         string            `json:"batch"`
	Program       string            `json:"program"`
	NoOfStudents  int               `json:"no_of_students"`
	Status        models.CopyStatus `json:"status"`
	AvailableDate time.Time         `json:"available_date"`
	AllottedDate  *time.Time        `json:"allotted_date"`
	StartDate     *time.Time        `json:"start_date"`
	SubmitDate    *time.Time        `json:"submit_date"`
	DueIn         *string           `json:"due_in"`
	Answersheet   bool              `json:"answersheet"`
	AwardSoftcopy bool              `json:"award_softcopy"`
	AwardHardcopy bool              `json:"award_hardcopy"`
}

// BundleResponse is the aggregate projection returned by listing and detail
// endpoints. DateOfExam uses the canonical ISO form.
type BundleResponse struct {
	ID             string             `json:"id"`
	DateOfExam     string             `json:"date_of_exam" example:"2024-03-15"`
	EvaluationMode string             `json:"evaluation_mode"`
	SubjectCode    string             `json:"subject_code"`
	SubjectName    string             `json:"subject_name"`
	SubjectSchool  string             `json:"subject_school"`
	RoomNo         int                `json:"room_no"`
	Evaluator      *EvaluatorResponse `json:"evaluator,omitempty"`
	Copies         []CopyResponse     `json:"copies"`
}
