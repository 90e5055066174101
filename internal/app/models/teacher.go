package models

import "time"

// Teacher defines the evaluator model based on the 'teachers' table. The
// hosting application owns teacher onboarding; this service only resolves
// and displays evaluators.
type Teacher struct {
	ID        int64     `json:"id" db:"id" example:"1"`                         // Unique identifier for the teacher record
	SapID     string    `json:"sap_id" db:"sap_id" example:"50012345"`          // Employee identifier used by callers
	Name      string    `json:"name" db:"name" example:"A. Sharma"`             // Display name
	Email     string    `json:"email" db:"email" example:"a.sharma@univ.edu"`   // Contact email
	Phone     string    `json:"phone" db:"phone" example:"+91-9800000000"`      // Contact phone
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
