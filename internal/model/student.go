package model

import "time"

// Stage is a student's position in the admissions funnel.
type Stage string

const (
	StageNone                  Stage = ""
	StageRequestCallback       Stage = "requestCallback"
	StageEnrolmentKeyGenerated Stage = "enrolmentKeyGenerated"
	StageCompletedTest         Stage = "completedTest"
)

// Student is an applicant who receives enrolment keys.
type Student struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Mobile    string    `json:"mobile"`
	Stage     Stage     `json:"stage"`
	CreatedAt time.Time `json:"created_at"`
}

// StageTransition records one stage change of a student.
type StageTransition struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"student_id"`
	FromStage *Stage    `json:"from_stage"`
	ToStage   Stage     `json:"to_stage"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateStudentRequest is the payload for registering a student.
type CreateStudentRequest struct {
	Name   string `json:"name" binding:"required,min=2,max=100"`
	Mobile string `json:"mobile" binding:"required,numeric,min=10,max=15"`
}
