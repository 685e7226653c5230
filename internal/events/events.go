package events

import (
	"encoding/json"
	"time"

	"github.com/stemsi/admissions-backend/internal/model"
)

// Envelope wraps every published payload.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Data      json.RawMessage `json:"data"`
}

const source = "admissions-backend"

type VersionPublished struct {
	VersionID int64     `json:"version_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type KeyStarted struct {
	Key       string    `json:"key"`
	PassageID int64     `json:"passage_id"`
	StartedAt time.Time `json:"started_at"`
}

type AnswersRecorded struct {
	Key        string    `json:"key"`
	TotalMarks int       `json:"total_marks"`
	Answered   int       `json:"answered"`
	EndedAt    time.Time `json:"ended_at"`
}

type StageTransitioned struct {
	StudentID int64        `json:"student_id"`
	FromStage *model.Stage `json:"from_stage"`
	ToStage   model.Stage  `json:"to_stage"`
	// Key is set when the transition was caused by issuing an enrolment key.
	Key string    `json:"key,omitempty"`
	At  time.Time `json:"at"`
}

// Decode unmarshals an envelope and its data into dst.
func Decode(payload []byte, dst any) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return nil, err
	}
	return &env, nil
}
