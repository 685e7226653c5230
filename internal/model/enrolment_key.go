package model

import "time"

// KeyStatus is the lifecycle state derived from an enrolment key's timestamps.
type KeyStatus string

const (
	KeyStatusNotStarted KeyStatus = "testNotStarted"
	KeyStatusStarted    KeyStatus = "testStarted"
	KeyStatusAnswered   KeyStatus = "testAnswered"
	// TODO: add testTimeOverdue once a per-test time limit is stored on the key.
)

// EnrolmentKey is the externally distributed credential a student tests with.
type EnrolmentKey struct {
	ID         int64      `json:"id"`
	Key        string     `json:"key"`
	StudentID  *int64     `json:"student_id,omitempty"`
	PassageID  *int64     `json:"passage_id,omitempty"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	TotalMarks *int       `json:"total_marks,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Status derives the key state: no start time is NotStarted, a start time
// without an end time is Started, and both set is Answered.
func (k *EnrolmentKey) Status() KeyStatus {
	switch {
	case k.StartTime == nil:
		return KeyStatusNotStarted
	case k.EndTime == nil:
		return KeyStatusStarted
	default:
		return KeyStatusAnswered
	}
}

// KeyStatusResponse pairs a key with its derived status.
type KeyStatusResponse struct {
	Status KeyStatus    `json:"keystatus"`
	Key    EnrolmentKey `json:"key"`
}

// AssembledSet is the passage and questions bound to an enrolment key.
type AssembledSet struct {
	Passage   Passage    `json:"passage"`
	Questions []Question `json:"questions"`
}

// PublicAssembledSet is the student-facing view of an AssembledSet.
type PublicAssembledSet struct {
	Passage   Passage          `json:"passage"`
	Questions []PublicQuestion `json:"questions"`
}

// Public hides option correctness from the assembled set.
func (s *AssembledSet) Public() PublicAssembledSet {
	qs := make([]PublicQuestion, len(s.Questions))
	for i := range s.Questions {
		qs[i] = s.Questions[i].Public()
	}
	return PublicAssembledSet{Passage: s.Passage, Questions: qs}
}
