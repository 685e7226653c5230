package model

import "time"

// QuestionReport is a question annotated with its answer distribution. For
// multiple-choice questions the keys are option ids; for free-text questions
// they are the literal answers.
type QuestionReport struct {
	ID         int64            `json:"id"`
	Text       string           `json:"text"`
	Topic      Topic            `json:"topic"`
	Difficulty Difficulty       `json:"difficulty"`
	Type       QuestionType     `json:"type"`
	Options    []Option         `json:"options"`
	Report     map[string]int64 `json:"report"`
}

// AnswerCount is one grouped row of the attempt distribution.
type AnswerCount struct {
	QuestionID int64
	Answer     string
	Count      int64
}

// Metric is one periodic snapshot of funnel activity.
type Metric struct {
	ID             int64     `json:"id"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	KeysGenerated  int64     `json:"keys_generated"`
	TestsCompleted int64     `json:"tests_completed"`
	AverageMarks   float64   `json:"average_marks"`
	CreatedAt      time.Time `json:"created_at"`
}
