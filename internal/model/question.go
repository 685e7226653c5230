package model

import "time"

// Topic is the subject area a question belongs to.
type Topic string

const (
	TopicBasicMath          Topic = "basic_math"
	TopicAbstractReasoning  Topic = "abstract_reasoning"
	TopicNonVerbalReasoning Topic = "non_verbal_reasoning"
	TopicEnglish            Topic = "english"
)

// Topics is the fixed topic list used to seed grouped question sets.
var Topics = []Topic{
	TopicBasicMath,
	TopicAbstractReasoning,
	TopicNonVerbalReasoning,
	TopicEnglish,
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeFreeText       QuestionType = "FREE_TEXT"
)

// Question represents a single bank question with its options.
type Question struct {
	ID         int64        `json:"id"`
	PassageID  *int64       `json:"passage_id,omitempty"`
	Text       string       `json:"text"`
	Topic      Topic        `json:"topic"`
	Difficulty Difficulty   `json:"difficulty"`
	Type       QuestionType `json:"type"`
	Options    []Option     `json:"options"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Option is an answer choice of a multiple-choice question.
type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	Correct    bool   `json:"correct"`
}

// HasOption reports whether optionID belongs to this question.
func (q *Question) HasOption(optionID int64) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// PublicQuestion is the student-facing view of a question. Correctness is hidden.
type PublicQuestion struct {
	ID      int64          `json:"id"`
	Text    string         `json:"text"`
	Type    QuestionType   `json:"type"`
	Options []PublicOption `json:"options"`
}

type PublicOption struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Public strips correctness flags from the question.
func (q *Question) Public() PublicQuestion {
	opts := make([]PublicOption, len(q.Options))
	for i, o := range q.Options {
		opts[i] = PublicOption{ID: o.ID, Text: o.Text}
	}
	return PublicQuestion{ID: q.ID, Text: q.Text, Type: q.Type, Options: opts}
}

// Passage is a reading passage that owns a group of questions.
type Passage struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// AddOptionRequest is one option in an AddQuestionRequest.
type AddOptionRequest struct {
	Text    string `json:"text" binding:"required,min=1,max=1000"`
	Correct bool   `json:"correct"`
}

// AddQuestionRequest is the payload for adding a question with its options.
type AddQuestionRequest struct {
	PassageID  *int64             `json:"passage_id" binding:"omitempty,min=1"`
	Text       string             `json:"text" binding:"required,min=1,max=2000"`
	Topic      string             `json:"topic" binding:"required,oneof=basic_math abstract_reasoning non_verbal_reasoning english"`
	Difficulty string             `json:"difficulty" binding:"required,oneof=easy medium hard"`
	Type       string             `json:"type" binding:"required,oneof=MULTIPLE_CHOICE FREE_TEXT"`
	Options    []AddOptionRequest `json:"options" binding:"dive"`
}

// PassageRequest is the payload for creating or updating a passage.
type PassageRequest struct {
	Body string `json:"body" binding:"required,min=1"`
}
