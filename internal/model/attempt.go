package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// AnswerKind tags the variant held by an Answer.
type AnswerKind string

const (
	AnswerKindOption  AnswerKind = "option"
	AnswerKindText    AnswerKind = "text"
	AnswerKindSkipped AnswerKind = "skipped"
)

// legacySkipped is the string older clients send for an unanswered question.
const legacySkipped = "undefined"

var errMalformedAnswer = errors.New("answer must be an option id, {optionId}, {text} or {skipped}")

// Answer is a student's response to one question: a selected option, a
// free-text answer, or an explicit skip.
type Answer struct {
	Kind     AnswerKind
	OptionID int64
	Text     string

	// raw holds the original string when a bare numeric string was decoded
	// as an option id, so a free-text question can still read it as text.
	raw string
}

func OptionAnswer(optionID int64) Answer { return Answer{Kind: AnswerKindOption, OptionID: optionID} }

func TextAnswer(text string) Answer { return Answer{Kind: AnswerKindText, Text: text} }

func SkippedAnswer() Answer { return Answer{Kind: AnswerKindSkipped} }

type answerObject struct {
	OptionID *int64  `json:"optionId,omitempty"`
	Text     *string `json:"text,omitempty"`
	Skipped  *bool   `json:"skipped,omitempty"`
}

// UnmarshalJSON accepts the object form as well as the bare forms sent by
// older clients: a number is an option id, null and "undefined" mean skipped,
// and any other string is a text answer. A numeric string decodes as an
// option id until ForType settles it against the question type.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = SkippedAnswer()
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" || s == legacySkipped {
			*a = SkippedAnswer()
			return nil
		}
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			*a = OptionAnswer(id)
			a.raw = s
			return nil
		}
		*a = TextAnswer(s)
		return nil

	case '{':
		var obj answerObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		set := 0
		if obj.OptionID != nil {
			set++
			*a = OptionAnswer(*obj.OptionID)
		}
		if obj.Text != nil {
			set++
			*a = TextAnswer(*obj.Text)
		}
		if obj.Skipped != nil && *obj.Skipped {
			set++
			*a = SkippedAnswer()
		}
		if set != 1 {
			return errMalformedAnswer
		}
		return nil

	default:
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return errMalformedAnswer
		}
		*a = OptionAnswer(id)
		return nil
	}
}

// ForType resolves the ambiguity of a bare numeric string: it stays an
// option id for a multiple-choice question and becomes the text it was
// sent as for a free-text question.
func (a Answer) ForType(t QuestionType) Answer {
	if a.raw != "" && t == QuestionTypeFreeText {
		return TextAnswer(a.raw)
	}
	return Answer{Kind: a.Kind, OptionID: a.OptionID, Text: a.Text}
}

// MarshalJSON always emits the object form.
func (a Answer) MarshalJSON() ([]byte, error) {
	var obj answerObject
	switch a.Kind {
	case AnswerKindOption:
		obj.OptionID = &a.OptionID
	case AnswerKindText:
		obj.Text = &a.Text
	default:
		skipped := true
		obj.Skipped = &skipped
	}
	return json.Marshal(obj)
}

// RecordAnswersRequest is the payload a student submits to finish a test.
type RecordAnswersRequest struct {
	Answers map[int64]Answer `json:"answers" binding:"required,min=1" swaggertype:"object"`
}

// RecordAnswersResponse is returned after answers are recorded.
type RecordAnswersResponse struct {
	Recorded   bool `json:"recorded"`
	TotalMarks int  `json:"total_marks"`
}

// QuestionAttempt is one persisted answer row.
type QuestionAttempt struct {
	ID               int64     `json:"id"`
	EnrolmentKeyID   int64     `json:"enrolment_key_id"`
	QuestionID       int64     `json:"question_id"`
	SelectedOptionID *int64    `json:"selected_option_id,omitempty"`
	TextAnswer       *string   `json:"text_answer,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
