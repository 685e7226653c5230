package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswer_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Answer
	}{
		{`12`, OptionAnswer(12)},
		{`"12"`, Answer{Kind: AnswerKindOption, OptionID: 12, raw: "12"}},
		{`"because"`, TextAnswer("because")},
		{`null`, SkippedAnswer()},
		{`"undefined"`, SkippedAnswer()},
		{`""`, SkippedAnswer()},
		{`{"optionId":5}`, OptionAnswer(5)},
		{`{"text":"42"}`, TextAnswer("42")},
		{`{"skipped":true}`, SkippedAnswer()},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got Answer
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnswer_UnmarshalJSON_Rejects(t *testing.T) {
	for _, in := range []string{`{}`, `{"optionId":1,"text":"a"}`, `true`, `[1]`} {
		var a Answer
		assert.Error(t, json.Unmarshal([]byte(in), &a), in)
	}
}

func TestRecordAnswersRequest_DecodesMixedForms(t *testing.T) {
	var req RecordAnswersRequest
	body := `{"answers":{"1":101,"2":"free text","3":null,"4":{"optionId":401}}}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, map[int64]Answer{
		1: OptionAnswer(101),
		2: TextAnswer("free text"),
		3: SkippedAnswer(),
		4: OptionAnswer(401),
	}, req.Answers)
}

func TestAnswer_ForType(t *testing.T) {
	var numeric Answer
	require.NoError(t, json.Unmarshal([]byte(`"42"`), &numeric))

	assert.Equal(t, OptionAnswer(42), numeric.ForType(QuestionTypeMultipleChoice))
	assert.Equal(t, TextAnswer("42"), numeric.ForType(QuestionTypeFreeText))

	var number Answer
	require.NoError(t, json.Unmarshal([]byte(`42`), &number))
	assert.Equal(t, OptionAnswer(42), number.ForType(QuestionTypeFreeText), "a JSON number stays an option id")

	assert.Equal(t, TextAnswer("x"), TextAnswer("x").ForType(QuestionTypeMultipleChoice))
	assert.Equal(t, SkippedAnswer(), SkippedAnswer().ForType(QuestionTypeFreeText))
}

func TestAnswer_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(OptionAnswer(7))
	require.NoError(t, err)
	assert.JSONEq(t, `{"optionId":7}`, string(b))

	b, err = json.Marshal(SkippedAnswer())
	require.NoError(t, err)
	assert.JSONEq(t, `{"skipped":true}`, string(b))
}

func TestEnrolmentKey_Status(t *testing.T) {
	now := time.Now()
	assert.Equal(t, KeyStatusNotStarted, (&EnrolmentKey{}).Status())
	assert.Equal(t, KeyStatusStarted, (&EnrolmentKey{StartTime: &now}).Status())
	assert.Equal(t, KeyStatusAnswered, (&EnrolmentKey{StartTime: &now, EndTime: &now}).Status())
}

func TestQuestion_PublicHidesCorrectness(t *testing.T) {
	q := Question{ID: 1, Type: QuestionTypeMultipleChoice, Options: []Option{{ID: 10, Text: "a", Correct: true}, {ID: 11, Text: "b"}}}

	b, err := json.Marshal(q.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(b), "correct")

	assert.True(t, q.HasOption(11))
	assert.False(t, q.HasOption(12))
}

func TestPermissionCodes(t *testing.T) {
	assert.Len(t, PermissionCodes(AdminRoleSuperAdmin), len(RolePermissions[AdminRoleSuperAdmin]))
	assert.NotContains(t, PermissionCodes(AdminRoleReviewer), string(PermissionQuestionsWrite))
	assert.Empty(t, PermissionCodes("UNKNOWN"))
}
