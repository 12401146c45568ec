package marking_test

import (
	"testing"

	"assessment-backend/internal/marking"
	"assessment-backend/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestCalculateTotalMarks(t *testing.T) {
	tests := []struct {
		name  string
		marks []string
		want  string
	}{
		{name: "empty", marks: nil, want: "0"},
		{name: "integers", marks: []string{"2", "3"}, want: "5"},
		{name: "halves survive", marks: []string{"2", "1.5", "x", ""}, want: "3.5"},
		{name: "trailing decimal point", marks: []string{"1.", "0.5"}, want: "1.5"},
		{name: "all unparsable", marks: []string{"x", "-", "", "two"}, want: "0"},
		{name: "no float drift", marks: []string{"0.1", "0.2"}, want: "0.3"},
		{name: "negative adjustment", marks: []string{"3", "-0.5"}, want: "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs := make([]models.QuestionMarking, len(tt.marks))
			for i, m := range tt.marks {
				qs[i] = models.QuestionMarking{QuestionMark: m}
			}
			assert.Equal(t, tt.want, marking.CalculateTotalMarks(qs))
		})
	}
}

func TestParseMark(t *testing.T) {
	assert.Equal(t, "2", marking.ParseMark("2").String())
	assert.Equal(t, "1.5", marking.ParseMark(" 1.5 ").String())
	assert.Equal(t, "2", marking.ParseMark("2.").String())
	assert.True(t, marking.ParseMark("").IsZero())
	assert.True(t, marking.ParseMark(".").IsZero())
	assert.True(t, marking.ParseMark("-").IsZero())
	assert.True(t, marking.ParseMark("abc").IsZero())
}
