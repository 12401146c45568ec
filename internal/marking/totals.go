package marking

import (
	"strings"

	"assessment-backend/pkg/models"

	"github.com/shopspring/decimal"
)

// ParseMark converts raw mark text to a decimal. Marks are carried as text to
// preserve what the user typed, so this must tolerate partially entered
// numbers: a trailing decimal point parses as the integer part, and anything
// else unparsable counts as zero.
func ParseMark(raw string) decimal.Decimal {
	text := strings.TrimSpace(raw)
	text = strings.TrimSuffix(text, ".")
	if text == "" || text == "-" || text == "+" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CalculateTotalMarks sums the marks of the given questions and returns the
// total as a decimal string, so fractional marks (halves are common in
// rubrics) are preserved exactly.
func CalculateTotalMarks(questions []models.QuestionMarking) string {
	total := decimal.Zero
	for _, q := range questions {
		total = total.Add(ParseMark(q.QuestionMark))
	}
	return total.String()
}
