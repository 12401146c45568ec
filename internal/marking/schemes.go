package marking

import "assessment-backend/pkg/models"

// Predefined marking schemes keyed by a question's total mark. These are
// read-only input to SetCriteria when a marker imports a rubric wholesale
// instead of building criteria by hand.
var predefinedSchemes = map[int][]models.Criterion{
	1: {
		{Name: "Correct answer", Marks: 1},
	},
	2: {
		{Name: "Method", Marks: 1},
		{Name: "Accuracy", Marks: 1},
	},
	3: {
		{Name: "Method", Marks: 1},
		{Name: "Working", Marks: 1},
		{Name: "Accuracy", Marks: 1},
	},
	4: {
		{Name: "Method", Marks: 1},
		{Name: "Working", Marks: 2},
		{Name: "Accuracy", Marks: 1},
	},
	5: {
		{Name: "Method", Marks: 1},
		{Name: "Working", Marks: 2},
		{Name: "Presentation", Marks: 1},
		{Name: "Accuracy", Marks: 1},
	},
	10: {
		{Name: "Understanding", Marks: 2},
		{Name: "Method", Marks: 2},
		{Name: "Working", Marks: 3},
		{Name: "Presentation", Marks: 1},
		{Name: "Accuracy", Marks: 2},
	},
}

// SchemeFor returns a copy of the predefined criteria scheme for the given
// mark total, or false if no scheme is defined for it.
func SchemeFor(totalMarks int) ([]models.Criterion, bool) {
	scheme, ok := predefinedSchemes[totalMarks]
	if !ok {
		return nil, false
	}
	copied := make([]models.Criterion, len(scheme))
	copy(copied, scheme)
	return copied, true
}
