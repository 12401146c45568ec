// Package diff computes the minimal change-set between the last persisted
// snapshot of a section tree and the user's working copy. The computation is
// pure: it holds no state between runs and never mutates its inputs, so
// callers must supply a correct baseline on every save.
package diff

import "assessment-backend/pkg/models"

// Compute classifies every current section against the baseline and returns
// the {added, updated, deleted} change-set.
//
// Matching is by section id only; a section with an empty id is always added,
// even if its content is identical to some baseline section. A matched
// section is emitted as updated iff a scalar field changed or any of its
// questions changed, appeared, or disappeared; an untouched section is
// omitted entirely. Baseline sections whose id is absent from current are
// deleted, in baseline order.
func Compute(baseline, current []models.Section) models.ChangeSet {
	var out models.ChangeSet

	baselineByID := make(map[string]models.Section, len(baseline))
	for _, s := range baseline {
		// Empty-id sections cannot appear in a persisted baseline; skip
		// rather than letting them collide under the "" key.
		if s.SectionID != "" {
			baselineByID[s.SectionID] = s
		}
	}

	seen := make(map[string]bool, len(current))
	for i, cur := range current {
		order := i + 1

		base, matched := baselineByID[cur.SectionID]
		if cur.SectionID == "" || !matched {
			out.Added = append(out.Added, addedSection(cur, order))
			continue
		}
		seen[cur.SectionID] = true

		changedQuestions := diffQuestions(base.Questions, cur.Questions)
		if !scalarsEqual(base, cur) || len(changedQuestions) > 0 {
			updated := cur
			updated.SectionOrder = order
			updated.Questions = changedQuestions
			out.Updated = append(out.Updated, updated)
		}
	}

	for _, base := range baseline {
		if base.SectionID == "" || seen[base.SectionID] {
			continue
		}
		deleted := base
		deleted.Questions = make([]models.QuestionMarking, len(base.Questions))
		for i, q := range base.Questions {
			q.IsDeleted = true
			deleted.Questions[i] = q
		}
		out.Deleted = append(out.Deleted, deleted)
	}

	return out
}

func addedSection(s models.Section, order int) models.Section {
	added := s
	added.SectionOrder = order
	added.Questions = make([]models.QuestionMarking, len(s.Questions))
	for i, q := range s.Questions {
		q.IsAdded = true
		q.IsUpdated = false
		q.IsDeleted = false
		added.Questions[i] = q
	}
	return added
}

// diffQuestions returns only the questions that need server-side
// reconciliation: current versions of changed and newly added questions, and
// baseline versions of questions that disappeared. An empty result means the
// question lists are equivalent.
func diffQuestions(baseline, current []models.QuestionMarking) []models.QuestionMarking {
	baselineByID := make(map[string]models.QuestionMarking, len(baseline))
	for _, q := range baseline {
		if q.QuestionID != "" {
			baselineByID[q.QuestionID] = q
		}
	}

	var changed []models.QuestionMarking
	seen := make(map[string]bool, len(current))
	for _, q := range current {
		if q.QuestionID == "" {
			q.IsAdded = true
			changed = append(changed, q)
			continue
		}

		base, matched := baselineByID[q.QuestionID]
		if !matched {
			q.IsAdded = true
			changed = append(changed, q)
			continue
		}
		seen[q.QuestionID] = true

		if !questionsEqual(base, q) {
			q.IsUpdated = true
			changed = append(changed, q)
		}
	}

	for _, base := range baseline {
		if base.QuestionID == "" || seen[base.QuestionID] {
			continue
		}
		base.IsDeleted = true
		changed = append(changed, base)
	}

	return changed
}

func scalarsEqual(a, b models.Section) bool {
	return a.SectionName == b.SectionName &&
		a.DescriptionHTML == b.DescriptionHTML &&
		a.DurationMinutes == b.DurationMinutes &&
		a.TotalMarks == b.TotalMarks &&
		a.CutoffMarks == b.CutoffMarks &&
		a.Randomized == b.Randomized
}

// questionsEqual is structural equality over the marking fields. The change
// markers are output-only and deliberately excluded.
func questionsEqual(a, b models.QuestionMarking) bool {
	if a.QuestionID != b.QuestionID ||
		a.QuestionName != b.QuestionName ||
		a.QuestionMark != b.QuestionMark ||
		a.ValidAnswers != b.ValidAnswers ||
		len(a.Criteria) != len(b.Criteria) {
		return false
	}
	for i := range a.Criteria {
		if a.Criteria[i] != b.Criteria[i] {
			return false
		}
	}
	return true
}
