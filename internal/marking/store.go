package marking

import (
	"sync"

	"assessment-backend/pkg/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the authoritative cache of per-section marking state for one
// editing session. The public contract is position based because that is what
// the editing surface speaks, but entries are held under a stable per-section
// key so that reordering or deleting a section cannot silently re-home
// another section's questions. Keys for not-yet-persisted sections are
// generated locally.
//
// Read accessors never fail on missing entries; they return the zero value.
type Store struct {
	mu       sync.RWMutex
	keys     map[int]string
	sections map[string][]models.QuestionMarking
	// provisional marks keys the store generated itself, as opposed to
	// identities bound by the caller.
	provisional map[string]bool
}

func NewStore() *Store {
	return &Store{
		keys:        make(map[int]string),
		sections:    make(map[string][]models.QuestionMarking),
		provisional: make(map[string]bool),
	}
}

// keyAt returns the stable key for a section index, creating one if the index
// has never been seen. Out-of-range indices are not an error; they create
// sparse entries.
func (s *Store) keyAt(index int) string {
	key, ok := s.keys[index]
	if !ok {
		key = uuid.NewString()
		s.keys[index] = key
		s.provisional[key] = true
	}
	return key
}

// BindSectionKey pins the stable key for a section index: the server-side
// section id for persisted sections, or the client key for sections awaiting
// their first save. When a store-generated provisional key is rebound (the
// section acquiring a real identity), the questions follow the rebinding.
// Rebinding between caller-assigned keys never migrates anything: at the same
// index that means a different section now lives there, and its questions must
// not be inherited from the old occupant.
func (s *Store) BindSectionKey(index int, key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.keys[index]; ok && old != key && s.provisional[old] {
		if _, exists := s.sections[key]; !exists {
			if qs, ok := s.sections[old]; ok {
				s.sections[key] = qs
				delete(s.sections, old)
			}
		}
		delete(s.provisional, old)
	}
	s.keys[index] = key
}

// PruneIndexes drops index bindings at or beyond length and discards every
// question list whose key is no longer referenced by a surviving index.
// Callers run this after rebinding a reordered or shortened tree.
func (s *Store) PruneIndexes(length int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inUse := make(map[string]bool, length)
	for i, key := range s.keys {
		if i < length {
			inUse[key] = true
		} else {
			delete(s.keys, i)
		}
	}
	for key := range s.sections {
		if !inUse[key] {
			delete(s.sections, key)
			delete(s.provisional, key)
		}
	}
}

// SectionKey returns the stable key currently bound to an index, or "" if the
// index has never been written.
func (s *Store) SectionKey(index int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[index]
}

// SetSectionQuestions replaces the full question list at the given index. The
// questions are copied, criteria included; later edits to the caller's slices
// do not leak in.
func (s *Store) SetSectionQuestions(index int, questions []models.QuestionMarking) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sections[s.keyAt(index)] = copyQuestions(questions)
}

// UpdateQuestionMark replaces only the mark text of one question. A missing
// (section, question) pair is a no-op.
func (s *Store) UpdateQuestionMark(sectionIndex, questionIndex int, mark string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qs, ok := s.questionsAt(sectionIndex)
	if !ok || questionIndex < 0 || questionIndex >= len(qs) {
		return
	}
	qs[questionIndex].QuestionMark = mark
}

// AddCriteria appends a criterion to a question. Duplicate names are kept in
// order: custom and predefined criteria are separate namespaces upstream, so
// deduplicating here would drop user input.
func (s *Store) AddCriteria(sectionIndex, questionIndex int, criterion models.Criterion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qs, ok := s.questionsAt(sectionIndex)
	if !ok || questionIndex < 0 || questionIndex >= len(qs) {
		return
	}
	qs[questionIndex].Criteria = append(qs[questionIndex].Criteria, criterion)
}

// RemoveCriteria removes every criterion whose name matches, not just the
// first.
func (s *Store) RemoveCriteria(sectionIndex, questionIndex int, criteriaName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qs, ok := s.questionsAt(sectionIndex)
	if !ok || questionIndex < 0 || questionIndex >= len(qs) {
		return
	}

	kept := qs[questionIndex].Criteria[:0]
	for _, c := range qs[questionIndex].Criteria {
		if c.Name != criteriaName {
			kept = append(kept, c)
		}
	}
	qs[questionIndex].Criteria = kept
}

// SetCriteria replaces a question's criteria wholesale, e.g. when importing a
// predefined scheme.
func (s *Store) SetCriteria(sectionIndex, questionIndex int, criteria []models.Criterion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qs, ok := s.questionsAt(sectionIndex)
	if !ok || questionIndex < 0 || questionIndex >= len(qs) {
		return
	}

	copied := make([]models.Criterion, len(criteria))
	copy(copied, criteria)
	qs[questionIndex].Criteria = copied
}

// SectionMarks sums the parsed marks of every question in a section.
// Unparsable or in-progress mark text counts as zero.
func (s *Store) SectionMarks(index int) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	qs, _ := s.questionsAt(index)
	for _, q := range qs {
		total = total.Add(ParseMark(q.QuestionMark))
	}
	return total
}

// SectionQuestions returns a copy of the question list at an index; nil if
// the index is unknown.
func (s *Store) SectionQuestions(index int) []models.QuestionMarking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	qs, ok := s.questionsAt(index)
	if !ok {
		return nil
	}
	return copyQuestions(qs)
}

// QuestionMark returns the raw mark text, or "" for a missing pair.
func (s *Store) QuestionMark(sectionIndex, questionIndex int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	qs, ok := s.questionsAt(sectionIndex)
	if !ok || questionIndex < 0 || questionIndex >= len(qs) {
		return ""
	}
	return qs[questionIndex].QuestionMark
}

// QuestionCriteria returns a copy of a question's criteria, or nil for a
// missing pair.
func (s *Store) QuestionCriteria(sectionIndex, questionIndex int) []models.Criterion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	qs, ok := s.questionsAt(sectionIndex)
	if !ok || questionIndex < 0 || questionIndex >= len(qs) {
		return nil
	}
	copied := make([]models.Criterion, len(qs[questionIndex].Criteria))
	copy(copied, qs[questionIndex].Criteria)
	return copied
}

// ClearSection drops the cache entry for one index. Clearing an absent index
// is fine.
func (s *Store) ClearSection(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.keys[index]; ok {
		delete(s.sections, key)
		delete(s.keys, index)
	}
}

// RemoveSection drops the entry at an index and shifts every higher index
// down by one, keeping each section's questions attached to its stable key.
func (s *Store) RemoveSection(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.keys[index]; ok {
		delete(s.sections, key)
	}

	shifted := make(map[int]string, len(s.keys))
	for i, key := range s.keys {
		switch {
		case i < index:
			shifted[i] = key
		case i > index:
			shifted[i-1] = key
		}
	}
	s.keys = shifted
}

// ClearAll resets the store to empty.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys = make(map[int]string)
	s.sections = make(map[string][]models.QuestionMarking)
	s.provisional = make(map[string]bool)
}

// copyQuestions clones a question list including each question's criteria, so
// neither level of the result shares backing arrays with the input. In-place
// criteria edits on one side must never show through on the other.
func copyQuestions(questions []models.QuestionMarking) []models.QuestionMarking {
	copied := make([]models.QuestionMarking, len(questions))
	copy(copied, questions)
	for i := range copied {
		if len(copied[i].Criteria) > 0 {
			criteria := make([]models.Criterion, len(copied[i].Criteria))
			copy(criteria, copied[i].Criteria)
			copied[i].Criteria = criteria
		}
	}
	return copied
}

// questionsAt resolves an index to its question slice without creating an
// entry. Callers must hold the lock.
func (s *Store) questionsAt(index int) ([]models.QuestionMarking, bool) {
	key, ok := s.keys[index]
	if !ok {
		return nil, false
	}
	qs, ok := s.sections[key]
	return qs, ok
}
