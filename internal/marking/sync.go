package marking

import (
	"sync"

	"assessment-backend/pkg/models"
)

// DraftSynchronizer keeps an externally owned editable draft consistent with
// a Store without feedback loops. Edits flow draft->store on every change;
// store contents flow store->draft only when a section index is seen for the
// first time.
//
// The store->draft replay is not guaranteed to run before the first edit is
// captured. If an edit lands first, the edit wins: SeedDraft returns the
// already stored questions instead of clobbering them with the stale draft
// default.
type DraftSynchronizer struct {
	store *Store

	mu     sync.Mutex
	seeded map[int]bool
}

func NewDraftSynchronizer(store *Store) *DraftSynchronizer {
	return &DraftSynchronizer{
		store:  store,
		seeded: make(map[int]bool),
	}
}

// ApplyDraft copies the draft's question list for a section into the store.
// Applying the same draft state twice is a no-op for observers.
func (ds *DraftSynchronizer) ApplyDraft(sectionIndex int, questions []models.QuestionMarking) {
	ds.mu.Lock()
	ds.seeded[sectionIndex] = true
	ds.mu.Unlock()

	ds.store.SetSectionQuestions(sectionIndex, questions)
}

// SeedDraft resolves the initial question list for a section and returns what
// the draft should display. On the first sighting of an index, stored
// questions win over an empty draft default, while a draft already populated
// from a fresh load of persisted data wins over the store and is pushed into
// it. On later calls a store that holds the section is authoritative, even
// when it holds an empty list: a user edit captured before the replay landed
// must not be lost, and deleting every question is such an edit.
func (ds *DraftSynchronizer) SeedDraft(sectionIndex int, draft []models.QuestionMarking) []models.QuestionMarking {
	ds.mu.Lock()
	alreadySeeded := ds.seeded[sectionIndex]
	ds.seeded[sectionIndex] = true
	ds.mu.Unlock()

	stored := ds.store.SectionQuestions(sectionIndex)

	if alreadySeeded {
		// nil means the store has never held this index's section; an empty
		// non-nil list is a real state the user may have edited into.
		if stored != nil {
			return stored
		}
		// The index was re-bound to a section the store has never held, e.g. a
		// brand new section taking the place of a removed one. There is no
		// edit to protect, so the draft becomes the stored state.
		if len(draft) > 0 {
			ds.store.SetSectionQuestions(sectionIndex, draft)
		}
		return draft
	}

	if len(stored) > 0 && len(draft) == 0 {
		return stored
	}

	ds.store.SetSectionQuestions(sectionIndex, draft)
	return draft
}

// Forget drops the first-seen marker for a section index, e.g. after the
// section is removed from the draft.
func (ds *DraftSynchronizer) Forget(sectionIndex int) {
	ds.mu.Lock()
	delete(ds.seeded, sectionIndex)
	ds.mu.Unlock()
}
