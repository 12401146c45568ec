package marking_test

import (
	"testing"

	"assessment-backend/internal/marking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftSynchronizer_StoredQuestionsWinOverEmptyDefault(t *testing.T) {
	store := marking.NewStore()
	store.SetSectionQuestions(0, questions("2", "1"))

	sync := marking.NewDraftSynchronizer(store)

	got := sync.SeedDraft(0, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].QuestionMark)
}

func TestDraftSynchronizer_FreshDraftWinsAndIsPushedToStore(t *testing.T) {
	store := marking.NewStore()
	store.SetSectionQuestions(0, questions("9"))

	sync := marking.NewDraftSynchronizer(store)

	fresh := questions("2", "1.5")
	got := sync.SeedDraft(0, fresh)
	assert.Equal(t, fresh, got)
	assert.Equal(t, "2", store.QuestionMark(0, 0))
	assert.Equal(t, "1.5", store.QuestionMark(0, 1))
}

func TestDraftSynchronizer_ApplyDraftIsIdempotent(t *testing.T) {
	store := marking.NewStore()
	sync := marking.NewDraftSynchronizer(store)

	draft := questions("1", "2")
	sync.ApplyDraft(0, draft)
	first := store.SectionQuestions(0)

	sync.ApplyDraft(0, draft)
	assert.Equal(t, first, store.SectionQuestions(0))
}

func TestDraftSynchronizer_EditBeforeReplayIsNotLost(t *testing.T) {
	store := marking.NewStore()
	sync := marking.NewDraftSynchronizer(store)

	// The user edits before the store->draft replay lands.
	edit := questions("4")
	sync.ApplyDraft(0, edit)

	// The late replay must return the edit, not clobber it with the stale
	// initial draft.
	got := sync.SeedDraft(0, questions("1"))
	require.Len(t, got, 1)
	assert.Equal(t, "4", got[0].QuestionMark)
	assert.Equal(t, "4", store.QuestionMark(0, 0))
}

func TestDraftSynchronizer_EmptyStoreKeepsDraft(t *testing.T) {
	store := marking.NewStore()
	sync := marking.NewDraftSynchronizer(store)

	draft := questions("1")
	got := sync.SeedDraft(0, draft)
	assert.Equal(t, draft, got)
	// The draft was pushed into the store.
	assert.Equal(t, "1", store.QuestionMark(0, 0))
}

func TestDraftSynchronizer_DeletingEveryQuestionIsNotLost(t *testing.T) {
	store := marking.NewStore()
	sync := marking.NewDraftSynchronizer(store)

	sync.ApplyDraft(0, questions("2"))
	// The user deletes every question in the section.
	sync.ApplyDraft(0, nil)

	// A stale replay carrying the pre-deletion list must not resurrect it.
	got := sync.SeedDraft(0, questions("2"))
	assert.Empty(t, got)
	assert.Empty(t, store.SectionQuestions(0))
}

func TestDraftSynchronizer_ReseedAfterRebindAdoptsDraft(t *testing.T) {
	store := marking.NewStore()
	sync := marking.NewDraftSynchronizer(store)

	store.BindSectionKey(0, "s1")
	sync.ApplyDraft(0, questions("1"))

	// A different section takes over index 0; the old occupant's questions
	// must not be inherited and the new section's draft becomes stored state.
	store.BindSectionKey(0, "fresh-section")
	store.PruneIndexes(1)
	got := sync.SeedDraft(0, questions("3"))
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].QuestionMark)
	assert.Equal(t, "3", store.QuestionMark(0, 0))
}

func TestDraftSynchronizer_ForgetAllowsReseed(t *testing.T) {
	store := marking.NewStore()
	sync := marking.NewDraftSynchronizer(store)

	sync.ApplyDraft(0, questions("1"))
	sync.Forget(0)
	store.ClearSection(0)

	fresh := questions("7")
	got := sync.SeedDraft(0, fresh)
	assert.Equal(t, fresh, got)
}
