package api

import (
	"context"
	"sync"
	"time"

	"assessment-backend/internal/evaluation"
	"assessment-backend/internal/marking"
	"assessment-backend/pkg/models"

	"github.com/google/uuid"
)

// sessionState is the live, in-memory side of one editing session: the
// marking store and synchronizer holding the working questions, the section
// scaffolding (scalars and order) of the working tree, and any pollers
// tracking in-flight evaluation tasks. The persisted side (baseline snapshot,
// task rows) lives in the database.
type sessionState struct {
	id           uuid.UUID
	assessmentID string
	creationTime time.Time

	store  *marking.Store
	drafts *marking.DraftSynchronizer

	mu       sync.Mutex
	sections []models.Section
	pollers  map[string]*evaluation.Poller
	cancels  map[string]context.CancelFunc
}

func newSessionState(id uuid.UUID, assessmentID string, tree []models.Section) *sessionState {
	store := marking.NewStore()
	st := &sessionState{
		id:           id,
		assessmentID: assessmentID,
		creationTime: time.Now(),
		store:        store,
		drafts:       marking.NewDraftSynchronizer(store),
		pollers:      make(map[string]*evaluation.Poller),
		cancels:      make(map[string]context.CancelFunc),
	}
	st.resetTree(tree)
	return st
}

// sectionKey picks the stable identity of a section on the wire: the server
// id once persisted, the client key before that.
func sectionKey(s models.Section) string {
	if s.SectionID != "" {
		return s.SectionID
	}
	return s.ClientKey
}

// resetTree installs a freshly loaded persisted tree as the working copy.
// The tree comes straight from the persistence API, so it overwrites whatever
// the store held: a fresh load of persisted data always wins.
func (st *sessionState) resetTree(tree []models.Section) {
	st.mu.Lock()
	st.sections = make([]models.Section, len(tree))
	copy(st.sections, tree)
	st.mu.Unlock()

	st.store.ClearAll()
	for i, section := range tree {
		st.store.BindSectionKey(i, sectionKey(section))
		st.drafts.ApplyDraft(i, section.Questions)
	}
}

// setSections replaces the section scaffolding of the working tree: scalars,
// ordering, additions, and removals. Question lists keep living in the store
// under each section's stable key, so a reorder re-homes nothing; indexes the
// store has never seen are seeded from the payload.
func (st *sessionState) setSections(sections []models.Section) {
	st.mu.Lock()
	st.sections = make([]models.Section, len(sections))
	copy(st.sections, sections)
	st.mu.Unlock()

	for i, section := range sections {
		st.store.BindSectionKey(i, sectionKey(section))
	}
	st.store.PruneIndexes(len(sections))
	for i, section := range sections {
		st.drafts.SeedDraft(i, section.Questions)
	}
}

// currentTree composes the working tree: section scaffolding plus the
// authoritative question lists from the store.
func (st *sessionState) currentTree() []models.Section {
	st.mu.Lock()
	sections := make([]models.Section, len(st.sections))
	copy(sections, st.sections)
	st.mu.Unlock()

	for i := range sections {
		if qs := st.store.SectionQuestions(i); qs != nil {
			sections[i].Questions = qs
		}
	}
	return sections
}

func (st *sessionState) addPoller(taskID string, p *evaluation.Poller, cancel context.CancelFunc) {
	st.mu.Lock()
	st.pollers[taskID] = p
	st.cancels[taskID] = cancel
	st.mu.Unlock()
}

// removePoller drops a finished poller so readers fall back to the persisted
// task row.
func (st *sessionState) removePoller(taskID string) {
	st.mu.Lock()
	delete(st.pollers, taskID)
	st.mu.Unlock()
}

func (st *sessionState) poller(taskID string) (*evaluation.Poller, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	p, ok := st.pollers[taskID]
	return p, ok
}

// stopPoller cancels a running poll; returns false if the task has no live
// poller.
func (st *sessionState) stopPoller(taskID string) bool {
	st.mu.Lock()
	cancel, ok := st.cancels[taskID]
	delete(st.cancels, taskID)
	st.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// close cancels every live poller for the session.
func (st *sessionState) close() {
	st.mu.Lock()
	cancels := st.cancels
	st.cancels = make(map[string]context.CancelFunc)
	st.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// sessionManager holds the live state of every open editing session.
type sessionManager struct {
	lock     sync.Mutex
	sessions map[uuid.UUID]*sessionState
}

func newSessionManager() *sessionManager {
	return &sessionManager{sessions: make(map[uuid.UUID]*sessionState)}
}

func (m *sessionManager) add(st *sessionState) {
	m.lock.Lock()
	m.sessions[st.id] = st
	m.lock.Unlock()
}

func (m *sessionManager) get(id uuid.UUID) (*sessionState, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	st, ok := m.sessions[id]
	return st, ok
}

func (m *sessionManager) remove(id uuid.UUID) (*sessionState, bool) {
	m.lock.Lock()
	st, ok := m.sessions[id]
	delete(m.sessions, id)
	m.lock.Unlock()
	return st, ok
}
