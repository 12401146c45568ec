package evaluation

import (
	"sort"
	"sync"

	"assessment-backend/pkg/models"
)

// statusRank orders subject statuses by completeness. Unknown statuses rank
// lowest so a garbled update cannot displace real data.
func statusRank(status string) int {
	switch status {
	case models.StatusWaiting:
		return 1
	case models.StatusExtractingAnswer:
		return 2
	case models.StatusEvaluating:
		return 3
	case models.StatusEvaluationCompleted, models.StatusFailed:
		return 4
	default:
		return 0
	}
}

// ResultSet is the running collection of per-subject evaluation outcomes,
// keyed by subject id. Merges replace whole records, never individual fields,
// and a record is only replaced by one of equal or more complete status, so
// out-of-order delivery cannot regress a subject.
type ResultSet struct {
	mu      sync.RWMutex
	results map[string]models.SubjectResult
}

func NewResultSet() *ResultSet {
	return &ResultSet{results: make(map[string]models.SubjectResult)}
}

// Merge applies a partial update. New subject ids are inserted; existing ones
// are replaced unless the incoming status is strictly less complete.
func (rs *ResultSet) Merge(update []models.SubjectResult) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	for _, r := range update {
		if r.SubjectID == "" {
			continue
		}
		if existing, ok := rs.results[r.SubjectID]; ok && statusRank(r.Status) < statusRank(existing.Status) {
			continue
		}
		rs.results[r.SubjectID] = r
	}
}

// Replace swaps in the full terminal payload, discarding all partial state.
func (rs *ResultSet) Replace(final []models.SubjectResult) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.results = make(map[string]models.SubjectResult, len(final))
	for _, r := range final {
		if r.SubjectID == "" {
			continue
		}
		rs.results[r.SubjectID] = r
	}
}

// Snapshot returns the current results ordered by subject id.
func (rs *ResultSet) Snapshot() []models.SubjectResult {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	out := make([]models.SubjectResult, 0, len(rs.results))
	for _, r := range rs.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out
}

// Len reports the number of subjects with a known result.
func (rs *ResultSet) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.results)
}
