package evaluation_test

import (
	"testing"

	"assessment-backend/internal/evaluation"
	"assessment-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(id, status string, marks float64) models.SubjectResult {
	return models.SubjectResult{SubjectID: id, Status: status, MarksObtained: marks}
}

func TestResultSet_MergeInsertsAndReplaces(t *testing.T) {
	rs := evaluation.NewResultSet()

	rs.Merge([]models.SubjectResult{result("a", models.StatusEvaluating, 0)})
	rs.Merge([]models.SubjectResult{
		result("a", models.StatusEvaluationCompleted, 7.5),
		result("b", models.StatusEvaluating, 0),
	})

	got := rs.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].SubjectID)
	assert.Equal(t, models.StatusEvaluationCompleted, got[0].Status)
	assert.Equal(t, 7.5, got[0].MarksObtained)
	assert.Equal(t, "b", got[1].SubjectID)
}

func TestResultSet_MergeNeverRegressesASubject(t *testing.T) {
	rs := evaluation.NewResultSet()

	rs.Merge([]models.SubjectResult{result("a", models.StatusEvaluationCompleted, 9)})
	// A stale duplicate delivered out of order.
	rs.Merge([]models.SubjectResult{result("a", models.StatusEvaluating, 4)})

	got := rs.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, models.StatusEvaluationCompleted, got[0].Status)
	assert.Equal(t, 9.0, got[0].MarksObtained)
}

func TestResultSet_MergeReplacesWholeRecordNotFields(t *testing.T) {
	rs := evaluation.NewResultSet()

	first := result("a", models.StatusEvaluating, 3)
	first.Feedback = "partial feedback"
	rs.Merge([]models.SubjectResult{first})

	// Same status rank: replaced wholesale, so the feedback is gone.
	rs.Merge([]models.SubjectResult{result("a", models.StatusEvaluating, 5)})

	got := rs.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, 5.0, got[0].MarksObtained)
	assert.Empty(t, got[0].Feedback)
}

func TestResultSet_ReplaceDiscardsPartialState(t *testing.T) {
	rs := evaluation.NewResultSet()
	rs.Merge([]models.SubjectResult{
		result("a", models.StatusEvaluating, 1),
		result("stale", models.StatusEvaluating, 2),
	})

	rs.Replace([]models.SubjectResult{result("a", models.StatusEvaluationCompleted, 8)})

	got := rs.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].SubjectID)
	assert.Equal(t, 8.0, got[0].MarksObtained)
}

func TestResultSet_IgnoresRecordsWithoutSubjectId(t *testing.T) {
	rs := evaluation.NewResultSet()
	rs.Merge([]models.SubjectResult{{Status: models.StatusEvaluating}})
	assert.Zero(t, rs.Len())
}
