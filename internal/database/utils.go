package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"assessment-backend/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UpdateEvaluationTaskStatus moves a task row to a new status, stamping the
// completion time on terminal states.
func UpdateEvaluationTaskStatus(ctx context.Context, txn *gorm.DB, taskId string, status string) error {
	updates := map[string]any{"status": status}
	if status == models.StatusEvaluationCompleted || status == models.StatusFailed || status == StatusCancelled {
		updates["completion_time"] = time.Now().UTC()
	}

	if err := txn.WithContext(ctx).Model(&EvaluationTask{TaskId: taskId}).Updates(updates).Error; err != nil {
		slog.Error("error updating evaluation task status", "task_id", taskId, "status", status, "error", err)
		return err
	}
	return nil
}

// SaveTaskResults stores the latest merged per-subject snapshot on the task
// row.
func SaveTaskResults(ctx context.Context, txn *gorm.DB, taskId string, results []models.SubjectResult) error {
	encoded, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("could not marshal task results: %w", err)
	}

	if err := txn.WithContext(ctx).Model(&EvaluationTask{TaskId: taskId}).Update("results", encoded).Error; err != nil {
		slog.Error("error saving evaluation task results", "task_id", taskId, "error", err)
		return err
	}
	return nil
}

// SaveTaskFailure records the failure reason alongside the FAILED status.
func SaveTaskFailure(ctx context.Context, txn *gorm.DB, taskId string, reason string) {
	updates := map[string]any{
		"status":          models.StatusFailed,
		"failure_reason":  reason,
		"completion_time": time.Now().UTC(),
	}

	if err := txn.WithContext(ctx).Model(&EvaluationTask{TaskId: taskId}).Updates(updates).Error; err != nil {
		slog.Error("error saving evaluation task failure", "task_id", taskId, "error", err)
	}
}

// SetSessionBaseline replaces a session's baseline snapshot after a
// successful save.
func SetSessionBaseline(ctx context.Context, txn *gorm.DB, sessionId uuid.UUID, tree []models.Section) error {
	encoded, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("could not marshal baseline tree: %w", err)
	}

	updates := map[string]any{
		"baseline":        encoded,
		"last_saved_time": time.Now().UTC(),
	}
	if err := txn.WithContext(ctx).Model(&EditingSession{Id: sessionId}).Updates(updates).Error; err != nil {
		slog.Error("error updating session baseline", "session_id", sessionId, "error", err)
		return err
	}
	return nil
}

// SessionBaseline decodes a session's stored baseline tree.
func SessionBaseline(session *EditingSession) ([]models.Section, error) {
	if len(session.Baseline) == 0 {
		return nil, nil
	}
	var tree []models.Section
	if err := json.Unmarshal(session.Baseline, &tree); err != nil {
		return nil, fmt.Errorf("invalid baseline JSON for session %s: %w", session.Id, err)
	}
	return tree, nil
}
