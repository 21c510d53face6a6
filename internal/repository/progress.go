package repository

import (
	"context"
	"fmt"

	"github.com/haircarepro/haircarepro/internal/model"
)

// ListProgress returns a user's progress entries ordered by step.
func (r *Repository) ListProgress(ctx context.Context, userID string) ([]*model.ProgressEntry, error) {
	query := `
		SELECT id, user_id, step, title, note, created_at
		FROM progress_entries
		WHERE user_id = $1
		ORDER BY step ASC, created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	entries := make([]*model.ProgressEntry, 0)
	for rows.Next() {
		var entry model.ProgressEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Step,
			&entry.Title,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan progress entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate progress: %w", err)
	}

	return entries, nil
}
