package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"

	"github.com/haircarepro/haircarepro/internal/model"
)

// Common errors for care plan repository operations.
var (
	ErrCarePlanNotFound = errors.New("care plan not found")
)

// CreateCarePlan stores a plan generated for userID from survey.
func (r *Repository) CreateCarePlan(ctx context.Context, userID string, survey model.Survey, plan model.CarePlan) (*model.CarePlanRecord, error) {
	if survey == nil {
		survey = model.Survey{}
	}

	surveyJSON, err := json.Marshal(survey)
	if err != nil {
		return nil, fmt.Errorf("marshal survey: %w", err)
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("marshal care plan: %w", err)
	}

	ingredients := plan.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}

	record := &model.CarePlanRecord{
		ID:         ulid.Make().String(),
		UserID:     userID,
		SurveyData: survey,
		CarePlan:   plan,
		CreatedAt:  time.Now().UTC(),
	}

	query := `
		INSERT INTO care_plans (id, user_id, survey_data, care_plan, ingredient_names, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.pool.Exec(ctx, query,
		record.ID,
		record.UserID,
		surveyJSON,
		planJSON,
		pq.Array(ingredients),
		record.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create care plan: %w", err)
	}

	return record, nil
}

// GetLatestCarePlan returns the most recent plan for userID.
func (r *Repository) GetLatestCarePlan(ctx context.Context, userID string) (*model.CarePlanRecord, error) {
	query := `
		SELECT id, user_id, survey_data, care_plan, created_at, last_reminder_sent
		FROM care_plans
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	record, err := scanCarePlan(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCarePlanNotFound
		}
		return nil, fmt.Errorf("failed to get latest care plan: %w", err)
	}

	return record, nil
}

// ListCarePlansWithUsers returns every stored plan joined with its owner.
// Plans whose owner row is missing are returned with a nil User.
func (r *Repository) ListCarePlansWithUsers(ctx context.Context) ([]*model.PlanWithUser, error) {
	query := `
		SELECT cp.id, cp.user_id, cp.survey_data, cp.care_plan, cp.created_at, cp.last_reminder_sent,
		       u.id, u.username, u.email, u.created_at
		FROM care_plans cp
		LEFT JOIN users u ON u.id = cp.user_id
		ORDER BY cp.created_at ASC, cp.id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list care plans: %w", err)
	}
	defer rows.Close()

	var plans []*model.PlanWithUser
	for rows.Next() {
		var (
			surveyJSON, planJSON []byte
			record               model.CarePlanRecord
			userID, username     *string
			email                *string
			userCreatedAt        *time.Time
		)

		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&surveyJSON,
			&planJSON,
			&record.CreatedAt,
			&record.LastReminderSent,
			&userID,
			&username,
			&email,
			&userCreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan care plan: %w", err)
		}

		if err := decodeCarePlan(&record, surveyJSON, planJSON); err != nil {
			return nil, err
		}

		item := &model.PlanWithUser{Record: &record}
		if userID != nil {
			item.User = &model.User{ID: *userID}
			if username != nil {
				item.User.Username = *username
			}
			if email != nil {
				item.User.Email = *email
			}
			if userCreatedAt != nil {
				item.User.CreatedAt = *userCreatedAt
			}
		}
		plans = append(plans, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate care plans: %w", err)
	}

	return plans, nil
}

// MarkReminderSent stamps the time a reminder was sent for a plan.
func (r *Repository) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE care_plans
		SET last_reminder_sent = $2
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrCarePlanNotFound
	}

	return nil
}

// CountCarePlansWithIngredient counts plans recommending the named ingredient.
func (r *Repository) CountCarePlansWithIngredient(ctx context.Context, name string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM care_plans
		WHERE ingredient_names @> $1
	`

	var count int64
	if err := r.pool.QueryRow(ctx, query, pq.Array([]string{name})).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count care plans by ingredient: %w", err)
	}

	return count, nil
}

func scanCarePlan(row pgx.Row) (*model.CarePlanRecord, error) {
	var (
		record               model.CarePlanRecord
		surveyJSON, planJSON []byte
	)

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&surveyJSON,
		&planJSON,
		&record.CreatedAt,
		&record.LastReminderSent,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeCarePlan(&record, surveyJSON, planJSON); err != nil {
		return nil, err
	}

	return &record, nil
}

func decodeCarePlan(record *model.CarePlanRecord, surveyJSON, planJSON []byte) error {
	if len(surveyJSON) > 0 {
		if err := json.Unmarshal(surveyJSON, &record.SurveyData); err != nil {
			return fmt.Errorf("decode survey for care plan %s: %w", record.ID, err)
		}
	}
	if len(planJSON) > 0 {
		if err := json.Unmarshal(planJSON, &record.CarePlan); err != nil {
			return fmt.Errorf("decode care plan %s: %w", record.ID, err)
		}
	}
	return nil
}
