package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/franpass87/fp-experiences/internal/booking"
	"github.com/franpass87/fp-experiences/internal/model"
)

// ExperienceRepo provides read access to experiences and their schedule
// rules.  It implements booking.ExperienceRepository.
type ExperienceRepo struct {
	db *sql.DB
}

// NewExperienceRepo returns a new ExperienceRepo bound to the given database.
func NewExperienceRepo(db *sql.DB) *ExperienceRepo { return &ExperienceRepo{db: db} }

// GetByID loads an experience with its booking settings.  Inactive rows
// are returned as-is; callers decide whether they are bookable.
func (r *ExperienceRepo) GetByID(ctx context.Context, id uint64) (*model.Experience, error) {
	const q = `SELECT id, title, is_active, timezone, capacity_total, capacity_per_category,
	                  categories, buffer_before_min, buffer_after_min, lead_time_min,
	                  hold_timeout_min, block_capacity_on_hold, require_approval,
	                  created_at, updated_at
	           FROM experiences WHERE id = ?`
	var exp model.Experience
	var perCategory, categories []byte
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&exp.ID, &exp.Title, &exp.IsActive, &exp.Timezone, &exp.CapacityTotal, &perCategory,
		&categories, &exp.BufferBeforeMin, &exp.BufferAfterMin, &exp.LeadTimeMin,
		&exp.HoldTimeoutMin, &exp.BlockCapacityOnHold, &exp.RequireApproval,
		&exp.CreatedAt, &exp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrExperienceNotFound
		}
		return nil, err
	}
	if exp.CapacityPerCategory, err = unmarshalQuantities(perCategory); err != nil {
		return nil, err
	}
	if exp.Categories, err = unmarshalCategories(categories); err != nil {
		return nil, err
	}
	return &exp, nil
}

// ListRules returns all schedule rules of an experience, active or not.
func (r *ExperienceRepo) ListRules(ctx context.Context, experienceID uint64) ([]model.ScheduleRule, error) {
	const q = `SELECT id, experience_id, rule, exceptions, is_active, created_at, updated_at
	           FROM schedule_rules WHERE experience_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, experienceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ScheduleRule
	for rows.Next() {
		var sr model.ScheduleRule
		var ruleJSON, exceptionsJSON []byte
		if err := rows.Scan(&sr.ID, &sr.ExperienceID, &ruleJSON, &exceptionsJSON, &sr.IsActive, &sr.CreatedAt, &sr.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(ruleJSON, &sr.Rule); err != nil {
			continue // unreadable stored rule contributes nothing
		}
		if len(exceptionsJSON) > 0 {
			if err := json.Unmarshal(exceptionsJSON, &sr.Exceptions); err != nil {
				sr.Exceptions = nil
			}
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// InsertRule persists a new schedule rule for the experience.
func (r *ExperienceRepo) InsertRule(ctx context.Context, sr *model.ScheduleRule) error {
	ruleJSON, err := json.Marshal(sr.Rule)
	if err != nil {
		return err
	}
	var exceptionsJSON any
	if len(sr.Exceptions) > 0 {
		if exceptionsJSON, err = json.Marshal(sr.Exceptions); err != nil {
			return err
		}
	}
	const q = `INSERT INTO schedule_rules (experience_id, rule, exceptions, is_active) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, sr.ExperienceID, ruleJSON, exceptionsJSON, sr.IsActive)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	sr.ID = uint64(id)
	return nil
}

var _ booking.ExperienceRepository = (*ExperienceRepo)(nil)
