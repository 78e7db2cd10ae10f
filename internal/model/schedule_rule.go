package model

import (
	"time"

	"github.com/franpass87/fp-experiences/internal/recurrence"
)

// ScheduleRule is a persisted recurrence configuration for an experience.
// The temporal shape lives in the embedded recurrence.Rule; exceptions are
// stored alongside and consumed only during expansion.  Capacity and
// buffer settings come from the owning experience (or an explicit
// materialization request), not from the rule itself.  This struct
// corresponds to a row in the `schedule_rules` table.
type ScheduleRule struct {
	ID           uint64                 // schedule_rules.id
	ExperienceID uint64                 // schedule_rules.experience_id
	Rule         recurrence.Rule        // schedule_rules.rule (JSON)
	Exceptions   []recurrence.Exception // schedule_rules.exceptions (JSON)
	IsActive     bool                   // schedule_rules.is_active
	CreatedAt    time.Time              // schedule_rules.created_at
	UpdatedAt    time.Time              // schedule_rules.updated_at
}
