package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/franpass87/fp-experiences/internal/booking"
	"github.com/franpass87/fp-experiences/internal/model"
)

// SlotRepo provides data access to the slots table.  A unique key on
// (experience_id, start_utc, end_utc) backs the lazy-creation path: two
// concurrent creators of the same boundary resolve to one row.  It
// implements booking.SlotRepository.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, experience_id, start_utc, end_utc, capacity_total,
	capacity_per_category, status, resource_lock_token, price_rule_ref, created_at, updated_at`

func scanSlot(row interface{ Scan(...any) error }) (*model.Slot, error) {
	var s model.Slot
	var perCategory []byte
	var lockToken, priceRef sql.NullString
	err := row.Scan(
		&s.ID, &s.ExperienceID, &s.StartUTC, &s.EndUTC, &s.CapacityTotal,
		&perCategory, &s.Status, &lockToken, &priceRef, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if s.CapacityPerCategory, err = unmarshalQuantities(perCategory); err != nil {
		return nil, err
	}
	if lockToken.Valid {
		v := lockToken.String
		s.ResourceLockToken = &v
	}
	if priceRef.Valid {
		v := priceRef.String
		s.PriceRuleRef = &v
	}
	return &s, nil
}

// GetByID returns the slot with the given id, cancelled or not.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.Slot, error) {
	q := `SELECT ` + slotColumns + ` FROM slots WHERE id = ?`
	slot, err := scanSlot(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrSlotNotFound
	}
	return slot, err
}

// FindByBoundary returns the non-cancelled slot at the exact boundary.
func (r *SlotRepo) FindByBoundary(ctx context.Context, experienceID uint64, start, end time.Time) (*model.Slot, error) {
	q := `SELECT ` + slotColumns + ` FROM slots
	      WHERE experience_id = ? AND start_utc = ? AND end_utc = ? AND status <> 'CANCELLED'`
	slot, err := scanSlot(r.db.QueryRowContext(ctx, q, experienceID, start.UTC(), end.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrSlotNotFound
	}
	return slot, err
}

// ListOverlapping returns non-cancelled slots of the experience whose
// window intersects [start, end), optionally excluding one id.
func (r *SlotRepo) ListOverlapping(ctx context.Context, experienceID uint64, start, end time.Time, excludeID uint64) ([]model.Slot, error) {
	q := `SELECT ` + slotColumns + ` FROM slots
	      WHERE experience_id = ? AND status <> 'CANCELLED'
	        AND start_utc < ? AND end_utc > ?`
	args := []any{experienceID, end.UTC(), start.UTC()}
	if excludeID != 0 {
		q += ` AND id <> ?`
		args = append(args, excludeID)
	}
	q += ` ORDER BY start_utc`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *slot)
	}
	return out, rows.Err()
}

// Insert persists a new slot and populates its generated id.  A unique-key
// violation surfaces as ErrDuplicate.
func (r *SlotRepo) Insert(ctx context.Context, slot *model.Slot) error {
	perCategory, err := marshalQuantities(slot.CapacityPerCategory)
	if err != nil {
		return err
	}
	const q = `INSERT INTO slots (experience_id, start_utc, end_utc, capacity_total,
	           capacity_per_category, status, resource_lock_token, price_rule_ref)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		slot.ExperienceID, slot.StartUTC.UTC(), slot.EndUTC.UTC(), slot.CapacityTotal,
		perCategory, slot.Status, slot.ResourceLockToken, slot.PriceRuleRef,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	slot.ID = uint64(id)
	return nil
}

// UpdateTimes moves a slot to a new window.
func (r *SlotRepo) UpdateTimes(ctx context.Context, id uint64, start, end time.Time) error {
	const q = `UPDATE slots SET start_utc = ?, end_utc = ? WHERE id = ?`
	return r.exec(ctx, q, start.UTC(), end.UTC(), id)
}

// UpdateCapacity rewrites a slot's capacity limits.
func (r *SlotRepo) UpdateCapacity(ctx context.Context, id uint64, total int, perCategory model.CategoryQuantities) error {
	raw, err := marshalQuantities(perCategory)
	if err != nil {
		return err
	}
	const q = `UPDATE slots SET capacity_total = ?, capacity_per_category = ? WHERE id = ?`
	return r.exec(ctx, q, total, raw, id)
}

// UpdateStatus changes a slot's lifecycle state.
func (r *SlotRepo) UpdateStatus(ctx context.Context, id uint64, status model.SlotStatus) error {
	const q = `UPDATE slots SET status = ? WHERE id = ?`
	return r.exec(ctx, q, status, id)
}

func (r *SlotRepo) exec(ctx context.Context, q string, args ...any) error {
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// isDuplicateKey detects MySQL error 1062 without string matching when
// the driver exposes the typed error.
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}

var _ booking.SlotRepository = (*SlotRepo)(nil)
