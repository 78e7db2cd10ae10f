package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/franpass87/fp-experiences/internal/booking"
	"github.com/franpass87/fp-experiences/internal/model"
)

// ReservationRepo provides data access to the reservations table.  It
// implements booking.ReservationRepository.  Capacity is never stored
// here: accountants aggregate these rows on every check.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, order_ref, experience_id, slot_id, status, quantities,
	hold_expires_at, total_amount_cents, meta, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var res model.Reservation
	var orderRef sql.NullString
	var quantities, meta []byte
	var holdExpires sql.NullTime
	err := row.Scan(
		&res.ID, &orderRef, &res.ExperienceID, &res.SlotID, &res.Status, &quantities,
		&holdExpires, &res.TotalAmountCents, &meta, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if orderRef.Valid {
		v := orderRef.String
		res.OrderRef = &v
	}
	if holdExpires.Valid {
		v := holdExpires.Time.UTC()
		res.HoldExpiresAt = &v
	}
	if res.Quantities, err = unmarshalQuantities(quantities); err != nil {
		return nil, err
	}
	if res.Meta, err = unmarshalMeta(meta); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetByID returns a reservation by id.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrReservationNotFound
	}
	return res, err
}

// ListBySlot returns every reservation referencing the slot.
func (r *ReservationRepo) ListBySlot(ctx context.Context, slotID uint64) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE slot_id = ? ORDER BY id`
	return r.list(ctx, q, slotID)
}

// ListByWindow returns reservations of the experience whose slot sits at
// exactly the given boundary.  Joined through slots so the virtual
// availability path and persisted slots aggregate identically.
func (r *ReservationRepo) ListByWindow(ctx context.Context, experienceID uint64, start, end time.Time) ([]model.Reservation, error) {
	q := `SELECT r.id, r.order_ref, r.experience_id, r.slot_id, r.status, r.quantities,
	             r.hold_expires_at, r.total_amount_cents, r.meta, r.created_at, r.updated_at
	      FROM reservations r
	      JOIN slots s ON s.id = r.slot_id
	      WHERE r.experience_id = ? AND s.start_utc = ? AND s.end_utc = ?
	      ORDER BY r.id`
	return r.list(ctx, q, experienceID, start.UTC(), end.UTC())
}

// Insert persists a new reservation and populates the generated id plus
// the database-assigned timestamps.
func (r *ReservationRepo) Insert(ctx context.Context, res *model.Reservation) error {
	quantities, err := marshalQuantities(res.Quantities)
	if err != nil {
		return err
	}
	meta, err := marshalMeta(res.Meta)
	if err != nil {
		return err
	}
	var holdExpires any
	if res.HoldExpiresAt != nil {
		holdExpires = res.HoldExpiresAt.UTC()
	}
	const q = `INSERT INTO reservations (order_ref, experience_id, slot_id, status, quantities,
	           hold_expires_at, total_amount_cents, meta)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		res.OrderRef, res.ExperienceID, res.SlotID, res.Status, quantities,
		holdExpires, res.TotalAmountCents, meta,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	// Query back timestamps assigned by the database.
	const sel = `SELECT created_at, updated_at FROM reservations WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt, &res.UpdatedAt)
}

// UpdateStatus persists a lifecycle transition together with the new hold
// deadline; nil clears it.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus, holdExpiresAt *time.Time) error {
	var hold any
	if holdExpiresAt != nil {
		hold = holdExpiresAt.UTC()
	}
	const q = `UPDATE reservations SET status = ?, hold_expires_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, status, hold, id)
	return err
}

// UpdateFields merges only the whitelisted patch fields into the row.
func (r *ReservationRepo) UpdateFields(ctx context.Context, id uint64, patch booking.ReservationPatch) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if patch.OrderRef != nil {
		sets = append(sets, "order_ref = ?")
		args = append(args, *patch.OrderRef)
	}
	if patch.Quantities != nil {
		raw, err := marshalQuantities(patch.Quantities)
		if err != nil {
			return err
		}
		sets = append(sets, "quantities = ?")
		args = append(args, raw)
	}
	if patch.TotalAmountCents != nil {
		sets = append(sets, "total_amount_cents = ?")
		args = append(args, *patch.TotalAmountCents)
	}
	if patch.Meta != nil {
		raw, err := marshalMeta(*patch.Meta)
		if err != nil {
			return err
		}
		sets = append(sets, "meta = ?")
		args = append(args, raw)
	}
	if len(sets) == 0 {
		return nil
	}
	q := `UPDATE reservations SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// Delete hard-deletes a reservation.  Used solely by the admission
// rollback path.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	const q = `DELETE FROM reservations WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// ListRequests returns request-to-book reservations for review, newest
// first, optionally narrowed by experience and status.
func (r *ReservationRepo) ListRequests(ctx context.Context, filter booking.RequestFilter) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE status IN (?, ?, ?, ?)`
	args := []any{
		model.ReservationPendingRequest,
		model.ReservationApprovedConfirmed,
		model.ReservationApprovedPendingPayment,
		model.ReservationDeclined,
	}
	if filter.Status != "" {
		q = `SELECT ` + reservationColumns + ` FROM reservations WHERE status = ?`
		args = []any{filter.Status}
	}
	if filter.ExperienceID != 0 {
		q += ` AND experience_id = ?`
		args = append(args, filter.ExperienceID)
	}
	q += ` ORDER BY created_at DESC`
	return r.list(ctx, q, args...)
}

// CancelExpiredHolds cancels pending requests whose hold lapsed before the
// cutoff.  Storage hygiene only; accounting already ignores expired holds.
func (r *ReservationRepo) CancelExpiredHolds(ctx context.Context, before time.Time) (int64, error) {
	const q = `UPDATE reservations SET status = ?, hold_expires_at = NULL
	           WHERE status = ? AND hold_expires_at IS NOT NULL AND hold_expires_at < ?`
	result, err := r.db.ExecContext(ctx, q, model.ReservationCancelled, model.ReservationPendingRequest, before.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

var _ booking.ReservationRepository = (*ReservationRepo)(nil)
