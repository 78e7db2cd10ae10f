package handler

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/franpass87/fp-experiences/internal/booking"
    "github.com/franpass87/fp-experiences/internal/clock"
    "github.com/franpass87/fp-experiences/internal/model"
)

// AdminReservationHandler covers the request-to-book review queue plus the
// remaining reservation operations admins perform by hand: listing per
// slot, cancellation, check-in and expired-hold cleanup.
type AdminReservationHandler struct {
    Ledger       *booking.ReservationLedger
    Reservations booking.ReservationRepository
    Clock        clock.Clock
}

func NewAdminReservationHandler(ledger *booking.ReservationLedger, reservations booking.ReservationRepository, clk clock.Clock) *AdminReservationHandler {
    return &AdminReservationHandler{Ledger: ledger, Reservations: reservations, Clock: clk}
}

// ListRequests handles GET /v1/admin/requests?experience_id=&status=.
// Newest first; without a status filter the whole review set (pending and
// decided) is returned.
func (h *AdminReservationHandler) ListRequests(c echo.Context) error {
    var filter booking.RequestFilter
    if raw := c.QueryParam("experience_id"); raw != "" {
        id, err := strconv.ParseUint(raw, 10, 64)
        if err != nil || id == 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid experience_id"})
        }
        filter.ExperienceID = id
    }
    if raw := strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))); raw != "" {
        filter.Status = model.ReservationStatus(raw)
    }

    requests, err := h.Ledger.ListRequests(c.Request().Context(), filter)
    if err != nil {
        return bookingError(c, err)
    }
    out := make([]echo.Map, 0, len(requests))
    for i := range requests {
        out = append(out, reservationResp(&requests[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"requests": out})
}

type decisionReq struct {
    Reason          string `json:"reason"`
    RequiresPayment bool   `json:"requires_payment"`
}

// Approve handles POST /v1/admin/requests/:id/approve.  Approval lands on
// APPROVED_CONFIRMED, or APPROVED_PENDING_PAYMENT (with a fresh payment
// hold) when requires_payment is set.
func (h *AdminReservationHandler) Approve(c echo.Context) error {
    return h.decide(c, true)
}

// Decline handles POST /v1/admin/requests/:id/decline.
func (h *AdminReservationHandler) Decline(c echo.Context) error {
    return h.decide(c, false)
}

func (h *AdminReservationHandler) decide(c echo.Context, approved bool) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var req decisionReq
    _ = c.Bind(&req) // body optional; an empty decision carries no reason

    next := model.ReservationDeclined
    if approved {
        next = model.ReservationApprovedConfirmed
        if req.RequiresPayment {
            next = model.ReservationApprovedPendingPayment
        }
    }

    ctx := c.Request().Context()
    res, err := h.Ledger.UpdateStatus(ctx, id, next)
    if err != nil {
        return bookingError(c, err)
    }

    meta := res.Meta
    meta.Decision = &model.RequestDecision{Approved: approved, Reason: req.Reason, DecidedAt: h.Clock.Now()}
    if err := h.Ledger.UpdateFields(ctx, id, booking.ReservationPatch{Meta: &meta}); err != nil {
        return bookingError(c, err)
    }
    res.Meta = meta
    return c.JSON(http.StatusOK, reservationResp(res))
}

// ListBySlot handles GET /v1/admin/slots/:id/reservations.
func (h *AdminReservationHandler) ListBySlot(c echo.Context) error {
    slotID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
    }
    reservations, err := h.Reservations.ListBySlot(c.Request().Context(), slotID)
    if err != nil {
        return bookingError(c, err)
    }
    out := make([]echo.Map, 0, len(reservations))
    for i := range reservations {
        out = append(out, reservationResp(&reservations[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// Cancel handles POST /v1/admin/reservations/:id/cancel.
func (h *AdminReservationHandler) Cancel(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    res, err := h.Ledger.UpdateStatus(c.Request().Context(), id, model.ReservationCancelled)
    if err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusOK, reservationResp(res))
}

// CheckIn handles POST /v1/admin/reservations/:id/checkin.  Valid on paid
// and approved-confirmed reservations only.
func (h *AdminReservationHandler) CheckIn(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    res, err := h.Ledger.UpdateStatus(c.Request().Context(), id, model.ReservationCheckedIn)
    if err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusOK, reservationResp(res))
}

// ExpireHolds handles POST /v1/admin/maintenance/expire-holds.  Storage
// hygiene: capacity accounting ignores lapsed holds regardless, this just
// tidies the rows.  An optional grace period in minutes keeps recently
// lapsed holds untouched.
func (h *AdminReservationHandler) ExpireHolds(c echo.Context) error {
    grace := time.Duration(0)
    if raw := c.QueryParam("grace_min"); raw != "" {
        n, err := strconv.Atoi(raw)
        if err != nil || n < 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid grace_min"})
        }
        grace = time.Duration(n) * time.Minute
    }
    cancelled, err := h.Ledger.CancelExpiredHolds(c.Request().Context(), grace)
    if err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"cancelled": cancelled})
}
