package handler

import (
    "log"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/franpass87/fp-experiences/internal/booking"
    "github.com/franpass87/fp-experiences/internal/model"
)

// BookingHandler drives the storefront checkout: cart session issuance and
// booking submission through the concurrency guard.  The cart lock wraps
// the whole admission sequence so double-submits from one session cannot
// race each other.
type BookingHandler struct {
    Guard    *booking.ConcurrencyGuard
    CartLock booking.CartLock
}

func NewBookingHandler(guard *booking.ConcurrencyGuard, cartLock booking.CartLock) *BookingHandler {
    return &BookingHandler{Guard: guard, CartLock: cartLock}
}

// OpenCartSession handles POST /v1/cart/session.  The returned session id
// keys the checkout lock; the storefront sends it back in the
// X-Cart-Session header when submitting the booking.
func (h *BookingHandler) OpenCartSession(c echo.Context) error {
    return c.JSON(http.StatusCreated, echo.Map{"session_id": uuid.NewString()})
}

type bookingReq struct {
    SlotID           uint64         `json:"slot_id"`
    Start            string         `json:"start"`
    End              string         `json:"end"`
    Quantities       map[string]int `json:"quantities"`
    TotalAmountCents uint32         `json:"total_amount_cents"`
    Contact          *model.ContactInfo  `json:"contact"`
    Consent          *model.ConsentFlags `json:"consent"`
}

// Book handles POST /v1/experiences/:id/bookings.  The target is either an
// existing slot (slot_id) or a virtual occurrence (start/end); in the
// latter case the backing slot is created lazily during admission.
func (h *BookingHandler) Book(c echo.Context) error {
    experienceID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid experience id"})
    }
    session := strings.TrimSpace(c.Request().Header.Get("X-Cart-Session"))
    if session == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "X-Cart-Session header required"})
    }

    var req bookingReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    admission := booking.AdmissionRequest{
        ExperienceID:     experienceID,
        SlotID:           req.SlotID,
        Quantities:       toQuantities(req.Quantities),
        TotalAmountCents: req.TotalAmountCents,
        Meta:             model.ReservationMeta{Contact: req.Contact, Consent: req.Consent},
        CreateOrder:      true,
    }
    if req.SlotID == 0 {
        start, okS := parseTimeParam(req.Start)
        end, okE := parseTimeParam(req.End)
        if !okS || !okE || !end.After(start) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "slot_id or a valid start/end pair required"})
        }
        admission.Start = start
        admission.End = end
    }

    ctx := c.Request().Context()
    token, err := h.CartLock.Acquire(ctx, session)
    if err != nil {
        return bookingError(c, err)
    }
    defer func() {
        if err := h.CartLock.Release(ctx, session, token); err != nil {
            log.Printf("booking: cart lock release for session %s failed: %v", session, err)
        }
    }()

    res, err := h.Guard.Admit(ctx, admission)
    if err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusCreated, reservationResp(res))
}

func toQuantities(raw map[string]int) model.CategoryQuantities {
    if len(raw) == 0 {
        return nil
    }
    out := make(model.CategoryQuantities, len(raw))
    for key, n := range raw {
        out[model.CategoryKey(key)] = n
    }
    return out
}

// reservationResp is the wire shape shared by the booking and admin
// reservation endpoints.
func reservationResp(res *model.Reservation) echo.Map {
    m := echo.Map{
        "id":                 res.ID,
        "experience_id":      res.ExperienceID,
        "slot_id":            res.SlotID,
        "status":             res.Status,
        "quantities":         res.Quantities,
        "total_amount_cents": res.TotalAmountCents,
        "created_at":         res.CreatedAt.UTC().Format(time.RFC3339),
    }
    if res.OrderRef != nil {
        m["order_ref"] = *res.OrderRef
    }
    if res.HoldExpiresAt != nil {
        m["hold_expires_at"] = res.HoldExpiresAt.UTC().Format(time.RFC3339)
    }
    return m
}
