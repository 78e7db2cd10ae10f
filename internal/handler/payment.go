package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/franpass87/fp-experiences/internal/booking"
    "github.com/franpass87/fp-experiences/internal/model"
)

// PaymentHandler receives callbacks from the external order system and
// translates them into reservation transitions.  Pricing stays outside:
// the webhook only reports what happened to the order.
type PaymentHandler struct {
    Ledger *booking.ReservationLedger
}

func NewPaymentHandler(ledger *booking.ReservationLedger) *PaymentHandler {
    return &PaymentHandler{Ledger: ledger}
}

type webhookReq struct {
    ReservationID uint64 `json:"reservation_id"`
    OrderRef      string `json:"order_ref"`
    Event         string `json:"event"` // payment.succeeded | payment.cancelled | payment.failed
}

// Webhook handles POST /v1/payments/webhook.  payment.succeeded settles
// the reservation; cancellation and failure both release it.
func (h *PaymentHandler) Webhook(c echo.Context) error {
    var req webhookReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.ReservationID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_id required"})
    }

    var next model.ReservationStatus
    switch strings.ToLower(strings.TrimSpace(req.Event)) {
    case "payment.succeeded":
        next = model.ReservationPaid
    case "payment.cancelled", "payment.failed":
        next = model.ReservationCancelled
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown event"})
    }

    ctx := c.Request().Context()
    res, err := h.Ledger.Get(ctx, req.ReservationID)
    if err != nil {
        return bookingError(c, err)
    }
    // The order system must be talking about the artifact this reservation
    // is paired with.
    if req.OrderRef != "" && (res.OrderRef == nil || *res.OrderRef != req.OrderRef) {
        return c.JSON(http.StatusConflict, echo.Map{"error": "order_ref mismatch"})
    }

    updated, err := h.Ledger.UpdateStatus(ctx, req.ReservationID, next)
    if err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusOK, reservationResp(updated))
}
