package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/franpass87/fp-experiences/internal/booking"
    "github.com/franpass87/fp-experiences/internal/clock"
    "github.com/franpass87/fp-experiences/internal/recurrence"
)

// AvailabilityHandler exposes the virtual availability projection to the
// storefront.  No slot has to exist for an occurrence to be listed here.
type AvailabilityHandler struct {
    Slots *booking.SlotService
    Clock clock.Clock
}

func NewAvailabilityHandler(slots *booking.SlotService, clk clock.Clock) *AvailabilityHandler {
    return &AvailabilityHandler{Slots: slots, Clock: clk}
}

// Get handles GET /v1/experiences/:id/availability?from=...&to=...
// The from/to query parameters are RFC3339 timestamps; when omitted the
// window defaults to the next 30 days.
func (h *AvailabilityHandler) Get(c echo.Context) error {
    experienceID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid experience id"})
    }

    now := h.Clock.Now()
    window := recurrence.Window{Start: now, End: now.Add(30 * 24 * time.Hour)}
    if raw := c.QueryParam("from"); raw != "" {
        t, ok := parseTimeParam(raw)
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from timestamp"})
        }
        window.Start = t
    }
    if raw := c.QueryParam("to"); raw != "" {
        t, ok := parseTimeParam(raw)
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to timestamp"})
        }
        window.End = t
    }
    if !window.End.After(window.Start) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "window end must be after start"})
    }

    occs, err := h.Slots.VirtualOccurrences(c.Request().Context(), experienceID, window)
    if err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "experience_id": experienceID,
        "occurrences":   occs,
    })
}
