package handler // handler defines http handlers

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/franpass87/fp-experiences/internal/booking"
)

// pathID parses a numeric :id path parameter. Returns zero and false for
// missing or non-positive values.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// parseTimeParam parses an RFC3339 timestamp from a query or body field.
func parseTimeParam(raw string) (time.Time, bool) {
    t, err := time.Parse(time.RFC3339, raw)
    if err != nil {
        return time.Time{}, false
    }
    return t.UTC(), true
}

// bookingError translates core booking errors into JSON responses.  Typed
// errors carry enough detail for the client; everything unrecognized is a
// 500 with a generic message so internals never leak.
func bookingError(c echo.Context, err error) error {
    var vErr *booking.ValidationError
    var bufErr *booking.BufferConflictError
    var slotErr *booking.SlotUnavailableError
    var transErr *booking.InvalidTransitionError
    switch {
    case errors.Is(err, booking.ErrExperienceNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "experience not found"})
    case errors.Is(err, booking.ErrSlotNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
    case errors.Is(err, booking.ErrReservationNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
    case errors.Is(err, booking.ErrCapacityExceeded):
        return c.JSON(http.StatusConflict, echo.Map{"error": "not enough capacity"})
    case errors.Is(err, booking.ErrCapacityExceededRace):
        return c.JSON(http.StatusConflict, echo.Map{"error": "capacity taken by a concurrent booking, please retry"})
    case errors.Is(err, booking.ErrCapacityBelowCommitted):
        return c.JSON(http.StatusConflict, echo.Map{"error": "capacity below committed reservations"})
    case errors.Is(err, booking.ErrCartLocked):
        return c.JSON(http.StatusConflict, echo.Map{"error": "cart session busy"})
    case errors.As(err, &vErr):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": vErr.Error()})
    case errors.As(err, &bufErr):
        return c.JSON(http.StatusConflict, echo.Map{"error": bufErr.Error()})
    case errors.As(err, &slotErr):
        return c.JSON(http.StatusConflict, echo.Map{"error": slotErr.Error()})
    case errors.As(err, &transErr):
        return c.JSON(http.StatusConflict, echo.Map{"error": transErr.Error()})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
