package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/franpass87/fp-experiences/internal/booking"
    "github.com/franpass87/fp-experiences/internal/model"
    "github.com/franpass87/fp-experiences/internal/recurrence"
    "github.com/franpass87/fp-experiences/internal/repository"
)

// AdminSlotHandler covers the calendar-management surface: durable
// materialization of a recurrence rule, slot moves, capacity edits and
// cancellation.  All routes sit behind JWT + ADMIN role middleware.
type AdminSlotHandler struct {
    Slots       *booking.SlotService
    Experiences *repository.ExperienceRepo
}

func NewAdminSlotHandler(slots *booking.SlotService, experiences *repository.ExperienceRepo) *AdminSlotHandler {
    return &AdminSlotHandler{Slots: slots, Experiences: experiences}
}

type capacityPart struct {
    Total       int            `json:"total"`
    PerCategory map[string]int `json:"per_category"`
}

func (p *capacityPart) profile() *booking.CapacityProfile {
    if p == nil {
        return nil
    }
    return &booking.CapacityProfile{Total: p.Total, PerCategory: toQuantities(p.PerCategory)}
}

type materializeReq struct {
    Rule            recurrence.Rule        `json:"rule"`
    Exceptions      []recurrence.Exception `json:"exceptions"`
    ReplaceExisting bool                   `json:"replace_existing"`
    Capacity        *capacityPart          `json:"capacity"`
    SaveRule        bool                   `json:"save_rule"`
}

// Materialize handles POST /v1/admin/experiences/:id/slots/materialize.
// Expands the submitted rule into durable slots; already-present
// boundaries are skipped unless replace_existing is set.  With save_rule
// the rule is also stored so the virtual availability path picks it up.
func (h *AdminSlotHandler) Materialize(c echo.Context) error {
    experienceID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid experience id"})
    }
    var req materializeReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx := c.Request().Context()
    created, err := h.Slots.Materialize(ctx, experienceID, req.Rule, req.Exceptions, booking.MaterializeOptions{
        ReplaceExisting: req.ReplaceExisting,
        Capacity:        req.Capacity.profile(),
    })
    if err != nil {
        return bookingError(c, err)
    }

    resp := echo.Map{"created": created}
    if req.SaveRule {
        sr := &model.ScheduleRule{
            ExperienceID: experienceID,
            Rule:         req.Rule,
            Exceptions:   req.Exceptions,
            IsActive:     true,
        }
        if err := h.Experiences.InsertRule(ctx, sr); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "slots created but saving the rule failed"})
        }
        resp["rule_id"] = sr.ID
    }
    return c.JSON(http.StatusCreated, resp)
}

type moveReq struct {
    Start string `json:"start"`
    End   string `json:"end"`
}

// Move handles PATCH /v1/admin/slots/:id/move.  Rejected with a conflict
// when the new window violates the experience's buffers; the slot keeps
// its original window in that case.
func (h *AdminSlotHandler) Move(c echo.Context) error {
    slotID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
    }
    var req moveReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    start, okS := parseTimeParam(req.Start)
    end, okE := parseTimeParam(req.End)
    if !okS || !okE {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "start and end must be RFC3339 timestamps"})
    }

    slot, err := h.Slots.MoveSlot(c.Request().Context(), slotID, start, end)
    if err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusOK, slotResp(slot))
}

// UpdateCapacity handles PATCH /v1/admin/slots/:id/capacity.  Lowering a
// limit below the committed snapshot is rejected.
func (h *AdminSlotHandler) UpdateCapacity(c echo.Context) error {
    slotID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
    }
    var req capacityPart
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Total < 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "total must not be negative"})
    }

    ctx := c.Request().Context()
    if err := h.Slots.UpdateCapacity(ctx, slotID, *req.profile()); err != nil {
        return bookingError(c, err)
    }
    slot, err := h.Slots.Get(ctx, slotID)
    if err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusOK, slotResp(slot))
}

// Cancel handles DELETE /v1/admin/slots/:id.  Cancelled slots stop
// matching lookups but their reservation history stays.
func (h *AdminSlotHandler) Cancel(c echo.Context) error {
    slotID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
    }
    if err := h.Slots.CancelSlot(c.Request().Context(), slotID); err != nil {
        return bookingError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

func slotResp(slot *model.Slot) echo.Map {
    return echo.Map{
        "id":                    slot.ID,
        "experience_id":         slot.ExperienceID,
        "start_utc":             slot.StartUTC,
        "end_utc":               slot.EndUTC,
        "capacity_total":        slot.CapacityTotal,
        "capacity_per_category": slot.CapacityPerCategory,
        "status":                slot.Status,
    }
}
