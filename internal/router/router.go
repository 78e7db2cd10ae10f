package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // Echo web framework used for routing

    "github.com/franpass87/fp-experiences/internal/handler"    // HTTP handlers implementing the endpoints
    "github.com/franpass87/fp-experiences/internal/middleware" // JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Load balancers and monitoring systems use this endpoint to verify
    // that the service is up and running.
    e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the storefront endpoints: availability browsing,
// cart session issuance, booking submission and the payment callback.  The
// rate limiter middleware is applied to all of them; it is a pass-through
// when disabled or when Redis is unavailable.
func RegisterPublic(e *echo.Echo, av *handler.AvailabilityHandler, bk *handler.BookingHandler, pay *handler.PaymentHandler, limiter echo.MiddlewareFunc) {
    g := e.Group("/v1", limiter)
    // Virtual availability: occurrences projected from the experience's
    // rules with remaining capacity attached.
    g.GET("/experiences/:id/availability", av.Get)
    // Cart session issuance; the returned id keys the checkout lock.
    g.POST("/cart/session", bk.OpenCartSession)
    // Booking submission, serialized per cart session.
    g.POST("/experiences/:id/bookings", bk.Book)
    // Callback from the external order system driving paid/cancelled.
    g.POST("/payments/webhook", pay.Webhook)
}

// RegisterAdmin registers the authenticated management surface.  Login is
// open; everything else requires a valid access token with the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AuthHandler, slots *handler.AdminSlotHandler, reservations *handler.AdminReservationHandler, jwtSecret string) {
    e.POST("/v1/auth/login", a.Login)

    g := e.Group("/v1/admin")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("ADMIN"))

    // Calendar management.
    g.POST("/experiences/:id/slots/materialize", slots.Materialize)
    g.PATCH("/slots/:id/move", slots.Move)
    g.PATCH("/slots/:id/capacity", slots.UpdateCapacity)
    g.DELETE("/slots/:id", slots.Cancel)
    g.GET("/slots/:id/reservations", reservations.ListBySlot)

    // Request-to-book review queue.
    g.GET("/requests", reservations.ListRequests)
    g.POST("/requests/:id/approve", reservations.Approve)
    g.POST("/requests/:id/decline", reservations.Decline)

    // Manual reservation operations.
    g.POST("/reservations/:id/cancel", reservations.Cancel)
    g.POST("/reservations/:id/checkin", reservations.CheckIn)
    g.POST("/maintenance/expire-holds", reservations.ExpireHolds)
}
