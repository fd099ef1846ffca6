package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/booking-core/internal/handler"    // handlers that implement the booking operations
	"github.com/iliyamo/booking-core/internal/middleware" // middleware for JWT verification
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check,
// used by load balancers and monitoring systems to verify that the
// service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterBooking registers the booking endpoints and their middleware.
// Every route requires a valid bearer token; the token's subject becomes
// the owner on whose behalf holds and bookings are made.  The routes map
// 1:1 onto the core operations plus lock introspection for diagnostics.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	// Availability is advisory; the atomic hold happens on POST.
	g.GET("/scopes/:id/availability", h.CheckAvailability)
	g.POST("/scopes/:id/bookings", h.StartBooking)

	// Transaction lifecycle: confirm or cancel before the hold TTL lapses.
	g.GET("/transactions/:id", h.GetTransaction)
	g.POST("/transactions/:id/confirm", h.Confirm)
	g.DELETE("/transactions/:id", h.Cancel)

	// Durable bookings.  DELETE is the compensating cancellation of an
	// already-confirmed booking, distinct from cancelling a transaction.
	g.GET("/bookings/:id", h.GetBooking)
	g.DELETE("/bookings/:id", h.CancelBooking)

	// Diagnostics: active holds and the combined seat map of a scope.
	g.GET("/scopes/:id/locks", h.ListLocks)
	g.GET("/scopes/:id/resources", h.ScopeResources)
}
