package routes

import (
	"net/http"

	"github.com/avencourt/gatehouse/internal/handlers"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the application routes. Paths mirror the front
// end's expectations; the reset-token check deliberately lives at the root
// so emailed links stay short.
func RegisterRoutes(
	router chi.Router,
	accountHandler *handlers.AccountHandler,
	authHandler *handlers.AuthHandler,
	resetHandler *handlers.PasswordResetHandler,
	profileHandler *handlers.ProfileHandler,
	healthHandler *handlers.HealthHandler,
	requireSession func(http.Handler) http.Handler,
) {
	router.Get("/health", healthHandler.Health)

	// Public routes - no session required
	router.Post("/register", accountHandler.Register)
	router.Get("/verify-email/{token}", accountHandler.VerifyEmail)
	router.Post("/resend-verification", accountHandler.ResendVerification)
	router.Post("/login", authHandler.Login)
	router.Delete("/logout", authHandler.Logout)
	router.Post("/forgot", resetHandler.Forgot)
	router.Post("/reset/{token}", resetHandler.Reset)
	router.Get("/check-auth", authHandler.CheckAuth)

	// Protected routes - session required
	router.Group(func(r chi.Router) {
		r.Use(requireSession)

		r.Put("/edit/me", profileHandler.Edit)
		r.Get("/profile/me", profileHandler.Me)
		r.Delete("/delete/{id}", accountHandler.Delete)
	})

	// Reset-token check. A root-level wildcard, so it only matches GET
	// paths no fixed route above claimed.
	router.Get("/{token}", resetHandler.CheckToken)
}
