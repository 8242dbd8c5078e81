package routes

import (
	"github.com/AnshRaj112/prescripto-backend/internal/handlers"
	"github.com/AnshRaj112/prescripto-backend/internal/ledger"
	"github.com/AnshRaj112/prescripto-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes registers the API. Handlers must be initialised with
// handlers.Init first.
func SetupRoutes(r chi.Router, tokens middleware.TokenVerifier) {
	// Patient routes
	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", handlers.RegisterUser)
		r.Post("/login", handlers.LoginUser)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(tokens, ledger.RolePatient))
			r.Get("/get-profile", handlers.GetUserProfile)
			r.Post("/update-profile", handlers.UpdateUserProfile)
			r.Post("/book-appointment", handlers.BookAppointment)
			r.Get("/appointments", handlers.ListUserAppointments)
			r.Post("/cancel-appointment", handlers.CancelAppointment)
			r.Post("/payment-razorpay", handlers.PaymentRazorpay)
			r.Post("/verify-razorpay", handlers.VerifyRazorpay)
			r.Get("/invoice/{appointmentId}", handlers.DownloadInvoice)
		})
	})

	// Doctor routes
	r.Route("/api/doctor", func(r chi.Router) {
		r.Get("/list", handlers.ListDoctors)
		r.Post("/login", handlers.LoginDoctor)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(tokens, ledger.RoleDoctor))
			r.Get("/appointments", handlers.ListDoctorAppointments)
			r.Post("/cancel-appointment", handlers.CancelAppointment)
			r.Post("/complete-appointment", handlers.CompleteAppointment)
			r.Get("/dashboard", handlers.GetDoctorDashboard)
			r.Get("/profile", handlers.GetDoctorProfile)
			r.Post("/update-profile", handlers.UpdateDoctorProfile)
			r.Post("/change-availability", handlers.ChangeDoctorAvailability)
		})
	})

	// Admin routes (credentials come from ADMIN_EMAIL / ADMIN_PASSWORD)
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", handlers.LoginAdmin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(tokens, ledger.RoleAdmin))
			r.Post("/add-doctor", handlers.AddDoctor)
			r.Get("/all-doctors", handlers.AllDoctors)
			r.Post("/all-doctors", handlers.AllDoctors)
			r.Post("/change-availability", handlers.AdminChangeAvailability)
			r.Get("/appointments", handlers.AllAppointments)
			r.Post("/cancel-appointment", handlers.CancelAppointment)
			r.Get("/dashboard", handlers.GetAdminDashboard)
			r.Get("/blocked-ips", handlers.GetBlockedIPs)
			r.Put("/unblock-ip", handlers.UnblockIP)
		})
	})

	// Realtime slot feed for the booking page
	r.Get("/ws/slots", handlers.SlotFeed)
}
