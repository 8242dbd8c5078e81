package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the patient site and the admin/doctor console to call the API.
// Identity travels in the token, dtoken and atoken headers, so those must be
// allowed on preflight.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-ID",
			HeaderPatientToken, HeaderDoctorToken, HeaderAdminToken,
		},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
