package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/AnshRaj112/prescripto-backend/internal/ledger"
)

// Identity headers per role, as sent by the patient site and the console.
const (
	HeaderPatientToken = "token"
	HeaderDoctorToken  = "dtoken"
	HeaderAdminToken   = "atoken"
)

type requesterKey struct{}

// TokenVerifier turns a token into the requester it was issued to.
type TokenVerifier interface {
	Verify(token string) (ledger.Requester, error)
}

func headerFor(role ledger.Role) string {
	switch role {
	case ledger.RoleDoctor:
		return HeaderDoctorToken
	case ledger.RoleAdmin:
		return HeaderAdminToken
	default:
		return HeaderPatientToken
	}
}

// tokenFrom reads the role's header, falling back to a bearer token.
func tokenFrom(r *http.Request, role ledger.Role) string {
	if t := strings.TrimSpace(r.Header.Get(headerFor(role))); t != "" {
		return t
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// RequireRole rejects requests without a valid token for role and stores
// the verified requester in the request context.
func RequireRole(tokens TokenVerifier, role ledger.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFrom(r, role)
			if token == "" {
				unauthorized(w, "Not Authorized Login Again")
				return
			}
			who, err := tokens.Verify(token)
			if err != nil || who.Role != role {
				unauthorized(w, "Not Authorized Login Again")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithRequester(r.Context(), who)))
		})
	}
}

// WithRequester attaches a verified requester to ctx.
func WithRequester(ctx context.Context, who ledger.Requester) context.Context {
	return context.WithValue(ctx, requesterKey{}, who)
}

// RequesterFrom returns the requester stored by RequireRole.
func RequesterFrom(ctx context.Context) (ledger.Requester, bool) {
	who, ok := ctx.Value(requesterKey{}).(ledger.Requester)
	return who, ok
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}
