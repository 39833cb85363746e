package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"f1-pass-storefront/internal/logger"
)

const (
	// SessionName is the cookie holding the visitor session
	SessionName = "f1_pass_session"

	visitorIDKey = "visitor_id"
)

type visitorContextKey struct{}

// SessionMiddleware gives every browser a stable visitor id. Booking
// selections are stored server side under that id.
type SessionMiddleware struct {
	store  sessions.Store
	logger *zap.Logger
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(store sessions.Store, logger *zap.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		store:  store,
		logger: logger,
	}
}

// NewCookieStore builds the cookie store used for visitor sessions.
func NewCookieStore(secret string, maxAge int, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Visitor ensures the request carries a visitor id, issuing one when the
// cookie is missing or cannot be decoded.
func (m *SessionMiddleware) Visitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A decode error still yields a fresh session we can overwrite
		session, err := m.store.Get(r, SessionName)
		if err != nil {
			logger.FromContext(r.Context(), m.logger).Debug("discarding unreadable session", zap.Error(err))
		}
		if session == nil {
			session = sessions.NewSession(m.store, SessionName)
		}

		visitorID, _ := session.Values[visitorIDKey].(string)
		if _, parseErr := uuid.Parse(visitorID); parseErr != nil {
			visitorID = uuid.NewString()
			session.Values[visitorIDKey] = visitorID
			if err := session.Save(r, w); err != nil {
				logger.FromContext(r.Context(), m.logger).Error("failed to save session", zap.Error(err))
			}
		}

		next.ServeHTTP(w, r.WithContext(WithVisitorID(r.Context(), visitorID)))
	})
}

// WithVisitorID stores the visitor id in ctx.
func WithVisitorID(ctx context.Context, visitorID string) context.Context {
	return context.WithValue(ctx, visitorContextKey{}, visitorID)
}

// VisitorID returns the visitor id set by the session middleware, or "".
func VisitorID(ctx context.Context) string {
	id, _ := ctx.Value(visitorContextKey{}).(string)
	return id
}

// SecureHeaders adds security headers to responses
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only set HSTS for HTTPS
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
