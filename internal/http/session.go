package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"budgetbook/internal/core"
)

// SessionCookie holds the signed session token.
const SessionCookie = "budgetbook_session"

// Session is the per-request identity. SelectedMonth is empty until the user
// picks a month on the dashboard.
type Session struct {
	UserID        int64
	SelectedMonth core.MonthKey
}

type sessionClaims struct {
	UserID        int64  `json:"uid"`
	SelectedMonth string `json:"month,omitempty"`
	jwt.RegisteredClaims
}

type sessionKey struct{}

// SessionManager issues and verifies HS256 session cookies.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration, secure bool) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}
}

// Issue signs a session for sess and sets it as a cookie.
func (m *SessionManager) Issue(w http.ResponseWriter, sess Session) error {
	now := m.now()
	claims := &sessionClaims{
		UserID:        sess.UserID,
		SelectedMonth: string(sess.SelectedMonth),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secure,
		Expires:  now.Add(m.ttl),
	})
	return nil
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secure,
		MaxAge:   -1,
	})
}

// Parse verifies the session cookie of r. Every failure maps to
// core.ErrUnauthenticated.
func (m *SessionManager) Parse(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return Session{}, core.ErrUnauthenticated
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || claims.UserID <= 0 {
		return Session{}, core.ErrUnauthenticated
	}

	sess := Session{UserID: claims.UserID}
	if claims.SelectedMonth != "" {
		// a malformed month falls back to the current one
		if month, err := core.ParseMonthKey(claims.SelectedMonth); err == nil {
			sess.SelectedMonth = month
		}
	}
	return sess, nil
}

// RequireUser rejects requests without a valid session and stores the
// session in the request context.
func (s *Server) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Parse(r)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionFromContext returns the session stored by RequireUser.
func SessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(Session)
	return sess, ok
}

// UserFromContext returns the authenticated user id.
func UserFromContext(ctx context.Context) (int64, bool) {
	sess, ok := SessionFromContext(ctx)
	return sess.UserID, ok
}

func mustSession(r *http.Request) (Session, error) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		return Session{}, errors.Join(core.ErrUnauthenticated, errors.New("handler mounted without RequireUser"))
	}
	return sess, nil
}
