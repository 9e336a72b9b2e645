package core

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const sessionName = "pptgen_session"
const sessionMaxAge = 43200 // 12h

// Session cookie value keys.
const (
	keyAuthenticated = "authenticated"
	keyCurrentUser   = "current_user"
	keyUserEmail     = "user_email"
	keyUserImage     = "user_image"
	keySelectedUser  = "selected_user"
	keyCSRFToken     = "csrf_token"
)

const (
	headerRequestID = "X-Request-ID"
	headerCSRFToken = "X-CSRF-Token"
)

// Response headers a cross-origin frontend needs to read after a download.
var exposedHeaders = strings.Join([]string{
	headerCSRFToken,
	headerRequestID,
	"Content-Disposition",
	"X-Slide-Count",
	"X-Skipped-Count",
}, ", ")

// csrfExempt lists unsafe-method paths that skip token validation.
var csrfExempt = map[string]struct{}{
	"/api/v1/auth/login": {},
}

// RequestIDMiddleware tags each request with an id and logs its outcome.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(headerRequestID, id)
		start := time.Now()
		c.Next()
		slog.Debug("request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// cookieSession returns the gorilla session stored by SessionMiddleware, or nil.
func cookieSession(c *gin.Context) *sessions.Session {
	v, ok := c.Get("session")
	if !ok {
		return nil
	}
	s, _ := v.(*sessions.Session)
	return s
}

// SessionMiddleware loads the cookie session, applies cookie options and
// stores it in the context under "session".
func SessionMiddleware(cfg Config, store sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := store.Get(c.Request, sessionName)
		if err != nil {
			// an unreadable cookie (bad signature, rotated key) yields a fresh session
			slog.Warn("discarding unreadable session cookie", "error", err)
		}
		if session == nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "session error")
			c.Abort()
			return
		}
		applySessionOptions(cfg, session)
		c.Set("session", session)
		c.Next()
	}
}

type originAllowlist map[string]struct{}

func newOriginAllowlist(origins []string) originAllowlist {
	l := originAllowlist{}
	for _, o := range origins {
		l[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return l
}

// allows reports whether origin may call the API. Requests without an origin
// (same-origin navigation, curl) are allowed.
func (l originAllowlist) allows(origin string) bool {
	if origin == "" {
		return true
	}
	_, ok := l[strings.ToLower(origin)]
	return ok
}

// requestOrigin is the Origin header, or the scheme+host of the Referer.
func requestOrigin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		return o
	}
	if ref := r.Header.Get("Referer"); ref != "" {
		if u, err := url.Parse(ref); err == nil && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	return ""
}

// OriginMiddleware rejects cross-origin callers outside cfg.AllowedOrigins,
// answers preflight requests and sets CORS headers for allowed origins.
func OriginMiddleware(cfg Config) gin.HandlerFunc {
	allowed := newOriginAllowlist(cfg.AllowedOrigins)
	return func(c *gin.Context) {
		origin := requestOrigin(c.Request)
		if !allowed.allows(origin) {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
			c.Abort()
			return
		}
		if origin != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", "Content-Type, "+headerCSRFToken+", "+headerRequestID)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Expose-Headers", exposedHeaders)
		}
		if c.Request.Method == http.MethodOptions && origin != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// CSRFMiddleware issues a per-session token, echoes it in X-CSRF-Token and
// requires it on unsafe methods.
func CSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := cookieSession(c)
		if session == nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "session error")
			c.Abort()
			return
		}

		token, _ := session.Values[keyCSRFToken].(string)
		if token == "" {
			var err error
			if token, err = rotateCSRFToken(session); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to issue csrf token")
				c.Abort()
				return
			}
			if err := session.Save(c.Request, c.Writer); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to persist session")
				c.Abort()
				return
			}
		}

		_, exempt := csrfExempt[c.Request.URL.Path]
		if !isSafeMethod(c.Request.Method) && !exempt {
			if got := c.GetHeader(headerCSRFToken); got == "" || got != token {
				respondError(c, http.StatusForbidden, "FORBIDDEN", "invalid csrf token")
				c.Abort()
				return
			}
		}

		c.Header(headerCSRFToken, token)
		c.Next()
	}
}

// rotateCSRFToken stores a fresh token in the session and returns it.
func rotateCSRFToken(session *sessions.Session) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	session.Values[keyCSRFToken] = token
	return token, nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func applySessionOptions(cfg Config, session *sessions.Session) {
	session.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: sameSiteFromString(cfg.CookieSameSite),
	}
}

func sameSiteFromString(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}
