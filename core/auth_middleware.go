package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// AuthRequired rejects requests whose session is not signed in and exposes
// the Session value to handlers under "auth".
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		if !sess.Authenticated || sess.CurrentUser == "" {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Please sign in to continue.")
			c.Abort()
			return
		}
		c.Set("auth", sess)
		c.Next()
	}
}

// currentSession reads the Session value from the cookie session stored by SessionMiddleware.
func currentSession(c *gin.Context) Session {
	cookie := cookieSession(c)
	if cookie == nil {
		return Session{}
	}
	return sessionFromValues(cookie.Values)
}

func sessionFromValues(v map[interface{}]interface{}) Session {
	var s Session
	s.Authenticated, _ = v[keyAuthenticated].(bool)
	s.CurrentUser, _ = v[keyCurrentUser].(string)
	s.Email, _ = v[keyUserEmail].(string)
	s.AvatarURL, _ = v[keyUserImage].(string)
	s.SelectedUser, _ = v[keySelectedUser].(string)
	if s.CurrentUser == "" {
		s.Authenticated = false
	}
	return s
}

// writeSession copies s into the cookie session values. Empty fields are removed.
func writeSession(store *sessions.Session, s Session) {
	set := func(key, val string) {
		if val == "" {
			delete(store.Values, key)
			return
		}
		store.Values[key] = val
	}
	if s.Authenticated {
		store.Values[keyAuthenticated] = true
	} else {
		delete(store.Values, keyAuthenticated)
	}
	set(keyCurrentUser, s.CurrentUser)
	set(keyUserEmail, s.Email)
	set(keyUserImage, s.AvatarURL)
	set(keySelectedUser, s.SelectedUser)
}
