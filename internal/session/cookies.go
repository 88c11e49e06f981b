package session

import (
	"net/http"
	"time"
)

// CookieConfig holds session cookie settings
type CookieConfig struct {
	Name   string
	Domain string // Empty string = current host only
	Secure bool   // HTTPS only
}

// SetCookie writes the session id into an httpOnly cookie.
func SetCookie(w http.ResponseWriter, sess *Session, config CookieConfig) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	cookie := &http.Cookie{
		Name:     config.Name,
		Value:    sess.ID,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  sess.ExpiresAt,
		MaxAge:   maxAge,
		HttpOnly: true, // prevents JavaScript access
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
}

// ClearCookie removes the session cookie.
func ClearCookie(w http.ResponseWriter, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     config.Name,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1, // Negative MaxAge deletes the cookie
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
}

// CookieID reads the session id from the request, or "" when absent.
func CookieID(r *http.Request, config CookieConfig) string {
	cookie, err := r.Cookie(config.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
