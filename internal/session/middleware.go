package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hotelwizard/internal/middleware"
)

type CookieConfig struct {
	Name     string
	MaxAge   time.Duration
	Secure   bool
	SameSite http.SameSite
}

// Middleware puts the session id under middleware.SessionIDKey, issuing a
// new session cookie when the request has none or a malformed one.
func Middleware(cfg CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(cfg.Name)
		if err != nil || !ValidID(sid) {
			sid = NewID()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     cfg.Name,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(cfg.MaxAge.Seconds()),
				Secure:   cfg.Secure,
				HttpOnly: true,
				SameSite: cfg.SameSite,
			})
		}
		c.Set(middleware.SessionIDKey, sid)
		c.Next()
	}
}

// ParseSameSite maps the config spelling to http.SameSite, defaulting to Lax.
func ParseSameSite(v string) http.SameSite {
	switch v {
	case "Strict", "strict":
		return http.SameSiteStrictMode
	case "None", "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
