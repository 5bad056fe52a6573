package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"hotelwizard/internal/pkg/response"
)

var devOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

const (
	corsAllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Accept, Origin, X-Requested-With, X-Request-ID"
)

type CORSConfig struct {
	// FrontendURL is the page hosting the wizard; its origin is always allowed.
	FrontendURL string
	Origins     []string
	// AllowDev adds the local dev-server origins.
	AllowDev bool
}

// CORS lets the wizard frontend call the API with credentials, so the
// session and draft cookies travel with every call. Preflights from unknown
// origins are refused.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	allowed := map[string]bool{}
	if o := originOf(cfg.FrontendURL); o != "" {
		allowed[o] = true
	}
	for _, o := range cfg.Origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[o] = true
		}
	}
	if cfg.AllowDev {
		for _, o := range devOrigins {
			allowed[o] = true
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		ok := origin != "" && allowed[origin]
		c.Writer.Header().Add("Vary", "Origin")
		if ok {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", "X-Request-ID")
		}

		if c.Request.Method == http.MethodOptions {
			if !ok {
				response.Abort(c, http.StatusForbidden, "CORS_FORBIDDEN", "Origin not allowed")
				return
			}
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func originOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
