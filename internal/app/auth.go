package app

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/globexvn/messenger-tracking-bot/internal/metrics"
)

const metricsRealm = `Basic realm="metrics"`

// basicAuth guards the scrape endpoint. A zero password disables it.
type basicAuth struct {
	username string
	password string
	metrics  *metrics.Metrics
}

func (a basicAuth) enabled() bool {
	return a.password != ""
}

// middleware returns a Gin handler enforcing Basic Auth, or a pass-through
// when no password is configured.
func (a basicAuth) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.enabled() {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok || !a.matches(user, pass) {
			if a.metrics != nil {
				a.metrics.RecordHTTPError("unauthorized", "metrics")
			}
			c.Header("WWW-Authenticate", metricsRealm)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Next()
	}
}

func (a basicAuth) matches(user, pass string) bool {
	// Evaluate both so timing does not reveal which one failed.
	userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(a.username))
	passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(a.password))
	return userMatch&passMatch == 1
}
