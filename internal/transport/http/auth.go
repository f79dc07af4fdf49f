package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainauth "screamshot-server/internal/domain/auth"
	"screamshot-server/internal/platform/logging"
)

// SubjectKey is the gin context key holding the authenticated token subject.
const SubjectKey = "auth.subject"

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(tokens *domainauth.AuthToken, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		raw, err := domainauth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			RespondError(c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}
		subject, err := tokens.VerifyToken(raw)
		if err != nil {
			logger.WarnTag(logging.TagAuth, "rejected token from %s: %v", c.ClientIP(), err)
			RespondError(c, http.StatusUnauthorized, "invalid token", nil)
			c.Abort()
			return
		}
		c.Set(SubjectKey, subject)
		c.Next()
	}
}
