package server

import (
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/fieldops/internal/auth/domain"
	obscontext "github.com/smallbiznis/fieldops/internal/observability/context"
)

const contextPrincipalKey = "principal"

// AuthRequired resolves the caller from the session cookie or bearer token
// and attaches it to the request context for logging and activity records.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := s.authsvc.Authenticate(c.Request.Context(), s.sessions.Credentials(c))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextPrincipalKey, principal)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), string(principal.Type), principal.ID))
		c.Next()
	}
}

func principalFromContext(c *gin.Context) (authdomain.Principal, bool) {
	value, ok := c.Get(contextPrincipalKey)
	if !ok {
		return authdomain.Principal{}, false
	}
	principal, ok := value.(authdomain.Principal)
	return principal, ok
}
