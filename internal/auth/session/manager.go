package session

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/fieldops/internal/auth/domain"
)

const DefaultCookieName = "_sid"

// Manager reads caller credentials from requests. Sessions are issued by the
// dashboard; this service only validates them.
type Manager struct {
	cookieName string
}

func NewManager() *Manager {
	return &Manager{cookieName: DefaultCookieName}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	token, err := c.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

func (m *Manager) ReadBearer(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

// Credentials collects everything the request presented.
func (m *Manager) Credentials(c *gin.Context) domain.Credentials {
	var creds domain.Credentials
	if token, ok := m.ReadToken(c); ok {
		creds.SessionToken = token
	}
	if token, ok := m.ReadBearer(c); ok {
		creds.BearerToken = token
	}
	return creds
}
