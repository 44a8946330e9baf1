package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type AccountPayload struct {
	VoterID string `json:"voterId"`
	Email   string `json:"email,omitempty"`
}

func (a *AppHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (a *AppHandler) Account(c *gin.Context) {
	cred, ok := a.credential(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": AccountPayload{
		VoterID: cred.VoterID,
		Email:   cred.Email,
	}})
}

// Logout expires the session cookies. The session itself lives with the
// identity provider.
func (a *AppHandler) Logout(c *gin.Context) {
	auth := a.config.Auth
	for _, name := range []string{auth.AccessTokenCookieName, auth.RefreshCookieName, auth.IDTokenCookieName} {
		c.SetCookie(name, "", -1, "/", auth.CookieDomain, false, true)
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
