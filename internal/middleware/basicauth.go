package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// BasicAuth gates the admin endpoints behind a fixed username/password
// pair. The configured password may be either plaintext or a bcrypt hash.
func BasicAuth(username, password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if !ok {
			challenge(c)
			return
		}

		if !credentialsMatch(user, pass, username, password) {
			challenge(c)
			return
		}

		c.Next()
	}
}

func credentialsMatch(user, pass, wantUser, wantPass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) == 1

	var passOK bool
	if strings.HasPrefix(wantPass, "$2a$") || strings.HasPrefix(wantPass, "$2b$") || strings.HasPrefix(wantPass, "$2y$") {
		passOK = bcrypt.CompareHashAndPassword([]byte(wantPass), []byte(pass)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass)) == 1
	}

	return userOK && passOK
}

func challenge(c *gin.Context) {
	c.Header("WWW-Authenticate", `Basic realm="Admin Area"`)
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "authentication required",
	})
	c.Abort()
}
