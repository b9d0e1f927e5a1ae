package webserver

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Auth exchanges the operator admin key for a short-lived token used by the
// secured status endpoints.
type Auth struct {
	jwtSecret []byte
	adminKey  string
}

func NewAuth(secret []byte, adminKey string) Auth {
	return Auth{jwtSecret: secret, adminKey: adminKey}
}

func (a Auth) Login(c *gin.Context) {
	var req struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	if a.adminKey == "" {
		log.Printf("webserver: auth attempted but ops_admin_key is not configured")
		c.JSON(http.StatusUnauthorized, gin.H{"err": "not configured"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Key), []byte(a.adminKey)) != 1 {
		log.Printf("webserver: rejected auth attempt from %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"err": "bad key"})
		return
	}

	token, err := issueJWT(a.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func issueJWT(secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "operator",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	return token.SignedString(secret)
}

func JWTMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		tok, err := jwt.Parse(h[7:], func(t *jwt.Token) (interface{}, error) { return secret, nil })
		if err != nil || !tok.Valid {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
