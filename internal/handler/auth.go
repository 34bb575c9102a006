package handler

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stock-insurance-backend/internal/config"
)

type VerifyRequest struct {
	Code string `json:"code"`
}

// Auth issues and checks invite tokens of the form timestamp.signature.
type Auth struct {
	cfg config.AuthConfig
	now func() time.Time
}

// NewAuth returns the invite guard. Without TOKEN_SECRET a random secret is
// generated, so issued tokens do not survive a restart.
func NewAuth(cfg config.AuthConfig) *Auth {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	if cfg.InviteCode != "" && cfg.TokenSecret == "" {
		log.Warn("INVITE_CODE is set without TOKEN_SECRET, using a random token secret")
		cfg.TokenSecret = randomSecret()
	}
	return &Auth{cfg: cfg, now: time.Now}
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("read random token secret: %v", err))
	}
	return hex.EncodeToString(b)
}

// Enabled reports whether an invite code is configured.
func (a *Auth) Enabled() bool {
	return a.cfg.InviteCode != ""
}

func (a *Auth) sign(timestamp string) string {
	h := hmac.New(sha256.New, []byte(a.cfg.TokenSecret))
	h.Write([]byte(timestamp))
	return hex.EncodeToString(h.Sum(nil))
}

func (a *Auth) GenerateToken() string {
	timestamp := strconv.FormatInt(a.now().Unix(), 10)
	return fmt.Sprintf("%s.%s", timestamp, a.sign(timestamp))
}

func (a *Auth) ValidateToken(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return false
	}

	timestamp, signature := parts[0], parts[1]
	if !hmac.Equal([]byte(signature), []byte(a.sign(timestamp))) {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	return a.now().Sub(time.Unix(ts, 0)) <= a.cfg.TokenTTL
}

// VerifyInviteCode exchanges the invite code for a token.
func (a *Auth) VerifyInviteCode(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "invalid request body",
		})
		return
	}

	if a.Enabled() && req.Code != a.cfg.InviteCode {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "invalid invite code",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "verified",
		"token":   a.GenerateToken(),
	})
}

// Middleware rejects requests without a valid bearer token. It is a no-op
// when no invite code is configured.
func (a *Auth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}

		token := c.GetHeader("Authorization")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}

		token = strings.TrimPrefix(token, "Bearer ")
		if !a.ValidateToken(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		c.Next()
	}
}
