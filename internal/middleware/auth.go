// Package middleware provides HTTP middlewares for the verification API.
package middleware

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"google.golang.org/api/idtoken"
)

// isCloudRunCached is evaluated once at package init to avoid per-request os.Getenv overhead.
var isCloudRunCached = os.Getenv("K_SERVICE") != "" || os.Getenv("K_REVISION") != ""

// IsCloudRun checks if the application is running on Google Cloud Run
func IsCloudRun() bool {
	return isCloudRunCached
}

// callerAudience resolves the expected OAuth audience for validating a
// calling institution's ID token, trying the engine's own env vars before
// the generic Google Sign-In client ID and the Cloud Run metadata fallback.
func callerAudience() string {
	for _, key := range []string{"VERIFY_OAUTH_AUDIENCE", "GOOGLE_CLIENT_ID", "CLOUD_RUN_SERVICE_URL"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// setCallerFromToken stores the validated token's identity claims on the
// request context, the same claims downstream handlers consult to attribute
// a submitted verification request to the calling institution.
func setCallerFromToken(c *gin.Context, payload *idtoken.Payload) {
	c.Set("caller_email", payload.Claims["email"])
	c.Set("caller_name", payload.Claims["name"])
	c.Set("caller_picture", payload.Claims["picture"])
	c.Set("caller_sub", payload.Subject)
}

// GoogleAuthMiddleware validates the calling institution's Google OAuth ID
// token. Only enforced when running on Cloud Run; local/CLI use bypasses it.
func GoogleAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsCloudRun() || c.Request.Method == "OPTIONS" {
			c.Next()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required, expected: Bearer <token>",
			})
			c.Abort()
			return
		}

		payload, err := idtoken.Validate(context.Background(), token, callerAudience())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid ID token",
				"details": err.Error(),
			})
			c.Abort()
			return
		}

		setCallerFromToken(c, payload)
		c.Next()
	}
}

// OptionalAuthMiddleware records caller identity when a token is present
// but never rejects the request, for endpoints that attribute a request to
// a caller when possible without requiring every client to authenticate.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsCloudRun() {
			c.Next()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		payload, err := idtoken.Validate(context.Background(), token, callerAudience())
		if err == nil {
			setCallerFromToken(c, payload)
		}

		c.Next()
	}
}

// GetUserEmail retrieves the authenticated caller's email from context
func GetUserEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get("caller_email")
	if !exists {
		return "", false
	}
	emailStr, ok := email.(string)
	return emailStr, ok
}

// GetUserInfo retrieves all known caller identity fields from context
func GetUserInfo(c *gin.Context) map[string]interface{} {
	info := make(map[string]interface{})

	if email, exists := c.Get("caller_email"); exists {
		info["email"] = email
	}
	if name, exists := c.Get("caller_name"); exists {
		info["name"] = name
	}
	if picture, exists := c.Get("caller_picture"); exists {
		info["picture"] = picture
	}
	if sub, exists := c.Get("caller_sub"); exists {
		info["sub"] = sub
	}

	return info
}

// LogAuthInfo writes the authenticated caller (or its absence) to the
// standard logger, giving a verification request's audit trail a caller
// identity line alongside the pipeline's stage-by-stage logctx output.
func LogAuthInfo(c *gin.Context) {
	if !IsCloudRun() {
		return
	}
	info := GetUserInfo(c)
	if len(info) == 0 {
		log.Println("verify request: no authenticated caller")
		return
	}
	log.Printf("verify request caller: %+v", info)
}
