package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// isCloudRunCached is latched at package init from K_SERVICE/K_REVISION,
// which the test environment never sets, so these tests exercise the
// not-on-Cloud-Run bypass path rather than real token validation.

func TestGoogleAuthMiddlewareBypassesOutsideCloudRun(t *testing.T) {
	if IsCloudRun() {
		t.Skip("test environment reports running on Cloud Run")
	}
	r := gin.New()
	r.Use(GoogleAuthMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestOptionalAuthMiddlewareBypassesOutsideCloudRun(t *testing.T) {
	if IsCloudRun() {
		t.Skip("test environment reports running on Cloud Run")
	}
	r := gin.New()
	r.Use(OptionalAuthMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestGetUserEmailMissingFromContext(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	if _, ok := GetUserEmail(c); ok {
		t.Error("expected GetUserEmail to report false when no user is set")
	}
}

func TestGetUserInfoCollectsSetFields(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("caller_email", "client@example.com")
	c.Set("caller_name", "Client Name")

	info := GetUserInfo(c)
	if info["email"] != "client@example.com" {
		t.Errorf("email = %v, want client@example.com", info["email"])
	}
	if info["name"] != "Client Name" {
		t.Errorf("name = %v, want Client Name", info["name"])
	}
	if _, ok := info["sub"]; ok {
		t.Error("expected no sub key when caller_sub was never set")
	}
}
