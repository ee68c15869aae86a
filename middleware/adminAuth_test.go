package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agrilink/config"
	"agrilink/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/admin/ping", AdminAuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func adminRequest(r *gin.Engine, header string) int {
	req := httptest.NewRequest(http.MethodPost, "/admin/ping", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAdminAuthMiddleware(t *testing.T) {
	r := adminTestRouter()
	config.AppConfig.AdminToken = "ops-secret"
	defer func() { config.AppConfig.AdminToken = "" }()

	assert.Equal(t, http.StatusUnauthorized, adminRequest(r, ""))
	assert.Equal(t, http.StatusUnauthorized, adminRequest(r, "Bearer wrong-token"))
	assert.Equal(t, http.StatusOK, adminRequest(r, "Bearer ops-secret"))

	// A valid customer token is not an admin credential.
	customerToken, err := utils.GenerateToken("cust-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, adminRequest(r, "Bearer "+customerToken))
}

func TestAdminAuthMiddlewareDisabled(t *testing.T) {
	r := adminTestRouter()
	config.AppConfig.AdminToken = ""

	// No configured token closes the surface entirely.
	assert.Equal(t, http.StatusForbidden, adminRequest(r, "Bearer anything"))
}
