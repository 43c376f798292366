package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"travel-heatmap/model"
)

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", AuthMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("username"))
	})
	return r
}

func requestWithToken(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	SetJWTSecret("test-secret")
	r := authRouter()
	user := &model.User{Username: "alice"}
	user.ID = 7

	token, err := IssueToken(user, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if w := requestWithToken(r, token); w.Code != http.StatusOK || w.Body.String() != "alice" {
		t.Errorf("valid token: status=%d body=%q", w.Code, w.Body.String())
	}

	expired, _ := IssueToken(user, time.Now().Add(-48*time.Hour))
	if w := requestWithToken(r, expired); w.Code != http.StatusUnauthorized {
		t.Errorf("expired token: status = %d", w.Code)
	}

	if w := requestWithToken(r, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: status = %d", w.Code)
	}

	SetJWTSecret("rotated")
	if w := requestWithToken(r, token); w.Code != http.StatusUnauthorized {
		t.Errorf("token signed with old secret: status = %d", w.Code)
	}
}
