package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAPIKeyMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(APIKeyMiddleware(map[string]string{"k1": "alice"}))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})

	cases := []struct {
		key    string
		status int
		body   string
	}{
		{"k1", http.StatusOK, "alice"},
		{" k1 ", http.StatusOK, "alice"},
		{"", http.StatusUnauthorized, ""},
		{"wrong", http.StatusUnauthorized, ""},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if tc.key != "" {
			req.Header.Set("X-API-Key", tc.key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != tc.status {
			t.Fatalf("key %q: expected %d got %d", tc.key, tc.status, w.Code)
		}
		if tc.status == http.StatusOK && w.Body.String() != tc.body {
			t.Fatalf("key %q: expected user %q got %q", tc.key, tc.body, w.Body.String())
		}
	}
}
