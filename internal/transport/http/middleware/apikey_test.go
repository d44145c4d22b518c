package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"ragapi/internal/auth"
)

func newTestRouter(t *testing.T) (*gin.Engine, *auth.KeyManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	keys, err := auth.NewKeyManager(filepath.Join(t.TempDir(), "keys.json"))
	if err != nil {
		t.Fatal(err)
	}
	limiter := auth.NewRateLimiter()

	r := gin.New()
	api := r.Group("/api", APIKeyAuth(keys), RateLimit(limiter))
	api.GET("/read", RequirePermission("read"), func(c *gin.Context) {
		info, _ := KeyInfoFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user": info.UserID})
	})
	api.POST("/write", RequirePermission("write"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, keys
}

func do(r *gin.Engine, method, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set(HeaderAPIKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMissingKey(t *testing.T) {
	r, _ := newTestRouter(t)
	if w := do(r, http.MethodGet, "/api/read", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthInvalidKey(t *testing.T) {
	r, _ := newTestRouter(t)
	if w := do(r, http.MethodGet, "/api/read", "rag_notissued"); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthValidKeyPassesThrough(t *testing.T) {
	r, keys := newTestRouter(t)
	key, err := keys.GenerateKey("alice", auth.RoleViewer, 0)
	if err != nil {
		t.Fatal(err)
	}

	w := do(r, http.MethodGet, "/api/read", key)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestPermissionDeniedForViewerWrite(t *testing.T) {
	r, keys := newTestRouter(t)
	key, err := keys.GenerateKey("alice", auth.RoleViewer, 0)
	if err != nil {
		t.Fatal(err)
	}

	if w := do(r, http.MethodPost, "/api/write", key); w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestPermissionGrantedForDeveloperWrite(t *testing.T) {
	r, keys := newTestRouter(t)
	key, err := keys.GenerateKey("dev", auth.RoleDeveloper, 0)
	if err != nil {
		t.Fatal(err)
	}

	if w := do(r, http.MethodPost, "/api/write", key); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRateLimitExhaustion(t *testing.T) {
	r, keys := newTestRouter(t)
	key, err := keys.GenerateKey("alice", auth.RoleViewer, 0)
	if err != nil {
		t.Fatal(err)
	}

	ceiling := auth.Roles[auth.RoleViewer].RateLimit
	for i := 0; i < ceiling; i++ {
		if w := do(r, http.MethodGet, "/api/read", key); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}
	if w := do(r, http.MethodGet, "/api/read", key); w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 past the ceiling", w.Code)
	}
}

func TestPermissionDeniedByRevocation(t *testing.T) {
	r, keys := newTestRouter(t)
	key, err := keys.GenerateKey("alice", auth.RoleViewer, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !keys.RevokeKey(key) {
		t.Fatal("revocation should find the key")
	}

	if w := do(r, http.MethodGet, "/api/read", key); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, a revoked key must be rejected immediately", w.Code)
	}
}
