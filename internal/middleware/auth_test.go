package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"boardly/internal/config"

	"github.com/gin-gonic/gin"
)

const testSecret = "unit-test-secret"

func signTestJWT(t *testing.T, claims map[string]interface{}, secret string) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	signing := base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signing))
	return signing + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateHS256JWT(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "valid",
			token: func(t *testing.T) string {
				return signTestJWT(t, map[string]interface{}{
					"user_id": 7,
					"exp":     now.Add(time.Hour).Unix(),
				}, testSecret)
			},
		},
		{
			name: "no expiry claim",
			token: func(t *testing.T) string {
				return signTestJWT(t, map[string]interface{}{"user_id": 7}, testSecret)
			},
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				return signTestJWT(t, map[string]interface{}{
					"user_id": 7,
					"exp":     now.Add(-time.Minute).Unix(),
				}, testSecret)
			},
			wantErr: true,
		},
		{
			name: "not yet valid",
			token: func(t *testing.T) string {
				return signTestJWT(t, map[string]interface{}{
					"user_id": 7,
					"nbf":     now.Add(time.Hour).Unix(),
				}, testSecret)
			},
			wantErr: true,
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return signTestJWT(t, map[string]interface{}{"user_id": 7}, "other-secret")
			},
			wantErr: true,
		},
		{
			name:    "malformed",
			token:   func(t *testing.T) string { return "nope" },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := validateHS256JWT(tt.token(t), testSecret, now)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected validation error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if uid, _ := claims["user_id"].(float64); uid != 7 {
				t.Errorf("user_id claim = %v, want 7", claims["user_id"])
			}
		})
	}
}

func newAuthTestRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(cfg))
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":     c.GetUint("user_id"),
			"permissions": c.GetStringSlice("permissions"),
		})
	})
	return router
}

func authTestConfig() *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.JWT.Secret = testSecret
	return cfg
}

func TestAuthMiddleware(t *testing.T) {
	router := newAuthTestRouter(authTestConfig())

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("valid token sets identity", func(t *testing.T) {
		token := signTestJWT(t, map[string]interface{}{
			"user_id": 42,
			"roles":   []string{"admin"},
			"exp":     time.Now().Add(time.Hour).Unix(),
		}, testSecret)
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
		}
		var resp struct {
			UserID      uint     `json:"user_id"`
			Permissions []string `json:"permissions"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.UserID != 42 {
			t.Errorf("user_id = %d, want 42", resp.UserID)
		}
		if len(resp.Permissions) != 1 || resp.Permissions[0] != "*" {
			t.Errorf("permissions = %v, want admin wildcard", resp.Permissions)
		}
	})

	t.Run("tampered token rejected", func(t *testing.T) {
		token := signTestJWT(t, map[string]interface{}{"user_id": 42}, "attacker-secret")
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("member role gets read-only automations", func(t *testing.T) {
		token := signTestJWT(t, map[string]interface{}{
			"user_id": 5,
			"roles":   []string{"member"},
		}, testSecret)
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		var resp struct {
			Permissions []string `json:"permissions"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !HasPermission(resp.Permissions, "automations.read") {
			t.Error("member should read automations")
		}
		if HasPermission(resp.Permissions, "automations.write") {
			t.Error("member should not write automations")
		}
	})
}

func TestAuthMiddlewareRBACRoles(t *testing.T) {
	cfg := authTestConfig()
	cfg.Security.RBAC.Enabled = true
	cfg.Security.RBAC.Roles = map[string][]string{
		"builder": {"automations.*", "boards.read"},
	}
	router := newAuthTestRouter(cfg)

	token := signTestJWT(t, map[string]interface{}{
		"user_id": 3,
		"roles":   []string{"builder"},
	}, testSecret)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Permissions []string `json:"permissions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !HasPermission(resp.Permissions, "automations.write") {
		t.Errorf("permissions = %v, want automations.* expansion", resp.Permissions)
	}
	if HasPermission(resp.Permissions, "cards.write") {
		t.Errorf("permissions = %v, should not grant cards.write", resp.Permissions)
	}
}
