package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name     string
		granted  []string
		required string
		want     bool
	}{
		{name: "exact match", granted: []string{"cards.read"}, required: "cards.read", want: true},
		{name: "no match", granted: []string{"cards.read"}, required: "cards.write", want: false},
		{name: "global wildcard", granted: []string{"*"}, required: "automations.write", want: true},
		{name: "resource wildcard", granted: []string{"cards.*"}, required: "cards.write", want: true},
		{name: "resource wildcard matches bare resource", granted: []string{"cards.*"}, required: "cards", want: true},
		{name: "wildcard does not leak across resources", granted: []string{"cards.*"}, required: "boards.read", want: false},
		{name: "prefix is not a wildcard", granted: []string{"cards"}, required: "cards.read", want: false},
		{name: "empty requirement always passes", granted: nil, required: "", want: true},
		{name: "empty grants", granted: nil, required: "cards.read", want: false},
		{name: "blank entries skipped", granted: []string{"", "  ", "cards.read"}, required: "cards.read", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPermission(tt.granted, tt.required); got != tt.want {
				t.Errorf("HasPermission(%v, %q) = %v, want %v", tt.granted, tt.required, got, tt.want)
			}
		})
	}
}

func newPermTestRouter(perms []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if perms != nil {
			c.Set("permissions", perms)
		}
		c.Next()
	})
	group := router.Group("/", RequireResourcePermission("automations"))
	group.GET("/automations", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.POST("/automations", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return router
}

func TestRequireResourcePermission(t *testing.T) {
	tests := []struct {
		name   string
		perms  []string
		method string
		want   int
	}{
		{name: "read perm allows GET", perms: []string{"automations.read"}, method: http.MethodGet, want: http.StatusOK},
		{name: "read perm blocks POST", perms: []string{"automations.read"}, method: http.MethodPost, want: http.StatusForbidden},
		{name: "write perm allows POST", perms: []string{"automations.write"}, method: http.MethodPost, want: http.StatusCreated},
		{name: "resource wildcard allows both", perms: []string{"automations.*"}, method: http.MethodPost, want: http.StatusCreated},
		{name: "admin wildcard allows both", perms: []string{"*"}, method: http.MethodPost, want: http.StatusCreated},
		{name: "no perms blocks GET", perms: nil, method: http.MethodGet, want: http.StatusForbidden},
		{name: "unrelated perms block", perms: []string{"cards.*"}, method: http.MethodGet, want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newPermTestRouter(tt.perms)
			req := httptest.NewRequest(tt.method, "/automations", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("%s with %v: status = %d, want %d", tt.method, tt.perms, w.Code, tt.want)
			}
		})
	}
}
