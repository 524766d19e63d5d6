package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"assessments/internal/domain/auth"
)

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name       string
		user       *auth.UserContext
		permission string
		want       int
	}{
		{name: "anonymous", permission: auth.PermProcessRead, want: http.StatusUnauthorized},
		{name: "employee reads", user: &auth.UserContext{UserID: "e", RoleName: auth.RoleEmployee}, permission: auth.PermProcessRead, want: http.StatusOK},
		{name: "employee creates", user: &auth.UserContext{UserID: "e", RoleName: auth.RoleEmployee}, permission: auth.PermProcessCreate, want: http.StatusForbidden},
		{name: "manager creates", user: &auth.UserContext{UserID: "m", RoleName: auth.RoleManager}, permission: auth.PermProcessCreate, want: http.StatusOK},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			handler := RequirePermission(tc.permission, auth.StaticPermissions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.user != nil {
				req = req.WithContext(WithUser(req.Context(), *tc.user))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
