package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/johnquangdev/playcoach/pkg/jwt"
)

func newProtectedServer(m *jwt.Manager) *echo.Echo {
	e := echo.New()
	e.POST("/trigger", func(c echo.Context) error {
		claims, ok := GetServiceClaims(c)
		if !ok {
			return c.String(http.StatusInternalServerError, "no claims")
		}
		return c.String(http.StatusOK, claims.Service)
	}, ServiceAuth(m, jwt.ScopeTriggerAnalysis, nil))
	return e
}

func TestServiceAuth(t *testing.T) {
	m := jwt.NewManager("secret", "playcoach-upload", time.Minute)
	e := newProtectedServer(m)

	good, err := m.GenerateServiceToken("upload-service", jwt.ScopeTriggerAnalysis)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	wrongScope, err := m.GenerateServiceToken("upload-service", jwt.ScopeReadReports)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	cases := []struct {
		name     string
		header   string
		want     int
		wantCode string
	}{
		{"valid", "Bearer " + good, http.StatusOK, ""},
		{"missing", "", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"not bearer", "Basic " + good, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"garbage", "Bearer nope", http.StatusUnauthorized, "AUTH_INVALID_TOKEN"},
		{"wrong scope", "Bearer " + wrongScope, http.StatusForbidden, "PERMISSION_DENIED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, rec.Code, rec.Body.String())
			}
			if tc.wantCode != "" && !strings.Contains(rec.Body.String(), `"code":"`+tc.wantCode+`"`) {
				t.Fatalf("expected code %s, got %s", tc.wantCode, rec.Body.String())
			}
			if tc.want == http.StatusOK && rec.Body.String() != "upload-service" {
				t.Fatalf("expected claims on context, got %q", rec.Body.String())
			}
		})
	}
}
