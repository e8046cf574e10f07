package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	cases := []struct {
		name       string
		allowed    []string
		origin     string
		preflight  bool
		wantOrigin string
		wantCalled bool
		wantStatus int
	}{
		{name: "listed origin", allowed: []string{"https://chat.healthylife.test"}, origin: "https://chat.healthylife.test", wantOrigin: "https://chat.healthylife.test", wantCalled: true, wantStatus: http.StatusOK},
		{name: "unknown origin", allowed: []string{"https://chat.healthylife.test"}, origin: "https://evil.test", wantCalled: true, wantStatus: http.StatusOK},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://any.test", wantOrigin: "https://any.test", wantCalled: true, wantStatus: http.StatusOK},
		{name: "blank entries ignored", allowed: []string{" ", ""}, origin: "https://any.test", wantCalled: true, wantStatus: http.StatusOK},
		{name: "preflight", allowed: []string{"https://chat.healthylife.test"}, origin: "https://chat.healthylife.test", preflight: true, wantOrigin: "https://chat.healthylife.test", wantStatus: http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			method := http.MethodPost
			if tc.preflight {
				method = http.MethodOptions
			}
			req := httptest.NewRequest(method, "/api/sessions", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()

			CORS(tc.allowed)(next).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantCalled, called)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tc.wantOrigin != "" {
				assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
			}
		})
	}
}
