package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:3000", "https://*.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		origin     string
		preflight  bool
		wantAllow  string
		wantStatus int
	}{
		{"exact origin", "http://localhost:3000", false, "http://localhost:3000", http.StatusOK},
		{"pattern origin", "https://app.example.com", false, "https://app.example.com", http.StatusOK},
		{"pattern requires scheme", "http://app.example.com", false, "", http.StatusOK},
		{"unknown origin", "https://evil.test", false, "", http.StatusOK},
		{"preflight", "http://localhost:3000", true, "http://localhost:3000", http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			method := http.MethodGet
			if tc.preflight {
				method = http.MethodOptions
			}
			req := httptest.NewRequest(method, "/api/v1/jobs", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tc.wantAllow {
				t.Fatalf("allow origin = %q, want %q", got, tc.wantAllow)
			}
			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
		})
	}
}
