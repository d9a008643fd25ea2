package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"roastery/internal/response"
)

func TestAPIKeyMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	tests := []struct {
		name           string
		apiKey         string
		authHeader     string
		apiKeyHeader   string
		expectedStatus int
	}{
		{
			name:           "no api key configured passes everything",
			apiKey:         "",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "valid bearer token",
			apiKey:         "test-secret-key",
			authHeader:     "Bearer test-secret-key",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "valid x-api-key header",
			apiKey:         "test-secret-key",
			apiKeyHeader:   "test-secret-key",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid bearer token",
			apiKey:         "test-secret-key",
			authHeader:     "Bearer wrong-key",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid x-api-key",
			apiKey:         "test-secret-key",
			apiKeyHeader:   "wrong-key",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing credentials",
			apiKey:         "test-secret-key",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "malformed authorization header",
			apiKey:         "test-secret-key",
			authHeader:     "test-secret-key",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong bearer but valid x-api-key",
			apiKey:         "test-secret-key",
			authHeader:     "Bearer wrong-key",
			apiKeyHeader:   "test-secret-key",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			middleware := APIKeyMiddleware(&Config{APIKey: tt.apiKey})
			handler := middleware(okHandler)

			req := httptest.NewRequest(http.MethodGet, "/v1/media", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.apiKeyHeader != "" {
				req.Header.Set("X-API-Key", tt.apiKeyHeader)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.expectedStatus)
			}

			if tt.expectedStatus == http.StatusUnauthorized {
				var body response.ErrorResponse
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("rejection body is not the error envelope: %v", err)
				}
				if body.Code != response.CodeUnauthorized {
					t.Errorf("error code = %q, want %q", body.Code, response.CodeUnauthorized)
				}
				if body.Hint == "" {
					t.Error("rejection should tell the caller how to authenticate")
				}
			}
		})
	}
}
