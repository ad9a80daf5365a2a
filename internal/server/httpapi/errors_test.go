package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/server/services"
	"github.com/gin-gonic/gin"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"invalid credential", common.E(common.KindInvalidCredential, "op", nil), http.StatusUnauthorized, "invalid credential"},
		{"session expired", common.E(common.KindSessionExpired, "op", nil), http.StatusUnauthorized, "session token has expired."},
		{"connection", common.DB(common.KindConnectionFailed, common.StoreRelational, "op", errors.New("x")), http.StatusExpectationFailed, "Database error"},
		{"query", common.DB(common.KindQueryFailed, common.StoreDocument, "op", errors.New("x")), http.StatusExpectationFailed, "Database error"},
		{"count mismatch", common.E(common.KindCountMismatch, "op", nil), http.StatusBadRequest, "metadata count does not match file count."},
		{"write failed", common.E(common.KindWriteFailed, "op", nil), http.StatusInternalServerError, "Failed to save uploaded file."},
		{"metadata missing", common.E(common.KindMetadataMissing, "op", nil), http.StatusNotFound, "metadata not found."},
		{"conflict", common.E(common.KindConflict, "op", nil), http.StatusConflict, "Username already taken"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal server error."},
		{"validation", common.E(common.KindMalformedInput, "op", &services.ValidationError{Message: "bad name"}), http.StatusBadRequest, "bad name"},
		{"malformed without message", common.E(common.KindMalformedInput, "op", nil), http.StatusBadRequest, "malformed input."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := statusFor(tt.err)
			if status != tt.wantStatus || msg != tt.wantMsg {
				t.Fatalf("statusFor() = %d %q, want %d %q", status, msg, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}

func TestBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"", "", false},
		{"abc", "abc", true},
		{"Bearer abc", "abc", true},
		{"bearer   abc ", "abc", true},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set(common.AuthorizationHeaderName, tt.header)

		got, ok := bearer(c)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("bearer(%q) = %q %v, want %q %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}
