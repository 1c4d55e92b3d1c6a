package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{DataSource("unreachable"), http.StatusBadGateway},
		{Credential("no key"), http.StatusServiceUnavailable},
		{Unauthorized("login"), http.StatusUnauthorized},
		{Forbidden("origin"), http.StatusForbidden},
		{Validation("limit"), http.StatusBadRequest},
		{ValidationWrap(stderrors.New("strconv: invalid syntax"), "limit"), http.StatusBadRequest},
		{RateLimit("slow down"), http.StatusTooManyRequests},
		{Internal("oops"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if tt.err.StatusCode != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.err.Code, tt.err.StatusCode, tt.want)
		}
	}
}

func TestHasCode(t *testing.T) {
	root := stderrors.New("403 forbidden")
	err := fmt.Errorf("fetch: %w", DataSourceWrap(root, "access rejected"))

	if !HasCode(err, CodeDataSource) {
		t.Error("wrapped data source error should carry its code")
	}
	if HasCode(err, CodeCredential) {
		t.Error("unexpected credential code")
	}
	if !stderrors.Is(err, root) {
		t.Error("cause should stay reachable")
	}

	nested := CredentialWrap(DataSource("inner"), "outer")
	if !HasCode(nested, CodeDataSource) {
		t.Error("codes deeper in the chain should be found")
	}
	if HasCode(root, CodeDataSource) {
		t.Error("plain errors carry no code")
	}
}

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	shared := DataSource("spreadsheet not found")

	w := httptest.NewRecorder()
	WriteError(w, logger, fmt.Errorf("load: %w", shared), "req-1")

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success {
		t.Error("success should be false")
	}
	if resp.Error.Code != CodeDataSource || resp.Error.RequestID != "req-1" {
		t.Errorf("unexpected error body: %+v", resp.Error)
	}
	if shared.RequestID != "" {
		t.Error("WriteError must not mutate the shared error value")
	}

	w = httptest.NewRecorder()
	WriteError(w, logger, stderrors.New("plain"), "req-2")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("plain error status = %d, want 500", w.Code)
	}
}
