package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"spendlog/internal/core"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/expenses/1").
		Payload(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Header().Get("Content-Type") != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if w.Header().Get("Location") != "/expenses/1" {
		t.Errorf("Location = %q", w.Header().Get("Location"))
	}
	if w.Body.String() != "{\"n\":1}\n" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestDeletedResponse(t *testing.T) {
	w := httptest.NewRecorder()
	DeletedResponse().Write(w)

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusOK || body["message"] != "Deleted successfully" {
		t.Errorf("got %d %v", w.Code, body)
	}
}

func TestErrorFromDomain(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantField  string
	}{
		{"missing device", core.ErrMissingDeviceID, http.StatusBadRequest, "Device ID is required", ""},
		{"validation", &core.ValidationError{Field: "title", Message: "title is required"}, http.StatusBadRequest, "title is required", "title"},
		{"wrapped validation", fmt.Errorf("create: %w", &core.ValidationError{Field: "amount", Message: "bad"}), http.StatusBadRequest, "bad", "amount"},
		{"not found", fmt.Errorf("update: %w", core.ErrNotFoundOrUnauthorized), http.StatusNotFound, "Not found or unauthorized", ""},
		{"store", core.StoreError("list expenses", errors.New("disk I/O error")), http.StatusInternalServerError, "Storage temporarily unavailable", ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Internal server error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFromDomain(tt.err).Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body struct {
				Error string `json:"error"`
				Field string `json:"field"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.wantError || body.Field != tt.wantField {
				t.Errorf("body = %+v, want error %q field %q", body, tt.wantError, tt.wantField)
			}
		})
	}
}

func TestStoreErrorDoesNotLeakCause(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorFromDomain(core.StoreError("insert", errors.New("secret dsn"))).Write(w)
	if got := w.Body.String(); got != "{\"error\":\"Storage temporarily unavailable\"}\n" {
		t.Errorf("Body = %q", got)
	}
}
