package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestServer_DefaultsAndRetryable(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		message   string
		wantMsg   string
		retryable bool
	}{
		{"404 keeps message", 404, "missing", "missing", false},
		{"500 empty message", 500, "", MsgServerDefault, true},
		{"503 transient", 503, "busy", "busy", true},
		{"400 terminal", 400, "", MsgServerDefault, false},
		{"429 terminal", 429, "slow down", "slow down", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := Server(tc.status, tc.message, "")
			if e.Kind != KindServer {
				t.Errorf("expected kind server, got %s", e.Kind)
			}
			if e.Message != tc.wantMsg {
				t.Errorf("expected message %q, got %q", tc.wantMsg, e.Message)
			}
			if e.Retryable != tc.retryable {
				t.Errorf("expected retryable=%v, got %v", tc.retryable, e.Retryable)
			}
			if !e.HasStatus() {
				t.Error("server errors always carry a status")
			}
		})
	}
}

func TestNetwork_StatusZero(t *testing.T) {
	e := Network(fmt.Errorf("dial tcp: refused"))
	if e.Status != 0 || !e.HasStatus() {
		t.Errorf("expected status 0 present, got %d (has=%v)", e.Status, e.HasStatus())
	}
	if e.Message != MsgNetwork {
		t.Errorf("unexpected message %q", e.Message)
	}
	if !IsTransient(e) {
		t.Error("network errors are transient")
	}
}

func TestRequestSetup_Message(t *testing.T) {
	e := RequestSetup(fmt.Errorf("parse url: bad"))
	if e.Message != "parse url: bad" {
		t.Errorf("expected cause message, got %q", e.Message)
	}
	if e.HasStatus() {
		t.Error("setup errors carry no status")
	}
	if RequestSetup(nil).Message != MsgSetupDefault {
		t.Error("expected default message for nil cause")
	}
	if IsTransient(e) {
		t.Error("setup errors are terminal")
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	orig := Server(502, "bad gateway", "UPSTREAM")
	wrapped := fmt.Errorf("list users: %w", orig)

	if got := Normalize(wrapped); got != orig {
		t.Errorf("expected the original *Error back, got %v", got)
	}
	if Normalize(nil) != nil {
		t.Error("nil stays nil")
	}
}

func TestNormalize_Classification(t *testing.T) {
	if got := Normalize(context.DeadlineExceeded); got.Kind != KindNetwork {
		t.Errorf("deadline should be network, got %s", got.Kind)
	}
	if got := Normalize(context.Canceled); got.Kind != KindRequestSetup {
		t.Errorf("cancel should be request setup, got %s", got.Kind)
	}
	if got := Normalize(stderrors.New("boom")); got.Kind != KindRequestSetup || got.Message != "boom" {
		t.Errorf("plain error should be request setup, got %+v", got)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", stderrors.New("x"), false},
		{"500", Server(500, "", ""), true},
		{"404", Server(404, "", ""), false},
		{"401", Server(401, "", ""), false},
		{"network", Network(nil), true},
		{"validation", Validation(""), false},
		{"wrapped 503", fmt.Errorf("ctx: %w", Server(503, "", "")), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Errorf("IsTransient = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestStatusHelpers(t *testing.T) {
	nf := Server(404, "", ErrCodeNotFound)
	if !IsNotFound(nf) || IsUnauthorized(nf) {
		t.Error("status helpers misclassify 404")
	}
	if !IsUnauthorized(Server(401, "", "")) {
		t.Error("expected 401 to be unauthorized")
	}
	if StatusOf(nf) != 404 || StatusOf(stderrors.New("x")) != 0 {
		t.Error("StatusOf mismatch")
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(Network(context.DeadlineExceeded)) {
		t.Error("deadline cause should be a timeout")
	}
	if IsTimeout(Network(stderrors.New("refused"))) {
		t.Error("refused is not a timeout")
	}
	if IsTimeout(Server(504, "", "")) {
		t.Error("server errors are never transport timeouts")
	}
}

func TestFromPanic(t *testing.T) {
	e := FromPanic("nil map")
	if e.Kind != KindRequestSetup || e.Code != ErrCodePanic {
		t.Errorf("unexpected %+v", e)
	}
	if !strings.Contains(e.Message, "nil map") {
		t.Errorf("message should mention panic value, got %q", e.Message)
	}
}

func TestValidation_Fields(t *testing.T) {
	e := Validation("title: is required", FieldError{Field: "title", Message: "is required"})
	fields, ok := e.Details["fields"].([]FieldError)
	if !ok || len(fields) != 1 || fields[0].Field != "title" {
		t.Errorf("unexpected details %v", e.Details)
	}
	if !IsValidation(e) {
		t.Error("expected IsValidation")
	}
}

func TestError_String(t *testing.T) {
	got := Server(404, "Not Found", ErrCodeNotFound).Error()
	if got != "server (HTTP 404): Not Found [NOT_FOUND]" {
		t.Errorf("unexpected string %q", got)
	}
	if got := Network(nil).Error(); got != "network: "+MsgNetwork {
		t.Errorf("unexpected string %q", got)
	}
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantMsg  string
		wantCode ErrorCode
		wantOK   bool
	}{
		{"flat", `{"message":"nope","code":"E1"}`, "nope", "E1", true},
		{"envelope", `{"error":{"message":"gone","code":"NOT_FOUND"}}`, "gone", "NOT_FOUND", true},
		{"empty object", `{}`, "", "", false},
		{"not json", `<html>`, "", "", false},
		{"array", `[1,2]`, "", "", false},
		{"empty", ``, "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg, code, ok := ParsePayload([]byte(tc.body))
			if msg != tc.wantMsg || code != tc.wantCode || ok != tc.wantOK {
				t.Errorf("got (%q, %q, %v)", msg, code, ok)
			}
		})
	}
}

func TestFromResponse(t *testing.T) {
	e := FromResponse(500, []byte(`{"message":"db down"}`))
	if e.Message != "db down" || e.Status != 500 || !e.Retryable {
		t.Errorf("unexpected %+v", e)
	}
	e = FromResponse(404, []byte(`{}`))
	if e.Message != MsgServerDefault {
		t.Errorf("expected generic message, got %q", e.Message)
	}
}
