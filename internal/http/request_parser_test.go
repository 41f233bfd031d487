package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"budgetbook/internal/core"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"id": "123", "name": " test ", "amount": 42.5, "recurring": true}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}

	tests := map[string]string{
		"id":        "123",
		"name":      "test",
		"amount":    "42.5",
		"recurring": "true",
		"missing":   "",
	}
	for key, want := range tests {
		if got := parser.Get(key); got != want {
			t.Errorf("Get(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "id=456&name=form+test&password=+padded+"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if id := parser.Get("id"); id != "456" {
		t.Errorf("Get('id') = %q, want '456'", id)
	}
	if name := parser.Get("name"); name != "form test" {
		t.Errorf("Get('name') = %q, want 'form test'", name)
	}
	if pw := parser.rawGet("password"); pw != " padded " {
		t.Errorf("rawGet('password') = %q, want ' padded '", pw)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"truncated json", `{"name":`},
		{"bad form escape", "name=%zz"},
		{"oversized", "name=" + strings.Repeat("a", maxBodyBytes)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			_, err := parseBody(req)
			if !errors.Is(err, errMalformedBody) {
				t.Fatalf("parseBody() error = %v, want errMalformedBody", err)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain  ", "plain"},
		{"a\x00b\x07c", "abc"},
		{"line\nbreak\ttab", "line\nbreak\ttab"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExpenseFields(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		wantCents int64
	}{
		{"valid", "name=Coffee&amount=4.50&date=2025-06-03", "", 450},
		{"comma decimal", "name=Coffee&amount=4,5&date=2025-06-03", "", 450},
		{"empty name", "name=+&amount=1&date=2025-06-03", "name", 0},
		{"zero amount", "name=x&amount=0&date=2025-06-03", "amount", 0},
		{"bad amount", "name=x&amount=1e3&date=2025-06-03", "amount", 0},
		{"bad date", "name=x&amount=1&date=2025-13-01", "date", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(tt.body))
			p, err := parseBody(req)
			if err != nil {
				t.Fatal(err)
			}
			_, amount, _, err := expenseFields(p)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				if amount.Cents != tt.wantCents {
					t.Errorf("cents = %d, want %d", amount.Cents, tt.wantCents)
				}
				return
			}
			var verr *core.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.wantField {
				t.Fatalf("error = %v, want validation error on %s", err, tt.wantField)
			}
		})
	}
}

func TestExpenseIDParam(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/expenses/"+tt.raw, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.raw)
			req = req.WithContext(contextWithRoute(req, rctx))

			id, err := expenseIDParam(req)
			if tt.wantErr {
				if !errors.Is(err, core.ErrNotFoundOrUnauthorized) {
					t.Fatalf("error = %v, want ErrNotFoundOrUnauthorized", err)
				}
				return
			}
			if err != nil || id != tt.want {
				t.Fatalf("expenseIDParam() = %d, %v", id, err)
			}
		})
	}
}

func contextWithRoute(r *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
}
