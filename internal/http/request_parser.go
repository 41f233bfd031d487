// Package http provides the JSON API of budgetbook.
//
// This file implements utilities for parsing and validating HTTP request data.
// Handlers accept either JSON or form-encoded bodies through the same parser.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"budgetbook/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

var errMalformedBody = errors.New("malformed request body")

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]interface{}
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	if r.Body == nil {
		return p
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errMalformedBody
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = errMalformedBody
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = errMalformedBody
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// rawGet returns a value without trimming, for secrets where surrounding
// spaces are significant. Control characters are still dropped.
func (p *RequestBodyParser) rawGet(key string) string {
	var v string
	if p.jsonData != nil {
		v = stringValue(p.jsonData[key])
	} else if p.formData != nil {
		v = p.formData.Get(key)
	}
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, v)
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseBody reads and parses the request body in one step.
func parseBody(r *http.Request) (*RequestBodyParser, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, err
	}
	return p, nil
}

// monthParam reads the {month} URL parameter.
func monthParam(r *http.Request) (core.MonthKey, error) {
	return core.ParseMonthKey(chi.URLParam(r, "month"))
}

// expenseIDParam reads the {id} URL parameter. Malformed ids are reported as
// not found, like ids owned by someone else.
func expenseIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFoundOrUnauthorized
	}
	return id, nil
}

// expenseFields extracts and validates name, amount and date.
func expenseFields(p *RequestBodyParser) (name string, amount core.Money, date core.Date, err error) {
	name = p.Get("name")
	if name == "" {
		return "", core.Money{}, core.Date{}, &core.ValidationError{Field: "name", Err: core.ErrEmptyName}
	}
	cents, err := core.ParseDecimalToCents(p.Get("amount"))
	if err != nil {
		return "", core.Money{}, core.Date{}, err
	}
	date, err = core.ParseDate(p.Get("date"))
	if err != nil {
		return "", core.Money{}, core.Date{}, err
	}
	return name, core.Money{Cents: cents}, date, nil
}
