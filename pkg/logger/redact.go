package logger

import (
	"context"
	"log/slog"
	"regexp"
)

// sensitiveKeys are attribute keys whose values are replaced outright,
// regardless of content. Matched case-insensitively.
var sensitiveKeys = map[string]bool{
	"password":               true,
	"passwd":                 true,
	"secret":                 true,
	"token":                  true,
	"api_key":                true,
	"apikey":                 true,
	"authorization":          true,
	"connection_string":      true,
	"database_url":           true,
	"sas_token":               true,
	"sasl_password":          true,
	"credentials":            true,
}

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	ccPattern    = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)
)

const redacted = "***REDACTED***"

// RedactHandler scrubs credential- and PII-shaped values from attributes
// before they reach next. It never inspects the message string beyond the
// coarse patterns above; structured attributes are the primary target.
type RedactHandler struct {
	next slog.Handler
}

func NewRedactHandler(next slog.Handler) *RedactHandler {
	return &RedactHandler{next: next}
}

func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	nr := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		nr.AddAttrs(redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, nr)
}

func redactAttr(a slog.Attr) slog.Attr {
	if sensitiveKeys[lower(a.Key)] {
		return slog.String(a.Key, redacted)
	}
	if a.Value.Kind() == slog.KindString {
		s := a.Value.String()
		s = emailPattern.ReplaceAllString(s, redacted)
		s = ccPattern.ReplaceAllString(s, redacted)
		return slog.String(a.Key, s)
	}
	return a
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &RedactHandler{next: h.next.WithAttrs(redacted)}
}

func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{next: h.next.WithGroup(name)}
}
