// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// RedactingLogger is the access logger. Lease windows carry tenant names,
// e-mail addresses and phone numbers, and list endpoints accept free-text
// search terms, so query strings and header values are scrubbed before
// they reach the log. Bodies are never logged.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions adds headers to mask and query parameters to drop.
type RedactOptions struct {
	// MaskHeaders are replaced by "[REDACTED]" (case-insensitive), on top of
	// Authorization, Cookie and Set-Cookie.
	MaskHeaders []string
	// MaskParams are query parameters whose values are always replaced,
	// on top of "q".
	MaskParams []string
}

// UUIDs go first so the phone pattern cannot eat their digit groups.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+(?:@|%40)[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
	// ISO dates look like phone fragments; keep them readable.
	dateRE = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
)

func redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return replaceOutside(s, dateRE, phoneRE, "[REDACTED:phone]")
}

// replaceOutside applies re→repl to the parts of s not matched by keep.
func replaceOutside(s string, keep, re *regexp.Regexp, repl string) string {
	var b strings.Builder
	last := 0
	for _, m := range keep.FindAllStringIndex(s, -1) {
		b.WriteString(re.ReplaceAllString(s[last:m[0]], repl))
		b.WriteString(s[m[0]:m[1]])
		last = m[1]
	}
	b.WriteString(re.ReplaceAllString(s[last:], repl))
	return b.String()
}

// redactQuery scrubs a raw query string, dropping the values of masked
// parameters entirely.
func redactQuery(raw string, masked map[string]struct{}) string {
	if raw == "" {
		return raw
	}
	parts := strings.Split(raw, "&")
	for i, p := range parts {
		k, _, hasVal := strings.Cut(p, "=")
		if _, ok := masked[strings.ToLower(k)]; ok && hasVal {
			parts[i] = k + "=[REDACTED]"
			continue
		}
		parts[i] = redact(p)
	}
	return strings.Join(parts, "&")
}

// RedactingLogger attaches a request-scoped logger (request id, user id,
// role, method, route) and writes one access log line per request, at warn
// for 4xx and error for 5xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}
	maskParams := map[string]struct{}{"q": {}}
	for _, p := range opts.MaskParams {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			maskParams[p] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := routeLabel(c)

		scoped := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("user_id", UserID(c)).
			Str("role", Role(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &scoped)

		query := truncate(redactQuery(c.Request.URL.RawQuery, maskParams), maxQueryLogLength)
		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = redact(strings.Join(vv, ", "))
		}

		c.Next()

		status := c.Writer.Status()
		ev := scoped.Info()
		switch {
		case status >= 500 || len(c.Errors) > 0:
			ev = scoped.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", c.Errors.String())
			}
		case status >= 400:
			ev = scoped.Warn()
		}
		ev.
			Str("query", query).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
