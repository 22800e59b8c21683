package guard

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clinsim/clinsim/internal/policy"
)

// Extractor copies one request attribute into the decision context.
type Extractor func(r *http.Request, c *policy.Context)

// TargetSubject extracts the target subject id from the named field.
func TargetSubject(field string) Extractor {
	return func(r *http.Request, c *policy.Context) {
		c.TargetSubjectID = requestField(r, field)
	}
}

// TargetDiscipline extracts the target discipline from the named field.
func TargetDiscipline(field string) Extractor {
	return func(r *http.Request, c *policy.Context) {
		c.TargetDiscipline = requestField(r, field)
	}
}

// ResourceOwner extracts the resource owner id from the named field.
func ResourceOwner(field string) Extractor {
	return func(r *http.Request, c *policy.Context) {
		c.OwnerID = requestField(r, field)
	}
}

// Collaborators extracts a comma-separated collaborator list.
func Collaborators(field string) Extractor {
	return func(r *http.Request, c *policy.Context) {
		c.Collaborators = splitList(requestField(r, field))
	}
}

// Reviewers extracts a comma-separated reviewer list.
func Reviewers(field string) Extractor {
	return func(r *http.Request, c *policy.Context) {
		c.Reviewers = splitList(requestField(r, field))
	}
}

// requestField looks the field up in path parameters, then query parameters,
// then the JSON body — in that preference order.
func requestField(r *http.Request, field string) string {
	if v := chi.URLParam(r, field); v != "" {
		return v
	}
	if v := r.URL.Query().Get(field); v != "" {
		return v
	}
	return bodyField(r, field)
}

// bodyField reads the named field out of a JSON body, restoring the body so
// downstream handlers can still consume it.
func bodyField(r *http.Request, field string) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	r.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	switch v := payload[field].(type) {
	case string:
		return v
	default:
		return ""
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
