package router

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ParamExtractor reads and converts request parameters
type ParamExtractor struct {
	req *http.Request
}

// NewParamExtractor creates a new parameter extractor for the given request
func NewParamExtractor(req *http.Request) *ParamExtractor {
	return &ParamExtractor{req: req}
}

// PathParam extracts a path parameter by name
func (p *ParamExtractor) PathParam(name string) string {
	return chi.URLParam(p.req, name)
}

// PathParamUUID extracts a path parameter and parses it as a UUID
func (p *ParamExtractor) PathParamUUID(name string) (uuid.UUID, error) {
	value := chi.URLParam(p.req, name)
	if value == "" {
		return uuid.Nil, fmt.Errorf("missing path parameter: %s", name)
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID for parameter %s: %w", name, err)
	}
	return id, nil
}

// QueryParam extracts a query parameter by name
func (p *ParamExtractor) QueryParam(name string) string {
	return p.req.URL.Query().Get(name)
}

// QueryParamInt parses a query parameter as an int within [min, max].
// Absent means defaultValue; a malformed or out of range value is an error.
func (p *ParamExtractor) QueryParamInt(name string, defaultValue, min, max int) (int, error) {
	value := p.req.URL.Query().Get(name)
	if value == "" {
		return defaultValue, nil
	}

	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for query parameter %s: %q", name, value)
	}
	if i < min || i > max {
		return 0, fmt.Errorf("query parameter %s must be between %d and %d", name, min, max)
	}
	return i, nil
}

// QueryParamBool parses a query parameter as a bool. A bare "?name" is true.
func (p *ParamExtractor) QueryParamBool(name string, defaultValue bool) (bool, error) {
	query := p.req.URL.Query()
	if _, present := query[name]; !present {
		return defaultValue, nil
	}
	value := query.Get(name)
	if value == "" {
		return true, nil
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for query parameter %s: %q", name, value)
	}
	return b, nil
}

// QueryParamList collects a repeated or comma separated query parameter
func (p *ParamExtractor) QueryParamList(name string) []string {
	var out []string
	for _, raw := range p.req.URL.Query()[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
