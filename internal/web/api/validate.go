package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/geomd/metaschema/internal/cache"
	"github.com/geomd/metaschema/internal/iso19115"
	"github.com/geomd/metaschema/internal/record"
	"github.com/geomd/metaschema/internal/schema"
	"github.com/geomd/metaschema/internal/validation"
	"github.com/geomd/metaschema/internal/web/response"
	"github.com/geomd/metaschema/internal/web/router"
)

// Document formats accepted in request bodies
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// checkRequest is one validation run as requested over HTTP or the stream
type checkRequest struct {
	// Type overrides the document's @type when set
	Type    string
	Lenient bool
	Rules   []string
	Body    []byte
	Format  string
}

// check decodes and validates a document, consulting the report cache first
func (a *API) check(ctx context.Context, req checkRequest) (record.Mapping, validation.Report, error) {
	types := a.cfg.Catalog.Types

	var m record.Mapping
	var err error
	if req.Format == formatYAML {
		m, err = record.DecodeYAML(types, req.Body, req.Type)
	} else {
		m, err = record.DecodeJSON(types, req.Body, req.Type)
	}
	if err != nil {
		if errors.Is(err, schema.ErrUnknownRecordType) || errors.Is(err, record.ErrMissingType) {
			return m, validation.Report{}, err
		}
		return m, validation.Report{}, badRequest(err)
	}

	rules, err := iso19115.Rules(req.Rules...)
	if err != nil {
		return m, validation.Report{}, badRequest(err)
	}

	key := cache.ReportKey{Schema: a.schema, Type: m.Type, Lenient: req.Lenient, Rules: req.Rules, Body: req.Body}
	if a.cfg.Reports != nil {
		report, hit, err := a.cfg.Reports.Get(ctx, key)
		if err != nil {
			a.logger.Warn("report cache lookup failed", zap.Error(err))
		}
		if a.cfg.Metrics != nil {
			a.cfg.Metrics.RecordCacheLookup(hit)
		}
		if hit {
			return m, report, nil
		}
	}

	opts := []validation.Option{validation.WithRules(rules...), validation.WithLogger(a.logger)}
	if req.Lenient {
		opts = append(opts, validation.WithLenientMandatory())
	}
	vs := a.cfg.Catalog.Validator(opts...).ValidateMapping(m)
	report := validation.NewReport(m.Type, vs)

	if a.cfg.Metrics != nil {
		a.cfg.Metrics.RecordValidation(m.Type, vs)
	}
	if a.cfg.Reports != nil {
		if err := a.cfg.Reports.Put(ctx, key, report); err != nil {
			a.logger.Warn("report cache store failed", zap.Error(err))
		}
	}
	return m, report, nil
}

// checkFromRequest builds a checkRequest from the body and the lenient and rules query parameters
func (a *API) checkFromRequest(w http.ResponseWriter, r *http.Request, typeName string) (checkRequest, error) {
	p := router.NewParamExtractor(r)

	lenient, err := p.QueryParamBool("lenient", a.cfg.Lenient)
	if err != nil {
		return checkRequest{}, badRequest(err)
	}
	rules := p.QueryParamList("rules")
	if len(rules) == 0 {
		rules = a.cfg.Rules
	}

	format, err := bodyFormat(r)
	if err != nil {
		return checkRequest{}, badRequest(err)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.cfg.MaxBodyBytes))
	if err != nil {
		return checkRequest{}, err
	}
	if len(body) == 0 {
		return checkRequest{}, badRequest(errors.New("request body is empty"))
	}

	return checkRequest{Type: typeName, Lenient: lenient, Rules: rules, Body: body, Format: format}, nil
}

// bodyFormat picks the decoder from Content-Type; anything but YAML is read as JSON
func bodyFormat(r *http.Request) (string, error) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return formatJSON, nil
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", fmt.Errorf("invalid Content-Type %q", ct)
	}
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return formatYAML, nil
	default:
		return formatJSON, nil
	}
}

// validateTyped validates the body as a record of the type named in the path
func (a *API) validateTyped(w http.ResponseWriter, r *http.Request) {
	name := router.NewParamExtractor(r).PathParam("name")
	a.validate(w, r, name)
}

// validateDocument validates the body as a record of its @type, or of ?type=
func (a *API) validateDocument(w http.ResponseWriter, r *http.Request) {
	a.validate(w, r, router.NewParamExtractor(r).QueryParam("type"))
}

func (a *API) validate(w http.ResponseWriter, r *http.Request, typeName string) {
	req, err := a.checkFromRequest(w, r, typeName)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	_, report, err := a.check(r.Context(), req)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, report)
}
