package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/geomd/metaschema/internal/record"
	"github.com/geomd/metaschema/internal/schema"
	"github.com/geomd/metaschema/internal/store"
	utilstrings "github.com/geomd/metaschema/internal/util/strings"
	"github.com/geomd/metaschema/internal/vocab"
	webcontext "github.com/geomd/metaschema/internal/web/context"
	"github.com/geomd/metaschema/internal/web/response"
)

// requestError marks a failure caused by the client's input
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{err: err}
}

// statusOf maps an error to the HTTP status it is reported with
func statusOf(err error) int {
	var maxBytes *http.MaxBytesError
	var reqErr *requestError
	switch {
	case errors.Is(err, schema.ErrUnknownRecordType),
		errors.Is(err, vocab.ErrUnknownEnumeration),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, record.ErrMissingType), errors.As(err, &reqErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("request_id", webcontext.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		response.RenderInternalError(w)
		return
	}
	if suggestions := a.suggest(err); len(suggestions) > 0 {
		response.RenderErrorWithDetails(w, status, err, map[string]interface{}{"suggestions": suggestions})
		return
	}
	response.RenderError(w, status, err)
}

// maxSuggestions bounds the "did you mean" list of unknown names
const maxSuggestions = 3

// suggest returns near matches for the name of an unknown type or enumeration
func (a *API) suggest(err error) []string {
	var sentinel error
	var candidates []string
	switch {
	case errors.Is(err, schema.ErrUnknownRecordType):
		sentinel, candidates = schema.ErrUnknownRecordType, a.cfg.Catalog.Types.Names()
	case errors.Is(err, vocab.ErrUnknownEnumeration):
		sentinel, candidates = vocab.ErrUnknownEnumeration, a.cfg.Catalog.Vocabulary.Names()
	default:
		return nil
	}

	msg, prefix := err.Error(), sentinel.Error()+": "
	i := strings.LastIndex(msg, prefix)
	if i < 0 {
		return nil
	}
	return utilstrings.Suggest(msg[i+len(prefix):], candidates, maxSuggestions)
}
