package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/geomd/metaschema/internal/record"
	"github.com/geomd/metaschema/internal/store"
	"github.com/geomd/metaschema/internal/validation"
	webcontext "github.com/geomd/metaschema/internal/web/context"
	"github.com/geomd/metaschema/internal/web/response"
	"github.com/geomd/metaschema/internal/web/router"
	"github.com/geomd/metaschema/internal/web/websocket"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// allRecordsRoom receives an event for every stored record
const allRecordsRoom = "*"

type recordView struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Record    json.RawMessage `json:"record"`
}

type createdView struct {
	ID     string            `json:"id"`
	Type   string            `json:"type"`
	Report validation.Report `json:"report"`
}

func viewOf(st *store.Stored) recordView {
	return recordView{ID: st.ID, Type: st.Type, CreatedAt: st.CreatedAt, Record: st.Body}
}

// createRecord validates the body and stores it when it has no errors
func (a *API) createRecord(w http.ResponseWriter, r *http.Request) {
	req, err := a.checkFromRequest(w, r, router.NewParamExtractor(r).QueryParam("type"))
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	m, report, err := a.check(r.Context(), req)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if !report.Valid {
		response.RenderValidationError(w, report)
		return
	}

	rec, err := record.FromMapping(a.cfg.Catalog.Types, m)
	if err != nil {
		response.RenderErrorWithCode(w, http.StatusUnprocessableEntity, err, "invalid_record")
		return
	}
	rec.Freeze()

	id, err := a.cfg.Store.Save(r.Context(), rec)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	if a.cfg.Metrics != nil {
		a.cfg.Metrics.RecordsStoredTotal.Inc()
	}
	a.logger.Info("record stored",
		zap.String("id", id),
		zap.String("type", rec.TypeName()),
		zap.String("subject", webcontext.GetSubject(r.Context())),
	)
	a.announce(id, rec.TypeName())

	if location, err := a.router.URL("record", map[string]string{"id": id}); err == nil {
		w.Header().Set("Location", location)
	}
	response.RenderJSON(w, http.StatusCreated, createdView{ID: id, Type: rec.TypeName(), Report: report})
}

// announce notifies stream subscribers of the type, its ancestors and "*"
func (a *API) announce(id, typeName string) {
	event := &websocket.Message{
		Type:    "record_stored",
		Payload: map[string]string{"id": id, "type": typeName},
	}

	rooms := []string{allRecordsRoom}
	for name := typeName; name != ""; {
		rooms = append(rooms, name)
		t, err := a.cfg.Catalog.Types.Lookup(name)
		if err != nil {
			break
		}
		name = t.Parent()
	}

	for _, room := range rooms {
		if err := a.hub.BroadcastToRoom(room, event); err != nil {
			a.logger.Warn("record event failed", zap.String("room", room), zap.Error(err))
		}
	}
}

func (a *API) getRecord(w http.ResponseWriter, r *http.Request) {
	id, err := router.NewParamExtractor(r).PathParamUUID("id")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	st, err := a.cfg.Store.Load(r.Context(), id.String())
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, viewOf(st))
}

// listRecords lists stored records, newest first; ?type= includes subtypes
func (a *API) listRecords(w http.ResponseWriter, r *http.Request) {
	p := router.NewParamExtractor(r)
	limit, err := p.QueryParamInt("limit", defaultListLimit, 1, maxListLimit)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	stored, err := a.cfg.Store.List(r.Context(), p.QueryParam("type"), limit)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	out := make([]recordView, len(stored))
	for i, st := range stored {
		out[i] = viewOf(st)
	}
	response.RenderJSON(w, http.StatusOK, out)
}

// exportRecords streams every stored record of ?type= as JSON Lines
func (a *API) exportRecords(w http.ResponseWriter, r *http.Request) {
	stored, err := a.cfg.Store.List(r.Context(), router.NewParamExtractor(r).QueryParam("type"), 0)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	streamer, err := response.NewStreamer(w)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	objects := make(chan interface{})
	go func() {
		defer close(objects)
		for _, st := range stored {
			select {
			case objects <- viewOf(st):
			case <-r.Context().Done():
				return
			}
		}
	}()

	if err := streamer.StreamJSON(objects); err != nil {
		a.logger.Warn("export interrupted", zap.Error(err))
	}
}

func (a *API) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := router.NewParamExtractor(r).PathParamUUID("id")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	if err := a.cfg.Store.Delete(r.Context(), id.String()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.RenderNotFound(w, err.Error())
			return
		}
		a.renderError(w, r, err)
		return
	}
	a.logger.Info("record deleted", zap.String("id", id.String()), zap.String("subject", webcontext.GetSubject(r.Context())))
	w.WriteHeader(http.StatusNoContent)
}
