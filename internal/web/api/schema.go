package api

import (
	"net/http"

	"github.com/geomd/metaschema/internal/iso19115"
	"github.com/geomd/metaschema/internal/schema"
	"github.com/geomd/metaschema/internal/web/response"
	"github.com/geomd/metaschema/internal/web/router"
)

type vocabularyView struct {
	Name  string   `json:"name"`
	Codes []string `json:"codes"`
}

type fieldView struct {
	Name        string `json:"name"`
	Cardinality string `json:"cardinality"`
	Required    bool   `json:"required"`
	Kind        string `json:"kind"`
	Type        string `json:"type"`
	Doc         string `json:"doc,omitempty"`
	Inherited   bool   `json:"inherited,omitempty"`
}

type typeSummary struct {
	Name     string `json:"name"`
	Parent   string `json:"parent,omitempty"`
	Abstract bool   `json:"abstract,omitempty"`
	External bool   `json:"external,omitempty"`
}

type typeView struct {
	typeSummary
	Doc      string      `json:"doc,omitempty"`
	Fields   []fieldView `json:"fields"`
	Subtypes []string    `json:"subtypes,omitempty"`
}

func (a *API) listVocabularies(w http.ResponseWriter, r *http.Request) {
	v := a.cfg.Catalog.Vocabulary
	out := make([]vocabularyView, 0, v.Count())
	for _, name := range v.Names() {
		codes, _ := v.CodesOf(name)
		out = append(out, vocabularyView{Name: name, Codes: codes})
	}
	response.RenderJSON(w, http.StatusOK, out)
}

func (a *API) getVocabulary(w http.ResponseWriter, r *http.Request) {
	name := router.NewParamExtractor(r).PathParam("name")
	codes, err := a.cfg.Catalog.Vocabulary.CodesOf(name)
	if err != nil {
		response.RenderNotFound(w, err.Error())
		return
	}
	response.RenderJSON(w, http.StatusOK, vocabularyView{Name: name, Codes: codes})
}

// listTypes lists every type; ?abstract=false hides abstract and external types
func (a *API) listTypes(w http.ResponseWriter, r *http.Request) {
	includeAll, err := router.NewParamExtractor(r).QueryParamBool("abstract", true)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	types := a.cfg.Catalog.Types
	out := make([]typeSummary, 0)
	for _, name := range types.Names() {
		t, err := types.Lookup(name)
		if err != nil {
			continue
		}
		if !includeAll && (t.Abstract() || t.External()) {
			continue
		}
		out = append(out, summarize(t))
	}
	response.RenderJSON(w, http.StatusOK, out)
}

func (a *API) getType(w http.ResponseWriter, r *http.Request) {
	name := router.NewParamExtractor(r).PathParam("name")
	types := a.cfg.Catalog.Types

	t, err := types.Lookup(name)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	own := make(map[string]bool, len(t.OwnFields()))
	for _, f := range t.OwnFields() {
		own[f.Name] = true
	}

	view := typeView{
		typeSummary: summarize(t),
		Doc:         t.Doc(),
		Fields:      make([]fieldView, 0, len(t.EffectiveFields())),
		Subtypes:    types.Subtypes(name),
	}
	for _, f := range t.EffectiveFields() {
		view.Fields = append(view.Fields, describeField(f, !own[f.Name]))
	}
	response.RenderJSON(w, http.StatusOK, view)
}

func (a *API) listRules(w http.ResponseWriter, r *http.Request) {
	response.RenderJSON(w, http.StatusOK, map[string]interface{}{
		"rules":    iso19115.RuleNames(),
		"defaults": a.cfg.Rules,
	})
}

func summarize(t *schema.RecordType) typeSummary {
	return typeSummary{
		Name:     t.Name(),
		Parent:   t.Parent(),
		Abstract: t.Abstract(),
		External: t.External(),
	}
}

func describeField(f schema.FieldDescriptor, inherited bool) fieldView {
	typ := f.RefType
	if f.Kind == schema.KindPrimitive {
		typ = f.Primitive.String()
	}
	return fieldView{
		Name:        f.Name,
		Cardinality: f.Cardinality.String(),
		Required:    f.Required,
		Kind:        f.Kind.String(),
		Type:        typ,
		Doc:         f.Doc,
		Inherited:   inherited,
	}
}
