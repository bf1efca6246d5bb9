package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/docktree/pkg/buildinfo"
	apperrors "github.com/matzehuels/docktree/pkg/errors"
	dtio "github.com/matzehuels/docktree/pkg/io"
	"github.com/matzehuels/docktree/pkg/layer"
	"github.com/matzehuels/docktree/pkg/pipeline"
)

var (
	errRouteNotFound = apperrors.New(apperrors.ErrCodeNotFound, "no such route")
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

type healthBody struct {
	Status string `json:"status"`
	buildinfo.Info
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{Status: "ok", Info: buildinfo.Get()})
}

func (s *Server) handleHeads(w http.ResponseWriter, r *http.Request) {
	f, ok := s.forest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dtio.Trees(f.Heads()))
}

func (s *Server) handleHeadsFor(w http.ResponseWriter, r *http.Request) {
	sel, err := selectorParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	f, ok := s.forest(w, r)
	if !ok {
		return
	}
	heads, err := f.HeadsFor(sel)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dtio.Trees(heads))
}

func (s *Server) handleLayer(w http.ResponseWriter, r *http.Request) {
	sel, err := selectorParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	f, ok := s.forest(w, r)
	if !ok {
		return
	}
	found, err := f.Resolve(sel)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found[0].Record())
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Format:    q.Get("format"),
		Charset:   q.Get("charset"),
		Selectors: q["image"],
	}
	for _, sel := range opts.Selectors {
		if err := apperrors.ValidateSelector(sel); err != nil {
			writeError(w, err)
			return
		}
	}
	for name, dst := range map[string]*bool{
		"intermediate": &opts.Intermediate,
		"summary":      &opts.Summary,
		"detailed":     &opts.Detailed,
		"refresh":      &opts.Refresh,
	} {
		v, err := boolParam(r, name)
		if err != nil {
			writeError(w, err)
			return
		}
		*dst = v
	}

	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	if res.CacheInfo.RenderHit {
		w.Header().Set("X-Docktree-Cache", "hit")
	} else {
		w.Header().Set("X-Docktree-Cache", "miss")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Output)
}

// forest loads the working forest for the request, writing an error
// response and returning false on failure.
func (s *Server) forest(w http.ResponseWriter, r *http.Request) (*layer.Forest, bool) {
	intermediate, err := boolParam(r, "intermediate")
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	refresh, err := boolParam(r, "refresh")
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	f, err := s.runner.Forest(r.Context(), intermediate, refresh)
	if err != nil {
		s.logger.Error("load forest", "err", err)
		writeError(w, err)
		return nil, false
	}
	return f, true
}

// selectorParam reads the wildcard path segment so selectors containing a
// registry path ("registry:5000/app:1") survive routing.
func selectorParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "*")
	sel, err := url.PathUnescape(raw)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInvalidSelector, err, "malformed selector %q", raw)
	}
	if err := apperrors.ValidateSelector(sel); err != nil {
		return "", err
	}
	return sel, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, apperrors.New(apperrors.ErrCodeInvalidInput, "query parameter %s: %q is not a boolean", name, v)
	}
	return b, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// writeError maps err to a status via its code. Errors without a code
// are reported as internal.
func writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	writeJSON(w, apperrors.HTTPStatus(code), errorBody{Code: code, Message: errorMessage(err, code)})
}

// errorMessage strips the "CODE: " prefix an *apperrors.Error adds to its
// string form.
func errorMessage(err error, code apperrors.Code) string {
	return strings.Replace(err.Error(), string(code)+": ", "", 1)
}
