package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	genverr "github.com/sajjad-MoBe/genv/internal/errors"
	"github.com/sajjad-MoBe/genv/internal/storage"
)

// VariableStore is the table the handlers operate on
type VariableStore interface {
	Get(name string) (string, error)
	SetMany(ctx context.Context, entries map[string][]string) error
	All() []storage.Variable
}

// Handler handles the get, set and all operations
type Handler struct {
	store  VariableStore
	logger logrus.FieldLogger
}

// NewHandler creates a new API handler
func NewHandler(store VariableStore, logger logrus.FieldLogger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// GetVariable handles /get/<name> and /get?name=<name>
func (h *Handler) GetVariable(w http.ResponseWriter, r *http.Request) {
	name, err := variableName(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	value, err := h.store.Get(name)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeText(w, http.StatusOK, value)
}

// SetVariables handles /set?<name>=<value>[&...]
func (h *Handler) SetVariables(w http.ResponseWriter, r *http.Request) {
	entries, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		h.handleError(w, r, genverr.New(genverr.ErrorTypeInvalidInput, "querystring parse error", err))
		return
	}

	// the snapshot write is not cancelled when the client goes away
	ctx := context.WithoutCancel(r.Context())
	if err := h.store.SetMany(ctx, entries); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeText(w, http.StatusOK, "State updated\n")
}

// ListVariables handles /all
func (h *Handler) ListVariables(w http.ResponseWriter, r *http.Request) {
	body, err := encodeVariables(h.store.All())
	if err != nil {
		h.handleError(w, r, genverr.New(genverr.ErrorTypeInternal, "failed to serialize JSON response", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// UnknownOperation handles every path that is not get, set or all
func (h *Handler) UnknownOperation(w http.ResponseWriter, r *http.Request) {
	h.handleError(w, r, genverr.New(genverr.ErrorTypeUnknownOperation, "404 Not Found", nil))
}

// variableName accepts exactly one extra path segment or exactly one
// name query parameter, never both.
func variableName(r *http.Request) (string, error) {
	segments := pathSegments(r.URL)

	query, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		return "", genverr.New(genverr.ErrorTypeInvalidInput, "querystring parse error", err)
	}

	var name string
	switch {
	case len(segments) == 2 && len(query) == 0:
		name = segments[1]
	case len(segments) == 1 && len(query) == 1 && len(query["name"]) == 1:
		name = query.Get("name")
	default:
		return "", genverr.New(genverr.ErrorTypeInvalidInput, "expected one and only one value to get by name", nil)
	}

	if name == "" {
		return "", genverr.New(genverr.ErrorTypeInvalidInput, "variable name cannot be empty", nil)
	}
	return name, nil
}

// pathSegments splits the escaped path so that %2F inside a name survives
func pathSegments(u *url.URL) []string {
	raw := strings.Split(strings.TrimPrefix(u.EscapedPath(), "/"), "/")
	segments := make([]string, len(raw))
	for i, s := range raw {
		if unescaped, err := url.PathUnescape(s); err == nil {
			s = unescaped
		}
		segments[i] = s
	}
	return segments
}

// encodeVariables writes a JSON object whose keys keep the order of vars
func encodeVariables(vars []storage.Variable) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range vars {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(v.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(v.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// handleError logs err and writes its error response
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	entry := h.logger.WithFields(logrus.Fields{
		"path":       r.URL.Path,
		"status":     status,
		"request_id": RequestIDFromContext(r.Context()),
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	writeError(w, err)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
