package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	genverr "github.com/sajjad-MoBe/genv/internal/errors"
	"github.com/sajjad-MoBe/genv/internal/shared"
	"github.com/sajjad-MoBe/genv/internal/storage"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}

func (m *mockStore) SetMany(ctx context.Context, entries map[string][]string) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *mockStore) All() []storage.Variable {
	args := m.Called()
	return args.Get(0).([]storage.Variable)
}

func setupTestHandler() (*Handler, *mockStore) {
	store := new(mockStore)
	return NewHandler(store, shared.DiscardLogger()), store
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestGetVariable(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		lookup     string
		value      string
		err        error
		wantStatus int
		wantBody   string
		wantType   genverr.ErrorType
	}{
		{name: "path segment", target: "/get/x", lookup: "x", value: "1", wantStatus: http.StatusOK, wantBody: "1"},
		{name: "query parameter", target: "/get?name=x", lookup: "x", value: "1", wantStatus: http.StatusOK, wantBody: "1"},
		{name: "escaped slash", target: "/get/a%2Fb", lookup: "a/b", value: "v", wantStatus: http.StatusOK, wantBody: "v"},
		{name: "empty value", target: "/get/e", lookup: "e", value: "", wantStatus: http.StatusOK, wantBody: ""},
		{
			name:       "unknown name",
			target:     "/get/missing",
			lookup:     "missing",
			err:        genverr.New(genverr.ErrorTypeNotFound, `no value found for "missing"`, nil),
			wantStatus: http.StatusBadRequest,
			wantType:   genverr.ErrorTypeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, store := setupTestHandler()
			store.On("Get", tt.lookup).Return(tt.value, tt.err)

			rec := httptest.NewRecorder()
			handler.GetVariable(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.err == nil {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			} else {
				assert.Equal(t, string(tt.wantType), decodeError(t, rec).Error.Type)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestGetVariableRejectsMalformedRequests(t *testing.T) {
	targets := []string{
		"/get",
		"/get/",
		"/get/a/b",
		"/get/x?name=y",
		"/get?name=a&name=b",
		"/get?name=",
		"/get?other=1",
		"/get?name=a&other=1",
	}

	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			handler, store := setupTestHandler()

			rec := httptest.NewRecorder()
			handler.GetVariable(rec, httptest.NewRequest(http.MethodGet, target, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, string(genverr.ErrorTypeInvalidInput), decodeError(t, rec).Error.Type)
			store.AssertNotCalled(t, "Get", mock.Anything)
		})
	}
}

func TestSetVariables(t *testing.T) {
	handler, store := setupTestHandler()
	store.On("SetMany", mock.Anything, map[string][]string{"x": {"1"}, "y": {"a b"}}).Return(nil)

	rec := httptest.NewRecorder()
	handler.SetVariables(rec, httptest.NewRequest(http.MethodGet, "/set?x=1&y=a+b", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "State updated\n", rec.Body.String())
	store.AssertExpectations(t)
}

func TestSetVariablesErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   genverr.ErrorType
	}{
		{
			name:       "duplicate name",
			err:        genverr.New(genverr.ErrorTypeInvalidInput, `expected 1 and only 1 value for "x", got 2`, nil),
			wantStatus: http.StatusBadRequest,
			wantType:   genverr.ErrorTypeInvalidInput,
		},
		{
			name:       "snapshot failure",
			err:        genverr.New(genverr.ErrorTypeStorage, "failed to persist variables", errors.New("disk full")),
			wantStatus: http.StatusInternalServerError,
			wantType:   genverr.ErrorTypeStorage,
		},
		{
			name:       "untyped failure",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   genverr.ErrorTypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, store := setupTestHandler()
			store.On("SetMany", mock.Anything, mock.Anything).Return(tt.err)

			rec := httptest.NewRecorder()
			handler.SetVariables(rec, httptest.NewRequest(http.MethodGet, "/set?x=1", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, string(tt.wantType), resp.Error.Type)
			assert.NotContains(t, resp.Error.Message, "disk full")
		})
	}
}

func TestSetVariablesMalformedQuery(t *testing.T) {
	handler, store := setupTestHandler()

	rec := httptest.NewRecorder()
	handler.SetVariables(rec, httptest.NewRequest(http.MethodGet, "/set?x=%zz", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	store.AssertNotCalled(t, "SetMany", mock.Anything, mock.Anything)
}

func TestListVariables(t *testing.T) {
	tests := []struct {
		name string
		vars []storage.Variable
		want string
	}{
		{name: "empty", vars: []storage.Variable{}, want: `{}`},
		{
			name: "ordered",
			vars: []storage.Variable{{Name: "a", Value: "1"}, {Name: "b", Value: `say "hi"`}},
			want: `{"a":"1","b":"say \"hi\""}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, store := setupTestHandler()
			store.On("All").Return(tt.vars)

			rec := httptest.NewRecorder()
			handler.ListVariables(rec, httptest.NewRequest(http.MethodGet, "/all", nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestUnknownOperation(t *testing.T) {
	handler, _ := setupTestHandler()

	rec := httptest.NewRecorder()
	handler.UnknownOperation(rec, httptest.NewRequest(http.MethodGet, "/delete/x", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(genverr.ErrorTypeUnknownOperation), decodeError(t, rec).Error.Type)
}
