package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajjad-MoBe/genv/internal/api"
	"github.com/sajjad-MoBe/genv/internal/shared"
	"github.com/sajjad-MoBe/genv/internal/storage"
)

const testSecret = "s3cret"

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := shared.DiscardLogger()
	snap := storage.NewFileSnapshotter(filepath.Join(t.TempDir(), "state.json"))
	table := storage.Open(context.Background(), snap, logger)

	server := httptest.NewServer(api.Router(api.NewHandler(table, logger), api.RouterConfig{
		Auth:   api.NewAuthorizer(testSecret, nil),
		Logger: logger,
	}))
	t.Cleanup(server.Close)
	return server
}

func setupTestClient(t *testing.T, server *httptest.Server, secret string) *Client {
	t.Helper()
	c, err := NewClient(server.URL+"/", secret, DefaultConfig())
	require.NoError(t, err)
	return c
}

func TestSetGetAll(t *testing.T) {
	c := setupTestClient(t, setupTestServer(t), testSecret)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "EDITOR", "vim"))
	require.NoError(t, c.SetMany(ctx, map[string]string{"A": "1", "SPACED": "a b&c=d"}))

	value, err := c.Get(ctx, "SPACED")
	require.NoError(t, err)
	assert.Equal(t, "a b&c=d", value)

	all, err := c.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "EDITOR": "vim", "SPACED": "a b&c=d"}, all)
}

func TestGetAwkwardNames(t *testing.T) {
	c := setupTestClient(t, setupTestServer(t), testSecret)
	ctx := context.Background()

	for _, name := range []string{"a/b", ".", "..", "with space", "x?y"} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Set(ctx, name, "v-"+name))
			value, err := c.Get(ctx, name)
			require.NoError(t, err)
			assert.Equal(t, "v-"+name, value)
		})
	}
}

func TestAllEmpty(t *testing.T) {
	c := setupTestClient(t, setupTestServer(t), testSecret)

	all, err := c.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStatusErrors(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	_, err := setupTestClient(t, server, testSecret).Get(ctx, "missing")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "NOT_FOUND", statusErr.Type)

	_, err = setupTestClient(t, server, "wrong").All(ctx)
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", statusErr.Type)
	assert.Contains(t, err.Error(), "incorrect X-Secret header value")
}

func TestSetManyRejectsEmptyBatch(t *testing.T) {
	c := setupTestClient(t, setupTestServer(t), testSecret)
	assert.Error(t, c.SetMany(context.Background(), nil))
}

func TestNonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := setupTestClient(t, server, testSecret).Get(context.Background(), "x")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Empty(t, statusErr.Type)
}

func TestSendsSecretHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(SecretHeader)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	_, err := setupTestClient(t, server, "abc").All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		server  string
		want    string
		wantErr bool
	}{
		{server: "http://localhost:3000/", want: "http://localhost:3000"},
		{server: "localhost:3000", want: "http://localhost:3000"},
		{server: "https://genv.example.com/base/", want: "https://genv.example.com/base"},
		{server: "", wantErr: true},
		{server: "ftp://example.com", wantErr: true},
		{server: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			c, err := NewClient(tt.server, "s", DefaultConfig())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.server)
		})
	}
}
